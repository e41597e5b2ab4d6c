package entity

import "time"

// Settlement is one durable allocation of tokens to a paid invoice.
type Settlement struct {
	InvoiceID   string
	TokenAmount uint64
	SettledAt   time.Time
}

// LedgerSnapshot is the persisted state a ledger is restored from.
type LedgerSnapshot struct {
	TotalSupply      uint64
	TotalDistributed uint64
	Settlements      []Settlement
}

// LedgerStats is the public view of the distribution ledger.
type LedgerStats struct {
	TotalSupply      uint64
	TotalDistributed uint64
	Remaining        uint64
}

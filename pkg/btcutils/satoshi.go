package btcutils

import "github.com/shopspring/decimal"

const (
	BitcoinDecimals = 8
)

// satsUnit is 10^8
var satsUnit = decimal.New(1, BitcoinDecimals)

// BitcoinToSatoshi converts an amount in Bitcoin to Satoshi, truncating sub-satoshi precision.
func BitcoinToSatoshi(v decimal.Decimal) int64 {
	return v.Mul(satsUnit).IntPart()
}

// SatoshiToBitcoin converts an amount in Satoshi to Bitcoin without precision loss.
func SatoshiToBitcoin(v int64) decimal.Decimal {
	return decimal.New(v, -BitcoinDecimals)
}

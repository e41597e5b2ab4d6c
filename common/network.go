package common

import "github.com/btcsuite/btcd/chaincfg"

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkSignet  Network = "signet"
	NetworkRegtest Network = "regtest"
)

var chainParams = map[Network]*chaincfg.Params{
	NetworkMainnet: &chaincfg.MainNetParams,
	NetworkTestnet: &chaincfg.TestNet3Params,
	NetworkSignet:  &chaincfg.SigNetParams,
	NetworkRegtest: &chaincfg.RegressionNetParams,
}

func (n Network) IsSupported() bool {
	_, ok := chainParams[n]
	return ok
}

// ChainParams returns the chain parameters of the network, nil if unsupported.
func (n Network) ChainParams() *chaincfg.Params {
	return chainParams[n]
}

func (n Network) String() string {
	return string(n)
}

package swap

import (
	"errors"
)

// Network is the deployment the engine runs against. It only namespaces data
// and log directories, the engine itself is network agnostic.
type Network string

const (
	// Mainnet is the production deployment.
	Mainnet Network = "mainnet"

	// Testnet is the public test deployment.
	Testnet Network = "testnet"

	// Regtest is a local development deployment.
	Regtest Network = "regtest"
)

// NetworkFromString returns the network for the given name.
func NetworkFromString(network string) (Network, error) {
	switch Network(network) {
	case Mainnet, Testnet, Regtest:
		return Network(network), nil

	default:
		return "", errors.New("unknown network")
	}
}

package swap

import (
	"fmt"
	"strings"
)

// ChainType identifies the chain a lock or an order lives on.
type ChainType uint8

const (
	// ChainUnknown is the zero value and is never a valid chain.
	ChainUnknown ChainType = iota

	// ChainNative is the native ledger that hosts the swap engine.
	ChainNative

	// ChainEVM is any EVM compatible smart-contract chain.
	ChainEVM

	// ChainSolana is the Solana chain.
	ChainSolana
)

// AllChains lists every supported chain type.
var AllChains = []ChainType{ChainNative, ChainEVM, ChainSolana}

// String returns the canonical name of the chain type.
func (c ChainType) String() string {
	switch c {
	case ChainNative:
		return "native"

	case ChainEVM:
		return "evm"

	case ChainSolana:
		return "solana"

	default:
		return "unknown"
	}
}

// Valid returns true if the chain type is one of the supported chains.
func (c ChainType) Valid() bool {
	return c == ChainNative || c == ChainEVM || c == ChainSolana
}

// ParseChainType parses a chain name as produced by ChainType.String.
func ParseChainType(s string) (ChainType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native", "icp":
		return ChainNative, nil

	case "evm", "ethereum", "eth":
		return ChainEVM, nil

	case "solana", "sol":
		return ChainSolana, nil

	default:
		return ChainUnknown, NewError(
			KindInvalidInput, "InvalidChain",
			fmt.Sprintf("unknown chain type: %q", s),
		)
	}
}

// CounterChain returns the chain the taker side of an order locks on. Orders
// that originate on an external chain are settled against the native ledger
// and vice versa.
func CounterChain(isEvmUser bool) (ChainType, ChainType) {
	if isEvmUser {
		return ChainEVM, ChainNative
	}

	return ChainNative, ChainEVM
}

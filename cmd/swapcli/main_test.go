package main

import (
	"flag"
	"testing"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// newContext returns a cli context with the given string flags set and the
// given positional arguments.
func newContext(t *testing.T, flags map[string]string,
	args ...string) *cli.Context {

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for name := range flags {
		set.String(name, "", "")
	}

	var argv []string
	for name, value := range flags {
		argv = append(argv, "--"+name+"="+value)
	}
	argv = append(argv, args...)
	require.NoError(t, set.Parse(argv))

	return cli.NewContext(cli.NewApp(), set, nil)
}

// TestRequireArg tests that flags take precedence over positional
// arguments.
func TestRequireArg(t *testing.T) {
	ctx := newContext(t, map[string]string{"id": "flag"}, "positional")
	id, err := requireArg(ctx, "id", 0)
	require.NoError(t, err)
	require.Equal(t, "flag", id)

	ctx = newContext(t, nil, "positional")
	id, err = requireArg(ctx, "id", 0)
	require.NoError(t, err)
	require.Equal(t, "positional", id)

	_, err = requireArg(ctx, "htlc_id", 1)
	require.EqualError(t, err, "htlc id required")
}

// TestParseChain tests the optional chain flags.
func TestParseChain(t *testing.T) {
	ctx := newContext(t, map[string]string{"chain": "sol"})
	chain, err := parseChain(ctx, "chain")
	require.NoError(t, err)
	require.Equal(t, swap.ChainSolana, chain)

	chain, err = parseChain(ctx, "origin")
	require.NoError(t, err)
	require.Equal(t, swap.ChainUnknown, chain)

	ctx = newContext(t, map[string]string{"chain": "bitcoin"})
	_, err = parseChain(ctx, "chain")
	require.Equal(t, swap.KindInvalidInput, swap.KindOf(err))
}

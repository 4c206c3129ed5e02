package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/lightninglabs/htlcswap"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapd"
	"github.com/urfave/cli"
)

func printJSON(resp interface{}) {
	b, err := json.MarshalIndent(resp, "", "    ")
	if err != nil {
		fatal(err)
	}

	fmt.Println(string(b))
}

func fatal(err error) {
	// Engine errors carry a stable code scripts can match on.
	var swapErr *swap.Error
	if errors.As(err, &swapErr) {
		fmt.Fprintf(
			os.Stderr, "[swapcli] %v (%v)\n", err, swapErr.Code,
		)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "[swapcli] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()

	app.Version = htlcswap.Version()
	app.Name = "swapcli"
	app.Usage = "operate on the swap engine's database"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "swapdir",
			Value: swapd.SwapDirBase,
			Usage: "the swap daemon's main directory",
		},
		cli.StringFlag{
			Name:  "network",
			Value: "mainnet",
			Usage: "the network the database belongs to",
		},
		cli.StringFlag{
			Name:  "databasebackend",
			Value: swapd.DatabaseBackendBolt,
			Usage: "the database backend, one of bolt or sqlite",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "dump the full responses",
		},
	}
	app.Commands = []cli.Command{
		secretCommand, htlcCommand, orderCommand, partialCommand,
		resolverCommand, linkCommand, releaseCommand,
	}

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

// getEngine opens the database selected by the global flags. The engine
// never executes releases, that is left to swapd.
func getEngine(ctx *cli.Context) (*htlcswap.Engine, func(), error) {
	cfg := swapd.DefaultConfig()
	cfg.SwapDir = ctx.GlobalString("swapdir")
	cfg.Network = ctx.GlobalString("network")
	cfg.DatabaseBackend = ctx.GlobalString("databasebackend")
	cfg.Release.Disable = true

	if err := swapd.Validate(&cfg); err != nil {
		return nil, nil, err
	}

	store, engine, err := swapd.OpenEngine(context.Background(), &cfg)
	if err != nil {
		return nil, nil, err
	}

	return engine, func() { store.Close() }, nil
}

// printResp prints the response, dumping all of it in debug mode.
func printResp(ctx *cli.Context, resp interface{}) {
	if ctx.GlobalBool("debug") {
		spew.Dump(resp)
		return
	}

	printJSON(resp)
}

// parseChain parses an optional chain flag.
func parseChain(ctx *cli.Context, name string) (swap.ChainType, error) {
	if !ctx.IsSet(name) {
		return swap.ChainUnknown, nil
	}

	return swap.ParseChainType(ctx.String(name))
}

// parseExpiry turns a relative expiry flag into an absolute time. A zero
// duration yields the zero time.
func parseExpiry(ctx *cli.Context, name string) time.Time {
	d := ctx.Duration(name)
	if d == 0 {
		return time.Time{}
	}

	return time.Now().UTC().Add(d)
}

// requireArg returns the positional argument or the flag of the same name.
func requireArg(ctx *cli.Context, name string, pos int) (string, error) {
	if ctx.IsSet(name) {
		return ctx.String(name), nil
	}

	if ctx.NArg() > pos {
		return ctx.Args().Get(pos), nil
	}

	return "", fmt.Errorf("%v required", strings.ReplaceAll(name, "_", " "))
}

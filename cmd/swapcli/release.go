package main

import (
	"context"

	"github.com/lightninglabs/htlcswap/swapd"
	"github.com/urfave/cli"
)

var releaseCommand = cli.Command{
	Name:  "release",
	Usage: "inspect and execute releases on external chains",
	Subcommands: []cli.Command{
		{
			Name:   "pending",
			Usage:  "list the releases that were not executed yet",
			Action: pendingReleases,
		},
		{
			Name:  "process",
			Usage: "spool all due releases once",
			Description: `
	Runs a single pass over the due releases and spools them for the
	relayer. This must not be run while swapd is running.`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "spooldir",
					Usage: "the directory releases are spooled to",
				},
			},
			Action: processReleases,
		},
	},
}

func pendingReleases(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.PendingReleases(context.Background())
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func processReleases(ctx *cli.Context) error {
	cfg := swapd.DefaultConfig()
	cfg.SwapDir = ctx.GlobalString("swapdir")
	cfg.Network = ctx.GlobalString("network")
	cfg.DatabaseBackend = ctx.GlobalString("databasebackend")
	cfg.Release.SpoolDir = ctx.String("spooldir")

	if err := swapd.Validate(&cfg); err != nil {
		return err
	}

	store, engine, err := swapd.OpenEngine(context.Background(), &cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := engine.ProcessReleases(context.Background())
	if err != nil {
		return err
	}

	printResp(ctx, map[string]int{"processed": n})

	return nil
}

package main

import (
	"context"

	"github.com/lightninglabs/htlcswap"
	"github.com/urfave/cli"
)

var linkCommand = cli.Command{
	Name:  "link",
	Usage: "link HTLCs to orders on external chains",
	Subcommands: []cli.Command{
		{
			Name:  "create",
			Usage: "link an HTLC to an external order",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "htlc"},
				cli.StringFlag{Name: "order_hash"},
				cli.StringFlag{Name: "maker"},
				cli.StringFlag{
					Name:  "chain",
					Usage: "the chain of the external order",
				},
				cli.Uint64Flag{Name: "amt"},
				cli.StringFlag{
					Name:  "commitment",
					Usage: "the hashlock or merkle root of the order",
				},
				cli.StringFlag{
					Name:  "sig",
					Usage: "the optional hex encoded maker signature",
				},
				cli.UintFlag{Name: "segments", Value: 1},
				cli.BoolFlag{
					Name:  "source",
					Usage: "the HTLC is on the order's source chain",
				},
			},
			Action: linkOrder,
		},
		{
			Name:      "get",
			Usage:     "show the link of an HTLC",
			ArgsUsage: "htlc_id",
			Action:    getLink,
		},
		{
			Name:      "secrets",
			Usage:     "show the secrets that settle the external order",
			ArgsUsage: "htlc_id",
			Action:    getSecrets,
		},
	},
}

func linkOrder(ctx *cli.Context) error {
	chain, err := parseChain(ctx, "chain")
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.LinkExternalOrder(
		context.Background(), &htlcswap.LinkExternalOrderRequest{
			HTLCID:        ctx.String("htlc"),
			OrderHash:     ctx.String("order_hash"),
			Maker:         ctx.String("maker"),
			Chain:         chain,
			Amount:        ctx.Uint64("amt"),
			Commitment:    ctx.String("commitment"),
			Signature:     ctx.String("sig"),
			IsSourceChain: ctx.Bool("source"),
			SegmentCount:  uint32(ctx.Uint("segments")),
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getLink(ctx *cli.Context) error {
	id, err := requireArg(ctx, "htlc_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetLink(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getSecrets(ctx *cli.Context) error {
	id, err := requireArg(ctx, "htlc_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetSecrets(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

package main

import (
	"context"

	"github.com/lightninglabs/htlcswap"
	"github.com/urfave/cli"
)

var partialCommand = cli.Command{
	Name:  "partial",
	Usage: "fill HTLCs in segments",
	Subcommands: []cli.Command{
		{
			Name:  "open",
			Usage: "split a locked HTLC into segments",
			Description: `
	Opens a partial order on a locked HTLC. With --merkle_root the
	segments have to be filled in order, each revealing the secret of
	its segment. Without it fills are unordered and reveal the HTLC's
	own secret.`,
			Flags: []cli.Flag{
				cli.StringFlag{Name: "htlc"},
				cli.StringFlag{Name: "merkle_root"},
				cli.UintFlag{Name: "segments", Value: 1},
				cli.BoolFlag{
					Name:  "source",
					Usage: "the HTLC is on the order's source chain",
				},
			},
			Action: openPartialOrder,
		},
		{
			Name:  "fill",
			Usage: "fill the next segment",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "htlc"},
				cli.Uint64Flag{Name: "amt"},
				cli.StringFlag{Name: "secret"},
				cli.StringFlag{Name: "resolver"},
				cli.StringSliceFlag{
					Name:  "proof",
					Usage: "hex encoded proof nodes, leaf first",
				},
			},
			Action: createFill,
		},
		{
			Name:  "complete",
			Usage: "confirm the external release of a fill",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "fill"},
				cli.StringFlag{Name: "txid"},
				cli.StringFlag{
					Name:  "chain",
					Usage: "the chain of txid, optional",
				},
			},
			Action: completeFill,
		},
		{
			Name:      "fail",
			Usage:     "fail a fill and return its amount",
			ArgsUsage: "fill_id [reason]",
			Action:    failFill,
		},
		{
			Name:      "get",
			Usage:     "show a fill",
			ArgsUsage: "fill_id",
			Action:    getFill,
		},
		{
			Name:      "fills",
			Usage:     "list the fills of an HTLC",
			ArgsUsage: "htlc_id",
			Action:    htlcFills,
		},
		{
			Name:      "order",
			Usage:     "show the partial order of an HTLC",
			ArgsUsage: "htlc_id",
			Action:    getPartialOrder,
		},
	},
}

func openPartialOrder(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.OpenPartialOrder(
		context.Background(), &htlcswap.OpenPartialOrderRequest{
			HTLCID:        ctx.String("htlc"),
			MerkleRoot:    ctx.String("merkle_root"),
			SegmentCount:  uint32(ctx.Uint("segments")),
			IsSourceChain: ctx.Bool("source"),
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func createFill(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := engine.CreateFill(
		context.Background(), &htlcswap.CreateFillRequest{
			HTLCID:   ctx.String("htlc"),
			Amount:   ctx.Uint64("amt"),
			Secret:   ctx.String("secret"),
			Resolver: ctx.String("resolver"),
			Proof:    ctx.StringSlice("proof"),
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, map[string]string{"id": id})

	return nil
}

func completeFill(ctx *cli.Context) error {
	chain, err := parseChain(ctx, "chain")
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.CompleteFill(
		context.Background(), &htlcswap.CompleteFillRequest{
			FillID: ctx.String("fill"),
			TxID:   ctx.String("txid"),
			Chain:  chain,
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func failFill(ctx *cli.Context) error {
	id, err := requireArg(ctx, "fill_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.FailFill(
		context.Background(), id, ctx.Args().Get(1),
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getFill(ctx *cli.Context) error {
	id, err := requireArg(ctx, "fill_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetPartialFill(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func htlcFills(ctx *cli.Context) error {
	id, err := requireArg(ctx, "htlc_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetHtlcPartialFills(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getPartialOrder(ctx *cli.Context) error {
	id, err := requireArg(ctx, "htlc_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetPartialOrder(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

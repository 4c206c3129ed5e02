package main

import (
	"context"
	"fmt"
	"time"

	"github.com/lightninglabs/htlcswap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/urfave/cli"
)

var htlcCommand = cli.Command{
	Name:  "htlc",
	Usage: "manage hash time locked contracts",
	Subcommands: []cli.Command{
		{
			Name:  "create",
			Usage: "lock a new HTLC",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "sender"},
				cli.StringFlag{Name: "recipient"},
				cli.Uint64Flag{Name: "amt"},
				cli.StringFlag{Name: "token"},
				cli.StringFlag{
					Name:  "hashlock",
					Usage: "the hex encoded sha256 hash of the secret",
				},
				cli.DurationFlag{
					Name:  "expiry",
					Usage: "the time until the HTLC can be refunded",
					Value: 24 * time.Hour,
				},
				cli.StringFlag{
					Name:  "chain",
					Usage: "native, evm or solana",
					Value: "native",
				},
				cli.StringFlag{Name: "order"},
			},
			Action: createHTLC,
		},
		{
			Name:      "claim",
			Usage:     "claim an HTLC with its secret",
			ArgsUsage: "id secret",
			Action:    claimHTLC,
		},
		{
			Name:      "refund",
			Usage:     "refund an expired HTLC to its sender",
			ArgsUsage: "id caller",
			Action:    refundHTLC,
		},
		{
			Name:      "get",
			Usage:     "show an HTLC",
			ArgsUsage: "id",
			Action:    getHTLC,
		},
		{
			Name:  "list",
			Usage: "list HTLCs",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "sender"},
				cli.StringFlag{Name: "recipient"},
				cli.StringFlag{
					Name:  "status",
					Usage: "Locked, Claimed, Refunded or Expired",
				},
			},
			Action: listHTLCs,
		},
		{
			Name:      "history",
			Usage:     "show the event log of an HTLC",
			ArgsUsage: "id",
			Action:    htlcHistory,
		},
	},
}

func createHTLC(ctx *cli.Context) error {
	chain, err := parseChain(ctx, "chain")
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := engine.CreateHTLC(
		context.Background(), &htlcswap.CreateHTLCRequest{
			Sender:     ctx.String("sender"),
			Recipient:  ctx.String("recipient"),
			Amount:     ctx.Uint64("amt"),
			Token:      ctx.String("token"),
			Hashlock:   ctx.String("hashlock"),
			Expiration: parseExpiry(ctx, "expiry"),
			Chain:      chain,
			OrderRef:   ctx.String("order"),
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, map[string]string{"id": id})

	return nil
}

func claimHTLC(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "claim")
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.ClaimHTLC(
		context.Background(), ctx.Args().Get(0), ctx.Args().Get(1),
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func refundHTLC(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "refund")
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.RefundHTLC(
		context.Background(), ctx.Args().Get(0), ctx.Args().Get(1),
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getHTLC(ctx *cli.Context) error {
	id, err := requireArg(ctx, "id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetHTLC(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func listHTLCs(ctx *cli.Context) error {
	status := swapdb.HTLCStatus(ctx.String("status"))
	switch status {
	case "", swapdb.HTLCLocked, swapdb.HTLCClaimed, swapdb.HTLCRefunded,
		swapdb.HTLCExpired:

	default:
		return fmt.Errorf("unknown status: %v", status)
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.ListHTLCs(
		context.Background(), &htlcswap.ListHTLCsRequest{
			Sender:    ctx.String("sender"),
			Recipient: ctx.String("recipient"),
			Status:    status,
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func htlcHistory(ctx *cli.Context) error {
	id, err := requireArg(ctx, "id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.HTLCHistory(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

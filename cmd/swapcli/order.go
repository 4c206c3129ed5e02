package main

import (
	"context"
	"encoding/hex"

	"github.com/lightninglabs/htlcswap"
	"github.com/urfave/cli"
)

var orderFlags = []cli.Flag{
	cli.StringFlag{Name: "owner"},
	cli.StringFlag{Name: "sell_token"},
	cli.Uint64Flag{Name: "sell_amt"},
	cli.StringFlag{Name: "buy_token"},
	cli.Uint64Flag{Name: "buy_amt"},
	cli.StringFlag{
		Name:  "hashlock",
		Usage: "the hex encoded hashlock the owner commits to",
	},
	cli.BoolFlag{
		Name:  "evm_user",
		Usage: "the owner locks on the EVM side",
	},
	cli.DurationFlag{
		Name:  "expiry",
		Usage: "the lifetime of the order, the daemon default if unset",
	},
}

var orderCommand = cli.Command{
	Name:  "order",
	Usage: "manage limit orders",
	Subcommands: []cli.Command{
		{
			Name:   "place",
			Usage:  "place a limit order",
			Flags:  orderFlags,
			Action: placeOrder,
		},
		{
			Name:  "sigmsg",
			Usage: "print the message an external order is signed over",
			Description: `
	Prints the hex encoded message the owner of an external order signs
	on the origin chain before the order is submitted.`,
			Flags:  orderFlags,
			Action: orderSigningMessage,
		},
		{
			Name:  "submit",
			Usage: "submit an order signed on an external chain",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "origin",
					Usage: "evm or solana",
				},
				cli.StringFlag{
					Name:  "sig",
					Usage: "the hex encoded signature",
				},
			}, orderFlags...),
			Action: submitOrder,
		},
		{
			Name:      "take",
			Usage:     "take an open order",
			ArgsUsage: "id taker",
			Action:    takeOrder,
		},
		{
			Name:      "cancel",
			Usage:     "cancel an open order",
			ArgsUsage: "id caller",
			Action:    cancelOrder,
		},
		{
			Name:      "get",
			Usage:     "show an order",
			ArgsUsage: "id",
			Action:    getOrder,
		},
		{
			Name:   "list",
			Usage:  "list the open orders",
			Action: listOrders,
		},
		{
			Name:      "user",
			Usage:     "list the orders of an owner",
			ArgsUsage: "owner",
			Action:    userOrders,
		},
		{
			Name:      "swap",
			Usage:     "show the swap of a matched order",
			ArgsUsage: "swap_id",
			Action:    getSwap,
		},
	},
}

func placeOrderRequest(ctx *cli.Context) *htlcswap.PlaceOrderRequest {
	return &htlcswap.PlaceOrderRequest{
		Owner:        ctx.String("owner"),
		TokenSell:    ctx.String("sell_token"),
		AmountSell:   ctx.Uint64("sell_amt"),
		TokenBuy:     ctx.String("buy_token"),
		AmountBuy:    ctx.Uint64("buy_amt"),
		HashedSecret: ctx.String("hashlock"),
		IsEvmUser:    ctx.Bool("evm_user"),
		Expiry:       parseExpiry(ctx, "expiry"),
	}
}

func placeOrder(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := engine.PlaceOrder(
		context.Background(), placeOrderRequest(ctx),
	)
	if err != nil {
		return err
	}

	printResp(ctx, map[string]string{"id": id})

	return nil
}

func orderSigningMessage(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	msg, err := engine.OrderSigningMessage(placeOrderRequest(ctx))
	if err != nil {
		return err
	}

	printResp(ctx, map[string]string{
		"message":     string(msg),
		"message_hex": hex.EncodeToString(msg),
	})

	return nil
}

func submitOrder(ctx *cli.Context) error {
	origin, err := parseChain(ctx, "origin")
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := engine.SubmitExternalOrder(
		context.Background(), &htlcswap.ExternalOrderRequest{
			PlaceOrderRequest: *placeOrderRequest(ctx),
			OriginChain:       origin,
			Signature:         ctx.String("sig"),
		},
	)
	if err != nil {
		return err
	}

	printResp(ctx, map[string]string{"id": id})

	return nil
}

func takeOrder(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "take")
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.TakeOrder(
		context.Background(), ctx.Args().Get(0), ctx.Args().Get(1),
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func cancelOrder(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return cli.ShowCommandHelp(ctx, "cancel")
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return engine.CancelOrder(
		context.Background(), ctx.Args().Get(0), ctx.Args().Get(1),
	)
}

func getOrder(ctx *cli.Context) error {
	id, err := requireArg(ctx, "id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetOrder(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func listOrders(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetOpenOrders(context.Background())
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func userOrders(ctx *cli.Context) error {
	owner, err := requireArg(ctx, "owner", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetUserOrders(context.Background(), owner)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getSwap(ctx *cli.Context) error {
	id, err := requireArg(ctx, "swap_id", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetSwap(context.Background(), id)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

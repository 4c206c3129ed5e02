package main

import (
	"context"
	"fmt"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/urfave/cli"
)

var resolverCommand = cli.Command{
	Name:  "resolver",
	Usage: "manage the resolvers that fill partial orders",
	Subcommands: []cli.Command{
		{
			Name:      "register",
			Usage:     "register a resolver",
			ArgsUsage: "address chain [chain...]",
			Action:    registerResolver,
		},
		{
			Name:      "activate",
			Usage:     "activate a resolver",
			ArgsUsage: "address",
			Action:    setResolverStatus(true),
		},
		{
			Name:      "deactivate",
			Usage:     "deactivate a resolver",
			ArgsUsage: "address",
			Action:    setResolverStatus(false),
		},
		{
			Name:      "select",
			Usage:     "list the candidates for fills on a chain",
			ArgsUsage: "chain",
			Action:    selectResolvers,
		},
		{
			Name:      "get",
			Usage:     "show a resolver",
			ArgsUsage: "address",
			Action:    getResolver,
		},
		{
			Name:   "list",
			Usage:  "list all resolvers",
			Action: listResolvers,
		},
	},
}

func registerResolver(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return cli.ShowCommandHelp(ctx, "register")
	}

	args := ctx.Args()
	chains := make([]swap.ChainType, 0, len(args.Tail()))
	for _, arg := range args.Tail() {
		chain, err := swap.ParseChainType(arg)
		if err != nil {
			return err
		}
		chains = append(chains, chain)
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.RegisterResolver(
		context.Background(), args.First(), chains,
	)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func setResolverStatus(active bool) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		address, err := requireArg(ctx, "address", 0)
		if err != nil {
			return err
		}

		engine, cleanup, err := getEngine(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		resp, err := engine.UpdateResolverStatus(
			context.Background(), address, active,
		)
		if err != nil {
			return err
		}

		printResp(ctx, resp)

		return nil
	}
}

func selectResolvers(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("chain required")
	}

	chain, err := swap.ParseChainType(ctx.Args().First())
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.SelectResolvers(context.Background(), chain)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func getResolver(ctx *cli.Context) error {
	address, err := requireArg(ctx, "address", 0)
	if err != nil {
		return err
	}

	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.GetResolver(context.Background(), address)
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

func listResolvers(ctx *cli.Context) error {
	engine, cleanup, err := getEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := engine.ListResolvers(context.Background())
	if err != nil {
		return err
	}

	printResp(ctx, resp)

	return nil
}

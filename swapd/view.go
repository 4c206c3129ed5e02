package swapd

import (
	"context"
	"fmt"

	"github.com/lightninglabs/htlcswap"
)

// view prints all HTLCs, orders and pending releases currently in the
// database.
func view(config *Config) error {
	ctx := context.Background()

	// Releases are never executed from here.
	config.Release.Disable = true

	store, engine, err := OpenEngine(ctx, config)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := viewHTLCs(ctx, engine); err != nil {
		return err
	}

	if err := viewOrders(ctx, engine); err != nil {
		return err
	}

	return viewReleases(ctx, engine)
}

func viewHTLCs(ctx context.Context, engine *htlcswap.Engine) error {
	htlcs, err := engine.ListHTLCs(ctx, &htlcswap.ListHTLCsRequest{})
	if err != nil {
		return err
	}

	for _, h := range htlcs {
		fmt.Printf("HTLC %v\n", h.ID)
		fmt.Printf("   Created: %v\n", h.CreatedAt)
		fmt.Printf("   Chain: %v\n", h.Chain)
		fmt.Printf("   Sender: %v\n", h.Sender)
		fmt.Printf("   Recipient: %v\n", h.Recipient)
		fmt.Printf("   Amount: %v %v\n", h.Amount, h.Token)
		fmt.Printf("   Hashlock: %v\n", h.Hashlock)
		fmt.Printf("   Expiration: %v\n", h.Expiration)
		fmt.Printf("   Status: %v\n", h.Status)
		if h.OrderRef != "" {
			fmt.Printf("   Order: %v\n", h.OrderRef)
		}

		history, err := engine.HTLCHistory(ctx, h.ID)
		if err != nil {
			return err
		}

		for i, e := range history {
			fmt.Printf("   Update %v, Time %v, Event %v, "+
				"Status %v\n", i, e.Time, e.Event, e.Status)
		}
		fmt.Println()
	}

	return nil
}

func viewOrders(ctx context.Context, engine *htlcswap.Engine) error {
	orders, err := engine.GetOpenOrders(ctx)
	if err != nil {
		return err
	}

	for _, o := range orders {
		fmt.Printf("Order %v\n", o.ID)
		fmt.Printf("   Owner: %v\n", o.Owner)
		fmt.Printf("   Sell: %v %v\n", o.AmountSell, o.TokenSell)
		fmt.Printf("   Buy: %v %v\n", o.AmountBuy, o.TokenBuy)
		fmt.Printf("   Expiry: %v\n", o.Expiry)
		fmt.Println()
	}

	return nil
}

func viewReleases(ctx context.Context, engine *htlcswap.Engine) error {
	releases, err := engine.PendingReleases(ctx)
	if err != nil {
		return err
	}

	for _, r := range releases {
		fmt.Printf("Release %v\n", r.Key)
		fmt.Printf("   Chain: %v\n", r.Chain)
		fmt.Printf("   Recipient: %v\n", r.Recipient)
		fmt.Printf("   Amount: %v %v\n", r.Amount, r.Token)
		fmt.Printf("   Attempts: %v\n", r.Attempts)
		if r.LastError != "" {
			fmt.Printf("   Last error: %v\n", r.LastError)
		}
		fmt.Println()
	}

	return nil
}

package swapdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb/sqlc"
	"github.com/lightningnetwork/lnd/lntypes"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// toUnix converts a timestamp to the integer stored in the database. The
// zero time maps to zero.
func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

// fromUnix is the inverse of toUnix.
func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}

// isUniqueViolation returns true if the error is a primary key or unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
		sqlite3.SQLITE_CONSTRAINT_UNIQUE:

		return true
	}

	return false
}

// mapInsertErr translates constraint violations on insert.
func mapInsertErr(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}

	return err
}

// expectOneRow returns ErrNotFound if an update touched no row.
func expectOneRow(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// mapNoRows translates sql.ErrNoRows into ErrNotFound.
func mapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	return err
}

func secretBytes(secret *lntypes.Preimage) []byte {
	if secret == nil {
		return nil
	}

	return secret[:]
}

// convertHTLCRow converts a database row into an HTLC.
func convertHTLCRow(row sqlc.Htlc) (*HTLC, error) {
	hashlock, err := lntypes.MakeHash(row.Hashlock)
	if err != nil {
		return nil, err
	}

	htlc := &HTLC{
		ID:         row.ID,
		Sender:     row.Sender,
		Recipient:  row.Recipient,
		Amount:     uint64(row.Amount),
		Token:      row.Token,
		Hashlock:   hashlock,
		CreatedAt:  fromUnix(row.CreatedAt),
		Expiration: fromUnix(row.Expiration),
		Chain:      swap.ChainType(row.Chain),
		Status:     HTLCStatus(row.Status),
		OrderRef:   row.OrderRef,
	}

	if len(row.Secret) > 0 {
		secret, err := lntypes.MakePreimage(row.Secret)
		if err != nil {
			return nil, err
		}
		htlc.Secret = &secret
	}

	return htlc, nil
}

func insertUpdate(ctx context.Context, tx *sqlc.Queries, htlcID string,
	update HTLCUpdate) error {

	return tx.InsertHtlcUpdate(ctx, sqlc.InsertHtlcUpdateParams{
		HtlcID:     htlcID,
		UpdateTime: toUnix(update.Time),
		Status:     string(update.Status),
		Event:      update.Event,
	})
}

// updateHTLCTx stores the HTLC state and appends the update.
func updateHTLCTx(ctx context.Context, tx *sqlc.Queries, htlc *HTLC,
	update HTLCUpdate) error {

	err := expectOneRow(tx.UpdateHtlcState(
		ctx, sqlc.UpdateHtlcStateParams{
			Secret: secretBytes(htlc.Secret),
			Status: string(htlc.Status),
			ID:     htlc.ID,
		},
	))
	if err != nil {
		return err
	}

	return insertUpdate(ctx, tx, htlc.ID, update)
}

// CreateHTLC adds a new HTLC to the store.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateHTLC(ctx context.Context, htlc *HTLC) error {
	return s.ExecTx(ctx, NewSqlWriteOpts(), func(tx *sqlc.Queries) error {
		err := tx.InsertHtlc(ctx, sqlc.InsertHtlcParams{
			ID:         htlc.ID,
			Sender:     htlc.Sender,
			Recipient:  htlc.Recipient,
			Amount:     int64(htlc.Amount),
			Token:      htlc.Token,
			Hashlock:   htlc.Hashlock[:],
			Secret:     secretBytes(htlc.Secret),
			CreatedAt:  toUnix(htlc.CreatedAt),
			Expiration: toUnix(htlc.Expiration),
			Chain:      int64(htlc.Chain),
			Status:     string(htlc.Status),
			OrderRef:   htlc.OrderRef,
		})
		if err != nil {
			return mapInsertErr(err)
		}

		return insertUpdate(ctx, tx, htlc.ID, HTLCUpdate{
			Time:   htlc.CreatedAt,
			Status: htlc.Status,
			Event:  "created",
		})
	})
}

// UpdateHTLC stores the new HTLC state and appends the update.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) UpdateHTLC(ctx context.Context, htlc *HTLC,
	update HTLCUpdate, release *ReleaseIntent) error {

	return s.ExecTx(ctx, NewSqlWriteOpts(), func(tx *sqlc.Queries) error {
		if err := updateHTLCTx(ctx, tx, htlc, update); err != nil {
			return err
		}

		_, err := putReleaseTx(ctx, tx, release)

		return err
	})
}

// FetchHTLC returns the HTLC with the given id.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchHTLC(ctx context.Context, id string) (*HTLC,
	error) {

	row, err := s.Queries.GetHtlc(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return convertHTLCRow(row)
}

// FetchHTLCs returns all HTLCs ordered by creation time.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchHTLCs(ctx context.Context) ([]*HTLC, error) {
	rows, err := s.Queries.GetHtlcs(ctx)
	if err != nil {
		return nil, err
	}

	htlcs := make([]*HTLC, 0, len(rows))
	for _, row := range rows {
		htlc, err := convertHTLCRow(row)
		if err != nil {
			return nil, err
		}
		htlcs = append(htlcs, htlc)
	}

	return htlcs, nil
}

// FetchHTLCUpdates returns the update log of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchHTLCUpdates(ctx context.Context, id string) (
	[]HTLCUpdate, error) {

	var updates []HTLCUpdate
	err := s.ExecTx(ctx, NewSqlReadOpts(), func(tx *sqlc.Queries) error {
		if _, err := tx.GetHtlc(ctx, id); err != nil {
			return mapNoRows(err)
		}

		rows, err := tx.GetHtlcUpdates(ctx, id)
		if err != nil {
			return err
		}

		for _, row := range rows {
			updates = append(updates, HTLCUpdate{
				Time:   fromUnix(row.UpdateTime),
				Status: HTLCStatus(row.Status),
				Event:  row.Event,
			})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updates, nil
}

// convertOrderRow converts a database row into a limit order.
func convertOrderRow(row sqlc.LimitOrder) (*LimitOrder, error) {
	hashedSecret, err := lntypes.MakeHash(row.HashedSecret)
	if err != nil {
		return nil, err
	}

	order := &LimitOrder{
		ID:           row.ID,
		Owner:        row.Owner,
		HashedSecret: hashedSecret,
		TokenSell:    row.TokenSell,
		AmountSell:   uint64(row.AmountSell),
		TokenBuy:     row.TokenBuy,
		AmountBuy:    uint64(row.AmountBuy),
		IsEvmUser:    row.IsEvmUser,
		Timestamp:    fromUnix(row.PlacedAt),
		Expiry:       fromUnix(row.Expiry),
		Status:       OrderStatus(row.Status),
		External:     row.External,
		OriginChain:  swap.ChainType(row.OriginChain),
		Taker:        row.Taker,
		SwapID:       row.SwapID,
	}
	if len(row.Signature) > 0 {
		order.Signature = row.Signature
	}

	return order, nil
}

// CreateOrder adds a new order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateOrder(ctx context.Context,
	order *LimitOrder) error {

	err := s.Queries.InsertLimitOrder(ctx, sqlc.InsertLimitOrderParams{
		ID:           order.ID,
		Owner:        order.Owner,
		HashedSecret: order.HashedSecret[:],
		TokenSell:    order.TokenSell,
		AmountSell:   int64(order.AmountSell),
		TokenBuy:     order.TokenBuy,
		AmountBuy:    int64(order.AmountBuy),
		IsEvmUser:    order.IsEvmUser,
		PlacedAt:     toUnix(order.Timestamp),
		Expiry:       toUnix(order.Expiry),
		Status:       string(order.Status),
		External:     order.External,
		OriginChain:  int64(order.OriginChain),
		Signature:    order.Signature,
		Taker:        order.Taker,
		SwapID:       order.SwapID,
	})

	return mapInsertErr(err)
}

// updateOrderTx overwrites the mutable fields of an existing order.
func updateOrderTx(ctx context.Context, tx *sqlc.Queries,
	order *LimitOrder) error {

	return expectOneRow(tx.UpdateLimitOrder(
		ctx, sqlc.UpdateLimitOrderParams{
			Status: string(order.Status),
			Taker:  order.Taker,
			SwapID: order.SwapID,
			ID:     order.ID,
		},
	))
}

// UpdateOrder overwrites the mutable fields of an existing order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) UpdateOrder(ctx context.Context,
	order *LimitOrder) error {

	return updateOrderTx(ctx, s.Queries, order)
}

// FetchOrder returns the order with the given id.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchOrder(ctx context.Context, id string) (
	*LimitOrder, error) {

	row, err := s.Queries.GetLimitOrder(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return convertOrderRow(row)
}

// FetchOrders returns all orders ordered by placement time.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchOrders(ctx context.Context) ([]*LimitOrder,
	error) {

	rows, err := s.Queries.GetLimitOrders(ctx)
	if err != nil {
		return nil, err
	}

	orders := make([]*LimitOrder, 0, len(rows))
	for _, row := range rows {
		order, err := convertOrderRow(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, nil
}

// CreateSwap adds a swap record and stores its matched order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateSwap(ctx context.Context, swap *Swap,
	order *LimitOrder) error {

	return s.ExecTx(ctx, NewSqlWriteOpts(), func(tx *sqlc.Queries) error {
		err := tx.InsertSwap(ctx, sqlc.InsertSwapParams{
			ID:        swap.ID,
			OrderID:   swap.OrderID,
			MakerHtlc: swap.MakerHTLC,
			TakerHtlc: swap.TakerHTLC,
			Maker:     swap.Maker,
			Taker:     swap.Taker,
			CreatedAt: toUnix(swap.CreatedAt),
		})
		if err != nil {
			return mapInsertErr(err)
		}

		return updateOrderTx(ctx, tx, order)
	})
}

// FetchSwap returns the swap with the given id.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchSwap(ctx context.Context, id string) (*Swap,
	error) {

	row, err := s.Queries.GetSwap(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return &Swap{
		ID:        row.ID,
		OrderID:   row.OrderID,
		MakerHTLC: row.MakerHtlc,
		TakerHTLC: row.TakerHtlc,
		Maker:     row.Maker,
		Taker:     row.Taker,
		CreatedAt: fromUnix(row.CreatedAt),
	}, nil
}

// encodeRevealed concatenates the revealed secrets.
func encodeRevealed(revealed []lntypes.Preimage) []byte {
	data := make([]byte, 0, len(revealed)*lntypes.PreimageSize)
	for _, secret := range revealed {
		data = append(data, secret[:]...)
	}

	return data
}

// decodeRevealed is the inverse of encodeRevealed.
func decodeRevealed(data []byte) ([]lntypes.Preimage, error) {
	if len(data)%lntypes.PreimageSize != 0 {
		return nil, fmt.Errorf("invalid revealed secrets length %d",
			len(data))
	}

	var revealed []lntypes.Preimage
	for i := 0; i < len(data); i += lntypes.PreimageSize {
		secret, err := lntypes.MakePreimage(
			data[i : i+lntypes.PreimageSize],
		)
		if err != nil {
			return nil, err
		}
		revealed = append(revealed, secret)
	}

	return revealed, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, ",")
}

// CreatePartialOrder adds a partial order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreatePartialOrder(ctx context.Context,
	order *PartialOrder) error {

	err := s.Queries.InsertPartialOrder(ctx, sqlc.InsertPartialOrderParams{
		HtlcID:           order.HTLCID,
		MerkleRoot:       order.MerkleRoot[:],
		SegmentCount:     int64(order.SegmentCount),
		PartialFillIndex: int64(order.PartialFillIndex),
		TotalFilled:      int64(order.TotalFilled),
		RemainingAmount:  int64(order.RemainingAmount),
		ReservedAmount:   int64(order.ReservedAmount),
		FillIds:          strings.Join(order.PartialFills, ","),
		Revealed:         encodeRevealed(order.Revealed),
		IsSourceChain:    order.IsSourceChain,
		CreatedAt:        toUnix(order.CreatedAt),
	})

	return mapInsertErr(err)
}

// updatePartialOrderTx overwrites the mutable fields of a partial order.
func updatePartialOrderTx(ctx context.Context, tx *sqlc.Queries,
	order *PartialOrder) error {

	return expectOneRow(tx.UpdatePartialOrder(
		ctx, sqlc.UpdatePartialOrderParams{
			PartialFillIndex: int64(order.PartialFillIndex),
			TotalFilled:      int64(order.TotalFilled),
			RemainingAmount:  int64(order.RemainingAmount),
			ReservedAmount:   int64(order.ReservedAmount),
			FillIds:          strings.Join(order.PartialFills, ","),
			Revealed:         encodeRevealed(order.Revealed),
			HtlcID:           order.HTLCID,
		},
	))
}

// FetchPartialOrder returns the partial order of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchPartialOrder(ctx context.Context, htlcID string) (
	*PartialOrder, error) {

	row, err := s.Queries.GetPartialOrder(ctx, htlcID)
	if err != nil {
		return nil, mapNoRows(err)
	}

	root, err := lntypes.MakeHash(row.MerkleRoot)
	if err != nil {
		return nil, err
	}
	revealed, err := decodeRevealed(row.Revealed)
	if err != nil {
		return nil, err
	}

	return &PartialOrder{
		HTLCID:           row.HtlcID,
		MerkleRoot:       root,
		SegmentCount:     uint32(row.SegmentCount),
		PartialFillIndex: uint32(row.PartialFillIndex),
		TotalFilled:      uint64(row.TotalFilled),
		RemainingAmount:  uint64(row.RemainingAmount),
		ReservedAmount:   uint64(row.ReservedAmount),
		PartialFills:     splitList(row.FillIds),
		Revealed:         revealed,
		IsSourceChain:    row.IsSourceChain,
		CreatedAt:        fromUnix(row.CreatedAt),
	}, nil
}

// convertFillRow converts a database row into a fill.
func convertFillRow(row sqlc.PartialFill) (*PartialFill, error) {
	hash, err := lntypes.MakeHash(row.SecretHash)
	if err != nil {
		return nil, err
	}
	secret, err := lntypes.MakePreimage(row.Secret)
	if err != nil {
		return nil, err
	}

	return &PartialFill{
		ID:             row.ID,
		HTLCID:         row.HtlcID,
		SegmentIndex:   uint32(row.SegmentIndex),
		Amount:         uint64(row.Amount),
		SecretHash:     hash,
		Secret:         secret,
		Resolver:       row.Resolver,
		FillTimestamp:  fromUnix(row.FillTimestamp),
		Status:         FillStatus(row.Status),
		ConfirmationTx: row.ConfirmationTx,
		FailReason:     row.FailReason,
		UpdatedAt:      fromUnix(row.UpdatedAt),
	}, nil
}

// CreateFill adds a new fill and stores its partial order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateFill(ctx context.Context,
	transition *FillTransition) error {

	fill := transition.Fill

	return s.ExecTx(ctx, NewSqlWriteOpts(), func(tx *sqlc.Queries) error {
		err := tx.InsertPartialFill(ctx, sqlc.InsertPartialFillParams{
			ID:             fill.ID,
			HtlcID:         fill.HTLCID,
			SegmentIndex:   int64(fill.SegmentIndex),
			Amount:         int64(fill.Amount),
			SecretHash:     fill.SecretHash[:],
			Secret:         fill.Secret[:],
			Resolver:       fill.Resolver,
			FillTimestamp:  toUnix(fill.FillTimestamp),
			Status:         string(fill.Status),
			ConfirmationTx: fill.ConfirmationTx,
			FailReason:     fill.FailReason,
			UpdatedAt:      toUnix(fill.UpdatedAt),
		})
		if err != nil {
			return mapInsertErr(err)
		}

		return updatePartialOrderTx(ctx, tx, transition.Order)
	})
}

// UpdateFill overwrites the mutable fields of a fill and applies the rest of
// the transition.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) UpdateFill(ctx context.Context,
	transition *FillTransition) error {

	fill := transition.Fill

	return s.ExecTx(ctx, NewSqlWriteOpts(), func(tx *sqlc.Queries) error {
		err := expectOneRow(tx.UpdatePartialFill(
			ctx, sqlc.UpdatePartialFillParams{
				Status:         string(fill.Status),
				ConfirmationTx: fill.ConfirmationTx,
				FailReason:     fill.FailReason,
				UpdatedAt:      toUnix(fill.UpdatedAt),
				ID:             fill.ID,
			},
		))
		if err != nil {
			return err
		}

		err = updatePartialOrderTx(ctx, tx, transition.Order)
		if err != nil {
			return err
		}

		if transition.Claimed != nil {
			err := updateHTLCTx(
				ctx, tx, transition.Claimed,
				transition.ClaimUpdate,
			)
			if err != nil {
				return err
			}
		}

		_, err = putReleaseTx(ctx, tx, transition.Release)

		return err
	})
}

// FetchFill returns the fill with the given id.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchFill(ctx context.Context, id string) (
	*PartialFill, error) {

	row, err := s.Queries.GetPartialFill(ctx, id)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return convertFillRow(row)
}

// FetchFills returns the fills of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchFills(ctx context.Context, htlcID string) (
	[]*PartialFill, error) {

	rows, err := s.Queries.GetPartialFills(ctx, htlcID)
	if err != nil {
		return nil, err
	}

	var fills []*PartialFill
	for _, row := range rows {
		fill, err := convertFillRow(row)
		if err != nil {
			return nil, err
		}
		fills = append(fills, fill)
	}

	return fills, nil
}

// encodeChains stores the supported chains as a comma separated list of
// chain names.
func encodeChains(chains []swap.ChainType) string {
	names := make([]string, 0, len(chains))
	for _, chain := range chains {
		names = append(names, chain.String())
	}

	return strings.Join(names, ",")
}

func decodeChains(s string) ([]swap.ChainType, error) {
	var chains []swap.ChainType
	for _, name := range splitList(s) {
		chain, err := swap.ParseChainType(name)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	return chains, nil
}

// convertResolverRow converts a database row into a resolver.
func convertResolverRow(row sqlc.Resolver) (*Resolver, error) {
	chains, err := decodeChains(row.SupportedChains)
	if err != nil {
		return nil, err
	}

	return &Resolver{
		Address:         row.Address,
		SupportedChains: chains,
		IsActive:        row.IsActive,
		TotalFills:      uint64(row.TotalFills),
		Completed:       uint64(row.Completed),
		Failed:          uint64(row.Failed),
		SuccessRate:     row.SuccessRate,
		LastActive:      fromUnix(row.LastActive),
		RegisteredAt:    fromUnix(row.RegisteredAt),
	}, nil
}

// CreateResolver adds a new resolver.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateResolver(ctx context.Context,
	resolver *Resolver) error {

	err := s.Queries.InsertResolver(ctx, sqlc.InsertResolverParams{
		Address:         resolver.Address,
		SupportedChains: encodeChains(resolver.SupportedChains),
		IsActive:        resolver.IsActive,
		TotalFills:      int64(resolver.TotalFills),
		Completed:       int64(resolver.Completed),
		Failed:          int64(resolver.Failed),
		SuccessRate:     resolver.SuccessRate,
		LastActive:      toUnix(resolver.LastActive),
		RegisteredAt:    toUnix(resolver.RegisteredAt),
	})

	return mapInsertErr(err)
}

// UpdateResolver overwrites an existing resolver.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) UpdateResolver(ctx context.Context,
	resolver *Resolver) error {

	return expectOneRow(s.Queries.UpdateResolver(
		ctx, sqlc.UpdateResolverParams{
			SupportedChains: encodeChains(resolver.SupportedChains),
			IsActive:        resolver.IsActive,
			TotalFills:      int64(resolver.TotalFills),
			Completed:       int64(resolver.Completed),
			Failed:          int64(resolver.Failed),
			SuccessRate:     resolver.SuccessRate,
			LastActive:      toUnix(resolver.LastActive),
			Address:         resolver.Address,
		},
	))
}

// FetchResolver returns the resolver with the given address.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchResolver(ctx context.Context, address string) (
	*Resolver, error) {

	row, err := s.Queries.GetResolver(ctx, address)
	if err != nil {
		return nil, mapNoRows(err)
	}

	return convertResolverRow(row)
}

// FetchResolvers returns all resolvers ordered by address.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchResolvers(ctx context.Context) ([]*Resolver,
	error) {

	rows, err := s.Queries.GetResolvers(ctx)
	if err != nil {
		return nil, err
	}

	resolvers := make([]*Resolver, 0, len(rows))
	for _, row := range rows {
		resolver, err := convertResolverRow(row)
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, resolver)
	}

	return resolvers, nil
}

// CreateLink adds a new external link.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) CreateLink(ctx context.Context,
	link *ExternalLink) error {

	err := s.Queries.InsertExternalLink(ctx, sqlc.InsertExternalLinkParams{
		HtlcID:        link.HTLCID,
		OrderHash:     link.OrderHash,
		Maker:         link.Maker,
		Chain:         int64(link.Chain),
		Amount:        int64(link.Amount),
		Commitment:    link.Commitment[:],
		SegmentCount:  int64(link.SegmentCount),
		IsSourceChain: link.IsSourceChain,
		LinkedAt:      toUnix(link.LinkedAt),
	})

	return mapInsertErr(err)
}

// FetchLink returns the link of an HTLC.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchLink(ctx context.Context, htlcID string) (
	*ExternalLink, error) {

	row, err := s.Queries.GetExternalLink(ctx, htlcID)
	if err != nil {
		return nil, mapNoRows(err)
	}

	commitment, err := lntypes.MakeHash(row.Commitment)
	if err != nil {
		return nil, err
	}

	return &ExternalLink{
		HTLCID:        row.HtlcID,
		OrderHash:     row.OrderHash,
		Maker:         row.Maker,
		Chain:         swap.ChainType(row.Chain),
		Amount:        uint64(row.Amount),
		Commitment:    commitment,
		SegmentCount:  uint32(row.SegmentCount),
		IsSourceChain: row.IsSourceChain,
		LinkedAt:      fromUnix(row.LinkedAt),
	}, nil
}

// putReleaseTx adds the intent unless it is nil or its key is already
// known. It returns true if the intent was added.
func putReleaseTx(ctx context.Context, tx *sqlc.Queries,
	intent *ReleaseIntent) (bool, error) {

	if intent == nil {
		return false, nil
	}

	n, err := tx.InsertReleaseIntent(ctx, sqlc.InsertReleaseIntentParams{
		ReleaseKey:  intent.Key,
		Kind:        string(intent.Kind),
		HtlcID:      intent.HTLCID,
		FillID:      intent.FillID,
		Chain:       int64(intent.Chain),
		Token:       intent.Token,
		Recipient:   intent.Recipient,
		Amount:      int64(intent.Amount),
		Secret:      intent.Secret[:],
		Attempts:    int64(intent.Attempts),
		LastError:   intent.LastError,
		NextAttempt: toUnix(intent.NextAttempt),
		CreatedAt:   toUnix(intent.CreatedAt),
		Done:        intent.Done,
		TxID:        intent.TxID,
	})
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

// PutReleaseIntent adds the intent unless its key is already known.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) PutReleaseIntent(ctx context.Context,
	intent *ReleaseIntent) (bool, error) {

	return putReleaseTx(ctx, s.Queries, intent)
}

// UpdateReleaseIntent overwrites the mutable fields of an intent.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) UpdateReleaseIntent(ctx context.Context,
	intent *ReleaseIntent) error {

	return expectOneRow(s.Queries.UpdateReleaseIntent(
		ctx, sqlc.UpdateReleaseIntentParams{
			Attempts:    int64(intent.Attempts),
			LastError:   intent.LastError,
			NextAttempt: toUnix(intent.NextAttempt),
			Done:        intent.Done,
			TxID:        intent.TxID,
			ReleaseKey:  intent.Key,
		},
	))
}

// FetchReleaseIntents returns the intents in insertion order.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) FetchReleaseIntents(ctx context.Context,
	pendingOnly bool) ([]*ReleaseIntent, error) {

	var (
		rows []sqlc.ReleaseIntent
		err  error
	)
	if pendingOnly {
		rows, err = s.Queries.GetPendingReleaseIntents(ctx)
	} else {
		rows, err = s.Queries.GetReleaseIntents(ctx)
	}
	if err != nil {
		return nil, err
	}

	intents := make([]*ReleaseIntent, 0, len(rows))
	for _, row := range rows {
		secret, err := lntypes.MakePreimage(row.Secret)
		if err != nil {
			return nil, err
		}

		intents = append(intents, &ReleaseIntent{
			Key:         row.ReleaseKey,
			Kind:        ReleaseKind(row.Kind),
			HTLCID:      row.HtlcID,
			FillID:      row.FillID,
			Chain:       swap.ChainType(row.Chain),
			Token:       row.Token,
			Recipient:   row.Recipient,
			Amount:      uint64(row.Amount),
			Secret:      secret,
			Attempts:    uint32(row.Attempts),
			LastError:   row.LastError,
			NextAttempt: fromUnix(row.NextAttempt),
			CreatedAt:   fromUnix(row.CreatedAt),
			Done:        row.Done,
			TxID:        row.TxID,
		})
	}

	return intents, nil
}

// Close closes the underlying database.
//
// NOTE: Part of the Store interface.
func (s *SqliteStore) Close() error {
	return s.DB.Close()
}

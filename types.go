package htlcswap

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/lightninglabs/htlcswap/hashlock"
	"github.com/lightninglabs/htlcswap/swap"
	"github.com/lightninglabs/htlcswap/swapdb"
	"github.com/lightningnetwork/lnd/lntypes"
)

// CreateHTLCRequest locks a new HTLC.
type CreateHTLCRequest struct {
	Sender    string
	Recipient string
	Amount    uint64
	Token     string

	// Hashlock is the hex encoded sha256 digest of the secret.
	Hashlock string

	Expiration time.Time
	Chain      swap.ChainType

	// OrderRef optionally references the order the HTLC belongs to.
	OrderRef string
}

// ListHTLCsRequest filters ListHTLCs. Empty fields match everything.
type ListHTLCsRequest struct {
	Sender    string
	Recipient string
	Status    swapdb.HTLCStatus
}

// HTLCInfo describes an HTLC.
type HTLCInfo struct {
	ID         string
	Sender     string
	Recipient  string
	Amount     uint64
	Token      string
	Hashlock   string
	Secret     string
	CreatedAt  time.Time
	Expiration time.Time
	Chain      swap.ChainType
	Status     swapdb.HTLCStatus
	OrderRef   string
}

// HTLCEvent is an entry of the history of an HTLC.
type HTLCEvent struct {
	Time   time.Time
	Status swapdb.HTLCStatus
	Event  string
}

// PlaceOrderRequest places a limit order.
type PlaceOrderRequest struct {
	Owner      string
	TokenSell  string
	AmountSell uint64
	TokenBuy   string
	AmountBuy  uint64

	// HashedSecret is the hex encoded hashlock the owner commits to.
	HashedSecret string

	IsEvmUser bool

	// Expiry overrides the default order lifetime if set.
	Expiry time.Time
}

// ExternalOrderRequest submits an order signed on its origin chain.
type ExternalOrderRequest struct {
	PlaceOrderRequest

	OriginChain swap.ChainType

	// Signature is the hex encoded origin chain signature over the
	// order's signing message.
	Signature string
}

// OrderInfo describes a limit order.
type OrderInfo struct {
	ID           string
	Owner        string
	HashedSecret string
	TokenSell    string
	AmountSell   uint64
	TokenBuy     string
	AmountBuy    uint64
	IsEvmUser    bool
	Timestamp    time.Time
	Expiry       time.Time
	Status       swapdb.OrderStatus
	External     bool
	OriginChain  swap.ChainType
	Taker        string
	SwapID       string
}

// SwapInfo describes a matched order.
type SwapInfo struct {
	ID        string
	OrderID   string
	MakerHTLC string
	TakerHTLC string
	Maker     string
	Taker     string
	CreatedAt time.Time
}

// OpenPartialOrderRequest splits an HTLC into segments.
type OpenPartialOrderRequest struct {
	HTLCID string

	// MerkleRoot is the hex encoded commitment over the ordered secret
	// sequence. If empty, fills are unordered and reveal the HTLC's own
	// secret.
	MerkleRoot string

	SegmentCount  uint32
	IsSourceChain bool
}

// CreateFillRequest fills the next segment of a partial order.
type CreateFillRequest struct {
	HTLCID string
	Amount uint64

	// Secret is the hex encoded secret of the segment.
	Secret string

	Resolver string

	// Proof is the hex encoded merkle proof of the segment's hashlock.
	Proof []string
}

// CompleteFillRequest confirms the external release of a fill.
type CompleteFillRequest struct {
	FillID string
	TxID   string

	// Chain is the chain of TxID. It is optional.
	Chain swap.ChainType
}

// PartialOrderInfo describes a partial order.
type PartialOrderInfo struct {
	HTLCID           string
	MerkleRoot       string
	SegmentCount     uint32
	PartialFillIndex uint32
	TotalFilled      uint64
	RemainingAmount  uint64
	ReservedAmount   uint64
	PartialFills     []string
	IsSourceChain    bool
	CreatedAt        time.Time
}

// FillInfo describes a partial fill.
type FillInfo struct {
	ID             string
	HTLCID         string
	SegmentIndex   uint32
	Amount         uint64
	SecretHash     string
	Resolver       string
	FillTimestamp  time.Time
	Status         swapdb.FillStatus
	ConfirmationTx string
	FailReason     string
}

// ResolverInfo describes a resolver.
type ResolverInfo struct {
	Address         string
	SupportedChains []swap.ChainType
	IsActive        bool
	TotalFills      uint64
	Completed       uint64
	Failed          uint64
	SuccessRate     float64
	LastActive      time.Time
}

// LinkExternalOrderRequest links an HTLC to an order on an external chain.
type LinkExternalOrderRequest struct {
	HTLCID    string
	OrderHash string
	Maker     string
	Chain     swap.ChainType
	Amount    uint64

	// Commitment is the hex encoded hashlock or merkle root of the
	// external order.
	Commitment string

	// Signature is the optional hex encoded maker signature.
	Signature string

	IsSourceChain bool
	SegmentCount  uint32
}

// LinkInfo describes the link of an HTLC to an external order.
type LinkInfo struct {
	HTLCID        string
	OrderHash     string
	Maker         string
	Chain         swap.ChainType
	Amount        uint64
	Commitment    string
	SegmentCount  uint32
	IsSourceChain bool
	LinkedAt      time.Time
}

// ReleaseInfo describes a release intent.
type ReleaseInfo struct {
	Key         string
	Kind        swapdb.ReleaseKind
	HTLCID      string
	FillID      string
	Chain       swap.ChainType
	Token       string
	Recipient   string
	Amount      uint64
	Attempts    uint32
	LastError   string
	NextAttempt time.Time
	Done        bool
	TxID        string
}

// parseBytes decodes optional 0x prefixed hex.
func parseBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, swap.Errorf(errInvalidHex, "%v", err)
	}

	return b, nil
}

// parseProof decodes a hex encoded merkle proof.
func parseProof(proof []string) ([]lntypes.Hash, error) {
	hashes := make([]lntypes.Hash, 0, len(proof))
	for _, p := range proof {
		hash, err := hashlock.ParseHashlock(p)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

func marshalHTLC(h *swapdb.HTLC) *HTLCInfo {
	info := &HTLCInfo{
		ID:         h.ID,
		Sender:     h.Sender,
		Recipient:  h.Recipient,
		Amount:     h.Amount,
		Token:      h.Token,
		Hashlock:   h.Hashlock.String(),
		CreatedAt:  h.CreatedAt,
		Expiration: h.Expiration,
		Chain:      h.Chain,
		Status:     h.Status,
		OrderRef:   h.OrderRef,
	}
	if h.Secret != nil {
		info.Secret = h.Secret.String()
	}

	return info
}

func marshalOrder(o *swapdb.LimitOrder) *OrderInfo {
	return &OrderInfo{
		ID:           o.ID,
		Owner:        o.Owner,
		HashedSecret: o.HashedSecret.String(),
		TokenSell:    o.TokenSell,
		AmountSell:   o.AmountSell,
		TokenBuy:     o.TokenBuy,
		AmountBuy:    o.AmountBuy,
		IsEvmUser:    o.IsEvmUser,
		Timestamp:    o.Timestamp,
		Expiry:       o.Expiry,
		Status:       o.Status,
		External:     o.External,
		OriginChain:  o.OriginChain,
		Taker:        o.Taker,
		SwapID:       o.SwapID,
	}
}

func marshalOrders(orders []*swapdb.LimitOrder) []*OrderInfo {
	infos := make([]*OrderInfo, 0, len(orders))
	for _, o := range orders {
		infos = append(infos, marshalOrder(o))
	}

	return infos
}

func marshalSwap(s *swapdb.Swap) *SwapInfo {
	return &SwapInfo{
		ID:        s.ID,
		OrderID:   s.OrderID,
		MakerHTLC: s.MakerHTLC,
		TakerHTLC: s.TakerHTLC,
		Maker:     s.Maker,
		Taker:     s.Taker,
		CreatedAt: s.CreatedAt,
	}
}

func marshalPartialOrder(p *swapdb.PartialOrder) *PartialOrderInfo {
	info := &PartialOrderInfo{
		HTLCID:           p.HTLCID,
		SegmentCount:     p.SegmentCount,
		PartialFillIndex: p.PartialFillIndex,
		TotalFilled:      p.TotalFilled,
		RemainingAmount:  p.RemainingAmount,
		ReservedAmount:   p.ReservedAmount,
		PartialFills:     p.PartialFills,
		IsSourceChain:    p.IsSourceChain,
		CreatedAt:        p.CreatedAt,
	}
	if p.Ordered() {
		info.MerkleRoot = p.MerkleRoot.String()
	}

	return info
}

func marshalFill(f *swapdb.PartialFill) *FillInfo {
	return &FillInfo{
		ID:             f.ID,
		HTLCID:         f.HTLCID,
		SegmentIndex:   f.SegmentIndex,
		Amount:         f.Amount,
		SecretHash:     f.SecretHash.String(),
		Resolver:       f.Resolver,
		FillTimestamp:  f.FillTimestamp,
		Status:         f.Status,
		ConfirmationTx: f.ConfirmationTx,
		FailReason:     f.FailReason,
	}
}

func marshalResolver(r *swapdb.Resolver) *ResolverInfo {
	return &ResolverInfo{
		Address:         r.Address,
		SupportedChains: r.SupportedChains,
		IsActive:        r.IsActive,
		TotalFills:      r.TotalFills,
		Completed:       r.Completed,
		Failed:          r.Failed,
		SuccessRate:     r.SuccessRate,
		LastActive:      r.LastActive,
	}
}

func marshalResolvers(resolvers []*swapdb.Resolver) []*ResolverInfo {
	infos := make([]*ResolverInfo, 0, len(resolvers))
	for _, r := range resolvers {
		infos = append(infos, marshalResolver(r))
	}

	return infos
}

func marshalLink(l *swapdb.ExternalLink) *LinkInfo {
	return &LinkInfo{
		HTLCID:        l.HTLCID,
		OrderHash:     l.OrderHash,
		Maker:         l.Maker,
		Chain:         l.Chain,
		Amount:        l.Amount,
		Commitment:    l.Commitment.String(),
		SegmentCount:  l.SegmentCount,
		IsSourceChain: l.IsSourceChain,
		LinkedAt:      l.LinkedAt,
	}
}

func marshalRelease(r *swapdb.ReleaseIntent) *ReleaseInfo {
	return &ReleaseInfo{
		Key:         r.Key,
		Kind:        r.Kind,
		HTLCID:      r.HTLCID,
		FillID:      r.FillID,
		Chain:       r.Chain,
		Token:       r.Token,
		Recipient:   r.Recipient,
		Amount:      r.Amount,
		Attempts:    r.Attempts,
		LastError:   r.LastError,
		NextAttempt: r.NextAttempt,
		Done:        r.Done,
		TxID:        r.TxID,
	}
}

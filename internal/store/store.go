package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// MintItemInput carries the fields for minting a packable item
type MintItemInput struct {
	Caller   string
	ItemID   string
	Owner    string
	URI      string
	Name     string
	Price    decimal.Decimal
	Metadata json.RawMessage
}

// CreatePackInput carries the fields for packing items into an NFT pack.
// The caller's royalty share is recorded first; ExtraShares lets additional
// beneficiaries be recorded at packing time, in order.
type CreatePackInput struct {
	Caller          string
	ItemIDs         []string
	Name            string
	Price           decimal.Decimal
	RoyaltyFraction decimal.Decimal
	ExtraShares     []domain.RoyaltyShare
}

// CreateTokenPackInput carries the fields for packing a fungible allocation
type CreateTokenPackInput struct {
	Caller          string
	TokenAddress    string
	TokenAmount     decimal.Decimal
	Name            string
	Price           decimal.Decimal
	RoyaltyFraction decimal.Decimal
	ExtraShares     []domain.RoyaltyShare
}

// BuyPackInput carries the fields for settling a pack sale
type BuyPackInput struct {
	Caller  string
	PackID  uint64
	Payment decimal.Decimal
}

// BuyNftPackResult is the outcome of a settled NFT pack sale
type BuyNftPackResult struct {
	Pack  *schema.NftPack
	Batch *domain.SettlementBatch
}

// BuyTokenPackResult is the outcome of a settled token pack sale
type BuyTokenPackResult struct {
	Pack  *schema.TokenPack
	Batch *domain.SettlementBatch
}

// UnpackTokenPackResult is the outcome of dissolving a token pack: the
// deleted row plus the outbound instruction returning the allocation
type UnpackTokenPackResult struct {
	Pack   *schema.TokenPack
	Refund domain.PaymentInstruction
}

// Store defines the interface for ledger operations. Every mutating method
// runs as a single database transaction: it either commits all of its
// described effects or none of them.
type Store interface {
	// MintItem mints a packable item, reserving its uri and name
	MintItem(ctx context.Context, input MintItemInput) (*schema.Item, error)
	// BurnItem destroys an item and frees its uri and name reservations
	BurnItem(ctx context.Context, caller string, itemID string) error
	// ApproveItem grants a spender a pull-transfer approval on an item
	ApproveItem(ctx context.Context, caller string, itemID string, spender string, expiresAt *time.Time) error
	// RevokeItemApproval removes a spender's approval from an item
	RevokeItemApproval(ctx context.Context, caller string, itemID string, spender string) error
	// SetOperator grants an operator full control over the granter's items
	SetOperator(ctx context.Context, granter string, operator string, expiresAt *time.Time) error
	// RevokeOperator removes an operator grant
	RevokeOperator(ctx context.Context, granter string, operator string) error
	// TransferItem moves a single item to a recipient and clears its approvals
	TransferItem(ctx context.Context, caller string, recipient string, itemID string) error
	// GetItem retrieves an item by id
	GetItem(ctx context.Context, itemID string) (*schema.Item, error)
	// ListPackableItemsByOwner lists packable-index rows recorded for an owner
	ListPackableItemsByOwner(ctx context.Context, owner string) ([]*schema.PackableItem, error)

	// CreateNftPack packs items into a new NFT pack
	CreateNftPack(ctx context.Context, input CreatePackInput) (*schema.NftPack, error)
	// UnpackNftPack dissolves a pack back to its items
	UnpackNftPack(ctx context.Context, caller string, packID uint64) (*schema.NftPack, error)
	// ApproveNftPack authorizes a spender to pull-transfer the pack
	ApproveNftPack(ctx context.Context, caller string, packID uint64, spender string) (*schema.NftPack, error)
	// TransferNftPack moves pack ownership from from to to
	TransferNftPack(ctx context.Context, caller string, packID uint64, from string, to string) (*schema.NftPack, error)
	// UpdateNftPackSale repositions the pack's asking price and sale flag
	UpdateNftPackSale(ctx context.Context, caller string, packID uint64, price decimal.Decimal, forSale bool) (*schema.NftPack, error)
	// BuyNftPack settles a pack sale and emits the payment batch
	BuyNftPack(ctx context.Context, input BuyPackInput) (*BuyNftPackResult, error)
	// GetNftPack retrieves a pack by id, nil when absent
	GetNftPack(ctx context.Context, packID uint64) (*schema.NftPack, error)
	// ListNftPacksByOwner lists live packs currently owned by an address
	ListNftPacksByOwner(ctx context.Context, owner string) ([]*schema.NftPack, error)

	// CreateTokenPack packs a fungible allocation into a new token pack
	CreateTokenPack(ctx context.Context, input CreateTokenPackInput) (*schema.TokenPack, error)
	// UnpackTokenPack dissolves a token pack, emitting the refund instruction
	UnpackTokenPack(ctx context.Context, caller string, packID uint64) (*UnpackTokenPackResult, error)
	// ApproveTokenPack authorizes a spender to pull-transfer the pack
	ApproveTokenPack(ctx context.Context, caller string, packID uint64, spender string) (*schema.TokenPack, error)
	// TransferTokenPack moves pack ownership from from to to
	TransferTokenPack(ctx context.Context, caller string, packID uint64, from string, to string) (*schema.TokenPack, error)
	// UpdateTokenPackSale repositions the pack's asking price and sale flag
	UpdateTokenPackSale(ctx context.Context, caller string, packID uint64, price decimal.Decimal, forSale bool) (*schema.TokenPack, error)
	// BuyTokenPack settles a token pack sale and emits the payment batch
	BuyTokenPack(ctx context.Context, input BuyPackInput) (*BuyTokenPackResult, error)
	// GetTokenPack retrieves a token pack by id, nil when absent
	GetTokenPack(ctx context.Context, packID uint64) (*schema.TokenPack, error)
	// ListTokenPacksByOwner lists live token packs currently owned by an address
	ListTokenPacksByOwner(ctx context.Context, owner string) ([]*schema.TokenPack, error)

	// GetPackBalance returns the live-pack counter for (kind, owner)
	GetPackBalance(ctx context.Context, kind domain.PackKind, owner string) (uint64, error)
	// GetRoyaltyShares returns the pack's royalty shares in royalty_owners order
	GetRoyaltyShares(ctx context.Context, kind domain.PackKind, packID uint64) ([]domain.RoyaltyShare, error)
	// GetSettlementRecord retrieves an emitted settlement batch by id, nil when absent
	GetSettlementRecord(ctx context.Context, batchID string) (*schema.SettlementRecord, error)
}

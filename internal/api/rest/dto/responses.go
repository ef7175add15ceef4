package dto

import (
	"encoding/json"
	"time"

	"github.com/nftmx/pack-ledger/internal/domain"
	"github.com/nftmx/pack-ledger/internal/store/schema"
)

// ItemResponse is the wire form of a packable item
type ItemResponse struct {
	ItemID    string          `json:"item_id"`
	Owner     string          `json:"owner"`
	URI       string          `json:"uri"`
	Name      string          `json:"name"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewItemResponse(item *schema.Item) *ItemResponse {
	return &ItemResponse{
		ItemID:    item.ItemID,
		Owner:     item.Owner,
		URI:       item.URI,
		Name:      item.Name,
		Metadata:  json.RawMessage(item.Metadata),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

// PackableItemResponse is the wire form of a packable-index row
type PackableItemResponse struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	URI           string  `json:"uri"`
	MintedBy      string  `json:"minted_by"`
	CurrentOwner  string  `json:"current_owner"`
	PreviousOwner *string `json:"previous_owner,omitempty"`
	Price         string  `json:"price"`
	TransferCount uint64  `json:"transfer_count"`
	ForSale       bool    `json:"for_sale"`
}

func NewPackableItemResponse(item *schema.PackableItem) *PackableItemResponse {
	return &PackableItemResponse{
		ItemID:        item.ItemID,
		Name:          item.Name,
		URI:           item.URI,
		MintedBy:      item.MintedBy,
		CurrentOwner:  item.CurrentOwner,
		PreviousOwner: item.PreviousOwner,
		Price:         item.Price.String(),
		TransferCount: item.TransferCount,
		ForSale:       item.ForSale,
	}
}

func NewPackableItemListResponse(items []*schema.PackableItem) []*PackableItemResponse {
	out := make([]*PackableItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewPackableItemResponse(item))
	}
	return out
}

// NftPackResponse is the wire form of an NFT pack
type NftPackResponse struct {
	PackID        uint64    `json:"pack_id"`
	Name          string    `json:"name"`
	ItemCount     int       `json:"item_count"`
	Items         []string  `json:"items"`
	MintedBy      string    `json:"minted_by"`
	CurrentOwner  string    `json:"current_owner"`
	PreviousOwner *string   `json:"previous_owner,omitempty"`
	CurrentPrice  string    `json:"current_price"`
	PreviousPrice string    `json:"previous_price"`
	TransferCount uint64    `json:"transfer_count"`
	ForSale       bool      `json:"for_sale"`
	RoyaltyOwners []string  `json:"royalty_owners"`
	Approvals     []string  `json:"approvals"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewNftPackResponse(pack *schema.NftPack) *NftPackResponse {
	return &NftPackResponse{
		PackID:        pack.PackID,
		Name:          pack.Name,
		ItemCount:     pack.ItemCount,
		Items:         pack.Items,
		MintedBy:      pack.MintedBy,
		CurrentOwner:  pack.CurrentOwner,
		PreviousOwner: pack.PreviousOwner,
		CurrentPrice:  pack.CurrentPrice.String(),
		PreviousPrice: pack.PreviousPrice.String(),
		TransferCount: pack.TransferCount,
		ForSale:       pack.ForSale,
		RoyaltyOwners: pack.RoyaltyOwners,
		Approvals:     pack.Approvals,
		CreatedAt:     pack.CreatedAt,
		UpdatedAt:     pack.UpdatedAt,
	}
}

func NewNftPackListResponse(packs []*schema.NftPack) []*NftPackResponse {
	out := make([]*NftPackResponse, 0, len(packs))
	for _, pack := range packs {
		out = append(out, NewNftPackResponse(pack))
	}
	return out
}

// TokenPackResponse is the wire form of a token pack
type TokenPackResponse struct {
	PackID        uint64    `json:"pack_id"`
	Name          string    `json:"name"`
	TokenAddress  string    `json:"token_address"`
	TokenAmount   string    `json:"token_amount"`
	MintedBy      string    `json:"minted_by"`
	CurrentOwner  string    `json:"current_owner"`
	PreviousOwner *string   `json:"previous_owner,omitempty"`
	CurrentPrice  string    `json:"current_price"`
	PreviousPrice string    `json:"previous_price"`
	TransferCount uint64    `json:"transfer_count"`
	ForSale       bool      `json:"for_sale"`
	RoyaltyOwners []string  `json:"royalty_owners"`
	Approvals     []string  `json:"approvals"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewTokenPackResponse(pack *schema.TokenPack) *TokenPackResponse {
	return &TokenPackResponse{
		PackID:        pack.PackID,
		Name:          pack.Name,
		TokenAddress:  pack.TokenAddress,
		TokenAmount:   pack.TokenAmount.String(),
		MintedBy:      pack.MintedBy,
		CurrentOwner:  pack.CurrentOwner,
		PreviousOwner: pack.PreviousOwner,
		CurrentPrice:  pack.CurrentPrice.String(),
		PreviousPrice: pack.PreviousPrice.String(),
		TransferCount: pack.TransferCount,
		ForSale:       pack.ForSale,
		RoyaltyOwners: pack.RoyaltyOwners,
		Approvals:     pack.Approvals,
		CreatedAt:     pack.CreatedAt,
		UpdatedAt:     pack.UpdatedAt,
	}
}

func NewTokenPackListResponse(packs []*schema.TokenPack) []*TokenPackResponse {
	out := make([]*TokenPackResponse, 0, len(packs))
	for _, pack := range packs {
		out = append(out, NewTokenPackResponse(pack))
	}
	return out
}

// PaymentInstructionResponse is the wire form of one payment instruction
type PaymentInstructionResponse struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

func NewPaymentInstructionResponse(inst domain.PaymentInstruction) PaymentInstructionResponse {
	return PaymentInstructionResponse{
		Asset:     inst.Asset,
		Amount:    inst.Amount.String(),
		Recipient: inst.Recipient,
	}
}

// SettlementBatchResponse is the wire form of an emitted settlement batch
type SettlementBatchResponse struct {
	BatchID      string                       `json:"batch_id"`
	GrossFee     string                       `json:"gross_fee"`
	Instructions []PaymentInstructionResponse `json:"instructions"`
}

func NewSettlementBatchResponse(batch *domain.SettlementBatch) *SettlementBatchResponse {
	instructions := make([]PaymentInstructionResponse, 0, len(batch.Instructions))
	for _, inst := range batch.Instructions {
		instructions = append(instructions, NewPaymentInstructionResponse(inst))
	}
	return &SettlementBatchResponse{
		BatchID:      batch.BatchID,
		GrossFee:     batch.GrossFee.String(),
		Instructions: instructions,
	}
}

// BuyPackResponse pairs the settled pack with its settlement batch
type BuyPackResponse struct {
	Pack       interface{}              `json:"pack"`
	Settlement *SettlementBatchResponse `json:"settlement"`
}

// UnpackTokenPackResponse carries the dissolved pack and the refund instruction
type UnpackTokenPackResponse struct {
	Pack   *TokenPackResponse         `json:"pack"`
	Refund PaymentInstructionResponse `json:"refund"`
}

// BalanceResponse is the wire form of a live-pack counter
type BalanceResponse struct {
	Kind  domain.PackKind `json:"kind"`
	Owner string          `json:"owner"`
	Count uint64          `json:"count"`
}

// RoyaltySharesResponse lists a pack's royalty shares in recorded order
type RoyaltySharesResponse struct {
	Kind   domain.PackKind `json:"kind"`
	PackID uint64          `json:"pack_id"`
	Shares []RoyaltyShare  `json:"shares"`
}

func NewRoyaltySharesResponse(kind domain.PackKind, packID uint64, shares []domain.RoyaltyShare) *RoyaltySharesResponse {
	out := make([]RoyaltyShare, 0, len(shares))
	for _, share := range shares {
		out = append(out, RoyaltyShare{Beneficiary: share.Beneficiary, Fraction: share.Fraction.String()})
	}
	return &RoyaltySharesResponse{Kind: kind, PackID: packID, Shares: out}
}

// SettlementRecordResponse is the wire form of a persisted settlement record
type SettlementRecordResponse struct {
	BatchID      string          `json:"batch_id"`
	Kind         domain.PackKind `json:"kind"`
	PackID       uint64          `json:"pack_id"`
	Buyer        string          `json:"buyer"`
	Payment      string          `json:"payment"`
	GrossFee     string          `json:"gross_fee"`
	Instructions json.RawMessage `json:"instructions"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewSettlementRecordResponse(record *schema.SettlementRecord) *SettlementRecordResponse {
	return &SettlementRecordResponse{
		BatchID:      record.BatchID,
		Kind:         record.Kind,
		PackID:       record.PackID,
		Buyer:        record.Buyer,
		Payment:      record.Payment.String(),
		GrossFee:     record.GrossFee.String(),
		Instructions: json.RawMessage(record.Instructions),
		CreatedAt:    record.CreatedAt,
	}
}

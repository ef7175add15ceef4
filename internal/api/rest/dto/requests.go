package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// RoyaltyShare is one extra royalty beneficiary recorded at packing time
type RoyaltyShare struct {
	Beneficiary string `json:"beneficiary" binding:"required"`
	Fraction    string `json:"fraction" binding:"required"`
}

func (r *RoyaltyShare) ToDomain() (domain.RoyaltyShare, error) {
	fraction, err := decimal.NewFromString(r.Fraction)
	if err != nil {
		return domain.RoyaltyShare{}, fmt.Errorf("invalid fraction %q: %w", r.Fraction, err)
	}
	if !domain.ValidAddress(r.Beneficiary) {
		return domain.RoyaltyShare{}, fmt.Errorf("invalid beneficiary address %q", r.Beneficiary)
	}
	return domain.RoyaltyShare{Beneficiary: r.Beneficiary, Fraction: fraction}, nil
}

// MintItemRequest is the request body for minting a packable item
type MintItemRequest struct {
	Caller   string          `json:"caller" binding:"required"`
	ItemID   string          `json:"item_id" binding:"required"`
	Owner    string          `json:"owner,omitempty"`
	URI      string          `json:"uri" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	Price    string          `json:"price,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (r *MintItemRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if r.Owner != "" && !domain.ValidAddress(r.Owner) {
		return fmt.Errorf("invalid owner address %q", r.Owner)
	}
	if _, err := parsePrice(r.Price); err != nil {
		return err
	}
	return nil
}

// CallerRequest is the request body for operations that only need a caller
type CallerRequest struct {
	Caller string `json:"caller" binding:"required"`
}

func (r *CallerRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	return nil
}

// ApproveItemRequest is the request body for granting an item approval
type ApproveItemRequest struct {
	Caller    string     `json:"caller" binding:"required"`
	Spender   string     `json:"spender" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *ApproveItemRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if !domain.ValidAddress(r.Spender) {
		return fmt.Errorf("invalid spender address %q", r.Spender)
	}
	return nil
}

// OperatorRequest is the request body for granting or revoking an operator
type OperatorRequest struct {
	Granter   string     `json:"granter" binding:"required"`
	Operator  string     `json:"operator" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *OperatorRequest) Validate() error {
	if !domain.ValidAddress(r.Granter) {
		return fmt.Errorf("invalid granter address %q", r.Granter)
	}
	if !domain.ValidAddress(r.Operator) {
		return fmt.Errorf("invalid operator address %q", r.Operator)
	}
	return nil
}

// TransferItemRequest is the request body for transferring a single item
type TransferItemRequest struct {
	Caller    string `json:"caller" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
}

func (r *TransferItemRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if !domain.ValidAddress(r.Recipient) {
		return fmt.Errorf("invalid recipient address %q", r.Recipient)
	}
	return nil
}

// CreateNftPackRequest is the request body for packing items into an NFT pack
type CreateNftPackRequest struct {
	Caller          string         `json:"caller" binding:"required"`
	Name            string         `json:"name" binding:"required"`
	ItemIDs         []string       `json:"item_ids" binding:"required"`
	Price           string         `json:"price,omitempty"`
	RoyaltyFraction string         `json:"royalty_fraction" binding:"required"`
	ExtraShares     []RoyaltyShare `json:"extra_shares,omitempty"`
}

func (r *CreateNftPackRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if len(r.ItemIDs) == 0 {
		return errors.New("item_ids must not be empty")
	}
	if _, err := parsePrice(r.Price); err != nil {
		return err
	}
	if _, err := decimal.NewFromString(r.RoyaltyFraction); err != nil {
		return fmt.Errorf("invalid royalty_fraction %q: %w", r.RoyaltyFraction, err)
	}
	return nil
}

// CreateTokenPackRequest is the request body for packing a fungible allocation
type CreateTokenPackRequest struct {
	Caller          string         `json:"caller" binding:"required"`
	Name            string         `json:"name" binding:"required"`
	TokenAddress    string         `json:"token_address" binding:"required"`
	TokenAmount     string         `json:"token_amount" binding:"required"`
	Price           string         `json:"price,omitempty"`
	RoyaltyFraction string         `json:"royalty_fraction" binding:"required"`
	ExtraShares     []RoyaltyShare `json:"extra_shares,omitempty"`
}

func (r *CreateTokenPackRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if !domain.ValidAddress(r.TokenAddress) {
		return fmt.Errorf("invalid token_address %q", r.TokenAddress)
	}
	if _, err := decimal.NewFromString(r.TokenAmount); err != nil {
		return fmt.Errorf("invalid token_amount %q: %w", r.TokenAmount, err)
	}
	if _, err := parsePrice(r.Price); err != nil {
		return err
	}
	if _, err := decimal.NewFromString(r.RoyaltyFraction); err != nil {
		return fmt.Errorf("invalid royalty_fraction %q: %w", r.RoyaltyFraction, err)
	}
	return nil
}

// ApprovePackRequest is the request body for approving a pack spender
type ApprovePackRequest struct {
	Caller  string `json:"caller" binding:"required"`
	Spender string `json:"spender" binding:"required"`
}

func (r *ApprovePackRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if !domain.ValidAddress(r.Spender) {
		return fmt.Errorf("invalid spender address %q", r.Spender)
	}
	return nil
}

// TransferPackRequest is the request body for transferring pack ownership
type TransferPackRequest struct {
	Caller string `json:"caller" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
}

func (r *TransferPackRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	if !domain.ValidAddress(r.From) {
		return fmt.Errorf("invalid from address %q", r.From)
	}
	if !domain.ValidAddress(r.To) {
		return fmt.Errorf("invalid to address %q", r.To)
	}
	return nil
}

// UpdateSaleRequest is the request body for repositioning a pack sale
type UpdateSaleRequest struct {
	Caller  string `json:"caller" binding:"required"`
	Price   string `json:"price" binding:"required"`
	ForSale *bool  `json:"for_sale,omitempty"`
}

func (r *UpdateSaleRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", r.Price, err)
	}
	if price.IsNegative() {
		return errors.New("price must be non-negative")
	}
	return nil
}

// PriceDecimal returns the parsed price. Validate must have passed.
func (r *UpdateSaleRequest) PriceDecimal() decimal.Decimal {
	price, _ := decimal.NewFromString(r.Price)
	return price
}

// BuyPackRequest is the request body for settling a pack sale
type BuyPackRequest struct {
	Caller  string `json:"caller" binding:"required"`
	Payment string `json:"payment" binding:"required"`
}

func (r *BuyPackRequest) Validate() error {
	if !domain.ValidAddress(r.Caller) {
		return fmt.Errorf("invalid caller address %q", r.Caller)
	}
	payment, err := decimal.NewFromString(r.Payment)
	if err != nil {
		return fmt.Errorf("invalid payment %q: %w", r.Payment, err)
	}
	if payment.IsNegative() {
		return errors.New("payment must be non-negative")
	}
	return nil
}

// PaymentDecimal returns the parsed payment. Validate must have passed.
func (r *BuyPackRequest) PaymentDecimal() decimal.Decimal {
	payment, _ := decimal.NewFromString(r.Payment)
	return payment
}

// parsePrice parses an optional decimal price field; empty means zero
func parsePrice(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("price must be non-negative")
	}
	return price, nil
}

// ParsePrice exposes optional-price parsing to handlers
func ParsePrice(raw string) (decimal.Decimal, error) {
	return parsePrice(raw)
}

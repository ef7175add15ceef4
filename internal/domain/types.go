package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// PackKind identifies which of the two parallel pack registries a pack belongs to
type PackKind string

const (
	// PackKindNFT is a pack composed of an ordered list of item ids
	PackKindNFT PackKind = "nft"
	// PackKindToken is a pack composed of a single fungible-token allocation
	PackKindToken PackKind = "token"
)

// IsValidPackKind checks if a pack kind is valid
func IsValidPackKind(kind PackKind) bool {
	return kind == PackKindNFT || kind == PackKindToken
}

// Registry identifies one of the independent uniqueness registries.
// Registries never cross-check each other; each guards one namespace of
// human-readable identifiers for exactly the lifetime of the entity.
type Registry string

const (
	RegistryItemURI       Registry = "item_uri"
	RegistryItemName      Registry = "item_name"
	RegistryNFTPackName   Registry = "nft_pack_name"
	RegistryTokenPackName Registry = "token_pack_name"
)

// PackEventType represents the type of pack lifecycle event
type PackEventType string

const (
	PackEventTypePacked      PackEventType = "packed"
	PackEventTypeUnpacked    PackEventType = "unpacked"
	PackEventTypeApproved    PackEventType = "approved"
	PackEventTypeTransferred PackEventType = "transferred"
	PackEventTypeSaleUpdated PackEventType = "sale_updated"
	PackEventTypeBought      PackEventType = "bought"
)

// PackEvent is the normalized lifecycle event published after a successful
// pack operation. Events are emitted only once the operation has committed.
type PackEvent struct {
	Kind      PackKind        `json:"kind"`
	EventType PackEventType   `json:"event_type"`
	PackID    uint64          `json:"pack_id"`
	PackName  string          `json:"pack_name,omitempty"`
	Actor     string          `json:"actor"`
	Recipient *string         `json:"recipient,omitempty"`
	Price     decimal.Decimal `json:"price"`
	BatchID   string          `json:"batch_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// RoyaltyShare pairs a royalty beneficiary with its recorded fraction of
// price appreciation. Fractions are in [0, 1].
type RoyaltyShare struct {
	Beneficiary string          `json:"beneficiary"`
	Fraction    decimal.Decimal `json:"fraction"`
}

// ValidFraction checks that a royalty fraction is within [0, 1]
func ValidFraction(f decimal.Decimal) bool {
	return !f.IsNegative() && f.LessThanOrEqual(decimal.NewFromInt(1))
}

// ValidAddress checks if an address is a well-formed account address
func ValidAddress(address string) bool {
	return common.IsHexAddress(address)
}

// NormalizeAddress normalizes an address to its checksummed form
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
		return common.HexToAddress(address).String()
	}
	return address
}

// NormalizeAddresses normalizes a list of addresses in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}

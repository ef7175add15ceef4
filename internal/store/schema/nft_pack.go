package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// NftPack represents the nft_packs table - one row per live pack of item ids.
// PackID comes from the nft_pack_counter and is never reused; unpack deletes
// the row but the counter never decrements.
type NftPack struct {
	// PackID is the sequential pack identifier, assigned 1-based
	PackID uint64 `gorm:"column:pack_id;primaryKey"`
	// Name is the pack's name, globally unique among live packs of this kind
	Name string `gorm:"column:name;not null;uniqueIndex;type:text"`
	// ItemCount is the number of composed items
	ItemCount int `gorm:"column:item_count;not null"`
	// Items is the ordered list of composed item ids
	Items datatypes.JSONSlice[string] `gorm:"column:items;type:jsonb;not null"`
	// MintedBy is the address that packed the items, immutable
	MintedBy string `gorm:"column:minted_by;not null;type:text"`
	// CurrentOwner is the pack's current owner
	CurrentOwner string `gorm:"column:current_owner;not null;type:text;index:idx_nft_packs_owner"`
	// PreviousOwner is the owner before the last transfer, if any
	PreviousOwner *string `gorm:"column:previous_owner;type:text"`
	// CurrentPrice is the pack's asking price
	CurrentPrice decimal.Decimal `gorm:"column:current_price;not null;type:numeric(78,0);default:0"`
	// PreviousPrice is the price at the last transfer, initially 0
	PreviousPrice decimal.Decimal `gorm:"column:previous_price;not null;type:numeric(78,0);default:0"`
	// TransferCount is the number of ownership transfers, only ever increases
	TransferCount uint64 `gorm:"column:transfer_count;not null;default:0"`
	// ForSale indicates whether the pack is listed
	ForSale bool `gorm:"column:for_sale;not null;default:true"`
	// RoyaltyOwners is the ordered set of royalty beneficiaries, seeded with MintedBy
	RoyaltyOwners datatypes.JSONSlice[string] `gorm:"column:royalty_owners;type:jsonb;not null"`
	// Approvals is the set of addresses authorized to pull-transfer the pack,
	// cleared on every successful ownership transfer
	Approvals datatypes.JSONSlice[string] `gorm:"column:approvals;type:jsonb"`
	// CreatedAt is the timestamp when the pack was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the pack was last mutated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the NftPack model
func (NftPack) TableName() string {
	return "nft_packs"
}

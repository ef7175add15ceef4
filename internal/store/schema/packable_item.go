package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// PackableItem represents the packable_items table - the marketplace-side index
// of mintable items. It mirrors ownership independently of the item ledger row;
// pack() requires both records to agree on the caller before any write begins.
type PackableItem struct {
	// ItemID references the item ledger row
	ItemID string `gorm:"column:item_id;primaryKey;type:text"`
	// Name is the item's registered name
	Name string `gorm:"column:name;not null;type:text"`
	// URI is the item's registered uri
	URI string `gorm:"column:uri;not null;type:text"`
	// MintedBy is the address that minted the item, immutable
	MintedBy string `gorm:"column:minted_by;not null;type:text"`
	// CurrentOwner is the owner recorded by this index
	CurrentOwner string `gorm:"column:current_owner;not null;type:text;index:idx_packable_items_owner"`
	// PreviousOwner is the owner before the last transfer, if any
	PreviousOwner *string `gorm:"column:previous_owner;type:text"`
	// Price is the item's listed price
	Price decimal.Decimal `gorm:"column:price;not null;type:numeric(78,0);default:0"`
	// TransferCount is the number of ownership transfers, only ever increases
	TransferCount uint64 `gorm:"column:transfer_count;not null;default:0"`
	// ForSale indicates whether the item is listed
	ForSale bool `gorm:"column:for_sale;not null;default:true"`
	// CreatedAt is the timestamp when this record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PackableItem model
func (PackableItem) TableName() string {
	return "packable_items"
}

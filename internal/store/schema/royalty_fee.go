package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// RoyaltyFee represents the royalty_fees table - one fraction per
// (kind, pack, beneficiary), written once at pack time and consulted, never
// mutated, at settlement. Rows are deleted with their pack; a lookup miss on
// the packer's own entry means the pack was already dissolved.
type RoyaltyFee struct {
	// Kind is the pack kind of the referenced pack
	Kind domain.PackKind `gorm:"column:kind;primaryKey;type:text"`
	// PackID references the pack this entry belongs to
	PackID uint64 `gorm:"column:pack_id;primaryKey"`
	// Beneficiary is the royalty owner's address
	Beneficiary string `gorm:"column:beneficiary;primaryKey;type:text"`
	// Fraction is the beneficiary's share of price appreciation, in [0, 1]
	Fraction decimal.Decimal `gorm:"column:fraction;not null;type:numeric(21,18)"`
	// CreatedAt is the timestamp when the entry was recorded
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RoyaltyFee model
func (RoyaltyFee) TableName() string {
	return "royalty_fees"
}

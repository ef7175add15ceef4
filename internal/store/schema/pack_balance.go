package schema

import (
	"time"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// PackBalance represents the pack_balances table - the per-owner count of live
// packs of one kind. For any owner, Count equals the number of live packs of
// that kind whose current owner is the address; a decrement below zero is a
// contract violation, never legitimate state.
type PackBalance struct {
	// Kind is the pack kind the counter tracks
	Kind domain.PackKind `gorm:"column:kind;primaryKey;type:text"`
	// Owner is the counted owner's address
	Owner string `gorm:"column:owner;primaryKey;type:text"`
	// Count is the number of live packs of this kind held by the owner
	Count uint64 `gorm:"column:count;not null;default:0"`
	// UpdatedAt is the timestamp when the counter was last adjusted
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PackBalance model
func (PackBalance) TableName() string {
	return "pack_balances"
}

package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// SettlementRecord represents the settlement_records table - the audit trail
// of emitted settlement batches. Instructions are emitted, not executed, by
// the core; the record captures exactly what was handed to the payment
// collaborator for one buy.
type SettlementRecord struct {
	// BatchID is the ULID assigned to the emitted batch
	BatchID string `gorm:"column:batch_id;primaryKey;type:text"`
	// Kind is the pack kind of the settled pack
	Kind domain.PackKind `gorm:"column:kind;not null;type:text;index:idx_settlement_records_pack,priority:1"`
	// PackID references the settled pack
	PackID uint64 `gorm:"column:pack_id;not null;index:idx_settlement_records_pack,priority:2"`
	// Buyer is the address that initiated the settlement
	Buyer string `gorm:"column:buyer;not null;type:text"`
	// Payment is the attached payment amount
	Payment decimal.Decimal `gorm:"column:payment;not null;type:numeric(78,0)"`
	// GrossFee is the recorded protocol-fee bookkeeping value (base fee plus royalties)
	GrossFee decimal.Decimal `gorm:"column:gross_fee;not null;type:numeric(78,18)"`
	// Instructions is the full emitted instruction batch as JSON
	Instructions datatypes.JSON `gorm:"column:instructions;type:jsonb;not null"`
	// CreatedAt is the timestamp when the batch was emitted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the SettlementRecord model
func (SettlementRecord) TableName() string {
	return "settlement_records"
}

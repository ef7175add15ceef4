package schema

import (
	"time"

	"gorm.io/datatypes"
)

// Approval grants a spender the right to pull-transfer one item until it expires.
// Approvals are stored inline on the item row since they are cleared wholesale
// on every transfer and cannot accumulate much.
type Approval struct {
	// Spender is the address that can transfer the item
	Spender string `json:"spender"`
	// ExpiresAt is when the approval lapses; nil means it never expires
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the approval has lapsed at the given time
func (a Approval) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Item represents the items table - the single-item ownership ledger record
type Item struct {
	// ItemID is the caller-assigned item identifier
	ItemID string `gorm:"column:item_id;primaryKey;type:text"`
	// Owner is the current owner's address
	Owner string `gorm:"column:owner;not null;type:text;index:idx_items_owner"`
	// Approvals is the item's live approval list, cleared on every transfer
	Approvals datatypes.JSONSlice[Approval] `gorm:"column:approvals;type:jsonb"`
	// URI is the item's metadata resource identifier, unique among live items
	URI string `gorm:"column:uri;not null;type:text"`
	// Name is the item's human-readable name, unique among live items
	Name string `gorm:"column:name;not null;type:text"`
	// Metadata holds any extra caller-supplied metadata
	Metadata datatypes.JSON `gorm:"column:metadata;type:jsonb"`
	// CreatedAt is the timestamp when the item was minted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the item was last mutated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "items"
}

// OperatorGrant gives an operator full control over every item of a granter.
// Stored as (granter, operator) with an optional expiry.
type OperatorGrant struct {
	Granter   string     `gorm:"column:granter;primaryKey;type:text"`
	Operator  string     `gorm:"column:operator;primaryKey;type:text"`
	ExpiresAt *time.Time `gorm:"column:expires_at;type:timestamptz"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the OperatorGrant model
func (OperatorGrant) TableName() string {
	return "operator_grants"
}

// Expired reports whether the grant has lapsed at the given time
func (g OperatorGrant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}

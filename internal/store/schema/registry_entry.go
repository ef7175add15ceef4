package schema

import (
	"time"

	"github.com/nftmx/pack-ledger/internal/domain"
)

// RegistryEntry represents the registry_entries table - one presence flag per
// reserved name or uri. The four registries (item_uri, item_name,
// nft_pack_name, token_pack_name) are independent namespaces sharing the
// table; a key is reserved iff its row exists, for exactly the lifetime of
// the entity that reserved it.
type RegistryEntry struct {
	// Registry is the namespace the key is reserved in
	Registry domain.Registry `gorm:"column:registry;primaryKey;type:text"`
	// Key is the reserved identifier
	Key string `gorm:"column:key;primaryKey;type:text"`
	// CreatedAt is the timestamp when the key was reserved
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the RegistryEntry model
func (RegistryEntry) TableName() string {
	return "registry_entries"
}

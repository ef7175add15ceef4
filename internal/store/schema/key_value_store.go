package schema

import "time"

// KeyValueStore stores arbitrary key-value pairs for counters and state.
// Used for the per-kind sequential pack-id counters, initialized to zero at
// bootstrap and never decremented.
type KeyValueStore struct {
	Key       string    `gorm:"primaryKey;type:text"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KeyValueStore) TableName() string {
	return "key_value_store"
}

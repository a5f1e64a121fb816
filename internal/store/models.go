package store

import (
	"time"
)

// HashEntry is one field of one hash namespace when the store is backed by
// PostgreSQL. (namespace, field) is the primary key, so each namespace
// behaves like a Redis hash.
type HashEntry struct {
	Namespace string `gorm:"primaryKey;size:64"`
	Field     string `gorm:"primaryKey;size:512"`

	Value string `gorm:"type:text;not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName pins the table name independent of gorm's naming strategy.
func (HashEntry) TableName() string {
	return "hash_entries"
}

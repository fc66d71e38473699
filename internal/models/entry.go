package models

// Entry represents one cache row in a namespace table
type Entry struct {
	Key        string `gorm:"column:key;primaryKey"`
	Value      []byte `gorm:"column:value"`
	Expiration *int64 `gorm:"column:expiration"` // unix nanoseconds, NULL never expires
}

// DefaultTable is the table used when no namespace is configured
const DefaultTable = "cache_entries"

// TableName specifies the default table name for Entry Model.
// Adapters override it per namespace with db.Table.
func (Entry) TableName() string {
	return DefaultTable
}

// Package mysql persists the vault aggregate as a single row per
// address, with the three composed sub-aggregates (auction, queue, and
// the vault's own ledger) stored as JSON columns rather than normalized
// tables — the aggregates' own Snapshot types already carry every
// big.Int/Fixed field through encoding/json's TextMarshaler hooks (see
// internal/fixedmath's MarshalText), so a row round-trips exactly.
// Grounded on the teacher's catalog_repository.go gorm usage and its
// referencedata redis repositories' json.Marshal-a-snapshot pattern.
package mysql

import "time"

// VaultRecord is the gorm model backing one vault.
type VaultRecord struct {
	Address      string `gorm:"primaryKey;size:40"`
	Epoch        uint64
	VaultJSON    string `gorm:"type:longtext"`
	AuctionJSON  string `gorm:"type:longtext"`
	QueueJSON    string `gorm:"type:longtext"`
	UpdatedAt    time.Time
}

// TableName pins the table name the way the teacher's gorm models do
// when the pluralized default would be ambiguous.
func (VaultRecord) TableName() string { return "vaults" }

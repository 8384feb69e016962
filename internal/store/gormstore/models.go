package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotRecord mirrors the dashboard_snapshots table: one row per storage
// name holding the whole serialized dashboard state.
type SnapshotRecord struct {
	Name      string         `gorm:"primaryKey"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (SnapshotRecord) TableName() string { return "dashboard_snapshots" }

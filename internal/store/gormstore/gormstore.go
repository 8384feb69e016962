package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/authocard/pkg/cardledger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	errorOperationStore  = "store"
	errorSubjectSnapshot = "snapshot"
	errorCodeGet         = "get"
	errorCodeDecode      = "decode"
	errorCodeEncode      = "encode"
	errorCodeUpsert      = "upsert"
)

// Store implements cardledger.SnapshotStore using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Load reads the snapshot under the given storage name. The second return is
// false when no snapshot has been written yet.
func (store *Store) Load(ctx context.Context, name string) (cardledger.Snapshot, bool, error) {
	var record SnapshotRecord
	err := store.db.WithContext(ctx).Take(&record, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cardledger.Snapshot{}, false, nil
	}
	if err != nil {
		return cardledger.Snapshot{}, false, wrapStoreError(errorCodeGet, err)
	}
	var snapshot cardledger.Snapshot
	if err := json.Unmarshal(record.Payload, &snapshot); err != nil {
		return cardledger.Snapshot{}, false, wrapStoreError(errorCodeDecode, err)
	}
	return snapshot, true, nil
}

// Save rewrites the snapshot row for the given storage name.
func (store *Store) Save(ctx context.Context, name string, snapshot cardledger.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return wrapStoreError(errorCodeEncode, err)
	}
	record := SnapshotRecord{
		Name:      name,
		Payload:   datatypes.JSON(payload),
		UpdatedAt: time.Now().UTC(),
	}
	err = store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return wrapStoreError(errorCodeUpsert, err)
	}
	return nil
}

func wrapStoreError(code string, err error) error {
	return cardledger.WrapError(errorOperationStore, errorSubjectSnapshot, code, err)
}

package session

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/minimartapp/minimart-backend/pkg/db/models"
)

// DurableStore keeps session records in Postgres. It is the fallback tier
// consulted when the fast cache has been evicted; rows are written at sign-in
// and refreshed on role change.
type DurableStore struct {
	db *gorm.DB
}

// NewDurableStore binds the store to the provided GORM connection.
func NewDurableStore(db *gorm.DB) (*DurableStore, error) {
	if db == nil {
		return nil, fmt.Errorf("durable store requires a db connection")
	}
	return &DurableStore{db: db}, nil
}

// Load retrieves the record for the caller key.
func (s *DurableStore) Load(ctx context.Context, callerKey string) (*Record, error) {
	var row models.SessionRecord
	err := s.db.WithContext(ctx).Where("caller_key = ?", callerKey).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return RecordFromModel(&row), nil
}

// Save upserts the record keyed by caller key.
func (s *DurableStore) Save(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	row := record.ToModel()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "caller_key"}},
			UpdateAll: true,
		}).
		Create(row).Error
}

// Clear removes the record for the caller key. Clearing a missing key is not
// an error.
func (s *DurableStore) Clear(ctx context.Context, callerKey string) error {
	return s.db.WithContext(ctx).
		Where("caller_key = ?", callerKey).
		Delete(&models.SessionRecord{}).Error
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/persona-panel/internal/domain/entities"
	domainrepo "github.com/johnquangdev/persona-panel/internal/domain/repositories"
)

// GormProgressStore keeps one snapshot row per scope in analysis_progress
type GormProgressStore struct {
	db     *gorm.DB
	scope  string
	maxAge time.Duration
	now    func() time.Time
}

// NewGormProgressStore creates a store for one scope
func NewGormProgressStore(db *gorm.DB, scope string, maxAge time.Duration) *GormProgressStore {
	return &GormProgressStore{
		db:     db,
		scope:  normalizeScope(scope),
		maxAge: maxAgeOrDefault(maxAge),
		now:    time.Now,
	}
}

// NewGormProgressProvider hands out database stores sharing one connection
func NewGormProgressProvider(db *gorm.DB, maxAge time.Duration) domainrepo.ProgressStoreProvider {
	return ProgressStoreFunc(func(scope string) domainrepo.ProgressStore {
		return NewGormProgressStore(db, scope, maxAge)
	})
}

func (s *GormProgressStore) Save(ctx context.Context, p *entities.JobProgress) error {
	data, err := encodeProgress(p)
	if err != nil {
		return err
	}
	record := entities.ProgressRecord{
		Scope:   s.scope,
		Payload: datatypes.JSON(data),
		SavedAt: p.SavedAt().UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "saved_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *GormProgressStore) Load(ctx context.Context) (*entities.JobProgress, error) {
	var record entities.ProgressRecord
	if err := s.db.WithContext(ctx).Where("scope = ?", s.scope).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return decodeProgress(record.Payload, s.now(), s.maxAge)
}

func (s *GormProgressStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("scope = ?", s.scope).Delete(&entities.ProgressRecord{}).Error; err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}

// PurgeExpiredProgress deletes snapshots older than maxAge and returns how many went
func PurgeExpiredProgress(ctx context.Context, db *gorm.DB, maxAge time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-maxAgeOrDefault(maxAge)).UTC()
	res := db.WithContext(ctx).Where("saved_at < ?", cutoff).Delete(&entities.ProgressRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge progress: %w", res.Error)
	}
	return res.RowsAffected, nil
}

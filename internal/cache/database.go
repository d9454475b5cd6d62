package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eacouncil/membership/internal/models"
)

// DatabaseStore implements Store on the SQL database. It is the fallback
// when Redis is not configured; a single-instance deployment loses nothing.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore wraps the gorm handle in a Store implementation.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL bumps the counter row for key inside a transaction,
// resetting it when the window has elapsed.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var count int64
	var expires time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("key = ?", key).
			First(&entry).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound), err == nil && now.After(entry.ExpiresAt):
			entry = models.CacheEntry{
				Key:       key,
				Counter:   1,
				ExpiresAt: now.Add(window),
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				UpdateAll: true,
			}).Create(&entry).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			entry.Counter++
			if err := tx.Model(&models.CacheEntry{}).
				Where("key = ?", key).
				Update("counter", entry.Counter).Error; err != nil {
				return err
			}
		}

		count = entry.Counter
		expires = entry.ExpiresAt
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expires.Sub(now), nil
}

// Set stores value under key with the provided TTL, replacing any prior row.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&entry).Error
}

// Get fetches the value at key; expired rows read as missing.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry models.CacheEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if s.now().After(entry.ExpiresAt) {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Delete removes the provided keys.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// PurgeExpired removes rows whose TTL has elapsed. Called by maintenance.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.CacheEntry{})
	return res.RowsAffected, res.Error
}

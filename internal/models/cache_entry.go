package models

import "time"

// CacheEntry backs the database cache store used when Redis is not
// configured (rate limiting counters, session lookups).
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     []byte    `json:"value"`
	Counter   int64     `gorm:"not null;default:0" json:"counter"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

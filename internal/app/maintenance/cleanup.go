package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/eacouncil/membership/internal/auth"
	"github.com/eacouncil/membership/internal/cache"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/logger"
)

const (
	defaultSessionSpec = "@hourly"
	defaultTokenSpec   = "@daily"
	defaultLapseSpec   = "@daily"
)

// Cleaner coordinates background maintenance: purging expired staff sessions,
// clearing stale email-verification tokens, and lapsing expired memberships.
type Cleaner struct {
	db            *gorm.DB
	sessions      *iauth.SessionService
	members       *services.MemberService
	organizations *services.OrganizationService
	cacheStore    *cache.DatabaseStore
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	enabled       bool

	sessionSchedule string
	tokenSchedule   string
	lapseSchedule   string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithCacheStore enables purging of expired rows from the database-backed
// cache. Redis handles its own expiry.
func WithCacheStore(store *cache.DatabaseStore) Option {
	return func(cleaner *Cleaner) {
		cleaner.cacheStore = store
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron specification for verification-token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithLapseSchedule overrides the cron specification for membership lapsing.
func WithLapseSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.lapseSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding job being skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, members *services.MemberService, organizations *services.OrganizationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		sessions:        sessions,
		members:         members,
		organizations:   organizations,
		now:             time.Now,
		sessionSchedule: defaultSessionSpec,
		tokenSchedule:   defaultTokenSpec,
		lapseSchedule:   defaultLapseSpec,
		log:             logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.db != nil ||
		cleaner.members != nil || cleaner.organizations != nil || cleaner.cacheStore != nil

	return cleaner
}

// Start registers the jobs and launches the scheduler.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.sessions.CleanupExpired(context.Background()); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			if _, err := CleanupVerificationTokens(context.Background(), c.db, c.now()); err != nil {
				c.log.Warn("verification token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.cacheStore != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			if _, err := c.cacheStore.PurgeExpired(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.members != nil || c.organizations != nil {
		if _, err := c.cron.AddFunc(c.lapseSchedule, func() {
			ctx := context.Background()
			if c.members != nil {
				if _, err := c.members.LapseExpired(ctx); err != nil {
					c.log.Warn("member lapse run failed", zap.Error(err))
				}
			}
			if c.organizations != nil {
				if _, err := c.organizations.LapseExpired(ctx); err != nil {
					c.log.Warn("organization lapse run failed", zap.Error(err))
				}
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := CleanupVerificationTokens(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.cacheStore != nil {
		if _, err := c.cacheStore.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.members != nil {
		if _, err := c.members.LapseExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.organizations != nil {
		if _, err := c.organizations.LapseExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CleanupVerificationTokens clears expired email-verification tokens so the
// hashes cannot linger indefinitely. The applicant row itself is kept.
func CleanupVerificationTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, nil
	}

	res := db.WithContext(ctx).
		Model(&models.Applicant{}).
		Where("verification_token_hash <> '' AND verification_expires_at IS NOT NULL AND verification_expires_at < ?", now).
		Updates(map[string]interface{}{
			"verification_token_hash": "",
			"verification_expires_at": nil,
		})
	return res.RowsAffected, res.Error
}

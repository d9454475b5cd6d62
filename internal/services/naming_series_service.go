package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/database"
)

// Series codes issued by the registry.
const (
	SeriesApplicantTracking  = "MBR-APP"
	SeriesOrgTracking        = "ORG-APP"
	SeriesMemberNumber       = "EAC-MBR"
	SeriesOrganizationNumber = "EAC-ORG"
	SeriesPaymentReference   = "EAC-PAY"
)

// NamingSeriesService issues gapless-per-year sequential identifiers such as
// MBR-APP-2026-0001. Every allocation is a single atomic statement, so two
// concurrent registrations can never receive the same number.
type NamingSeriesService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNamingSeriesService(db *gorm.DB) (*NamingSeriesService, error) {
	if db == nil {
		return nil, fmt.Errorf("naming series service requires a database connection")
	}
	return &NamingSeriesService{db: db, now: time.Now}, nil
}

// WithClock overrides time lookups, used by tests to pin the year.
func (s *NamingSeriesService) WithClock(now func() time.Time) *NamingSeriesService {
	s.now = now
	return s
}

// Next atomically increments and returns the counter for the series in the
// current year. Counters restart at 1 each calendar year.
func (s *NamingSeriesService) Next(ctx context.Context, seriesCode string) (int64, error) {
	counter, _, err := s.nextIn(ctx, s.db, seriesCode)
	return counter, err
}

// NextIn is Next inside an existing transaction, so an identifier and the row
// it names commit or roll back together.
func (s *NamingSeriesService) NextIn(ctx context.Context, tx *gorm.DB, seriesCode string) (int64, error) {
	counter, _, err := s.nextIn(ctx, tx, seriesCode)
	return counter, err
}

// nextIn reports the year the counter was allocated under alongside the
// counter itself, so callers formatting an identifier around a year boundary
// never pair a counter with the wrong year.
func (s *NamingSeriesService) nextIn(ctx context.Context, tx *gorm.DB, seriesCode string) (int64, int, error) {
	if seriesCode == "" {
		return 0, 0, fmt.Errorf("series code is required")
	}
	year := s.now().Year()

	var counter int64
	var err error
	switch database.Dialect(tx) {
	case "mysql":
		// LAST_INSERT_ID(expr) stores expr in the session, covering both
		// the insert and the increment branch.
		err = tx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
			if execErr := inner.Exec(
				`INSERT INTO naming_series_counters (series_code, year, counter) VALUES (?, ?, LAST_INSERT_ID(1))
				 ON DUPLICATE KEY UPDATE counter = LAST_INSERT_ID(counter + 1)`,
				seriesCode, year,
			).Error; execErr != nil {
				return execErr
			}
			return inner.Raw(`SELECT LAST_INSERT_ID()`).Scan(&counter).Error
		})
	default:
		// SQLite and PostgreSQL both support upsert with RETURNING.
		err = tx.WithContext(ctx).Raw(
			`INSERT INTO naming_series_counters (series_code, year, counter) VALUES (?, ?, 1)
			 ON CONFLICT (series_code, year) DO UPDATE SET counter = naming_series_counters.counter + 1
			 RETURNING counter`,
			seriesCode, year,
		).Scan(&counter).Error
	}
	if err != nil {
		return 0, 0, fmt.Errorf("allocate %s counter: %w", seriesCode, err)
	}
	return counter, year, nil
}

// NextFormatted allocates the next counter and renders the canonical
// PREFIX-YYYY-NNNN identifier. The numeric part widens past four digits
// rather than wrapping.
func (s *NamingSeriesService) NextFormatted(ctx context.Context, seriesCode string) (string, error) {
	return s.nextFormattedIn(ctx, s.db, seriesCode)
}

// NextFormattedIn is NextFormatted inside an existing transaction.
func (s *NamingSeriesService) NextFormattedIn(ctx context.Context, tx *gorm.DB, seriesCode string) (string, error) {
	return s.nextFormattedIn(ctx, tx, seriesCode)
}

func (s *NamingSeriesService) nextFormattedIn(ctx context.Context, tx *gorm.DB, seriesCode string) (string, error) {
	counter, year, err := s.nextIn(ctx, tx, seriesCode)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", seriesCode, year, counter), nil
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/cache"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/crypto"
)

const (
	// SessionCookieName is the cookie carrying the opaque session token.
	SessionCookieName = "eac_session"

	defaultSessionTTL         = 12 * time.Hour
	defaultSessionTokenLength = 48
)

var (
	// ErrSessionNotFound indicates the token does not match an active session.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionExpired indicates the session has passed its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionRevoked indicates the session was logged out or revoked.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrAccountDisabled indicates the staff account is inactive.
	ErrAccountDisabled = errors.New("session: account disabled")
	// ErrBadCredentials indicates an unknown username or wrong password.
	ErrBadCredentials = errors.New("session: invalid credentials")
)

// SessionConfig tunes session issuance.
type SessionConfig struct {
	TTL         time.Duration
	TokenLength int
	Cache       cache.Store
}

// SessionService issues and validates cookie-based staff sessions. Tokens are
// opaque; only their SHA-256 hash is persisted.
type SessionService struct {
	db          *gorm.DB
	cacheStore  cache.Store
	ttl         time.Duration
	tokenLength int
	now         func() time.Time
}

// cachedSession is the cache representation keyed by token hash.
type cachedSession struct {
	SessionID   string    `json:"session_id"`
	StaffUserID string    `json:"staff_user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// NewSessionService constructs a SessionService.
func NewSessionService(db *gorm.DB, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	svc := &SessionService{
		db:          db,
		cacheStore:  cfg.Cache,
		ttl:         cfg.TTL,
		tokenLength: cfg.TokenLength,
		now:         time.Now,
	}
	if svc.ttl <= 0 {
		svc.ttl = defaultSessionTTL
	}
	if svc.tokenLength <= 0 {
		svc.tokenLength = defaultSessionTokenLength
	}

	return svc, nil
}

// WithClock injects a custom time source, primarily for tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies credentials and issues a new session token.
func (s *SessionService) Login(ctx context.Context, username, password, ip, userAgent string) (*models.StaffUser, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return nil, "", ErrBadCredentials
	}

	var user models.StaffUser
	err := s.db.WithContext(ctx).
		Preload("Roles").
		Where("username = ? OR email = ?", username, username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("session service: find user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, "", ErrBadCredentials
	}
	if !user.IsActive {
		return nil, "", ErrAccountDisabled
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, "", fmt.Errorf("session service: generate token: %w", err)
	}

	now := s.now()
	session := models.Session{
		StaffUserID: user.ID,
		TokenHash:   hashToken(token),
		IPAddress:   ip,
		UserAgent:   userAgent,
		ExpiresAt:   now.Add(s.ttl),
		LastUsedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, "", fmt.Errorf("session service: create session: %w", err)
	}

	updates := map[string]any{"last_login_at": now, "last_login_ip": ip}
	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, "", fmt.Errorf("session service: record login: %w", err)
	}

	s.cachePut(ctx, session, token)
	return &user, token, nil
}

// Authenticate resolves a session token to its staff user.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.StaffUser, *models.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrSessionNotFound
	}

	session, err := s.lookup(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if session.RevokedAt != nil {
		return nil, nil, ErrSessionRevoked
	}
	if session.ExpiresAt.Before(now) {
		return nil, nil, ErrSessionExpired
	}

	var user models.StaffUser
	if err := s.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", session.StaffUserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("session service: load user: %w", err)
	}
	if !user.IsActive {
		return nil, nil, ErrAccountDisabled
	}

	// Touch last_used_at at most once a minute to avoid a write per request.
	if now.Sub(session.LastUsedAt) > time.Minute {
		_ = s.db.WithContext(ctx).Model(&models.Session{}).
			Where("id = ?", session.ID).
			Update("last_used_at", now).Error
	}

	return &user, session, nil
}

// Logout revokes the session belonging to the token.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	session, err := s.lookup(ctx, token)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", session.ID).
		Update("revoked_at", now).Error; err != nil {
		return fmt.Errorf("session service: revoke: %w", err)
	}

	s.cacheDelete(ctx, token)
	return nil
}

// CleanupExpired deletes sessions past expiry. Called by maintenance.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

func (s *SessionService) lookup(ctx context.Context, token string) (*models.Session, error) {
	hash := hashToken(token)

	if cached, ok := s.cacheGet(ctx, hash); ok {
		return cached, nil
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) cachePut(ctx context.Context, session models.Session, token string) {
	if s.cacheStore == nil {
		return
	}
	payload, err := json.Marshal(cachedSession{
		SessionID:   session.ID,
		StaffUserID: session.StaffUserID,
		ExpiresAt:   session.ExpiresAt,
	})
	if err != nil {
		return
	}
	_ = s.cacheStore.Set(ctx, "session:"+hashToken(token), payload, time.Until(session.ExpiresAt))
}

func (s *SessionService) cacheGet(ctx context.Context, hash string) (*models.Session, bool) {
	if s.cacheStore == nil {
		return nil, false
	}
	payload, ok, err := s.cacheStore.Get(ctx, "session:"+hash)
	if err != nil || !ok {
		return nil, false
	}

	var cached cachedSession
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, false
	}
	return &models.Session{
		ID:          cached.SessionID,
		StaffUserID: cached.StaffUserID,
		TokenHash:   hash,
		ExpiresAt:   cached.ExpiresAt,
		LastUsedAt:  s.now(),
	}, true
}

func (s *SessionService) cacheDelete(ctx context.Context, token string) {
	if s.cacheStore == nil {
		return
	}
	_ = s.cacheStore.Delete(ctx, "session:"+hashToken(token))
}

func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

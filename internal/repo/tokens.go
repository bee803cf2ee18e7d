// Package repo implements the data persistence layer for the gateway's own
// state, backed by GORM. This file provides the durable completed-token set
// used by the idempotency guards.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a completed token already exists for the given
// (form_id, token) pair.
var ErrDuplicate = errors.New("duplicate")

// GetCompletedToken returns a non-expired record or ErrNotFound.
func GetCompletedToken(ctx context.Context, db *gorm.DB, formID, token string, now time.Time) (*domain.CompletedToken, error) {
	if strings.TrimSpace(formID) == "" || token == "" {
		return nil, ErrNotFound
	}
	var rec domain.CompletedToken
	err := db.WithContext(ctx).
		Where("form_id = ? AND token = ? AND expires_at > ?", formID, token, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateCompletedToken inserts a record and returns ErrDuplicate on unique violation.
func CreateCompletedToken(ctx context.Context, db *gorm.DB, formID, token, outcome, resource string, ttl time.Duration) (*domain.CompletedToken, error) {
	now := time.Now().UTC()
	rec := &domain.CompletedToken{
		ID:        uuid.NewString(),
		FormID:    formID,
		Token:     token,
		Outcome:   outcome,
		Resource:  resource,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredTokens deletes records whose expiry is at or before now and
// returns how many were removed.
func PurgeExpiredTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.CompletedToken{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation reports a UNIQUE constraint failure. glebarez/sqlite
// often returns plain-text errors rather than gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// TokenStore adapts the completed_tokens table to idempotency.Store.
type TokenStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewTokenStore returns a store whose records live for ttl.
func NewTokenStore(db *gorm.DB, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenStore{db: db, ttl: ttl}
}

var _ idempotency.Store = (*TokenStore)(nil)

func (s *TokenStore) Completed(ctx context.Context, form string, tok idempotency.Token) (bool, error) {
	_, err := GetCompletedToken(ctx, s.db, form, string(tok), time.Now().UTC())
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// MarkCompleted records c. An existing live record wins; an expired record
// with the same key is replaced.
func (s *TokenStore) MarkCompleted(ctx context.Context, c idempotency.Completion) error {
	_, err := CreateCompletedToken(ctx, s.db, c.FormID, string(c.Token), c.Outcome, c.Resource, s.ttl)
	if !errors.Is(err, ErrDuplicate) {
		return err
	}
	now := time.Now().UTC()
	if _, gerr := GetCompletedToken(ctx, s.db, c.FormID, string(c.Token), now); gerr == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&domain.CompletedToken{}).
		Where("form_id = ? AND token = ?", c.FormID, string(c.Token)).
		Updates(map[string]any{
			"outcome":    c.Outcome,
			"resource":   c.Resource,
			"created_at": now,
			"expires_at": now.Add(s.ttl),
		}).Error
}

// Purge removes expired records.
func (s *TokenStore) Purge(ctx context.Context) (int64, error) {
	return PurgeExpiredTokens(ctx, s.db, time.Now().UTC())
}

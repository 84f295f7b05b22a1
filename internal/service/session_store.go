package service

import (
	"context"
	"errors"
	"time"

	"github.com/eraverse/sales-admin-service/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore holds live sessions keyed by opaque session ID. A store
// returns ErrSessionNotFound for both missing and expired entries; the
// caller cannot tell them apart, which is deliberate.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"fdiadmin/internal/models"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour // 7 days
	sessionKeyLength  = 32
)

var ErrNoSession = errors.New("no console session")

// Store keeps the API access token of a console session between requests.
type Store interface {
	Load(r *http.Request) (*models.Session, error)
	Save(w http.ResponseWriter, r *http.Request, token string) (*models.Session, error)
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Options configures the session cookie shared by both stores.
type Options struct {
	TTL    time.Duration
	Secure bool
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultSessionTTL
	}
	return o.TTL
}

func GenerateSessionID() (string, error) {
	bytes := make([]byte, sessionKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func newSession(token string, ttl time.Duration) (*models.Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &models.Session{ID: id, Token: token, CreatedAt: now, ExpiresAt: now.Add(ttl)}, nil
}

type contextKey string

const sessionContextKey contextKey = "session"

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func SessionFromContext(ctx context.Context) *models.Session {
	if s, ok := ctx.Value(sessionContextKey).(*models.Session); ok {
		return s
	}
	return nil
}

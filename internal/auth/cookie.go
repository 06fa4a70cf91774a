package auth

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"fdiadmin/internal/models"
)

const (
	cookieSessionName = "fdiadmin_session"

	valueID      = "id"
	valueToken   = "token"
	valueCreated = "created"
	valueExpires = "expires"
)

// CookieStore keeps the whole session in an encrypted, signed cookie.
type CookieStore struct {
	store *sessions.CookieStore
	opts  Options
}

// NewCookieStore signs with key and encrypts with a key derived from it.
func NewCookieStore(key []byte, opts Options) (*CookieStore, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("session key must be at least 32 bytes; got %d", len(key))
	}
	blockKey := sha256.Sum256(key)

	store := sessions.NewCookieStore(key, blockKey[:])
	// MaxAge also bounds the codecs, which otherwise reject cookies older than 30 days.
	store.MaxAge(int(opts.ttl().Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = opts.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	return &CookieStore{store: store, opts: opts}, nil
}

func (c *CookieStore) Load(r *http.Request) (*models.Session, error) {
	s, err := c.store.Get(r, cookieSessionName)
	if err != nil {
		return nil, ErrNoSession
	}

	token, _ := s.Values[valueToken].(string)
	id, _ := s.Values[valueID].(string)
	expires, _ := s.Values[valueExpires].(int64)
	created, _ := s.Values[valueCreated].(int64)
	if token == "" || id == "" {
		return nil, ErrNoSession
	}

	session := &models.Session{
		ID:        id,
		Token:     token,
		CreatedAt: time.Unix(created, 0),
		ExpiresAt: time.Unix(expires, 0),
	}
	if !session.ExpiresAt.After(time.Now()) {
		return nil, ErrNoSession
	}
	return session, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, token string) (*models.Session, error) {
	session, err := newSession(token, c.opts.ttl())
	if err != nil {
		return nil, err
	}

	s, _ := c.store.Get(r, cookieSessionName)
	s.Values[valueID] = session.ID
	s.Values[valueToken] = session.Token
	s.Values[valueCreated] = session.CreatedAt.Unix()
	s.Values[valueExpires] = session.ExpiresAt.Unix()
	if err := s.Save(r, w); err != nil {
		return nil, fmt.Errorf("saving session cookie: %w", err)
	}
	return session, nil
}

func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := c.store.Get(r, cookieSessionName)
	s.Values = map[interface{}]interface{}{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

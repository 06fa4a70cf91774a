package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fdiadmin/internal/models"
)

const sessionCookieName = "session_id"

// PostgresStore keeps tokens in the admin_sessions table; the cookie only carries the session id.
type PostgresStore struct {
	db   *sql.DB
	opts Options
}

func NewPostgresStore(db *sql.DB, opts Options) *PostgresStore {
	return &PostgresStore{db: db, opts: opts}
}

func (p *PostgresStore) Load(r *http.Request) (*models.Session, error) {
	sessionID := getSessionFromRequest(r)
	if sessionID == "" {
		return nil, ErrNoSession
	}

	session := models.Session{ID: sessionID}
	err := p.db.QueryRowContext(r.Context(), `
		SELECT token, created_at, expires_at
		FROM admin_sessions
		WHERE id = $1 AND expires_at > NOW()
	`, sessionID).Scan(&session.Token, &session.CreatedAt, &session.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return &session, nil
}

func (p *PostgresStore) Save(w http.ResponseWriter, r *http.Request, token string) (*models.Session, error) {
	session, err := newSession(token, p.opts.ttl())
	if err != nil {
		return nil, err
	}

	_, err = p.db.ExecContext(r.Context(),
		"INSERT INTO admin_sessions (id, token, created_at, expires_at) VALUES ($1, $2, $3, $4)",
		session.ID, session.Token, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	p.setSessionCookie(w, session)
	return session, nil
}

func (p *PostgresStore) Clear(w http.ResponseWriter, r *http.Request) error {
	p.clearSessionCookie(w)

	sessionID := getSessionFromRequest(r)
	if sessionID == "" {
		return nil
	}
	if _, err := p.db.ExecContext(r.Context(), "DELETE FROM admin_sessions WHERE id = $1", sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpired removes expired rows and reports how many went.
func (p *PostgresStore) CleanExpired(ctx context.Context) (int64, error) {
	res, err := p.db.ExecContext(ctx, "DELETE FROM admin_sessions WHERE expires_at <= NOW()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *PostgresStore) setSessionCookie(w http.ResponseWriter, s *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.opts.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.ExpiresAt,
	})
}

func (p *PostgresStore) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   p.opts.Secure,
		Expires:  time.Unix(0, 0),
	})
}

func getSessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

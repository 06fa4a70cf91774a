package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fdiadmin/internal/database"
)

func setupPostgresStore(t *testing.T, ttl time.Duration) *PostgresStore {
	t.Helper()
	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.Connect(connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return NewPostgresStore(db, Options{TTL: ttl})
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupPostgresStore(t, time.Hour)

	rec := httptest.NewRecorder()
	saved, err := store.Save(rec, httptest.NewRequest(http.MethodPost, "/login", nil), "tok-pg")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(requestWithCookies(rec.Result().Cookies()))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.ID != saved.ID || loaded.Token != "tok-pg" {
		t.Errorf("Expected %+v, got %+v", saved, loaded)
	}

	clearRec := httptest.NewRecorder()
	if err = store.Clear(clearRec, requestWithCookies(rec.Result().Cookies())); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err = store.Load(requestWithCookies(rec.Result().Cookies())); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession after clear, got %v", err)
	}
}

func TestPostgresStoreCleanExpired(t *testing.T) {
	store := setupPostgresStore(t, time.Hour)

	id, err := GenerateSessionID()
	if err != nil {
		t.Fatalf("GenerateSessionID failed: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	_, err = store.db.Exec(
		"INSERT INTO admin_sessions (id, token, created_at, expires_at) VALUES ($1, $2, $3, $4)",
		id, "old", past.Add(-time.Hour), past)
	if err != nil {
		t.Fatalf("Failed to insert expired session: %v", err)
	}

	req := requestWithCookies([]*http.Cookie{{Name: sessionCookieName, Value: id}})
	if _, err = store.Load(req); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected expired session to be ignored, got %v", err)
	}

	removed, err := store.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired failed: %v", err)
	}
	if removed < 1 {
		t.Errorf("Expected at least 1 expired session removed, got %d", removed)
	}
}

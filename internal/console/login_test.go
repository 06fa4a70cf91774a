package console

import (
	"context"
	"errors"
	"testing"

	"fdiadmin/internal/backend"
)

type stubAuth struct {
	token string
	err   error
	calls int
}

func (s *stubAuth) Login(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.token, s.err
}

func TestLoginSuccess(t *testing.T) {
	auth := &stubAuth{token: "t"}
	var form LoginForm

	token, ok := form.Submit(context.Background(), auth, "secret")
	if !ok || token != "t" {
		t.Fatalf("Expected token %q, got %q (ok=%v)", "t", token, ok)
	}
	if form.State() != LoginIdle {
		t.Errorf("Expected idle state, got %s", form.State())
	}
	if form.Error() != "" {
		t.Errorf("Expected no error, got %q", form.Error())
	}
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	causes := map[string]error{
		"missing token": backend.ErrMissingToken,
		"transport":     backend.ErrTransport,
		"status":        &backend.StatusError{Code: 401},
	}

	for name, cause := range causes {
		t.Run(name, func(t *testing.T) {
			var form LoginForm
			token, ok := form.Submit(context.Background(), &stubAuth{err: cause}, "secret")
			if ok || token != "" {
				t.Fatalf("Expected failure, got token %q", token)
			}
			if form.State() != LoginFailed {
				t.Errorf("Expected error state, got %s", form.State())
			}
			if form.Error() != LoginFailedMessage {
				t.Errorf("Expected message %q, got %q", LoginFailedMessage, form.Error())
			}
		})
	}
}

func TestLoginResubmitAfterError(t *testing.T) {
	auth := &stubAuth{err: errors.New("down")}
	var form LoginForm

	form.Submit(context.Background(), auth, "secret")
	auth.err = nil
	auth.token = "t2"

	token, ok := form.Submit(context.Background(), auth, "secret")
	if !ok || token != "t2" {
		t.Fatalf("Expected resubmission to succeed, got %q (ok=%v)", token, ok)
	}
	if form.Error() != "" {
		t.Errorf("Expected error cleared, got %q", form.Error())
	}
}

func TestLoginEmptyPasswordIsBlocked(t *testing.T) {
	auth := &stubAuth{token: "t"}
	var form LoginForm

	if _, ok := form.Submit(context.Background(), auth, ""); ok {
		t.Fatal("Expected empty password to be rejected")
	}
	if auth.calls != 0 {
		t.Errorf("Expected no API call, got %d", auth.calls)
	}
	if form.State() != LoginIdle {
		t.Errorf("Expected idle state, got %s", form.State())
	}
}

func TestLoginWhitespacePasswordIsSent(t *testing.T) {
	auth := &stubAuth{token: "t"}
	var form LoginForm

	if _, ok := form.Submit(context.Background(), auth, "   "); !ok {
		t.Fatal("Expected a whitespace password to be submitted")
	}
	if auth.calls != 1 {
		t.Errorf("Expected one API call, got %d", auth.calls)
	}
}

package console

import (
	"context"
	"log"
)

type LoginState int

const (
	LoginIdle LoginState = iota
	LoginSubmitting
	LoginFailed
)

func (s LoginState) String() string {
	switch s {
	case LoginSubmitting:
		return "submitting"
	case LoginFailed:
		return "error"
	default:
		return "idle"
	}
}

// LoginFailedMessage is shown for every failed attempt, whatever the cause.
const LoginFailedMessage = "Login failed"

type Authenticator interface {
	Login(ctx context.Context, password string) (string, error)
}

// LoginForm tracks one login attempt. A zero LoginForm is idle.
type LoginForm struct {
	state LoginState
	err   string
}

func (f *LoginForm) State() LoginState { return f.state }
func (f *LoginForm) Error() string     { return f.err }

// Submit sends the password and returns the access token on success.
// An empty password never reaches the API.
func (f *LoginForm) Submit(ctx context.Context, auth Authenticator, password string) (string, bool) {
	if password == "" {
		return "", false
	}

	f.state = LoginSubmitting
	f.err = ""

	token, err := auth.Login(ctx, password)
	if err != nil {
		log.Printf("Login attempt failed: %v", err)
		f.state = LoginFailed
		f.err = LoginFailedMessage
		return "", false
	}

	f.state = LoginIdle
	return token, true
}

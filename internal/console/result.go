package console

import (
	"errors"
	"fmt"

	"fdiadmin/internal/backend"
)

type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result is what a view action reports back to the page.
type Result struct {
	Action  string
	Outcome Outcome
	Message string
	Err     error
}

func (r Result) OK() bool     { return r.Outcome == OutcomeOK }
func (r Result) Failed() bool { return r.Outcome == OutcomeFailed }

func succeeded(action, format string, args ...interface{}) Result {
	return Result{Action: action, Outcome: OutcomeOK, Message: fmt.Sprintf(format, args...)}
}

func skipped(action, message string) Result {
	return Result{Action: action, Outcome: OutcomeSkipped, Message: message}
}

func failed(action string, err error) Result {
	return Result{Action: action, Outcome: OutcomeFailed, Message: describe(action, err), Err: err}
}

// describe turns an API error into a line an admin can act on.
func describe(action string, err error) string {
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.Code == 401 || statusErr.Code == 403 {
			return fmt.Sprintf("%s failed: not authorized (session may have expired)", action)
		}
		if statusErr.Detail != "" {
			return fmt.Sprintf("%s failed: %s", action, statusErr.Detail)
		}
		return fmt.Sprintf("%s failed: server answered %d", action, statusErr.Code)
	case errors.Is(err, backend.ErrTransport):
		return fmt.Sprintf("%s failed: API unreachable", action)
	case errors.Is(err, backend.ErrMalformedResponse), errors.Is(err, backend.ErrNotAList):
		return fmt.Sprintf("%s failed: unexpected API response", action)
	default:
		return fmt.Sprintf("%s failed: %v", action, err)
	}
}

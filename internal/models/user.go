package models

import (
	"fmt"
	"strconv"
	"strings"
)

type Level int

const (
	Level1 Level = 1
	Level2 Level = 2
	Level3 Level = 3
	Level4 Level = 4
)

// Levels lists every access level in ascending order.
var Levels = []Level{Level1, Level2, Level3, Level4}

func (l Level) Valid() bool {
	return l >= Level1 && l <= Level4
}

func ParseLevel(s string) (Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid level %q", s)
	}
	l := Level(n)
	if !l.Valid() {
		return 0, fmt.Errorf("level %d out of range", n)
	}
	return l, nil
}

type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
)

// User is a registered member as listed by the API. Status is overwritten
// client-side from the pending listing, whatever the server sent.
type User struct {
	ID         int     `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Address    *string `json:"indirizzo"`
	Notes      *string `json:"varie"`
	Level      Level   `json:"level"`
	Status     Status  `json:"status,omitempty"`
	ApprovedBy *int    `json:"approved_by,omitempty"`
}

func (u User) IsPending() bool {
	return u.Status == StatusPending
}

// DisplayName joins first and last name, falling back to the Telegram ID.
func (u User) DisplayName() string {
	parts := make([]string, 0, 2)
	if u.FirstName != nil && *u.FirstName != "" {
		parts = append(parts, *u.FirstName)
	}
	if u.LastName != nil && *u.LastName != "" {
		parts = append(parts, *u.LastName)
	}
	if len(parts) == 0 {
		return strconv.FormatInt(u.TelegramID, 10)
	}
	return strings.Join(parts, " ")
}

// UserRecord is the body of a full user replace. Text fields are always sent.
type UserRecord struct {
	ID         int    `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"indirizzo"`
	Notes      string `json:"varie"`
	Level      Level  `json:"level"`
}

type ApproveResult struct {
	UserID int    `json:"user_id"`
	Status Status `json:"status"`
}

type LevelChange struct {
	UserID int   `json:"user_id"`
	Level  Level `json:"level"`
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
	UserID  int  `json:"user_id"`
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package models

import "time"

// Session is an authenticated console session holding the API access token.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

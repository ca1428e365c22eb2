package models

import "time"

// Session is one logged-in device, identified by the client IP.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

// RefreshToken is the server-side record of an issued refresh token. Only
// the hash of the token is stored.
type RefreshToken struct {
	UserID    string
	TokenHash string
	SessionID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

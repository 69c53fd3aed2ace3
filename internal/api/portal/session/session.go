package session

import "time"

// Session represents a user session at the portal API.
// The raw session token only ever lives in the client's cookie; the storage knows its hash.
type Session struct {
	Token       string
	UserID      string
	Email       string
	AccessToken string
	Expires     int64
}

// Expired returns whether the session expired at the given time
func (session *Session) Expired(now time.Time) bool {
	return session.Expires <= now.Unix()
}

// Create holds the data of a session to create
type Create struct {
	UserID      string
	Email       string
	AccessToken string
	Expires     time.Time
}

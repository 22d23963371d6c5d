package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is a cached vCenter API session token
type Session struct {
	ID        string     `json:"id"`       // Derived from Key(hostname, username)
	Hostname  string     `json:"hostname"` // vCenter host the token was issued by
	Username  string     `json:"username"`
	Token     string     `json:"token"`    // vmware-api-session-id value
	Endpoint  string     `json:"endpoint"` // "api" or "rest" (pre-7.0 session endpoint)
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// Key returns the stable cache identifier for a user on a vCenter host.
// The same pair always maps to the same ID, so the token can be found again
// by a later invocation.
func Key(hostname, username string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://"+username+"@"+hostname)).String()
}

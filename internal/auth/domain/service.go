package domain

import "time"

// Claims is what a verified dashboard token says about its bearer.
type Claims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Service interface {
	// Issue signs a token for userID valid for ttl.
	Issue(userID string, ttl time.Duration) (string, error)
	// Verify checks signature and expiry and returns the claims.
	Verify(raw string) (*Claims, error)
}

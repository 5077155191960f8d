// Package models defines types shared across internal packages.
package models

import "time"

// Token is the cached Spotify credential record. A record is either
// entirely absent or has AccessToken, ExpiresAt and Scopes populated.
// RefreshToken may be empty when the provider does not issue one.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
}

// Valid reports whether the access token may still be used, requiring
// at least margin of lifetime to remain.
func (t *Token) Valid(margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	return time.Until(t.ExpiresAt) > margin
}

// HasScope reports whether the record grants the named scope.
func (t *Token) HasScope(scope string) bool {
	if t == nil {
		return false
	}

	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}

	return false
}

// Package auth holds the API key identity used to authenticate back-office
// requests.
package auth

import "context"

// APIKeyInfo is one issued API key. KeyHash is the hex HMAC-SHA256 of the raw
// key; the raw key itself is never stored.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository looks up issued keys by their hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

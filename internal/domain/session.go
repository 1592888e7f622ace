package domain

import "time"

// TokenPair is what the auth endpoints return: the short-lived access token
// (JWT) and the long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshSession models one stored refresh token record: a single logged-in
// session for a user. The set of live rows for a user is exactly the set of
// refresh tokens that will be accepted; rotation deletes the presented row
// and inserts its replacement in the same transaction.
type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	CreatedAt time.Time
}

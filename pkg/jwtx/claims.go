package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fixed token claim values. These are part of the wire contract with every
// deployed client, so treat changes as breaking.
const (
	DefaultIssuer   = "attendance-system"
	DefaultAudience = "attendance-system-client"
)

// Default token TTLs. Access tokens are days-scale and deliberately short
// relative to refresh tokens; both can be overridden per-service.
const (
	DefaultAccessTokenTTL  = 7 * 24 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// AccessClaims is the self-contained identity assertion carried by every
// protected request. It is verified statelessly; revocation is handled by
// the refresh session store, not here.
type AccessClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role"`
}

// RefreshClaims carries only the subject; everything else about a refresh
// session lives server-side.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

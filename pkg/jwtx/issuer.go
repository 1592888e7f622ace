package jwtx

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrClaimMismatch    = errors.New("jwtx: issuer or audience mismatch")
)

// Issuer mints and verifies HS256 tokens. Access and refresh tokens are
// signed with independent secrets so a leaked access secret cannot forge
// refresh credentials. All methods are pure: no I/O, no storage.
type Issuer struct {
	AccessSecret  []byte
	RefreshSecret []byte

	Issuer     string        // defaults to DefaultIssuer
	Audience   string        // defaults to DefaultAudience
	AccessTTL  time.Duration // defaults to DefaultAccessTokenTTL
	RefreshTTL time.Duration // defaults to DefaultRefreshTokenTTL

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

func (i *Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

func (i *Issuer) issuer() string {
	if i.Issuer != "" {
		return i.Issuer
	}
	return DefaultIssuer
}

func (i *Issuer) audience() string {
	if i.Audience != "" {
		return i.Audience
	}
	return DefaultAudience
}

func (i *Issuer) accessTTL() time.Duration {
	if i.AccessTTL > 0 {
		return i.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (i *Issuer) refreshTTL() time.Duration {
	if i.RefreshTTL > 0 {
		return i.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

// MintAccess signs a short-lived access token asserting identity and role.
func (i *Issuer) MintAccess(userID, email, role string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.accessTTL())

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer(),
			Subject:   userID,
			Audience:  jwt.ClaimStrings{i.audience()},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
		Role:  role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// MintRefresh signs a long-lived refresh token carrying only the subject.
// The caller is responsible for recording it server-side; a refresh token
// that is not in the store is not redeemable no matter how valid its
// signature is.
func (i *Issuer) MintRefresh(userID string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.refreshTTL())

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyAccess checks signature, expiry, issuer and audience. It proves the
// token was minted here and is not time-expired; it says nothing about
// account state or revocation.
func (i *Issuer) VerifyAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := i.parse(token, &claims, i.AccessSecret); err != nil {
		return AccessClaims{}, err
	}
	if claims.Issuer != i.issuer() {
		return AccessClaims{}, ErrClaimMismatch
	}
	if !slices.Contains(claims.Audience, i.audience()) {
		return AccessClaims{}, ErrClaimMismatch
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and issuer. Refresh tokens carry no
// audience claim.
func (i *Issuer) VerifyRefresh(token string) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := i.parse(token, &claims, i.RefreshSecret); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Issuer != i.issuer() {
		return RefreshClaims{}, ErrClaimMismatch
	}
	return claims, nil
}

func (i *Issuer) parse(token string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}

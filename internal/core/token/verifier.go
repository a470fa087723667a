package token

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// KeyfuncSource returns a jwt.Keyfunc bound to ctx.
type KeyfuncSource func(ctx context.Context) jwt.Keyfunc

// Verifier checks tokens presented by clients.
type Verifier struct {
	keys   KeyfuncSource
	secret []byte
	issuer string
}

// NewVerifier returns a Verifier resolving access token keys with a fixed keyfunc and
// checking refresh tokens against secret.
func NewVerifier(keyfunc jwt.Keyfunc, secret []byte) *Verifier {
	return NewContextVerifier(func(context.Context) jwt.Keyfunc { return keyfunc }, secret)
}

// NewContextVerifier is NewVerifier for key sources that do I/O, typically a JWKS client.
func NewContextVerifier(keys KeyfuncSource, secret []byte) *Verifier {
	return &Verifier{keys: keys, secret: secret, issuer: DefaultIssuer}
}

// VerifyAccess validates an RS256 access token and returns its principal. Key lookups
// are cancelled with ctx. Every failure wraps domain.ErrUnauthenticated.
func (v *Verifier) VerifyAccess(ctx context.Context, raw string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.keys(ctx),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	return claims.Principal(), nil
}

// VerifyRefresh validates an HS256 refresh token including its expiry.
func (v *Verifier) VerifyRefresh(raw string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.hmacKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.ID == "" {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, errMissingJTI)
	}
	return claims.Principal(), nil
}

// ParseRefresh checks only the signature and shape of a refresh token. An expired token is
// accepted so that a client can still log out with it.
func (v *Verifier) ParseRefresh(raw string) (domain.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, v.hmacKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if err := claims.Validate(); err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.ID == "" {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, errMissingJTI)
	}
	return claims.Principal(), nil
}

func (v *Verifier) hmacKey(*jwt.Token) (any, error) {
	return v.secret, nil
}

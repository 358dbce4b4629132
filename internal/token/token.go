// Package token issues and verifies the signed bearer tokens that carry a
// caller's identity.
package token

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vk/burstfn/internal/model"
)

// ErrEmptySecret is returned when an issuer is created without a secret.
var ErrEmptySecret = errors.New("token secret must not be empty")

// reserved claims are owned by the issuer and never taken from callers.
var reserved = []string{"sub", "iat", "exp", "nbf", "iss"}

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithIssuer sets the "iss" claim stamped on every token.
func WithIssuer(iss string) Option {
	return func(i *Issuer) { i.issuer = iss }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer creates an issuer for the given secret.
func NewIssuer(secret []byte, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	i := &Issuer{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Sign issues a token for subject that expires after expiresIn. Extra claims
// are copied in, except for the registered ones the issuer controls.
func (i *Issuer) Sign(subject string, expiresIn time.Duration, extra map[string]any) (string, error) {
	if expiresIn <= 0 {
		return "", fmt.Errorf("token lifetime must be positive, got %s", expiresIn)
	}
	now := i.now()
	claims := jwt.MapClaims{}
	maps.Copy(claims, extra)
	for _, k := range reserved {
		delete(claims, k)
	}
	claims["sub"] = subject
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(expiresIn))
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks a token and returns its identity. Any malformed, expired or
// wrongly signed input yields (nil, false); Verify never panics.
func (i *Issuer) Verify(raw string) (id *model.Identity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			id, ok = nil, false
		}
	}()
	if raw == "" {
		return nil, false
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, false
	}
	out := &model.Identity{Subject: sub, Claims: map[string]any{}}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	for k, v := range claims {
		switch k {
		case "sub", "iat", "exp":
		default:
			out.Claims[k] = v
		}
	}
	return out, true
}

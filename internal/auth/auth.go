// Package auth resolves bearer tokens on incoming requests into identities.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/vk/burstfn/internal/model"
)

// Parser verifies a raw token.
type Parser interface {
	ParseToken(token string) (*model.Identity, bool)
}

type identityKey struct{}

// SplitBearer extracts the token from an Authorization header value. The
// scheme match is case-insensitive.
func SplitBearer(header string) (string, bool) {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// Resolve verifies the bearer token in header, if any.
func Resolve(p Parser, header string) *model.Identity {
	if p == nil {
		return nil
	}
	tok, ok := SplitBearer(header)
	if !ok {
		return nil
	}
	id, ok := p.ParseToken(tok)
	if !ok {
		return nil
	}
	return id
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by Middleware, or nil.
func IdentityFrom(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityKey{}).(*model.Identity)
	return id
}

// Middleware attaches the verified identity to the request context. Requests
// without a valid token pass through anonymously.
func Middleware(p Parser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := Resolve(p, r.Header.Get("Authorization")); id != nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

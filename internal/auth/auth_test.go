package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/model"
)

type staticParser map[string]string

func (p staticParser) ParseToken(tok string) (*model.Identity, bool) {
	sub, ok := p[tok]
	if !ok {
		return nil, false
	}
	return &model.Identity{Subject: sub}, true
}

func TestSplitBearer(t *testing.T) {
	testCases := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "standard", header: "Bearer abc", want: "abc", ok: true},
		{name: "lowercase scheme", header: "bearer abc", want: "abc", ok: true},
		{name: "extra spaces", header: "  Bearer   abc  ", want: "abc", ok: true},
		{name: "empty", header: "", ok: false},
		{name: "no token", header: "Bearer", ok: false},
		{name: "blank token", header: "Bearer   ", ok: false},
		{name: "basic scheme", header: "Basic dXNlcg==", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SplitBearer(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	parser := staticParser{"good": "alice"}
	var seen *model.Identity
	h := Middleware(parser)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = IdentityFrom(r.Context())
	}))

	t.Run("valid token attaches identity", func(t *testing.T) {
		// --- Arrange ---
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/hello", nil)
		req.Header.Set("Authorization", "Bearer good")

		// --- Act ---
		h.ServeHTTP(httptest.NewRecorder(), req)

		// --- Assert ---
		require.NotNil(t, seen)
		assert.Equal(t, "alice", seen.Subject)
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest(http.MethodGet, "/hello", nil)
		req.Header.Set("Authorization", "Bearer bad")

		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Nil(t, seen)
	})

	t.Run("missing header is anonymous", func(t *testing.T) {
		seen = nil
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hello", nil))
		assert.Nil(t, seen)
	})
}

func TestResolve_NilParser(t *testing.T) {
	assert.Nil(t, Resolve(nil, "Bearer good"))
}

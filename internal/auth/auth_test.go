package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/tenancy/internal/token"
)

type authFunc func(ctx context.Context, secret string, need token.Ability) (*token.AccessToken, error)

func (f authFunc) Authenticate(ctx context.Context, secret string, need token.Ability) (*token.AccessToken, error) {
	return f(ctx, secret, need)
}

func TestRequireToken(t *testing.T) {
	a := authFunc(func(_ context.Context, secret string, need token.Ability) (*token.AccessToken, error) {
		switch secret {
		case "good":
			return &token.AccessToken{ID: 1, TenantID: 7}, nil
		case "broken":
			return nil, errors.New("connection reset")
		}
		return nil, token.ErrUnauthenticated
	})

	var seen *token.AccessToken
	h := RequireToken(a, token.AbilityHeartbeat, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = TokenFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{
		"Bearer good":   http.StatusNoContent,
		"Bearer bad":    http.StatusUnauthorized,
		"":              http.StatusUnauthorized,
		"Basic good":    http.StatusUnauthorized,
		"Bearer broken": http.StatusInternalServerError,
	}
	for header, want := range cases {
		seen = nil
		r := httptest.NewRequest(http.MethodPost, "/heartbeat", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, want, w.Code, header)
		if want == http.StatusNoContent {
			if assert.NotNil(t, seen) {
				assert.Equal(t, uint64(7), seen.TenantID)
			}
		}
		if want == http.StatusUnauthorized {
			assert.JSONEq(t, `{"error":"Unauthenticated."}`, w.Body.String())
		}
	}
}

func TestTokenFrom_Empty(t *testing.T) {
	_, ok := TokenFrom(context.Background())
	assert.False(t, ok)
}

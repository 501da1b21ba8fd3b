package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/oestream/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := (StaticToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestTokenFromRequest(t *testing.T) {
	testlog.Start(t)
	r := httptest.NewRequest(http.MethodGet, "/feed?token=query", nil)
	if got := TokenFromRequest(r); got != "query" {
		t.Fatalf("query token got=%q", got)
	}
	r.Header.Set("Authorization", "bearer header")
	if got := TokenFromRequest(r); got != "header" {
		t.Fatalf("bearer token got=%q", got)
	}
	r.Header.Set("Authorization", "Basic abc")
	if got := TokenFromRequest(r); got != "query" {
		t.Fatalf("non-bearer header should fall back, got=%q", got)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	testlog.Start(t)
	hits := 0
	h := Middleware(StaticToken{Token: "s3cret"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusUnauthorized || hits != 0 {
		t.Fatalf("missing token got=%d hits=%d", rec.Code, hits)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || hits != 1 {
		t.Fatalf("valid token got=%d hits=%d", rec.Code, hits)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	token, err := SignJWT("secret", TokenClaims{Sub: "acct-1", Plan: "pro", Exp: time.Now().Add(time.Hour).Unix()})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "acct-1" || claims.Plan != "pro" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{Sub: "acct-1"})
	if _, err := VerifyJWT("other-secret", token); err == nil {
		t.Error("expected signature mismatch")
	}
	if _, err := VerifyJWT("secret", token+"x"); err == nil {
		t.Error("expected tampered token to fail")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{Sub: "acct-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Error("expected expired token to fail")
	}
}

func TestAuthMiddlewareInstallsAccountID(t *testing.T) {
	var got string
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = AccountIDFromContext(r.Context())
	}))

	token, _ := SignJWT("secret", TokenClaims{Sub: "acct-1"})
	req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got != "acct-1" {
		t.Errorf("account id = %q, want acct-1", got)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	handler := Auth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer not.a.jwt",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/credits", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
}

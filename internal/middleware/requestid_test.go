package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDEchoesValidHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "client-supplied-1" {
		t.Fatalf("context id = %q, want client id", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied-1" {
		t.Fatalf("response header = %q, want client id", got)
	}
}

func TestRequestIDReplacesBadHeader(t *testing.T) {
	cases := []struct {
		name string
		rid  string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("a", 65)},
		{"control bytes", "abc\ndef"},
		{"non ascii", "id-\xc3\xa9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.rid != "" {
				req.Header.Set("X-Request-ID", tc.rid)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if seen == "" || seen == tc.rid {
				t.Fatalf("context id = %q, want fresh id", seen)
			}
			if got := rec.Header().Get("X-Request-ID"); got != seen {
				t.Fatalf("response header = %q, want %q", got, seen)
			}
		})
	}
}

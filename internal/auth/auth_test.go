package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestConfirmer_RoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	c := NewConfirmer("test-secret", time.Minute).WithClock(fixedClock(now))

	token, err := c.Issue(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Verify(token, 2); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := c.Verify(token, 2); !errors.Is(err, ErrTokenReused) {
		t.Fatalf("second use should fail with ErrTokenReused, got %v", err)
	}
}

func TestConfirmer_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	c := NewConfirmer("test-secret", time.Minute).WithClock(fixedClock(now))
	token, _ := c.Issue(2)

	if err := c.Verify(token, 3); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("other snapshot: %v", err)
	}
	if err := c.Verify("not-a-token", 2); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("garbage token: %v", err)
	}

	other := NewConfirmer("different-secret", time.Minute).WithClock(fixedClock(now))
	if err := other.Verify(token, 2); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("wrong secret: %v", err)
	}

	late := NewConfirmer("test-secret", time.Minute).WithClock(fixedClock(now.Add(2 * time.Minute)))
	if err := late.Verify(token, 2); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token: %v", err)
	}
}

func TestResolveSecret(t *testing.T) {
	if s, _ := ResolveSecret("X", "  configured "); s != "configured" {
		t.Fatalf("got %q", s)
	}
	a, err := ResolveSecret("X", "")
	if err != nil || len(a) < 32 {
		t.Fatalf("fallback secret %q, %v", a, err)
	}
	if b, _ := ResolveSecret("X", ""); a == b {
		t.Fatal("fallback secrets must differ")
	}
}

func TestAdminMiddleware(t *testing.T) {
	e := echo.New()
	h := AdminMiddleware("s3cret")(func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"admin header", AdminHeader, "s3cret", http.StatusNoContent},
		{"bearer", echo.HeaderAuthorization, "Bearer s3cret", http.StatusNoContent},
		{"wrong", AdminHeader, "nope", http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			if err := h(e.NewContext(req, rec)); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

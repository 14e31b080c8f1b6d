package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type prefs map[string]string

func (p prefs) Preference(_ context.Context, key string) (string, bool, error) {
	v, ok := p[key]
	return v, ok, nil
}

type failingPrefs struct{}

func (failingPrefs) Preference(context.Context, string) (string, bool, error) {
	return "", false, errors.New("db down")
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	out, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return out
}

func TestTokenMissing(t *testing.T) {
	src, err := Load(context.Background(), prefs{}, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := src.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestTokenFromPreferences(t *testing.T) {
	src, err := Load(context.Background(), prefs{PreferenceKey: "opaque"}, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	token, err := src.Token()
	if err != nil || token != "opaque" {
		t.Fatalf("expected opaque token, got %q err=%v", token, err)
	}
}

func TestExplicitTokenWins(t *testing.T) {
	src, err := Load(context.Background(), failingPrefs{}, "explicit")
	if err != nil {
		t.Fatalf("expected explicit token to skip the store, got %v", err)
	}
	if token, _ := src.Token(); token != "explicit" {
		t.Fatalf("expected explicit token, got %q", token)
	}
	if _, err := Load(context.Background(), failingPrefs{}, ""); err == nil {
		t.Fatalf("expected store error to surface")
	}
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expired := NewSource(signed(t, now.Add(-time.Minute)), func() time.Time { return now })
	if _, err := expired.Token(); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	live := NewSource(signed(t, now.Add(time.Hour)), func() time.Time { return now })
	if _, err := live.Token(); err != nil {
		t.Fatalf("expected live token, got %v", err)
	}
}

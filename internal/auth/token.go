// Package auth supplies the bearer token used for reward submission.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const PreferenceKey = "access_token"

var (
	ErrNoToken      = errors.New("no access token")
	ErrTokenExpired = errors.New("access token expired")
)

type PreferenceReader interface {
	Preference(ctx context.Context, key string) (string, bool, error)
}

type Source struct {
	token string
	now   func() time.Time
}

// Load reads the stored token once. An explicit token, typically from the
// environment, takes precedence over the stored one.
func Load(ctx context.Context, prefs PreferenceReader, explicit string) (*Source, error) {
	token := strings.TrimSpace(explicit)
	if token == "" && prefs != nil {
		stored, ok, err := prefs.Preference(ctx, PreferenceKey)
		if err != nil {
			return nil, fmt.Errorf("load access token: %w", err)
		}
		if ok {
			token = strings.TrimSpace(stored)
		}
	}
	return NewSource(token, time.Now), nil
}

func NewSource(token string, now func() time.Time) *Source {
	if now == nil {
		now = time.Now
	}
	return &Source{token: strings.TrimSpace(token), now: now}
}

// Token returns the token if one is present and not known to be expired.
func (s *Source) Token() (string, error) {
	if s == nil || s.token == "" {
		return "", ErrNoToken
	}
	if Expired(s.token, s.now()) {
		return "", ErrTokenExpired
	}
	return s.token, nil
}

// Expired reads the exp claim without verifying the signature; the reward
// service does the verification. Tokens that are not JWTs or carry no exp
// are treated as live.
func Expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

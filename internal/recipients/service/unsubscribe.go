package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UnsubscribeTokens issues and applies signed unsubscribe tokens carried in
// rendered email footers. A token scoped to a category unsubscribes that
// category only; an unscoped token disables email entirely.
type UnsubscribeTokens struct {
	key   []byte
	ttl   time.Duration
	prefs *Preferences
	now   func() time.Time
}

func NewUnsubscribeTokens(signingKey string, ttl time.Duration, prefs *Preferences) *UnsubscribeTokens {
	return &UnsubscribeTokens{key: []byte(signingKey), ttl: ttl, prefs: prefs, now: time.Now}
}

type unsubscribeClaims struct {
	Category string `json:"cat,omitempty"`
	jwt.RegisteredClaims
}

// Issue returns a signed token for the recipient. category may be empty.
func (u *UnsubscribeTokens) Issue(recipientID uuid.UUID, category string) (string, error) {
	now := u.now()
	claims := unsubscribeClaims{
		Category: category,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   recipientID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(u.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.key)
}

// Apply verifies the token and updates the recipient's preference accordingly.
func (u *UnsubscribeTokens) Apply(ctx context.Context, token string) error {
	var claims unsubscribeClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return u.key, nil
	}, jwt.WithTimeFunc(func() time.Time { return u.now() }))
	if err != nil {
		return fmt.Errorf("invalid unsubscribe token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid unsubscribe token")
	}
	recipientID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return fmt.Errorf("invalid unsubscribe token subject: %w", err)
	}
	if claims.Category == "" {
		return u.prefs.DisableEmail(ctx, recipientID)
	}
	return u.prefs.UnsubscribeCategory(ctx, recipientID, claims.Category)
}

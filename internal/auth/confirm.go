// Package auth guards destructive operations: signed, single-use delete
// confirmation tokens and the admin-secret middleware.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeDelete = "delete-snapshot"
	defaultTTL    = 10 * time.Minute
)

var (
	ErrTokenInvalid  = errors.New("confirmation token invalid")
	ErrTokenMismatch = errors.New("confirmation token is for another snapshot")
	ErrTokenReused   = errors.New("confirmation token already used")
)

type deleteClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Confirmer issues HS256 tokens bound to one snapshot id. A token verifies once.
type Confirmer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	used map[string]time.Time // jti -> expiry
}

func NewConfirmer(secret string, ttl time.Duration) *Confirmer {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Confirmer{secret: []byte(secret), ttl: ttl, now: time.Now, used: map[string]time.Time{}}
}

// WithClock replaces the time source; used by tests.
func (c *Confirmer) WithClock(now func() time.Time) *Confirmer {
	c.now = now
	return c
}

func (c *Confirmer) Issue(id int64) (string, error) {
	now := c.now()
	claims := deleteClaims{
		Purpose: purposeDelete,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign confirmation token: %w", err)
	}
	return signed, nil
}

func (c *Confirmer) Verify(tokenString string, id int64) error {
	var claims deleteClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Purpose != purposeDelete {
		return fmt.Errorf("%w: wrong purpose", ErrTokenInvalid)
	}
	if claims.Subject != strconv.FormatInt(id, 10) {
		return ErrTokenMismatch
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for jti, exp := range c.used {
		if now.After(exp) {
			delete(c.used, jti)
		}
	}
	if _, seen := c.used[claims.ID]; seen {
		return ErrTokenReused
	}
	c.used[claims.ID] = claims.ExpiresAt.Time
	return nil
}

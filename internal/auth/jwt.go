// Package auth holds password hashing and the signed session cookie format.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultKID names the key when a single SESSION_SECRET is configured.
const DefaultKID = "default"

// ErrInvalidCookie is returned for any cookie that does not verify.
var ErrInvalidCookie = errors.New("invalid session cookie")

// CookieSigner signs and verifies session cookie values. The value is an
// HS256 JWT carrying only the server-side session id; everything else about
// the session lives in the session store.
type CookieSigner struct {
	keys      map[string][]byte
	activeKID string
}

// SessionClaims is the cookie payload.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewCookieSigner returns a signer using a single secret.
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{
		keys:      map[string][]byte{DefaultKID: []byte(secret)},
		activeKID: DefaultKID,
	}
}

// NewCookieSignerFromKeys returns a signer that signs with activeKID and
// still accepts cookies signed by any other kid in keys, so secrets can be
// rotated without logging everyone out.
func NewCookieSignerFromKeys(keys map[string]string, activeKID string) (*CookieSigner, error) {
	if _, ok := keys[activeKID]; !ok {
		return nil, fmt.Errorf("active kid %q not present in keys", activeKID)
	}
	m := make(map[string][]byte, len(keys))
	for kid, secret := range keys {
		m[kid] = []byte(secret)
	}
	return &CookieSigner{keys: m, activeKID: activeKID}, nil
}

// Sign issues a cookie value for sid that stops verifying at expiresAt.
func (s *CookieSigner) Sign(sid string, expiresAt time.Time) (string, error) {
	claims := &SessionClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = s.activeKID

	signed, err := token.SignedString(s.keys[s.activeKID])
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a cookie value and returns the
// session id it carries.
func (s *CookieSigner) Verify(value string) (string, error) {
	claims := &SessionClaims{}

	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		// only HMAC; rejects alg=none and asymmetric confusion
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			kid = DefaultKID
		}
		key, ok := s.keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return key, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCookie
	}
	if claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}

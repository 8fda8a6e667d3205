// Package auth decodes game API tokens into sessions and keeps them in a
// per-browser token store. Nothing here verifies signatures; the game API
// is the only authority on whether a token is genuine.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/goccy/go-json"

	"luchaserver/models"
	"luchaserver/normalize"
)

var (
	ErrNoToken = errors.New("no token")
	ErrDecode  = errors.New("token could not be decoded")
	ErrExpired = errors.New("token expired")
	ErrRole    = errors.New("role not allowed here")
)

// Decode reads the token payload without checking its signature. Only the
// payload segment is parsed; the header (and its alg) is ignored. The
// token must carry an id and a recognized role, must not be expired, and
// when allowed is non-empty its role must be one of them.
func Decode(tokenString string, allowed ...models.Role) (*models.Session, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims, err := payload(tokenString)
	if err != nil {
		return nil, err
	}

	id := normalize.Str(claims["id"])
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrDecode)
	}
	role, ok := models.ParseRole(normalize.Str(claims["role"]))
	if !ok {
		return nil, fmt.Errorf("%w: missing or unknown role", ErrDecode)
	}
	if len(allowed) > 0 && !roleIn(role, allowed) {
		return nil, fmt.Errorf("%w: %s", ErrRole, role)
	}

	sess := &models.Session{
		ID:       id,
		Role:     role,
		Username: normalize.StrOr(claims["username"], "Usuario "+string(role)),
		Token:    tokenString,
	}
	// exp is optional; zero counts as absent
	if exp := normalize.Num(claims["exp"]); exp != 0 {
		at := time.Unix(int64(exp), 0)
		sess.ExpiresAt = &at
		if sess.Expired(time.Now()) {
			return nil, ErrExpired
		}
	}
	return sess, nil
}

// payload decodes the middle segment of header.payload.signature.
func payload(tokenString string) (jwt.MapClaims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: want 3 segments, got %d", ErrDecode, len(parts))
	}
	raw, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return claims, nil
}

func roleIn(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Package auth binds a (room, identity, role) triple to a signed session
// token. The relay core treats role authenticity as a trust boundary; when a
// secret is configured the boundary moves inside the relay and every relay
// request must present a token minted at create/join time. When no secret is
// configured the relay trusts the caller's claimed role and leaves
// verification to an external authentication collaborator.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/murat48/zktexasholdem-sub001/domain"
	"github.com/murat48/zktexasholdem-sub001/errors"
)

type SessionClaims struct {
	Room    string `json:"room"`
	Address string `json:"address"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator returns a disabled authenticator when secret is empty.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if secret == "" {
		return &Authenticator{}
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Mint signs a token binding identity to its seat in a room.
func (a *Authenticator) Mint(code domain.RoomCode, identity domain.Identity, role domain.Role) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	now := time.Now()
	claims := &SessionClaims{
		Room:    string(code),
		Address: identity.Address,
		Role:    string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "game-relay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify checks signature and expiry and that the token is bound to the
// given room with the claimed role. RoleChat is accepted from either seat.
func (a *Authenticator) Verify(tokenString string, code domain.RoomCode, role domain.Role) (*SessionClaims, error) {
	if !a.Enabled() {
		return nil, nil
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", errors.ErrInvalidToken)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.ErrInvalidToken
	}
	if domain.NormalizeCode(claims.Room) != domain.NormalizeCode(string(code)) {
		return nil, errors.ErrRoleMismatch
	}
	if role != domain.RoleChat && claims.Role != string(role) {
		return nil, errors.ErrRoleMismatch
	}
	return claims, nil
}

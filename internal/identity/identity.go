// Package identity verifies bearer tokens and exposes the current user to
// the registration core. The core only distinguishes administrators from
// everyone else.
package identity

import (
	"errors"
	"time"

	"github.com/Tauqir1234/Festio/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type User struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Claims struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates an HS256 token and returns the user it
// identifies. Unknown role strings collapse to member.
func (v *Verifier) Verify(tokenString string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{}, apperr.New(apperr.Authorization, "token has expired")
		}
		return User{}, apperr.Wrap(apperr.Authorization, "invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return User{}, apperr.New(apperr.Authorization, "invalid token")
	}
	if claims.Email == "" {
		return User{}, apperr.New(apperr.Authorization, "token carries no identity")
	}

	role := RoleMember
	if Role(claims.Role) == RoleAdmin {
		role = RoleAdmin
	}
	return User{Email: claims.Email, FullName: claims.FullName, Role: role}, nil
}

// Issue signs a token for u, used by the dev login endpoint and tests.
func (v *Verifier) Issue(u User, ttl time.Duration) (string, error) {
	claims := Claims{
		Email:    u.Email,
		FullName: u.FullName,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Package auth issues and verifies session tokens, hashes passwords and
// normalizes the identity fields used to match registrants to the roster.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ingenieros-gt/evote/internal/common"
)

// Principal is the authenticated caller carried by a session token.
type Principal struct {
	ID        int64  `json:"id,string"`
	Role      string `json:"role"`
	Colegiado string `json:"colegiado"`
	Nombre    string `json:"nombre"`
	Email     string `json:"email,omitempty"`
}

// Claims are the signed token contents.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	Colegiado string `json:"colegiado"`
	Nombre    string `json:"nombre"`
	Email     string `json:"email,omitempty"`
}

// GenerateToken signs an HS256 token for p valid from now for validity.
func GenerateToken(p Principal, secretKey []byte, validity time.Duration, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Role:      p.Role,
		Colegiado: p.Colegiado,
		Nombre:    p.Nombre,
		Email:     p.Email,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies signature and expiry at now and returns the caller.
// Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte, now time.Time) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	return &Principal{
		ID:        id,
		Role:      claims.Role,
		Colegiado: claims.Colegiado,
		Nombre:    claims.Nombre,
		Email:     claims.Email,
	}, nil
}

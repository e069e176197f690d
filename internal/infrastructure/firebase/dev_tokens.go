package firebase

import (
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

// DevTokenGenerator mints and verifies HS256 tokens for local development,
// where no Firebase project is configured. Never enabled in production.
type DevTokenGenerator struct {
	secret []byte
}

func NewDevTokenGenerator(secret string) *DevTokenGenerator {
	return &DevTokenGenerator{secret: []byte(secret)}
}

type devClaims struct {
	Admin bool `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

func (g *DevTokenGenerator) Generate(uid string, admin bool) (string, error) {
	claims := devClaims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", errors.Internal("Failed to sign dev token", err)
	}
	return signed, nil
}

// Verify returns the uid and admin flag carried by a dev token.
func (g *DevTokenGenerator) Verify(tokenString string) (string, bool, error) {
	var claims devClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("Unexpected signing method", nil)
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return "", false, errors.Unauthorized("Invalid or expired token", err)
	}
	return claims.Subject, claims.Admin, nil
}

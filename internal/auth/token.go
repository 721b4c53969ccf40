package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const tokenIssuer = "mealtrack"

// Claims identify the user (sub) and the server-side session (jti). Tokens
// carry no exp claim; validity is decided by session inactivity.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens with HS256.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec returns a codec using secret as the HMAC key.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Issue returns a signed token for the user and session.
func (c *TokenCodec) Issue(userID primitive.ObjectID, sessionID string, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  userID.Hex(),
			ID:       sessionID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Parse verifies the signature and returns the claims. Any failure is
// reported as ErrForbidden.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrForbidden
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrForbidden
	}
	return claims, nil
}

package identity

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var hmacMethods = []string{"HS256", "HS384", "HS512"}

// JWTVerifier validates HMAC signed tokens that carry an expiry and reads the
// user id from "sub".
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("server is not configured to validate JWTs")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods(hmacMethods), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("could not parse token claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", errors.New("user id (sub) claim is missing or invalid")
	}
	return userID, nil
}

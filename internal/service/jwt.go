package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

func InitJWT(secret string) {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// TokenClaims is what a session token carries. Username is the identity
// games are played under.
type TokenClaims struct {
	UserID   int64
	Username string
}

func GenerateJWT(userID int64, username string) (string, error) {
	now := time.Now().Unix()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      now,
		"nbf":      now,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ParseJWT(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errors.New("user_id not found")
	}
	username, ok := claims["username"].(string)
	if !ok || username == "" {
		return nil, errors.New("username not found")
	}

	return &TokenClaims{UserID: int64(userID), Username: username}, nil
}

// JWTAuthenticator resolves session tokens to identities for the real-time
// protocol.
type JWTAuthenticator struct{}

func (JWTAuthenticator) AuthenticateToken(token string) (string, bool) {
	claims, err := ParseJWT(token)
	if err != nil {
		return "", false
	}
	return claims.Username, true
}

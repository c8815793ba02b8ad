package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	KindStaff  = "staff"
	KindClient = "client"
)

type Claims struct {
	Kind     string `json:"knd"`
	UserID   string `json:"uid,omitempty"`
	ClientID string `json:"cid,omitempty"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func SignStaffJWT(secret, userID, role string, expiresMin int) (string, error) {
	return sign(secret, Claims{Kind: KindStaff, UserID: userID, Role: role}, expiresMin)
}

func SignClientJWT(secret, clientID, email string, expiresMin int) (string, error) {
	return sign(secret, Claims{Kind: KindClient, ClientID: clientID, Email: email}, expiresMin)
}

func sign(secret string, claims Claims, expiresMin int) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiresMin) * time.Minute)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseJWT validates a signed token and returns its claims.
func ParseJWT(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Overridden from config at startup; the default only serves local dev.
var JwtSecret = []byte("8c1f82de-33bd-4a9e-9f60-4cf0d2fd6a7b")

type Claims struct {
	UserId     int64  `json:"user_id"`
	CompanyId  int64  `json:"company_id"`
	SystemRole string `json:"system_role"`
	jwt.RegisteredClaims
}

func GenerateToken(userID, companyID int64, systemRole string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &Claims{
		UserId:     userID,
		CompanyId:  companyID,
		SystemRole: systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(JwtSecret)
	return s, exp, err
}

func ParseToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return JwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("Invalid Token")
}

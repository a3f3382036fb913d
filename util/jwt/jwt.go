package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issue signs an HS256 token for the given user.
func Issue(secret string, userID int64, role string, ttlHours int) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(time.Duration(ttlHours) * time.Hour).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

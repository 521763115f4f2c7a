package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenNoExpiry is returned for tokens without an exp claim.
var ErrTokenNoExpiry = errors.New("session: token has no expiry")

var unverifiedParser = jwt.NewParser()

// TokenExpiry reads the exp claim of an API token without verifying its
// signature. The API is the only party that verifies tokens; the frontend
// only needs to know when to stop using one.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("session: parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("session: read exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrTokenNoExpiry
	}
	return exp.Time, nil
}

// TokenValid reports whether token carries an exp claim later than now.
func TokenValid(token string, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return now.Before(exp)
}

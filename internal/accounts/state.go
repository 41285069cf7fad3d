package accounts

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// stateTTL bounds how long an OAuth round trip may take.
const stateTTL = 10 * time.Minute

var errBadState = errors.New("invalid oauth state")

// SignState mints a short-lived signed state token carried through the OAuth
// redirect to reject forged callbacks.
func SignState(secret string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyState validates a state token returned by the provider callback.
func VerifyState(secret, state string) error {
	token, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadState
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return errBadState
	}
	return nil
}

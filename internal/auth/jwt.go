// Package auth issues stream tokens that bind a websocket connection to the
// session it was created for. This is connection binding, not user identity.
package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StreamClaims are the claims carried by a stream token.
type StreamClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

func secret() []byte {
	if s := os.Getenv("STREAM_TOKEN_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("dev-stream-secret")
}

// GenerateStreamToken signs a token valid for the session's lifetime window.
func GenerateStreamToken(sessionID string) (string, error) {
	claims := &StreamClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// ValidateStreamToken checks the signature and that the token belongs to the
// given session.
func ValidateStreamToken(tokenString, sessionID string) error {
	token, err := jwt.ParseWithClaims(tokenString, &StreamClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil {
		return err
	}

	claims, ok := token.Claims.(*StreamClaims)
	if !ok || !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}
	if claims.SessionID != sessionID {
		return fmt.Errorf("token issued for a different session")
	}
	return nil
}

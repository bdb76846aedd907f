/*

Owner identity. Sign-in itself happens against the managed identity
provider; this package only verifies the session tokens that provider (or
the dev token endpoint) minted with the shared secret, and makes the owner
id available to handlers through the request context.

*/

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pooltrack/pooltrack/internal/logger"
)

var authLogger = logger.GetForComponent("auth")

var ErrInvalidToken = errors.New("invalid session token")

type contextKey struct{}

var ownerKey contextKey

const sessionTTL = 24 * time.Hour

// Sessions issues and verifies owner session tokens.
type Sessions struct {
	secret []byte
}

// NewSessions creates a session verifier using the shared HMAC secret.
func NewSessions(secret []byte) *Sessions {
	return &Sessions{secret: secret}
}

// Issue mints a signed session token for the given owner id.
func (s *Sessions) Issue(ownerID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": ownerID,
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

// Verify parses a token and returns the owner id it was issued for.
func (s *Sessions) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

// RequireOwner is middleware that rejects requests without a valid bearer
// token and stores the owner id in the request context.
func (s *Sessions) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			// Websocket clients cannot set headers from browsers; accept
			// the token as a query parameter there.
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			unauthorized(w)
			return
		}

		ownerID, err := s.Verify(tokenString)
		if err != nil {
			authLogger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected session token")
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), ownerID)))
	})
}

// WithOwner returns a context carrying the owner id.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerID extracts the owner id stored by RequireOwner. The empty string
// means the request never passed through the middleware.
func OwnerID(ctx context.Context) string {
	id, _ := ctx.Value(ownerKey).(string)
	return id
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}

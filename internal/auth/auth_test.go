package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	s := NewSessions([]byte("test-secret"))

	token, err := s.Issue("owner-1")
	require.NoError(t, err)

	ownerID, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", ownerID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	minted := NewSessions([]byte("secret-a"))
	verifier := NewSessions([]byte("secret-b"))

	token, err := minted.Issue("owner-1")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := NewSessions([]byte("test-secret"))
	_, err := s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireOwner(t *testing.T) {
	s := NewSessions([]byte("test-secret"))
	token, err := s.Issue("owner-1")
	require.NoError(t, err)

	var seenOwner string
	handler := s.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = OwnerID(r.Context())
	}))

	// Valid bearer token.
	req := httptest.NewRequest(http.MethodGet, "/api/pools", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "owner-1", seenOwner)

	// Token in query parameter (websocket path).
	req = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Missing token.
	req = httptest.NewRequest(http.MethodGet, "/api/pools", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

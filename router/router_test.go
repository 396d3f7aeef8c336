package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recordstore/internal/record/model"
	"recordstore/internal/record/store"
	"recordstore/socket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("router-secret")

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject}).SignedString(secret)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterEndToEnd(t *testing.T) {
	hub := socket.NewHub()
	s := store.New("admin", hub)
	srv := httptest.NewServer(Setup(s, hub, Options{JWTSecret: secret, AllowedOrigins: []string{"*"}}))
	defer srv.Close()

	send := func(method, path, body, auth string) *http.Response {
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}
	adminAuth := bearer(t, "admin")

	assert.Equal(t, http.StatusUnauthorized, send(http.MethodPost, "/api/users", `{"user_id":"U1","name":"Alice"}`, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodPost, "/api/users", `{"user_id":"U1","name":"Alice"}`, bearer(t, "bob")).StatusCode)
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/users", `{"user_id":"U1","name":"Alice","email":"a@x.com"}`, adminAuth).StatusCode)
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/users", `{"user_id":"U2","name":"Bob","email":"b@x.com"}`, adminAuth).StatusCode)
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/documents", `{"user_id":"U1","content_hash":"H1","document_id":"D1"}`, adminAuth).StatusCode)
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "/api/shares", `{"user_id":"U1","shared_with_user_id":"U2","document_id":"D1"}`, adminAuth).StatusCode)

	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/users?userId=U1", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/access?sharedUserId=U2&documentId=D1", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/api/shares?userId=U1&sharedWithUserId=U2&documentId=D1", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/shares?userId=U1&sharedWithUserId=U2&documentId=D1", "", adminAuth).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, send(http.MethodDelete, "/api/users", "", adminAuth).StatusCode)

	assert.True(t, s.HasAccess("U2", "D1"))
	docs, err := s.DocumentsByUser("U1")
	require.NoError(t, err)
	assert.Equal(t, []model.DocumentRecord{{DocumentID: "D1", ContentHash: "H1"}}, docs)
}

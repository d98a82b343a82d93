package session_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/session"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "3",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("backend-secret-we-never-verify"))
	require.NoError(t, err)
	return s
}

func meServer(t *testing.T, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/me" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid token"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{
			"id": 3, "username": "ann", "phone": "0891234567", "role": "USER",
		}})
	}))
}

func openStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.OpenStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRehydrateValidCredential(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	srv := meServer(t, token)
	defer srv.Close()

	store := openStore(t)
	require.NoError(t, store.SetToken(token))

	client := resto.New(srv.URL, "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())

	assert.True(t, s.Member())
	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, "ann", user.Username)
	assert.Equal(t, token, client.Token())
}

func TestRehydrateExpiredCredentialSkipsBackend(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	store := openStore(t)
	require.NoError(t, store.SetToken(signedToken(t, time.Now().Add(-time.Hour))))

	client := resto.New(srv.URL, "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())

	assert.False(t, s.Member())
	assert.False(t, called, "an expired token must not reach the backend")

	stored, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, stored, "an expired token must be discarded")
}

func TestRehydrateRejectedCredential(t *testing.T) {
	srv := meServer(t, "the-only-valid-token")
	defer srv.Close()

	store := openStore(t)
	require.NoError(t, store.SetToken(signedToken(t, time.Now().Add(time.Hour))))

	client := resto.New(srv.URL, "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())

	assert.False(t, s.Member())
	assert.Empty(t, client.Token())
	stored, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRehydrateNoCredential(t *testing.T) {
	store := openStore(t)
	client := resto.New("http://127.0.0.1:0", "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())
	assert.False(t, s.Member())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestLoginAndLogout(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))
	srv := meServer(t, token)
	defer srv.Close()

	store := openStore(t)
	client := resto.New(srv.URL, "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())

	user, err := s.Login(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
	assert.True(t, s.Member())

	stored, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, token, stored)

	require.NoError(t, s.Logout())
	assert.False(t, s.Member())
	assert.Empty(t, client.Token())
	stored, err = store.Token()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLoginRejectedTokenNotPersisted(t *testing.T) {
	srv := meServer(t, "someone-else")
	defer srv.Close()

	store := openStore(t)
	client := resto.New(srv.URL, "")
	s := session.Rehydrate(context.Background(), store, client, slog.Default())

	_, err := s.Login(context.Background(), signedToken(t, time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.Empty(t, client.Token())

	stored, err := store.Token()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestStoreGuestContact(t *testing.T) {
	store := openStore(t)

	name, phone, err := store.GuestContact()
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Empty(t, phone)

	require.NoError(t, store.SetGuestContact("Ann", "0891234567"))
	name, phone, err = store.GuestContact()
	require.NoError(t, err)
	assert.Equal(t, "Ann", name)
	assert.Equal(t, "0891234567", phone)
}

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func testStore() *Store {
	hash := make([]byte, 32)
	block := make([]byte, 32)
	for i := range hash {
		hash[i] = byte(i)
		block[i] = byte(i * 2)
	}
	return NewStore(nil, hash, block)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	s := testStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, s.SetSession(rec, req, 42))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	sess, ok := s.GetSession(req2)
	require.True(t, ok)
	assert.Equal(t, int64(42), sess.UserID)
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	s := testStore()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "tablesched_session", Value: "forged"})
	_, ok := s.GetSession(req)
	assert.False(t, ok)
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	s := testStore()
	var reached bool
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, reached)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuthPassesUserID(t *testing.T) {
	s := testStore()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, s.SetSession(rec, req, 7))
	cookie := rec.Result().Cookies()[0]

	var gotID int64
	h := s.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserIDFromContext(r.Context())
	}))

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req2)
	assert.Equal(t, int64(7), gotID)
}

package resto_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/tables"
)

func TestTableStatuses(t *testing.T) {
	at := time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)

	t.Run("member endpoint with credential", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/user/tables", r.URL.Path)
			require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			require.Equal(t, at.Format(time.RFC3339), r.URL.Query().Get("selectedTime"))
			_ = json.NewEncoder(w).Encode(map[string]any{"tables": []map[string]any{
				{"tableNumber": 5, "id": 1005, "status": "AVAILABLE"},
				{"tableNumber": 6, "id": 1006, "status": "RESERVED"},
			}})
		}))
		defer srv.Close()

		c := resto.New(srv.URL, "tok")
		snap, err := c.TableStatuses(context.Background(), at, true)
		require.NoError(t, err)
		assert.Equal(t, tables.StatusAvailable, snap.StatusOf(5))
		assert.Equal(t, tables.StatusReserved, snap.StatusOf(6))
		assert.Equal(t, int64(1005), snap.IDs[5])
		assert.Equal(t, int64(1006), snap.IDs[6])
	})

	t.Run("guest endpoint never sends the credential", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/reservations/tables", r.URL.Path)
			require.Empty(t, r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{"tables": []map[string]any{}})
		}))
		defer srv.Close()

		c := resto.New(srv.URL, "stale-token")
		_, err := c.TableStatuses(context.Background(), at, false)
		require.NoError(t, err)
	})
}

func TestReserveCarriesIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		_, err := uuid.Parse(key)
		require.NoError(t, err, "Idempotency-Key must be a UUID")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]any{"reservation": map[string]any{"id": 9}})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "")
	res, err := c.ReserveGuest(context.Background(), resto.GuestReservation{
		StartTime: "2026-05-10T18:00:00+07:00",
		People:    2,
		TableIDs:  []int64{1005},
		Name:      "Ann",
		Phone:     "0891234567",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.Key())
}

func TestReserveFlatIDResponse(t *testing.T) {
	// some backend builds return the created id at the top level
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 15})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "tok")
	res, err := c.ReserveMember(context.Background(), resto.MemberReservation{
		StartTime: "2026-05-10T18:00:00+07:00", People: 2, TableIDs: []int64{1005},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), res.Key())
}

func TestServerMessageSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Table already reserved"})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "")
	_, err := c.ReserveGuest(context.Background(), resto.GuestReservation{})
	require.Error(t, err)

	var apiErr *resto.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Table already reserved", apiErr.Message)
	assert.Equal(t, "Table already reserved", apiErr.Error())
}

func TestStatusOnlyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "")
	_, err := c.GuestCheck(context.Background(), "Ann", "0891234567")
	require.Error(t, err)

	var apiErr *resto.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestMemberReservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/reservations", r.URL.Path)
		require.Equal(t, "2026-05-10", r.URL.Query().Get("date"))
		_ = json.NewEncoder(w).Encode(map[string]any{"reservations": []map[string]any{
			{"id": 1, "startTime": "2026-05-10T18:00:00+07:00", "people": 2, "status": "PENDING"},
			{"id": 2, "startTime": "2026-05-10T19:00:00+07:00", "people": 4, "status": "CANCELLED"},
		}})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "tok")
	rs, err := c.MemberReservations(context.Background(), "2026-05-10")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, int64(1), rs[0].Key())
	assert.Equal(t, resto.StatusCancelled, rs[1].Status)
}

func TestGuestCheckKeysByReservationID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "Ann", body["name"])
		_ = json.NewEncoder(w).Encode(map[string]any{"reservations": []map[string]any{
			{"reservationId": 33, "startTime": "2026-05-10T18:00:00+07:00", "people": 2, "status": "PENDING"},
		}})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "")
	rs, err := c.GuestCheck(context.Background(), "Ann", "0891234567")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, int64(33), rs[0].Key())
}

func TestCancelPaths(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "tok")
	require.NoError(t, c.CancelMember(context.Background(), 12))
	assert.Equal(t, "/user/reservations/12", gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)

	require.NoError(t, c.CancelGuest(context.Background(), 12))
	assert.Equal(t, "/reservations/12/cancel", gotPath)
}

func TestMeNormalizesRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{
			"id": 3, "username": "ann", "phone": "0891234567", "role": "user",
		}})
	}))
	defer srv.Close()

	c := resto.New(srv.URL, "tok")
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "USER", u.Role)
	assert.Equal(t, "ann", u.Username)
}

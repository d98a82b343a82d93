// Package resto is the HTTP client for the restaurant's reservation backend.
// The backend is the single source of truth; this client only reads state and
// submits requests on behalf of a guest or an authenticated member.
package resto

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/example/tablesched/internal/tables"
)

const DefaultBaseURL = "http://localhost:5000/api"

type Client struct {
	hc      *http.Client
	baseURL string

	mu    sync.RWMutex
	token string // member bearer credential; empty for guests
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// SetToken swaps the member credential. An empty token turns the client back
// into a guest client.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User is the member profile as reported by the session-check endpoint.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// Reservation is a server-owned record. Member listings key rows by "id",
// guest lookups by "reservationId"; Key() folds the two.
type Reservation struct {
	ID            int64  `json:"id"`
	ReservationID int64  `json:"reservationId"`
	StartTime     string `json:"startTime"`
	Date          string `json:"date"`
	People        int    `json:"people"`
	Status        string `json:"status"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
}

func (r Reservation) Key() int64 {
	if r.ID != 0 {
		return r.ID
	}
	return r.ReservationID
}

// Reservation statuses as the backend reports them.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// GuestReservation and MemberReservation are the two submission shapes. They
// are distinct types on purpose: a guest booking carries contact details, a
// member booking carries none and rides on the bearer credential instead.
type GuestReservation struct {
	StartTime string  `json:"startTime"`
	People    int     `json:"people"`
	TableIDs  []int64 `json:"tableIds"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
}

type MemberReservation struct {
	StartTime string  `json:"startTime"`
	People    int     `json:"people"`
	TableIDs  []int64 `json:"tableIds"`
}

// TableStatuses fetches the per-table status for the floor at the given
// instant. Members hit the member-scoped endpoint with their credential;
// guests hit the public one with none.
func (c *Client) TableStatuses(ctx context.Context, at time.Time, member bool) (tables.Snapshot, error) {
	path := "/reservations/tables"
	if member {
		path = "/user/tables"
	}
	q := url.Values{"selectedTime": {at.UTC().Format(time.RFC3339)}}

	var res struct {
		Tables []struct {
			TableNumber int           `json:"tableNumber"`
			ID          int64         `json:"id"`
			Status      tables.Status `json:"status"`
		} `json:"tables"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, q, nil, member, nil, &res); err != nil {
		return tables.Snapshot{}, errors.Wrap(err, "table statuses")
	}

	snap := tables.Snapshot{
		Status: make(map[int]tables.Status, len(res.Tables)),
		IDs:    make(map[int]int64, len(res.Tables)),
	}
	for _, t := range res.Tables {
		snap.Status[t.TableNumber] = t.Status
		snap.IDs[t.TableNumber] = t.ID
	}
	return snap, nil
}

// ReserveGuest submits an unauthenticated booking. No credential is attached
// even when one is stored.
func (c *Client) ReserveGuest(ctx context.Context, r GuestReservation) (Reservation, error) {
	return c.reserve(ctx, "/reservations", r, false)
}

// ReserveMember submits a booking on the member's credential.
func (c *Client) ReserveMember(ctx context.Context, r MemberReservation) (Reservation, error) {
	return c.reserve(ctx, "/user/reservations", r, true)
}

func (c *Client) reserve(ctx context.Context, path string, body any, member bool) (Reservation, error) {
	headers := http.Header{"Idempotency-Key": {uuid.NewString()}}
	var res struct {
		Reservation Reservation `json:"reservation"`
		ID          int64       `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, member, headers, &res); err != nil {
		return Reservation{}, err
	}
	if res.Reservation.Key() == 0 {
		res.Reservation.ID = res.ID
	}
	return res.Reservation, nil
}

// MemberReservations lists the member's reservations, optionally for one date
// (YYYY-MM-DD).
func (c *Client) MemberReservations(ctx context.Context, date string) ([]Reservation, error) {
	var q url.Values
	if date != "" {
		q = url.Values{"date": {date}}
	}
	var res struct {
		Reservations []Reservation `json:"reservations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/user/reservations", q, nil, true, nil, &res); err != nil {
		return nil, errors.Wrap(err, "list reservations")
	}
	return res.Reservations, nil
}

// GuestCheck looks up a guest's reservations by the name/phone pair used at
// booking time.
func (c *Client) GuestCheck(ctx context.Context, name, phone string) ([]Reservation, error) {
	body := map[string]string{"name": name, "phone": phone}
	var res struct {
		Reservations []Reservation `json:"reservations"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/reservations/guest-check", nil, body, false, nil, &res); err != nil {
		return nil, errors.Wrap(err, "guest check")
	}
	return res.Reservations, nil
}

// CancelMember flips a member reservation to CANCELLED. Cancelling an
// already-cancelled reservation reports success.
func (c *Client) CancelMember(ctx context.Context, id int64) error {
	path := "/user/reservations/" + strconv.FormatInt(id, 10)
	return c.doJSON(ctx, http.MethodPut, path, nil, struct{}{}, true, nil, nil)
}

// CancelGuest is the public cancellation path.
func (c *Client) CancelGuest(ctx context.Context, id int64) error {
	path := "/reservations/" + strconv.FormatInt(id, 10) + "/cancel"
	return c.doJSON(ctx, http.MethodPut, path, nil, struct{}{}, false, nil, nil)
}

// Me verifies the stored credential against the backend and returns the
// member profile. Roles are normalized to upper case.
func (c *Client) Me(ctx context.Context) (User, error) {
	var res struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, true, nil, &res); err != nil {
		return User{}, errors.Wrap(err, "session check")
	}
	res.User.Role = strings.ToUpper(res.User.Role)
	return res.User, nil
}

// doJSON performs one request and decodes a JSON response into out (out may be
// nil). Non-2xx responses become errors carrying the server's message field
// when it has one.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, auth bool, extra http.Header, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= 400 {
		return apiError(res.StatusCode, b)
	}
	if out != nil && len(b) > 0 {
		if err := json.Unmarshal(b, out); err != nil {
			return errors.Wrap(err, "decode response")
		}
	}
	return nil
}

// APIError is a backend rejection. Message is the server's human-readable
// message when the payload carried one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "request failed (status=" + strconv.Itoa(e.Status) + ")"
}

func apiError(status int, body []byte) error {
	var r struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &r)
	return &APIError{Status: status, Message: r.Message}
}

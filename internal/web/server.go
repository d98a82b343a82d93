// Package web serves the operator UI: a login-gated watch list plus public
// reservation and guest-lookup pages backed by the restaurant API.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/example/tablesched/internal/auth"
	"github.com/example/tablesched/internal/availability"
	"github.com/example/tablesched/internal/booking"
	"github.com/example/tablesched/internal/clock"
	"github.com/example/tablesched/internal/resto"
	"github.com/example/tablesched/internal/session"
	"github.com/example/tablesched/internal/tables"
	"github.com/example/tablesched/internal/timeslot"
	"github.com/example/tablesched/internal/watch"
)

//go:embed templates/*.html static/*
var fs embed.FS

type Server struct {
	Auth    *auth.Store
	Watches *watch.Repo
	Client  *resto.Client
	Session *session.Session
	Clock   clock.Clock
	Logger  *slog.Logger
}

type gridCell struct {
	Number   int
	Status   tables.Status
	Selected bool
}

type tmplData struct {
	Title string
	User  int64
	Flash string
	Error string

	Member   bool
	Username string

	Date    string
	Slot    string
	People  string
	Name    string
	Phone   string
	Slots   []timeslot.Slot
	Grid    [][]gridCell
	PollMS  int64
	Watches []watch.Watch
	Results []resto.Reservation
	Labels  []string
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(fs)))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout)

	r.Handle("/", s.Auth.RequireAuth(http.HandlerFunc(s.handleHome))).Methods(http.MethodGet)
	r.Handle("/watches/new", s.Auth.RequireAuth(http.HandlerFunc(s.handleWatchNew))).Methods(http.MethodGet)
	r.Handle("/watches", s.Auth.RequireAuth(http.HandlerFunc(s.handleWatchCreate))).Methods(http.MethodPost)

	r.HandleFunc("/reserve", s.handleReserveForm).Methods(http.MethodGet)
	r.HandleFunc("/reserve", s.handleReserveSubmit).Methods(http.MethodPost)
	r.HandleFunc("/tables/status.json", s.handleTableStatus).Methods(http.MethodGet)

	r.HandleFunc("/guest-check", s.handleGuestCheck).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/reservations/{id}/cancel", s.handleCancel).Methods(http.MethodPost)

	return handlers.CombinedLoggingHandler(os.Stdout, r)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	ws, err := s.Watches.ListByUser(r.Context(), uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := tmplData{Title: "Watches", User: uid, Watches: ws}
	if r.URL.Query().Get("booked") != "" {
		data.Flash = "Table booked. See you at the restaurant!"
	}
	s.render(w, "templates/home.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "templates/login.html", tmplData{Title: "Login"})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	id, err := s.Auth.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		s.render(w, "templates/login.html", tmplData{Title: "Login", Error: "Invalid username/password"})
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleWatchNew(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	s.render(w, "templates/new_watch.html", tmplData{
		Title:  "New Watch",
		User:   uid,
		Labels: slotLabels(),
	})
}

func (s *Server) handleWatchCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	people, _ := strconv.Atoi(r.FormValue("people"))
	tableCount, _ := strconv.Atoi(r.FormValue("table_count"))
	intervalSec, _ := strconv.Atoi(r.FormValue("interval_seconds"))
	if tableCount < 1 {
		tableCount = 1
	}
	if intervalSec < 1 {
		intervalSec = 10
	}

	now := s.now()
	date := strings.TrimSpace(r.FormValue("date"))
	slotLabel := r.FormValue("slot")

	// attempts run from now until the slot opens
	windowEnd := now.Add(time.Hour)
	if slot, ok := timeslot.ByLabel(slotLabel); ok {
		if start, err := timeslot.StartAt(date, slot); err == nil {
			windowEnd = start
		}
	}

	wch := watch.Watch{
		UserID:      uid,
		Date:        date,
		SlotLabel:   slotLabel,
		People:      people,
		TableCount:  tableCount,
		Preferred:   parsePreferred(r.FormValue("preferred_tables")),
		Member:      s.Session.Member(),
		GuestName:   strings.TrimSpace(r.FormValue("guest_name")),
		GuestPhone:  strings.TrimSpace(r.FormValue("guest_phone")),
		NotifyEmail: strings.TrimSpace(r.FormValue("notify_email")),

		WindowStartAt: now,
		WindowEndAt:   windowEnd,
		IntervalSec:   intervalSec,
	}
	if err := wch.Validate(); err != nil {
		s.render(w, "templates/new_watch.html", tmplData{
			Title: "New Watch", User: uid, Error: err.Error(), Labels: slotLabels(),
		})
		return
	}

	if _, err := s.Watches.Create(r.Context(), wch); err != nil {
		s.Logger.Error("create watch failed", "err", err)
		s.render(w, "templates/new_watch.html", tmplData{
			Title: "New Watch", User: uid, Error: "Failed to create watch", Labels: slotLabels(),
		})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleReserveForm(w http.ResponseWriter, r *http.Request) {
	data := s.reserveData(r.Context(), r.URL.Query().Get("date"), r.URL.Query().Get("slot"), nil)
	s.render(w, "templates/reserve.html", data)
}

func (s *Server) handleReserveSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	date := strings.TrimSpace(r.FormValue("date"))
	slotLabel := r.FormValue("slot")
	people, _ := strconv.Atoi(r.FormValue("people"))

	draft := booking.Draft{
		Date:   date,
		Slot:   slotLabel,
		People: people,
		Name:   strings.TrimSpace(r.FormValue("name")),
		Phone:  strings.TrimSpace(r.FormValue("phone")),
	}
	if user, ok := s.Session.User(); ok {
		if draft.Name == "" {
			draft.Name = user.Username
		}
		if draft.Phone == "" {
			draft.Phone = user.Phone
		}
	}

	chosen := make([]int, 0, len(r.Form["tables"]))
	for _, v := range r.Form["tables"] {
		if n, err := strconv.Atoi(v); err == nil {
			chosen = append(chosen, n)
		}
	}

	snap, sel := s.freshSelection(r.Context(), date, slotLabel, chosen)
	req, err := booking.Build(draft, sel, snap, s.Session.Member(), s.now())
	if err != nil {
		data := s.reserveData(r.Context(), date, slotLabel, chosen)
		data.Error = booking.UserMessage(err)
		data.People, data.Name, data.Phone = r.FormValue("people"), draft.Name, draft.Phone
		s.render(w, "templates/reserve.html", data)
		return
	}

	if _, err := booking.Submit(r.Context(), s.Client, req); err != nil {
		// the draft survives; the user corrects or retries manually
		data := s.reserveData(r.Context(), date, slotLabel, chosen)
		data.Error = booking.UserMessage(err)
		data.People, data.Name, data.Phone = r.FormValue("people"), draft.Name, draft.Phone
		s.render(w, "templates/reserve.html", data)
		return
	}

	// members land on their home page, guests on the lookup page
	if s.Session.Member() {
		http.Redirect(w, r, "/?booked=1", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/guest-check?booked=1", http.StatusFound)
}

// handleTableStatus is the 5s polling target for the reservation page script.
func (s *Server) handleTableStatus(w http.ResponseWriter, r *http.Request) {
	start, err := composeStart(r.URL.Query().Get("date"), r.URL.Query().Get("slot"))
	if err != nil {
		http.Error(w, "invalid date or slot", http.StatusBadRequest)
		return
	}
	snap, err := s.Client.TableStatuses(r.Context(), start, s.Session.Member())
	if err != nil {
		s.Logger.Warn("table status fetch failed", "err", err)
		http.Error(w, "status fetch failed", http.StatusBadGateway)
		return
	}
	out := map[string]tables.Status{}
	for n, st := range snap.Status {
		out[strconv.Itoa(n)] = st
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"tables": out})
}

func (s *Server) handleGuestCheck(w http.ResponseWriter, r *http.Request) {
	data := tmplData{Title: "My Reservations"}
	if r.Method == http.MethodGet {
		if r.URL.Query().Get("booked") != "" {
			data.Flash = "Table booked. See you at the restaurant!"
		}
		s.render(w, "templates/guest_check.html", data)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	data.Name, data.Phone = name, phone
	if name == "" || phone == "" {
		data.Error = "Name and phone are required"
		s.render(w, "templates/guest_check.html", data)
		return
	}
	rs, err := s.Client.GuestCheck(r.Context(), name, phone)
	if err != nil {
		data.Error = errMessage(err)
		s.render(w, "templates/guest_check.html", data)
		return
	}
	data.Results = visibleReservations(rs)
	s.render(w, "templates/guest_check.html", data)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "bad reservation id", http.StatusBadRequest)
		return
	}
	if s.Session.Member() {
		err = s.Client.CancelMember(r.Context(), id)
	} else {
		err = s.Client.CancelGuest(r.Context(), id)
	}
	if err != nil {
		s.Logger.Warn("cancel failed", "reservation", id, "err", err)
	}
	ref := r.Referer()
	if ref == "" {
		ref = "/guest-check"
	}
	http.Redirect(w, r, ref, http.StatusFound)
}

// reserveData assembles the reservation form: valid slots for the date and
// the floor grid against a fresh status snapshot.
func (s *Server) reserveData(ctx context.Context, date, slotLabel string, selected []int) tmplData {
	data := tmplData{
		Title:  "Reserve a Table",
		Date:   date,
		Slot:   slotLabel,
		PollMS: availability.DefaultInterval.Milliseconds(),
		Member: s.Session.Member(),
	}
	if user, ok := s.Session.User(); ok {
		data.Username = user.Username
		data.Name = user.Username
		data.Phone = user.Phone
	}
	if date != "" {
		if slots, err := timeslot.Available(date, s.now()); err == nil {
			data.Slots = slots
		}
	}

	snap, sel := s.freshSelection(ctx, date, slotLabel, selected)
	data.Grid = buildGrid(snap, sel)
	return data
}

// freshSelection pulls a current snapshot (when the date/slot compose) and
// re-applies the chosen tables against it, silently dropping any that are no
// longer selectable.
func (s *Server) freshSelection(ctx context.Context, date, slotLabel string, chosen []int) (tables.Snapshot, *tables.Selection) {
	sel := &tables.Selection{}
	start, err := composeStart(date, slotLabel)
	if err != nil {
		return tables.Snapshot{}, sel
	}
	snap, err := s.Client.TableStatuses(ctx, start, s.Session.Member())
	if err != nil {
		s.Logger.Warn("table status fetch failed", "err", err)
		return tables.Snapshot{}, sel
	}
	for _, n := range chosen {
		sel.Toggle(n, snap.StatusOf(n))
	}
	return snap, sel
}

func buildGrid(snap tables.Snapshot, sel *tables.Selection) [][]gridCell {
	grid := make([][]gridCell, 0, len(tables.Layout))
	for _, row := range tables.Layout {
		cells := make([]gridCell, 0, len(row))
		for _, n := range row {
			cells = append(cells, gridCell{
				Number:   n,
				Status:   snap.StatusOf(n),
				Selected: sel.Contains(n),
			})
		}
		grid = append(grid, cells)
	}
	return grid
}

func composeStart(date, slotLabel string) (time.Time, error) {
	slot, ok := timeslot.ByLabel(slotLabel)
	if !ok {
		return time.Time{}, timeslot.ErrBadDate
	}
	return timeslot.StartAt(date, slot)
}

func slotLabels() []string {
	var out []string
	for _, s := range timeslot.All() {
		out = append(out, s.Label)
	}
	return out
}

// visibleReservations drops cancelled rows, as the listings do upstream.
func visibleReservations(rs []resto.Reservation) []resto.Reservation {
	out := rs[:0]
	for _, r := range rs {
		if r.Status != resto.StatusCancelled {
			out = append(out, r)
		}
	}
	return out
}

func errMessage(err error) string {
	var apiErr *resto.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "request failed"
}

func (s *Server) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		s.Logger.Error("render failed", "template", name, "err", err)
	}
}

func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func parsePreferred(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

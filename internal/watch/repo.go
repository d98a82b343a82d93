package watch

import (
	"context"
	"time"

	"github.com/example/tablesched/internal/db"
)

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const watchColumns = `id,user_id,reservation_date,slot_label,people,table_count,preferred_tables,is_member,guest_name,guest_phone,notify_email,window_start_at,window_end_at,interval_seconds,status,last_attempt_at,booked_at,last_error,created_at,updated_at`

func (r *Repo) Create(ctx context.Context, w Watch) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO watches(user_id,reservation_date,slot_label,people,table_count,preferred_tables,is_member,guest_name,guest_phone,notify_email,window_start_at,window_end_at,interval_seconds,status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,'active')
RETURNING id`,
		w.UserID, w.Date, w.SlotLabel, w.People, w.TableCount, joinInts(w.Preferred),
		w.Member, w.GuestName, w.GuestPhone, w.NotifyEmail,
		w.WindowStartAt, w.WindowEndAt, w.IntervalSec,
	).Scan(&id)
	return id, db.WrapNotFound(err)
}

func scanWatch(row db.Row) (Watch, error) {
	var w Watch
	var preferred string
	if err := row.Scan(
		&w.ID, &w.UserID, &w.Date, &w.SlotLabel, &w.People, &w.TableCount, &preferred,
		&w.Member, &w.GuestName, &w.GuestPhone, &w.NotifyEmail,
		&w.WindowStartAt, &w.WindowEndAt, &w.IntervalSec,
		&w.Status, &w.LastAttemptAt, &w.BookedAt, &w.LastError, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return Watch{}, err
	}
	w.Preferred = parseInts(preferred)
	return w, nil
}

func (r *Repo) collect(rows db.Rows) ([]Watch, error) {
	defer rows.Close()
	var out []Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Watch, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+watchColumns+` FROM watches WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *Repo) GetForUser(ctx context.Context, id, userID int64) (Watch, error) {
	w, err := scanWatch(r.db.QueryRow(ctx, `
SELECT `+watchColumns+` FROM watches WHERE id=$1 AND user_id=$2`, id, userID))
	if err != nil {
		return Watch{}, db.WrapNotFound(err)
	}
	return w, nil
}

// Due returns active watches whose attempt window contains now.
func (r *Repo) Due(ctx context.Context, limit int) ([]Watch, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+watchColumns+` FROM watches
WHERE status='active'
  AND now() >= window_start_at
  AND now() <= window_end_at
ORDER BY window_start_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *Repo) SetStatus(ctx context.Context, id int64, status string, lastErr *string) error {
	return r.db.Exec(ctx, `UPDATE watches SET status=$2, last_error=$3, updated_at=now() WHERE id=$1`, id, status, lastErr)
}

// MarkAttempt records one attempt; a successful attempt also books the watch.
func (r *Repo) MarkAttempt(ctx context.Context, id int64, success bool, note string, lastErr *string) error {
	if err := r.db.Exec(ctx, `INSERT INTO watch_attempts(watch_id, success, note) VALUES ($1,$2,$3)`,
		id, success, note); err != nil {
		return err
	}
	if success {
		return r.db.Exec(ctx, `UPDATE watches SET last_attempt_at=now(), booked_at=now(), status='booked', last_error=NULL, updated_at=now() WHERE id=$1`, id)
	}
	return r.db.Exec(ctx, `UPDATE watches SET last_attempt_at=now(), last_error=$2, updated_at=now() WHERE id=$1`, id, lastErr)
}

// ExpireEnded flips active watches whose window has passed. Run from the
// housekeeping cron.
func (r *Repo) ExpireEnded(ctx context.Context, now time.Time) error {
	return r.db.Exec(ctx, `UPDATE watches SET status='expired', updated_at=now() WHERE status='active' AND window_end_at < $1`, now)
}

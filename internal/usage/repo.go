package usage

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one generation pipeline run, recorded for operators. It is an
// audit trail, not a quota mechanism.
type Event struct {
	UserID     string
	Prompt     string
	Status     string // succeeded, failed
	Fault      string // empty on success
	Attempts   int
	DurationMS int64
}

// Repo appends generation events to Postgres. All methods are safe on a
// nil receiver so the feature is simply off when DB_DSN is unset, and a
// failed write never fails the request it describes.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	if db == nil {
		return nil
	}
	return &Repo{db: db}
}

// Record inserts the event. Best effort: errors are logged and dropped.
func (r *Repo) Record(ctx context.Context, e Event) {
	if r == nil {
		return
	}

	const q = `
insert into generation_events (id, user_firebase_uid, prompt, status, fault, attempts, duration_ms, created_at)
values ($1, $2, $3, $4, $5, $6, $7, now());
`
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if _, err := r.db.Exec(ctx, q,
		uuid.New().String(), e.UserID, e.Prompt, e.Status, e.Fault, e.Attempts, e.DurationMS,
	); err != nil {
		log.Printf("[usage] record event failed: %v", err)
	}
}

// CountByUser returns how many runs a user has logged.
func (r *Repo) CountByUser(ctx context.Context, userID string) (int64, error) {
	if r == nil {
		return 0, nil
	}

	const q = `select count(*) from generation_events where user_firebase_uid = $1;`
	var n int64
	if err := r.db.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

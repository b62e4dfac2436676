package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the Postgres error code for unique constraint breaks.
const uniqueViolation = "23505"

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes a new record. The (session_id, reg_no) unique constraint
// is the dedup authority: a violation comes back as ErrAlreadySubmitted,
// which also closes the race between concurrent submissions.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (id, session_id, reg_no, name, branch, section, status, latitude, longitude, photo_path, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, rec.ID, rec.SessionID, rec.RegNo, rec.Name, rec.Branch, rec.Section, rec.Status,
		rec.Latitude, rec.Longitude, rec.PhotoPath, rec.SubmittedAt)
	if err != nil {
		return insertError(err)
	}
	return nil
}

// insertError translates a unique constraint violation into the domain
// sentinel; anything else passes through untouched.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadySubmitted
	}
	return err
}

// BySession returns all records for a session in submission order.
func (r *Repository) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, reg_no, name, branch, section, status, latitude, longitude, photo_path, submitted_at
		FROM attendance
		WHERE session_id = $1
		ORDER BY submitted_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.RegNo, &rec.Name, &rec.Branch, &rec.Section,
			&rec.Status, &rec.Latitude, &rec.Longitude, &rec.PhotoPath, &rec.SubmittedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

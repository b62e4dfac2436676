package session

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository persists sessions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StartExclusive inserts the session and deactivates any other active
// session for the same teacher in one transaction, so at most one session
// per teacher is active at a time.
func (r *Repository) StartExclusive(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	s.Active = true

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET active = FALSE
		WHERE teacher_id = $1 AND active = TRUE
	`, s.TeacherID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (id, teacher_id, course_id, block, room, section, latitude, longitude, radius_m, active, started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, s.ID, s.TeacherID, s.CourseID, s.Block, s.Room, s.Section, s.Latitude, s.Longitude, s.RadiusM, s.Active, s.StartedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// Deactivate clears the active flag and returns the session. Stopping an
// already stopped session succeeds and leaves the flag false.
func (r *Repository) Deactivate(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions SET active = FALSE
		WHERE id = $1
		RETURNING id, teacher_id, course_id, block, room, section, latitude, longitude, radius_m, active, started_at
	`, id)
	return scanSession(row)
}

// ByID returns a session by id.
func (r *Repository) ByID(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, course_id, block, room, section, latitude, longitude, radius_m, active, started_at
		FROM sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// ActiveByTeacher returns the teacher's most recently started active
// session, or nil when there is none.
func (r *Repository) ActiveByTeacher(ctx context.Context, teacherID string) (*Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, teacher_id, course_id, block, room, section, latitude, longitude, radius_m, active, started_at
		FROM sessions
		WHERE teacher_id = $1 AND active = TRUE
		ORDER BY started_at DESC
		LIMIT 1
	`, teacherID)
	s, err := scanSession(row)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return s, err
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.TeacherID, &s.CourseID, &s.Block, &s.Room, &s.Section,
		&s.Latitude, &s.Longitude, &s.RadiusM, &s.Active, &s.StartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

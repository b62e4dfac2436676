package roster

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists roster data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// TeacherByEmail looks a teacher up for login.
func (r *Repository) TeacherByEmail(ctx context.Context, email string) (*Teacher, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM teachers WHERE email = $1
	`, email)
	var t Teacher
	if err := row.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	return &t, nil
}

// StudentByEmail looks a student up for login.
func (r *Repository) StudentByEmail(ctx context.Context, email string) (*Student, error) {
	return r.student(ctx, `email = $1`, email)
}

// StudentByRegNo resolves a student by registration number.
func (r *Repository) StudentByRegNo(ctx context.Context, regNo string) (*Student, error) {
	return r.student(ctx, `reg_no = $1`, regNo)
}

func (r *Repository) student(ctx context.Context, where string, arg any) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT reg_no, name, email, branch, section, teacher_id, password_hash, created_at
		FROM students WHERE `+where, arg)
	var s Student
	if err := row.Scan(&s.RegNo, &s.Name, &s.Email, &s.Branch, &s.Section, &s.TeacherID, &s.PasswordHash, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ClassroomByRoom resolves a classroom anchor by block and room.
func (r *Repository) ClassroomByRoom(ctx context.Context, block, room string) (*Classroom, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, block, room, latitude, longitude
		FROM classrooms WHERE block = $1 AND room = $2
	`, block, room)
	var c Classroom
	if err := row.Scan(&c.ID, &c.Block, &c.Room, &c.Latitude, &c.Longitude); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassroomNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpsertTeacher creates or updates a teacher. Used by the seed command.
func (r *Repository) UpsertTeacher(ctx context.Context, t Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO teachers (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash
	`, t.ID, t.Name, t.Email, t.PasswordHash)
	return err
}

// UpsertStudent creates or updates a student. Used by the seed command.
func (r *Repository) UpsertStudent(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (reg_no, name, email, branch, section, teacher_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (reg_no) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			branch = EXCLUDED.branch,
			section = EXCLUDED.section,
			teacher_id = EXCLUDED.teacher_id,
			password_hash = EXCLUDED.password_hash
	`, s.RegNo, s.Name, s.Email, s.Branch, s.Section, s.TeacherID, s.PasswordHash)
	return err
}

// UpsertClassroom creates or updates a classroom anchor. Used by the seed command.
func (r *Repository) UpsertClassroom(ctx context.Context, c Classroom) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO classrooms (block, room, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (block, room) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`, c.Block, c.Room, c.Latitude, c.Longitude)
	return err
}

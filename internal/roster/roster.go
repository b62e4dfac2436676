// Package roster holds the reference data the attendance flow resolves
// against: teachers, their students, and the campus classroom anchors.
// It also owns credential checks and token issuance for both roles.
package roster

import (
	"errors"
	"time"
)

// Teacher owns students and class sessions.
type Teacher struct {
	ID           string    `json:"teacher_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student is identified by registration number.
type Student struct {
	RegNo        string    `json:"reg_no"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Branch       string    `json:"branch"`
	Section      string    `json:"section"`
	TeacherID    string    `json:"teacher_id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Classroom maps a block+room to its fixed geographic anchor.
type Classroom struct {
	ID        int64   `json:"id"`
	Block     string  `json:"block"`
	Room      string  `json:"room"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var (
	ErrTeacherNotFound    = errors.New("teacher not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrClassroomNotFound  = errors.New("classroom not found")
	ErrInvalidCredentials = errors.New("invalid password")
)

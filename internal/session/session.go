// Package session manages class sessions: the geofenced teaching
// instances students check in against.
package session

import (
	"errors"
	"time"
)

// Session is a teaching instance with a fixed geofence anchor.
type Session struct {
	ID        string    `json:"session_id"`
	TeacherID string    `json:"teacher_id"`
	CourseID  string    `json:"course_id"`
	Block     string    `json:"block"`
	Room      string    `json:"room"`
	Section   string    `json:"section"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	RadiusM   float64   `json:"radius"`
	Active    bool      `json:"active"`
	StartedAt time.Time `json:"started_at"`
}

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

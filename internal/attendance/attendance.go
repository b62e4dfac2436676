// Package attendance records geofence-checked student check-ins and
// exports them per session.
package attendance

import (
	"errors"
	"time"
)

// Status values for a record.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// Record is one student's check-in against one session. Immutable once
// created; student name/branch/section are snapshotted at submission time.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	RegNo       string    `json:"reg_no"`
	Name        string    `json:"name"`
	Branch      string    `json:"branch"`
	Section     string    `json:"section"`
	Status      string    `json:"status"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	PhotoPath   string    `json:"photo_path"`
	SubmittedAt time.Time `json:"submitted_at"`
}

var (
	// ErrAlreadySubmitted enforces at most one record per (session, student).
	ErrAlreadySubmitted = errors.New("attendance already submitted")
	// ErrUnknownReference covers a missing student or session on submit.
	ErrUnknownReference = errors.New("invalid session or student")
	// ErrSessionClosed rejects submissions against a stopped session.
	ErrSessionClosed = errors.New("session is not accepting submissions")
	// ErrNoData is returned when an export finds no records.
	ErrNoData = errors.New("no attendance data")
)

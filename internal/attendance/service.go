package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"classattend/internal/geo"
	"classattend/internal/metrics"
	"classattend/internal/photostore"
	"classattend/internal/roster"
	"classattend/internal/session"
)

// Recorder is the persistence surface the service needs.
type Recorder interface {
	Insert(ctx context.Context, rec *Record) error
	BySession(ctx context.Context, sessionID string) ([]Record, error)
}

// SessionDirectory resolves sessions for submissions.
type SessionDirectory interface {
	ByID(ctx context.Context, id string) (*session.Session, error)
}

// StudentDirectory resolves students for submissions.
type StudentDirectory interface {
	StudentByRegNo(ctx context.Context, regNo string) (*roster.Student, error)
}

// Service applies the geofence and dedup rules to submissions.
type Service struct {
	repo     Recorder
	sessions SessionDirectory
	students StudentDirectory
	photos   photostore.Store
	logger   *zap.Logger
}

// NewService creates the attendance service.
func NewService(repo Recorder, sessions SessionDirectory, students StudentDirectory, photos photostore.Store, logger *zap.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, students: students, photos: photos, logger: logger}
}

// SubmitInput is one student check-in.
type SubmitInput struct {
	RegNo     string
	SessionID string
	Latitude  float64
	Longitude float64
	Photo     []byte
}

// Result is what the client sees after a submission.
type Result struct {
	Status    string  `json:"status"`
	DistanceM float64 `json:"distance_meters"`
}

// Submit validates the references, applies the geofence decision, stores
// the photo and the record, and returns the status with the distance
// rounded to two decimals.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Result, error) {
	student, err := s.students.StudentByRegNo(ctx, in.RegNo)
	if err != nil {
		if errors.Is(err, roster.ErrStudentNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, in.RegNo)
		}
		return nil, err
	}

	sess, err := s.sessions.ByID(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrUnknownReference, in.SessionID)
		}
		return nil, err
	}
	if !sess.Active {
		return nil, ErrSessionClosed
	}

	distance := geo.Distance(in.Latitude, in.Longitude, sess.Latitude, sess.Longitude)
	status := StatusAbsent
	if distance <= sess.RadiusM {
		status = StatusPresent
	}

	photoPath, err := s.photos.Save(ctx, sess.ID, student.RegNo, in.Photo)
	if err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	rec := &Record{
		SessionID: sess.ID,
		RegNo:     student.RegNo,
		Name:      student.Name,
		Branch:    student.Branch,
		Section:   student.Section,
		Status:    status,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		PhotoPath: photoPath,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		// The record is the source of truth; drop the orphaned photo.
		if rmErr := s.photos.Remove(ctx, photoPath); rmErr != nil {
			s.logger.Warn("orphaned photo cleanup failed",
				zap.String("path", photoPath), zap.Error(rmErr))
		}
		return nil, err
	}

	metrics.Submissions.WithLabelValues(status).Inc()
	s.logger.Info("attendance recorded",
		zap.String("session_id", sess.ID),
		zap.String("reg_no", student.RegNo),
		zap.String("status", status),
		zap.Float64("distance_m", distance),
	)

	return &Result{
		Status:    status,
		DistanceM: math.Round(distance*100) / 100,
	}, nil
}

// BySession returns a session's records.
func (s *Service) BySession(ctx context.Context, sessionID string) ([]Record, error) {
	return s.repo.BySession(ctx, sessionID)
}

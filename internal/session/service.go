package session

import (
	"context"

	"go.uber.org/zap"

	"classattend/internal/metrics"
	"classattend/internal/roster"
)

// Registry is the persistence surface the service needs.
type Registry interface {
	StartExclusive(ctx context.Context, s *Session) error
	Deactivate(ctx context.Context, id string) (*Session, error)
	ByID(ctx context.Context, id string) (*Session, error)
	ActiveByTeacher(ctx context.Context, teacherID string) (*Session, error)
}

// StudentDirectory resolves students for the per-student lookup.
type StudentDirectory interface {
	StudentByRegNo(ctx context.Context, regNo string) (*roster.Student, error)
}

// ClassroomDirectory resolves classroom anchors for session starts that
// omit explicit coordinates.
type ClassroomDirectory interface {
	ClassroomByRoom(ctx context.Context, block, room string) (*roster.Classroom, error)
}

// Service implements the session registry operations.
type Service struct {
	repo       Registry
	students   StudentDirectory
	classrooms ClassroomDirectory
	cache      Cache

	defaultRadiusM float64
	sectionMatch   bool
	logger         *zap.Logger
}

// NewService creates the session service. cache may be nil, in which case
// every lookup goes to the repository.
func NewService(repo Registry, students StudentDirectory, classrooms ClassroomDirectory, cache Cache, defaultRadiusM float64, sectionMatch bool, logger *zap.Logger) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = 50
	}
	return &Service{
		repo:           repo,
		students:       students,
		classrooms:     classrooms,
		cache:          cache,
		defaultRadiusM: defaultRadiusM,
		sectionMatch:   sectionMatch,
		logger:         logger,
	}
}

// StartInput carries the session start parameters. Latitude/Longitude are
// optional; when nil the anchor is resolved from the classrooms table by
// block and room.
type StartInput struct {
	TeacherID string
	CourseID  string
	Block     string
	Room      string
	Section   string
	Latitude  *float64
	Longitude *float64
}

// Start opens a new active session for the teacher, deactivating any
// session the teacher still has open.
func (s *Service) Start(ctx context.Context, in StartInput) (*Session, error) {
	sess := &Session{
		TeacherID: in.TeacherID,
		CourseID:  in.CourseID,
		Block:     in.Block,
		Room:      in.Room,
		Section:   in.Section,
		RadiusM:   s.defaultRadiusM,
	}

	if in.Latitude != nil && in.Longitude != nil {
		sess.Latitude = *in.Latitude
		sess.Longitude = *in.Longitude
	} else {
		room, err := s.classrooms.ClassroomByRoom(ctx, in.Block, in.Room)
		if err != nil {
			return nil, err
		}
		sess.Latitude = room.Latitude
		sess.Longitude = room.Longitude
	}

	if err := s.repo.StartExclusive(ctx, sess); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetActive(ctx, sess)
	}
	metrics.SessionsStarted.Inc()
	s.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.String("teacher_id", sess.TeacherID),
		zap.String("course_id", sess.CourseID),
	)
	return sess, nil
}

// Stop deactivates a session. Returns ErrSessionNotFound for unknown ids;
// stopping an already stopped session is a successful no-op.
func (s *Service) Stop(ctx context.Context, id string) error {
	sess, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, sess.TeacherID)
	}
	s.logger.Info("session stopped", zap.String("session_id", id))
	return nil
}

// ByID returns a session by id. Attendance submission resolves its
// target session through this method.
func (s *Service) ByID(ctx context.Context, id string) (*Session, error) {
	return s.repo.ByID(ctx, id)
}

// CurrentForTeacher returns the teacher's active session, or nil when the
// teacher has none. "No active session" is a normal outcome, not an error.
func (s *Service) CurrentForTeacher(ctx context.Context, teacherID string) (*Session, error) {
	if s.cache != nil {
		if sess, ok := s.cache.GetActive(ctx, teacherID); ok {
			return sess, nil
		}
	}
	sess, err := s.repo.ActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if sess != nil && s.cache != nil {
		s.cache.SetActive(ctx, sess)
	}
	return sess, nil
}

// CurrentForStudent resolves the student's owning teacher and returns that
// teacher's active session, or nil when there is none. When section
// matching is enabled, a session for a different section counts as no
// active session for this student.
func (s *Service) CurrentForStudent(ctx context.Context, regNo string) (*Session, error) {
	student, err := s.students.StudentByRegNo(ctx, regNo)
	if err != nil {
		return nil, err
	}
	sess, err := s.CurrentForTeacher(ctx, student.TeacherID)
	if err != nil {
		return nil, err
	}
	if sess != nil && s.sectionMatch && sess.Section != student.Section {
		return nil, nil
	}
	return sess, nil
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classattend/internal/roster"
)

// ── in-memory registry ──

type mockRegistry struct {
	sessions map[string]*Session
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{sessions: make(map[string]*Session)}
}

func (m *mockRegistry) StartExclusive(_ context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	s.Active = true
	for _, other := range m.sessions {
		if other.TeacherID == s.TeacherID {
			other.Active = false
		}
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *mockRegistry) Deactivate(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.Active = false
	cp := *s
	return &cp, nil
}

func (m *mockRegistry) ByID(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockRegistry) ActiveByTeacher(_ context.Context, teacherID string) (*Session, error) {
	var latest *Session
	for _, s := range m.sessions {
		if s.TeacherID == teacherID && s.Active {
			if latest == nil || s.StartedAt.After(latest.StartedAt) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

type mockStudents struct {
	students map[string]*roster.Student
}

func (m *mockStudents) StudentByRegNo(_ context.Context, regNo string) (*roster.Student, error) {
	if s, ok := m.students[regNo]; ok {
		return s, nil
	}
	return nil, roster.ErrStudentNotFound
}

type mockClassrooms struct {
	rooms map[string]*roster.Classroom
}

func (m *mockClassrooms) ClassroomByRoom(_ context.Context, block, room string) (*roster.Classroom, error) {
	if c, ok := m.rooms[block+"/"+room]; ok {
		return c, nil
	}
	return nil, roster.ErrClassroomNotFound
}

func newTestService(sectionMatch bool) (*Service, *mockRegistry) {
	repo := newMockRegistry()
	students := &mockStudents{students: map[string]*roster.Student{
		"230101001": {RegNo: "230101001", Section: "A1", TeacherID: "T001"},
	}}
	classrooms := &mockClassrooms{rooms: map[string]*roster.Classroom{
		"AB1/001": {Block: "AB1", Room: "001", Latitude: 26.2389, Longitude: 73.0243},
	}}
	return NewService(repo, students, classrooms, nil, 50, sectionMatch, zap.NewNop()), repo
}

func ptr(f float64) *float64 { return &f }

func TestStartWithExplicitCoordinates(t *testing.T) {
	svc, _ := newTestService(false)

	sess, err := svc.Start(context.Background(), StartInput{
		TeacherID: "T001", CourseID: "CS101", Block: "AB1", Room: "001", Section: "A1",
		Latitude: ptr(12.9716), Longitude: ptr(77.5946),
	})
	require.NoError(t, err)
	assert.True(t, sess.Active)
	assert.Equal(t, 12.9716, sess.Latitude)
	assert.Equal(t, 77.5946, sess.Longitude)
	assert.Equal(t, 50.0, sess.RadiusM)
	assert.NotEmpty(t, sess.ID)
}

func TestStartResolvesClassroomAnchor(t *testing.T) {
	svc, _ := newTestService(false)

	sess, err := svc.Start(context.Background(), StartInput{
		TeacherID: "T001", CourseID: "CS101", Block: "AB1", Room: "001", Section: "A1",
	})
	require.NoError(t, err)
	assert.Equal(t, 26.2389, sess.Latitude)
	assert.Equal(t, 73.0243, sess.Longitude)
}

func TestStartUnknownClassroom(t *testing.T) {
	svc, _ := newTestService(false)

	_, err := svc.Start(context.Background(), StartInput{
		TeacherID: "T001", CourseID: "CS101", Block: "ZZ", Room: "404", Section: "A1",
	})
	assert.ErrorIs(t, err, roster.ErrClassroomNotFound)
}

func TestStartDeactivatesPreviousSession(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	first, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)
	second, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS102", Latitude: ptr(2.0), Longitude: ptr(2.0)})
	require.NoError(t, err)

	assert.False(t, repo.sessions[first.ID].Active)
	assert.True(t, repo.sessions[second.ID].Active)

	current, err := svc.CurrentForTeacher(ctx, "T001")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
}

func TestStopUnknownSession(t *testing.T) {
	svc, _ := newTestService(false)

	err := svc.Stop(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStopTwiceIsSafe(t *testing.T) {
	svc, repo := newTestService(false)
	ctx := context.Background()

	sess, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)

	require.NoError(t, svc.Stop(ctx, sess.ID))
	require.NoError(t, svc.Stop(ctx, sess.ID))
	assert.False(t, repo.sessions[sess.ID].Active)
}

func TestCurrentForTeacherNoneAfterStop(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	sess, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)
	require.NoError(t, svc.Stop(ctx, sess.ID))

	current, err := svc.CurrentForTeacher(ctx, "T001")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestCurrentForStudent(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	started, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Section: "A1", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)

	current, err := svc.CurrentForStudent(ctx, "230101001")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, started.ID, current.ID)
}

func TestCurrentForStudentUnknownRegNo(t *testing.T) {
	svc, _ := newTestService(false)

	_, err := svc.CurrentForStudent(context.Background(), "999999999")
	assert.ErrorIs(t, err, roster.ErrStudentNotFound)
}

func TestCurrentForStudentIgnoresSectionByDefault(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	// Session for section B2; student is in A1. Default policy matches
	// the original behavior: the session is still visible.
	_, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Section: "B2", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)

	current, err := svc.CurrentForStudent(ctx, "230101001")
	require.NoError(t, err)
	assert.NotNil(t, current)
}

func TestByID(t *testing.T) {
	svc, _ := newTestService(false)
	ctx := context.Background()

	started, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Block: "AB1", Room: "001"})
	require.NoError(t, err)

	got, err := svc.ByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
	assert.True(t, got.Active)

	_, err = svc.ByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCurrentForStudentSectionMatchEnabled(t *testing.T) {
	svc, _ := newTestService(true)
	ctx := context.Background()

	_, err := svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Section: "B2", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)

	current, err := svc.CurrentForStudent(ctx, "230101001")
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = svc.Start(ctx, StartInput{TeacherID: "T001", CourseID: "CS101", Section: "A1", Latitude: ptr(1.0), Longitude: ptr(1.0)})
	require.NoError(t, err)

	current, err = svc.CurrentForStudent(ctx, "230101001")
	require.NoError(t, err)
	assert.NotNil(t, current)
}

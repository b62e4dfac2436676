package attendance

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"classattend/internal/roster"
	"classattend/internal/session"
)

// ── in-memory collaborators ──

type mockRecorder struct {
	mu      sync.Mutex
	records map[string]*Record // keyed session_id|reg_no
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{records: make(map[string]*Record)}
}

// Insert mirrors the unique constraint decision the database makes:
// first writer for a (session, reg_no) pair wins, the rest get
// ErrAlreadySubmitted.
func (m *mockRecorder) Insert(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + "|" + rec.RegNo
	if _, ok := m.records[key]; ok {
		return ErrAlreadySubmitted
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	cp := *rec
	m.records[key] = &cp
	return nil
}

func (m *mockRecorder) BySession(_ context.Context, sessionID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, rec := range m.records {
		if rec.SessionID == sessionID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type mockSessions struct {
	sessions map[string]*session.Session
}

func (m *mockSessions) ByID(_ context.Context, id string) (*session.Session, error) {
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, session.ErrSessionNotFound
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

type mockPhotos struct {
	mu      sync.Mutex
	saved   []string
	removed []string
	n       int
}

func (m *mockPhotos) Save(_ context.Context, sessionID, regNo string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	path := sessionID + "/" + regNo + "_" + uuid.NewString() + ".jpg"
	m.saved = append(m.saved, path)
	return path, nil
}

func (m *mockPhotos) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, path)
	return nil
}

const (
	anchorLat = 26.2389
	anchorLon = 73.0243
)

func newTestService() (*Service, *mockRecorder, *mockPhotos) {
	repo := newMockRecorder()
	photos := &mockPhotos{}
	sessions := &mockSessions{sessions: map[string]*session.Session{
		"sess-open": {
			ID: "sess-open", TeacherID: "T001", CourseID: "CS101",
			Latitude: anchorLat, Longitude: anchorLon, RadiusM: 50, Active: true,
		},
		"sess-closed": {
			ID: "sess-closed", TeacherID: "T001", CourseID: "CS101",
			Latitude: anchorLat, Longitude: anchorLon, RadiusM: 50, Active: false,
		},
	}}
	students := &mockStudents{students: map[string]*roster.Student{
		"230101001": {RegNo: "230101001", Name: "Student1", Branch: "CSE", Section: "A1", TeacherID: "T001"},
		"230101002": {RegNo: "230101002", Name: "Student2", Branch: "CSE", Section: "A1", TeacherID: "T001"},
	}}
	return NewService(repo, sessions, students, photos, zap.NewNop()), repo, photos
}

func TestSubmitPresentAtAnchor(t *testing.T) {
	svc, repo, photos := newTestService()

	res, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPresent, res.Status)
	assert.Equal(t, 0.0, res.DistanceM)

	rec := repo.records["sess-open|230101001"]
	require.NotNil(t, rec)
	assert.Equal(t, "Student1", rec.Name)
	assert.Equal(t, "CSE", rec.Branch)
	assert.Equal(t, "A1", rec.Section)
	assert.Equal(t, StatusPresent, rec.Status)
	assert.Len(t, photos.saved, 1)
	assert.Equal(t, photos.saved[0], rec.PhotoPath)
}

func TestSubmitAbsentOutsideRadius(t *testing.T) {
	svc, _, _ := newTestService()

	// ~200m north of the anchor, well outside the 50m radius.
	res, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat + 0.0018, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusAbsent, res.Status)
	assert.InDelta(t, 200, res.DistanceM, 2)
}

func TestSubmitTwiceRejected(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	in := SubmitInput{RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg")}

	_, err := svc.Submit(ctx, in)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Len(t, repo.records, 1)
}

func TestSubmitConcurrentDuplicatesYieldOneRecord(t *testing.T) {
	svc, repo, _ := newTestService()

	in := SubmitInput{RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg")}

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), in)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadySubmitted):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
	assert.Len(t, repo.records, 1)
}

func TestSubmitDuplicateCleansUpPhoto(t *testing.T) {
	svc, _, photos := newTestService()
	ctx := context.Background()

	in := SubmitInput{RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg")}

	_, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, in)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	// The second photo was written before the insert failed; it must be removed.
	require.Len(t, photos.saved, 2)
	require.Len(t, photos.removed, 1)
	assert.Equal(t, photos.saved[1], photos.removed[0])
}

func TestSubmitUnknownStudent(t *testing.T) {
	svc, repo, photos := newTestService()

	_, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "999999999", SessionID: "sess-open",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Empty(t, repo.records)
	assert.Empty(t, photos.saved)
}

func TestSubmitUnknownSession(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "230101001", SessionID: "missing",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Empty(t, repo.records)
}

func TestSubmitClosedSession(t *testing.T) {
	svc, repo, photos := newTestService()

	_, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "230101001", SessionID: "sess-closed",
		Latitude: anchorLat, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.Empty(t, repo.records)
	assert.Empty(t, photos.saved)
}

func TestSubmitDistanceRounding(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.Submit(context.Background(), SubmitInput{
		RegNo: "230101001", SessionID: "sess-open",
		Latitude: anchorLat + 0.0002, Longitude: anchorLon, Photo: []byte("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, res.DistanceM, math.Round(res.DistanceM*100)/100)
	assert.Greater(t, res.DistanceM, 0.0)
}

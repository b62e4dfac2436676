package roster

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"classattend/internal/auth"
)

// Directory is the read surface the login service needs.
type Directory interface {
	TeacherByEmail(ctx context.Context, email string) (*Teacher, error)
	StudentByEmail(ctx context.Context, email string) (*Student, error)
}

// TokenConfig carries the signing parameters for issued tokens.
type TokenConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
}

// Service checks credentials and issues role-tagged tokens.
type Service struct {
	dir    Directory
	tokens TokenConfig
	logger *zap.Logger
}

// NewService creates the login service.
func NewService(dir Directory, tokens TokenConfig, logger *zap.Logger) *Service {
	return &Service{dir: dir, tokens: tokens, logger: logger}
}

// TeacherLogin is the login response for teachers.
type TeacherLogin struct {
	Role        string `json:"role"`
	TeacherID   string `json:"teacher_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// StudentLogin is the login response for students.
type StudentLogin struct {
	Role        string `json:"role"`
	RegNo       string `json:"reg_no"`
	Name        string `json:"name"`
	Section     string `json:"section"`
	Branch      string `json:"branch"`
	TeacherID   string `json:"teacher_id"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// LoginTeacher verifies a teacher's credentials and issues a token.
func (s *Service) LoginTeacher(ctx context.Context, email, password string) (*TeacherLogin, error) {
	t, err := s.dir.TeacherByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	tok, err := auth.Issue(t.ID, auth.RoleTeacher, s.tokens.Issuer, s.tokens.SigningKey, s.tokens.AccessTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("teacher login", zap.String("teacher_id", t.ID))
	return &TeacherLogin{
		Role:        auth.RoleTeacher,
		TeacherID:   t.ID,
		Name:        t.Name,
		Email:       t.Email,
		AccessToken: tok.Value,
		ExpiresAt:   tok.ExpiresAt.Unix(),
	}, nil
}

// LoginStudent verifies a student's credentials and issues a token.
func (s *Service) LoginStudent(ctx context.Context, email, password string) (*StudentLogin, error) {
	st, err := s.dir.StudentByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	tok, err := auth.Issue(st.RegNo, auth.RoleStudent, s.tokens.Issuer, s.tokens.SigningKey, s.tokens.AccessTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student login", zap.String("reg_no", st.RegNo))
	return &StudentLogin{
		Role:        auth.RoleStudent,
		RegNo:       st.RegNo,
		Name:        st.Name,
		Section:     st.Section,
		Branch:      st.Branch,
		TeacherID:   st.TeacherID,
		AccessToken: tok.Value,
		ExpiresAt:   tok.ExpiresAt.Unix(),
	}, nil
}

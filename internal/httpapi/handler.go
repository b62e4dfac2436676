// Package httpapi maps the HTTP surface onto the domain services and
// translates their errors into response statuses.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/roster"
	"classattend/internal/session"
)

// maxPhotoBytes bounds the size of an uploaded check-in photo.
const maxPhotoBytes = 5 << 20

// Handler carries the domain services the routes dispatch to.
type Handler struct {
	roster     *roster.Service
	sessions   *session.Service
	attendance *attendance.Service
	logger     *zap.Logger
}

// New creates a handler.
func New(rosterSvc *roster.Service, sessionSvc *session.Service, attendanceSvc *attendance.Service, logger *zap.Logger) *Handler {
	return &Handler{roster: rosterSvc, sessions: sessionSvc, attendance: attendanceSvc, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginStudent handles POST /login/student.
func (h *Handler) LoginStudent(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.roster.LoginStudent(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LoginTeacher handles POST /login/teacher.
func (h *Handler) LoginTeacher(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.roster.LoginTeacher(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type startSessionRequest struct {
	TeacherID string   `json:"teacher_id" binding:"required"`
	CourseID  string   `json:"course_id" binding:"required"`
	Block     string   `json:"block"`
	Room      string   `json:"room"`
	Section   string   `json:"section"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// StartSession handles POST /session/start.
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude must be provided together"})
		return
	}
	if sub := tokenSubject(c); sub != "" && sub != req.TeacherID {
		c.JSON(http.StatusForbidden, gin.H{"error": "teacher mismatch"})
		return
	}
	sess, err := h.sessions.Start(c.Request.Context(), session.StartInput{
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		Block:     req.Block,
		Room:      req.Room,
		Section:   req.Section,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "session started", "session_id": sess.ID})
}

// StopSession handles POST /session/stop/:id.
func (h *Handler) StopSession(c *gin.Context) {
	if err := h.sessions.Stop(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session stopped"})
}

// CurrentSessionForTeacher handles GET /session/current/:teacher_id.
func (h *Handler) CurrentSessionForTeacher(c *gin.Context) {
	sess, err := h.sessions.CurrentForTeacher(c.Request.Context(), c.Param("teacher_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{"message": "no active session"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CurrentSessionForStudent handles GET /student/session/:reg_no.
func (h *Handler) CurrentSessionForStudent(c *gin.Context) {
	sess, err := h.sessions.CurrentForStudent(c.Request.Context(), c.Param("reg_no"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{"message": "no active session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"course_id":  sess.CourseID,
		"block":      sess.Block,
		"room":       sess.Room,
		"section":    sess.Section,
		"latitude":   sess.Latitude,
		"longitude":  sess.Longitude,
		"radius":     sess.RadiusM,
		"teacher_id": sess.TeacherID,
	})
}

type submitForm struct {
	RegNo     string   `form:"reg_no" binding:"required"`
	SessionID string   `form:"session_id" binding:"required"`
	Latitude  *float64 `form:"latitude"`
	Longitude *float64 `form:"longitude"`
}

// SubmitAttendance handles POST /attendance/submit (multipart).
func (h *Handler) SubmitAttendance(c *gin.Context) {
	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// A client that drops the coordinates would otherwise check in from
	// (0,0) and lock in an Absent record it can never retry.
	if form.Latitude == nil || form.Longitude == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude and longitude are required"})
		return
	}

	if sub := tokenSubject(c); sub != "" && sub != form.RegNo {
		c.JSON(http.StatusForbidden, gin.H{"error": "student mismatch"})
		return
	}

	file, _, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read photo"})
		return
	}
	if len(photo) > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})
		return
	}

	res, err := h.attendance.Submit(c.Request.Context(), attendance.SubmitInput{
		RegNo:     form.RegNo,
		SessionID: form.SessionID,
		Latitude:  *form.Latitude,
		Longitude: *form.Longitude,
		Photo:     photo,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "attendance recorded",
		"status":          res.Status,
		"distance_meters": res.DistanceM,
	})
}

// ExportAttendance handles GET /attendance/export/:session_id.
func (h *Handler) ExportAttendance(c *gin.Context) {
	buf, filename, err := h.attendance.Export(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// tokenSubject returns the bearer token's subject, or "" when the route
// is unauthenticated (tests exercise handlers without the middleware).
func tokenSubject(c *gin.Context) string {
	claimsAny, ok := c.Get(auth.ClaimsKey)
	if !ok {
		return ""
	}
	claims, _ := claimsAny.(auth.Claims)
	return claims.Subject
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roster.ErrTeacherNotFound),
		errors.Is(err, roster.ErrStudentNotFound),
		errors.Is(err, roster.ErrClassroomNotFound),
		errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, attendance.ErrUnknownReference),
		errors.Is(err, attendance.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, attendance.ErrAlreadySubmitted),
		errors.Is(err, attendance.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

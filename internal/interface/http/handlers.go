package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/application/command"
	"github.com/academica-hub/lifecycle-engine/internal/application/query"
	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		components := s.deps.HealthChecker.CheckHealth(r.Context())
		healthy := true
		for _, status := range components {
			if status != "healthy" {
				healthy = false
				break
			}
		}

		body := map[string]interface{}{
			"status":     "healthy",
			"uptime":     s.Uptime().String(),
			"components": components,
		}
		if !healthy {
			body["status"] = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		writeJSON(w, http.StatusOK, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		components := s.deps.HealthChecker.CheckHealth(r.Context())
		for name, status := range components {
			if status != "healthy" {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "not_ready",
					"reason": name + " is " + status,
				})
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type enrollRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

type enrollmentDTO struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.EnrollHandler.Handle(r.Context(), command.EnrollCommand{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"enrollment": toEnrollmentDTO(result.Enrollment),
		"progress":   toProgressDTO(result.Progress),
	})
}

type withdrawRequest struct {
	Reason string `json:"reason"`
}

// reason returns the caller-supplied withdrawal reason. The command layer
// rejects empty reasons, so body-less withdrawals are recorded as
// "unspecified".
func (r withdrawRequest) reason() string {
	if r.Reason == "" {
		return "unspecified"
	}
	return r.Reason
}

type dropoutDTO struct {
	ID                  string    `json:"id"`
	StudentID           string    `json:"student_id"`
	CourseID            string    `json:"course_id"`
	EnrollmentDate      time.Time `json:"enrollment_date"`
	DropoutDate         time.Time `json:"dropout_date"`
	TotalCourseDuration int       `json:"total_course_duration_days"`
	CompletedDuration   int       `json:"completed_duration_days"`
	RefundPercentage    int       `json:"refund_percentage"`
	RefundAmount        string    `json:"refund_amount"`
	Reason              string    `json:"reason,omitempty"`
}

// handleWithdraw handles POST /api/v1/enrollments/{student_id}/{course_id}/withdraw
func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	// Body is optional; a missing reason defaults to "unspecified".
	if r.ContentLength > 0 {
		if err := decodeJSONBody(w, r, &req); err != nil {
			return
		}
	}

	result, err := s.deps.WithdrawHandler.Handle(r.Context(), command.WithdrawCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		Reason:        req.reason(),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toDropoutDTO(result.Record))
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type progressUpdateDTO struct {
	Progress      progressDTO     `json:"progress"`
	Changed       bool            `json:"changed"`
	OldPercentage float64         `json:"old_percentage"`
	NewPercentage float64         `json:"new_percentage"`
	Certificate   *certificateDTO `json:"certificate,omitempty"`
}

// handleLessonCompleted handles POST /api/v1/progress/{student_id}/{course_id}/lessons/{lesson_id}
func (s *Server) handleLessonCompleted(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.RecordProgressHandler.RecordLessonCompletion(r.Context(), command.RecordProgressCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		ItemID:        r.PathValue("lesson_id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProgressUpdateDTO(result))
}

// handleAssignmentSubmitted handles POST /api/v1/progress/{student_id}/{course_id}/assignments/{assignment_id}
func (s *Server) handleAssignmentSubmitted(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.RecordProgressHandler.RecordAssignmentSubmission(r.Context(), command.RecordProgressCommand{
		StudentID:     r.PathValue("student_id"),
		CourseID:      r.PathValue("course_id"),
		ItemID:        r.PathValue("assignment_id"),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProgressUpdateDTO(result))
}

// handleGetProgress handles GET /api/v1/progress/{student_id}/{course_id}
//
// Query parameters:
//   - fresh: bypass the read cache and hit the repository directly
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	dto, err := s.deps.GetProgressHandler.Handle(r.Context(), query.GetProgressQuery{
		StudentID:   r.PathValue("student_id"),
		CourseID:    r.PathValue("course_id"),
		BypassCache: getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type issueCertificateRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Type      string `json:"type"`
}

type certificateDTO struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
	URL       string    `json:"url"`
}

// handleIssueCertificate handles POST /api/v1/certificates
//
// Only excellence and proficiency certificates can be issued manually.
// Completion certificates are issued by the progress pipeline.
func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueCertificateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		return
	}

	result, err := s.deps.IssueCertificateHandler.Handle(r.Context(), command.IssueCertificateCommand{
		StudentID:     req.StudentID,
		CourseID:      req.CourseID,
		Type:          certificate.Type(req.Type),
		CorrelationID: getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !result.Issued {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"certificate": toCertificateDTO(result.Certificate),
		"issued":      result.Issued,
	})
}

// handleListCertificates handles GET /api/v1/students/{student_id}/certificates
func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.deps.ListCertificatesHandler.Handle(r.Context(), query.ListCertificatesQuery{
		StudentID: r.PathValue("student_id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"certificates": certs,
		"count":        len(certs),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SEMESTER GATE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCanAdvance handles GET /api/v1/advancement/{course_id}
//
// Query parameters:
//   - semester: the student's current semester (required)
//   - credits: the student's accumulated credits
//   - gpa: the student's grade point average
func (s *Server) handleCanAdvance(w http.ResponseWriter, r *http.Request) {
	semester := getQueryParamInt(r, "semester", 0)
	if semester <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Query parameter 'semester' must be a positive integer")
		return
	}

	result, err := s.deps.CanAdvanceHandler.Handle(r.Context(), query.CanAdvanceQuery{
		CourseID:        r.PathValue("course_id"),
		CurrentSemester: semester,
		StudentCredits:  getQueryParamInt(r, "credits", 0),
		StudentGPA:      getQueryParamFloat(r, "gpa", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"allowed":              result.Allowed,
		"next_semester":        result.NextSemester,
		"min_credits_required": result.MinCreditsRequired,
		"min_gpa_required":     result.MinGPARequired,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrNoPolicy):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrValueOutOfRange):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrConcurrentModification), errors.Is(err, shared.ErrLockNotAcquired):
		writeJSONError(w, http.StatusConflict, "concurrent_modification", "The enrollment is being modified by another request, please retry")
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, "upstream_unavailable", err.Error())
	default:
		s.logger.Error("unhandled domain error",
			"error", err,
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}

// decodeJSONBody decodes and validates a JSON request body, writing a 400
// response on failure.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON: "+err.Error())
		return err
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DTO MAPPING
// ══════════════════════════════════════════════════════════════════════════════

type progressDTO struct {
	StudentID            string    `json:"student_id"`
	CourseID             string    `json:"course_id"`
	TotalLessons         int       `json:"total_lessons"`
	CompletedLessons     int       `json:"completed_lessons"`
	TotalAssignments     int       `json:"total_assignments"`
	SubmittedAssignments int       `json:"submitted_assignments"`
	Percentage           float64   `json:"percentage"`
	LastUpdated          time.Time `json:"last_updated"`
}

func toEnrollmentDTO(e *enrollment.Enrollment) enrollmentDTO {
	return enrollmentDTO{
		ID:         e.ID,
		StudentID:  e.StudentID.String(),
		CourseID:   e.CourseID.String(),
		EnrolledAt: e.EnrolledAt,
	}
}

func toProgressDTO(rec *progress.Record) progressDTO {
	return progressDTO{
		StudentID:            rec.StudentID.String(),
		CourseID:             rec.CourseID.String(),
		TotalLessons:         rec.TotalLessons,
		CompletedLessons:     rec.CompletedLessons,
		TotalAssignments:     rec.TotalAssignments,
		SubmittedAssignments: rec.SubmittedAssignments,
		Percentage:           rec.Percentage.Float64(),
		LastUpdated:          rec.LastUpdated,
	}
}

func toProgressUpdateDTO(result *command.RecordProgressResult) progressUpdateDTO {
	dto := progressUpdateDTO{
		Progress:      toProgressDTO(result.Record),
		Changed:       result.Changed,
		OldPercentage: result.OldPercentage,
		NewPercentage: result.NewPercentage,
	}
	if result.Certificate != nil {
		cert := toCertificateDTO(result.Certificate)
		dto.Certificate = &cert
	}
	return dto
}

func toCertificateDTO(c *certificate.Certificate) certificateDTO {
	return certificateDTO{
		ID:        c.ID,
		StudentID: c.StudentID.String(),
		CourseID:  c.CourseID.String(),
		Type:      c.Type.String(),
		IssuedAt:  c.IssuedAt,
		URL:       c.URL,
	}
}

func toDropoutDTO(rec *dropout.Record) dropoutDTO {
	return dropoutDTO{
		ID:                  rec.ID,
		StudentID:           rec.StudentID.String(),
		CourseID:            rec.CourseID.String(),
		EnrollmentDate:      rec.EnrollmentDate,
		DropoutDate:         rec.DropoutDate,
		TotalCourseDuration: rec.TotalCourseDuration,
		CompletedDuration:   rec.CompletedDuration,
		RefundPercentage:    rec.RefundPercentage,
		RefundAmount:        rec.RefundAmount.String(),
		Reason:              rec.Reason,
	}
}

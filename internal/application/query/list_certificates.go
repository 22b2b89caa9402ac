package query

import (
	"context"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CERTIFICATES QUERY
// Read-only listing of a student's certificates for display and verification
// surfaces. Issuance happens elsewhere; this path never writes.
// ══════════════════════════════════════════════════════════════════════════════

// ListCertificatesQuery contains the parameters for a certificate listing.
type ListCertificatesQuery struct {
	// StudentID identifies the student.
	StudentID string
}

// Validate validates the query.
func (q ListCertificatesQuery) Validate() error {
	_, err := shared.NewStudentID(q.StudentID)
	return err
}

// CertificateDTO is the read-side certificate shape.
type CertificateDTO struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
	URL       string    `json:"url"`
}

// ListCertificatesHandler serves certificate listings.
type ListCertificatesHandler struct {
	certs  certificate.Repository
	logger *slog.Logger
}

// NewListCertificatesHandler creates a new ListCertificatesHandler.
func NewListCertificatesHandler(certs certificate.Repository, logger *slog.Logger) *ListCertificatesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListCertificatesHandler{certs: certs, logger: logger}
}

// Handle returns all certificates issued to the student, newest first.
func (h *ListCertificatesHandler) Handle(ctx context.Context, q ListCertificatesQuery) ([]CertificateDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	studentID := shared.StudentID(q.StudentID)
	certs, err := h.certs.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	result := make([]CertificateDTO, 0, len(certs))
	for _, c := range certs {
		result = append(result, CertificateDTO{
			ID:        c.ID,
			StudentID: c.StudentID.String(),
			CourseID:  c.CourseID.String(),
			Type:      c.Type.String(),
			IssuedAt:  c.IssuedAt,
			URL:       c.URL,
		})
	}

	return result, nil
}

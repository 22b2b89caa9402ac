package query

import (
	"context"
	"log/slog"

	"github.com/academica-hub/lifecycle-engine/internal/domain/semester"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CAN ADVANCE QUERY (Semester Gate)
// Pure policy decision consumed by the external enrollment-advancement
// workflow. The caller supplies the student's credit and GPA totals; the gate
// only looks up the prerequisite row and compares. A missing row surfaces as
// NoPolicyDefined, never as a silent default.
// ══════════════════════════════════════════════════════════════════════════════

// CanAdvanceQuery contains the advancement decision inputs.
type CanAdvanceQuery struct {
	// CourseID identifies the course.
	CourseID string

	// CurrentSemester is the semester the student is in.
	CurrentSemester int

	// StudentCredits is the student's accumulated credits.
	StudentCredits int

	// StudentGPA is the student's grade point average.
	StudentGPA float64
}

// Validate validates the query.
func (q CanAdvanceQuery) Validate() error {
	if _, err := shared.NewCourseID(q.CourseID); err != nil {
		return err
	}
	if q.CurrentSemester <= 0 {
		return shared.NewDomainError("semester", "CanAdvance", shared.ErrValueOutOfRange, "current semester must be positive")
	}
	if !shared.Credits(q.StudentCredits).IsValid() || !shared.GPA(q.StudentGPA).IsValid() {
		return shared.NewDomainError("semester", "CanAdvance", shared.ErrNegativeValue, "credits and GPA cannot be negative")
	}
	return nil
}

// CanAdvanceResult contains the decision and the policy it was made against.
type CanAdvanceResult struct {
	// Allowed is the advancement decision.
	Allowed bool

	// NextSemester is where advancement leads, from the policy row.
	NextSemester int

	// MinCreditsRequired is the policy's credit floor.
	MinCreditsRequired int

	// MinGPARequired is the policy's GPA floor.
	MinGPARequired float64
}

// CanAdvanceHandler serves semester-gate decisions.
type CanAdvanceHandler struct {
	policyRepo semester.Repository
	logger     *slog.Logger
}

// NewCanAdvanceHandler creates a new CanAdvanceHandler.
func NewCanAdvanceHandler(policyRepo semester.Repository, logger *slog.Logger) *CanAdvanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CanAdvanceHandler{policyRepo: policyRepo, logger: logger}
}

// Handle decides whether the student may advance.
// Returns ErrNoPolicyDefined if no prerequisite row matches.
func (h *CanAdvanceHandler) Handle(ctx context.Context, q CanAdvanceQuery) (*CanAdvanceResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	courseID, _ := shared.NewCourseID(q.CourseID)

	policy, err := h.policyRepo.Find(ctx, courseID, q.CurrentSemester)
	if err != nil {
		return nil, err
	}

	allowed := policy.Satisfied(shared.Credits(q.StudentCredits), shared.GPA(q.StudentGPA))

	h.logger.Debug("semester gate decision",
		"course_id", q.CourseID,
		"current_semester", q.CurrentSemester,
		"allowed", allowed,
	)

	return &CanAdvanceResult{
		Allowed:            allowed,
		NextSemester:       policy.NextSemester,
		MinCreditsRequired: int(policy.MinCreditsRequired),
		MinGPARequired:     float64(policy.MinGPARequired),
	}, nil
}

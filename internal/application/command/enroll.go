package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COMMAND
// Creates the active enrollment for a (student, course) pair and seeds its
// progress record with totals from the catalog. Enrollment existence is the
// gate every other engine operation checks.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCommand contains the data to enroll a student in a course.
type EnrollCommand struct {
	// StudentID is the opaque student identifier from the identity collaborator.
	StudentID string

	// CourseID is the course identifier from the catalog.
	CourseID string

	// EnrolledAt is when the enrollment became active (defaults to now).
	EnrolledAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollCommand) Validate() error {
	_, err := shared.NewPair(c.StudentID, c.CourseID)
	return err
}

// EnrollResult contains the result of an enrollment.
type EnrollResult struct {
	// Enrollment is the created ledger row.
	Enrollment *enrollment.Enrollment

	// Progress is the seeded progress record.
	Progress *progress.Record

	// Events contains domain events published after commit.
	Events []shared.Event
}

// EnrollHandler processes EnrollCommand.
type EnrollHandler struct {
	uowFactory UnitOfWorkFactory
	catalogSvc catalog.Service
	eventBus   shared.EventPublisher
	logger     *slog.Logger
}

// NewEnrollHandler creates a new EnrollHandler.
func NewEnrollHandler(
	uowFactory UnitOfWorkFactory,
	catalogSvc catalog.Service,
	eventBus shared.EventPublisher,
	logger *slog.Logger,
) *EnrollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollHandler{
		uowFactory: uowFactory,
		catalogSvc: catalogSvc,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle enrolls the student. Returns ErrAlreadyEnrolled if an active row
// already exists for the pair.
func (h *EnrollHandler) Handle(ctx context.Context, cmd EnrollCommand) (*EnrollResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	pair, _ := shared.NewPair(cmd.StudentID, cmd.CourseID)

	// Catalog totals are read outside the transaction: they only seed the
	// initial record and the sync job reconciles them later.
	info, err := h.catalogSvc.GetCourse(ctx, pair.CourseID)
	if err != nil {
		return nil, err
	}

	enr := enrollment.New(pair, cmd.EnrolledAt)
	rec, err := progress.NewRecord(pair, info.TotalLessons, info.TotalAssignments)
	if err != nil {
		return nil, err
	}

	err = runInUnit(ctx, h.uowFactory, func(uow UnitOfWork) error {
		if err := uow.Enrollments().Create(ctx, enr); err != nil {
			return err
		}
		return uow.Progress().Save(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	event := shared.NewEnrollmentCreatedEvent(pair.StudentID.String(), pair.CourseID.String(), enr.EnrolledAt)
	h.publish(event)

	h.logger.Info("student enrolled",
		"student_id", pair.StudentID.String(),
		"course_id", pair.CourseID.String(),
	)

	return &EnrollResult{
		Enrollment: enr,
		Progress:   rec,
		Events:     []shared.Event{event},
	}, nil
}

func (h *EnrollHandler) publish(event shared.Event) {
	if h.eventBus == nil {
		return
	}
	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Warn("failed to publish event",
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

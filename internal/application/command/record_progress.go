package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/academica-hub/lifecycle-engine/internal/application/eventhandler"
	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PROGRESS COMMANDS
// The Progress Accumulator's write path. Each call checks the enrollment gate,
// records completion membership idempotently, recomputes the derived
// percentage, and hands the ProgressChanged transition to the certificate
// issuer inside the same transaction. The enrollment row lock serializes
// concurrent calls for the same pair.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand contains the data for one completion/submission event.
type RecordProgressCommand struct {
	// StudentID is the student recording progress.
	StudentID string

	// CourseID is the course the item belongs to.
	CourseID string

	// ItemID is the lesson or assignment identifier.
	ItemID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordProgressCommand) Validate() error {
	if _, err := shared.NewPair(c.StudentID, c.CourseID); err != nil {
		return err
	}
	if c.ItemID == "" {
		return shared.NewDomainError("progress", "Record", shared.ErrEmptyValue, "item ID is required")
	}
	return nil
}

// RecordProgressResult contains the outcome of recording a progress event.
type RecordProgressResult struct {
	// Record is the persisted progress record after the update.
	Record *progress.Record

	// Changed indicates whether the event was newly recorded. False means
	// the same item was already in the completion set and nothing moved.
	Changed bool

	// OldPercentage and NewPercentage bracket the derived-value transition.
	OldPercentage float64
	NewPercentage float64

	// Certificate is the Completion certificate issued by this update, if
	// the transition crossed the completion threshold.
	Certificate *certificate.Certificate

	// Events contains domain events published after commit.
	Events []shared.Event
}

// RecordProgressHandler processes lesson-completion and assignment-submission
// events.
type RecordProgressHandler struct {
	uowFactory UnitOfWorkFactory
	issuer     *eventhandler.CertificateIssuer
	eventBus   shared.EventPublisher
	logger     *slog.Logger
}

// NewRecordProgressHandler creates a new RecordProgressHandler.
func NewRecordProgressHandler(
	uowFactory UnitOfWorkFactory,
	issuer *eventhandler.CertificateIssuer,
	eventBus shared.EventPublisher,
	logger *slog.Logger,
) *RecordProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordProgressHandler{
		uowFactory: uowFactory,
		issuer:     issuer,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// RecordLessonCompletion records that the student completed a lesson.
// Returns ErrNotEnrolled if no active enrollment exists for the pair.
func (h *RecordProgressHandler) RecordLessonCompletion(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	return h.record(ctx, cmd, progress.ItemLesson)
}

// RecordAssignmentSubmission records that the student submitted an assignment.
// Returns ErrNotEnrolled if no active enrollment exists for the pair.
func (h *RecordProgressHandler) RecordAssignmentSubmission(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	return h.record(ctx, cmd, progress.ItemAssignment)
}

func (h *RecordProgressHandler) record(ctx context.Context, cmd RecordProgressCommand, kind progress.ItemKind) (*RecordProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	pair, _ := shared.NewPair(cmd.StudentID, cmd.CourseID)

	result := &RecordProgressResult{}

	err := runInUnit(ctx, h.uowFactory, func(uow UnitOfWork) error {
		// The enrollment row lock is the pair-level serialization point.
		if _, err := uow.Enrollments().GetForUpdate(ctx, pair); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotEnrolled
			}
			return err
		}

		inserted, err := uow.Progress().MarkCompleted(ctx, pair, kind, cmd.ItemID)
		if err != nil {
			return err
		}

		rec, err := uow.Progress().Get(ctx, pair)
		if err != nil {
			return err
		}
		result.Record = rec

		if !inserted {
			// Same item recorded before: the completion set, counts, and
			// percentage are all unchanged.
			result.OldPercentage = rec.Percentage.Float64()
			result.NewPercentage = rec.Percentage.Float64()
			return nil
		}
		result.Changed = true

		var itemEvent shared.ItemRecordedEvent
		if kind == progress.ItemLesson {
			itemEvent = shared.NewLessonCompletedEvent(pair.StudentID.String(), pair.CourseID.String(), cmd.ItemID)
		} else {
			itemEvent = shared.NewAssignmentSubmittedEvent(pair.StudentID.String(), pair.CourseID.String(), cmd.ItemID)
		}
		itemEvent.CorrelationID = cmd.CorrelationID
		result.Events = append(result.Events, itemEvent)

		counts, err := uow.Progress().CompletionCounts(ctx, pair)
		if err != nil {
			return err
		}

		before, after, err := rec.ApplyCounts(counts.CompletedLessons, counts.SubmittedAssignments)
		if err != nil {
			return err
		}
		result.OldPercentage = before.Float64()
		result.NewPercentage = after.Float64()

		if err := uow.Progress().Save(ctx, rec); err != nil {
			return err
		}

		event := shared.NewProgressChangedEvent(
			pair.StudentID.String(), pair.CourseID.String(),
			before.Float64(), after.Float64(),
		)
		event.CorrelationID = cmd.CorrelationID
		result.Events = append(result.Events, event)

		// The certificate issuer consumes the transition in the same
		// transaction: the certificate insert commits with the progress
		// update or not at all.
		cert, err := h.issuer.OnProgressChanged(ctx, uow.Certificates(), event)
		if err != nil {
			return err
		}
		if cert != nil {
			result.Certificate = cert
			result.Events = append(result.Events, shared.NewCertificateIssuedEvent(
				cert.ID,
				cert.StudentID.String(),
				cert.CourseID.String(),
				cert.Type.String(),
				cert.URL,
				cert.IssuedAt,
			))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range result.Events {
		h.publish(event)
	}

	return result, nil
}

func (h *RecordProgressHandler) publish(event shared.Event) {
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

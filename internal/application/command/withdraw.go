package command

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// WITHDRAW COMMAND (Dropout/Refund Processor)
// One atomic unit: read the locked enrollment, compute the refund tier from
// the elapsed-duration ratio, write the audit record, delete the enrollment.
// The course price is read while the transaction holds the pair lock, so a
// concurrent price change cannot produce a stale refund. Record insert and
// enrollment delete commit together or not at all.
// ══════════════════════════════════════════════════════════════════════════════

// WithdrawCommand contains the data to withdraw a student from a course.
type WithdrawCommand struct {
	// StudentID is the withdrawing student.
	StudentID string

	// CourseID is the course being dropped.
	CourseID string

	// Reason is the caller-supplied withdrawal reason.
	Reason string

	// ProcessedAt is the dropout date (defaults to now). Exposed for
	// deterministic processing in backfills and tests.
	ProcessedAt time.Time

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c WithdrawCommand) Validate() error {
	if _, err := shared.NewPair(c.StudentID, c.CourseID); err != nil {
		return err
	}
	if c.Reason == "" {
		return shared.NewDomainError("dropout", "Withdraw", shared.ErrEmptyValue, "withdrawal reason is required")
	}
	return nil
}

// WithdrawResult contains the outcome of a withdrawal.
type WithdrawResult struct {
	// Record is the persisted dropout audit record.
	Record *dropout.Record

	// Events contains domain events published after commit.
	Events []shared.Event
}

// WithdrawHandler processes WithdrawCommand.
type WithdrawHandler struct {
	uowFactory UnitOfWorkFactory
	catalogSvc catalog.Service
	eventBus   shared.EventPublisher
	logger     *slog.Logger
}

// NewWithdrawHandler creates a new WithdrawHandler.
func NewWithdrawHandler(
	uowFactory UnitOfWorkFactory,
	catalogSvc catalog.Service,
	eventBus shared.EventPublisher,
	logger *slog.Logger,
) *WithdrawHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WithdrawHandler{
		uowFactory: uowFactory,
		catalogSvc: catalogSvc,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle withdraws the student and returns the dropout record.
// Returns ErrNotEnrolled if no active enrollment exists for the pair.
func (h *WithdrawHandler) Handle(ctx context.Context, cmd WithdrawCommand) (*WithdrawResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	pair, _ := shared.NewPair(cmd.StudentID, cmd.CourseID)

	processedAt := cmd.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	result := &WithdrawResult{}

	err := runInUnit(ctx, h.uowFactory, func(uow UnitOfWork) error {
		enr, err := uow.Enrollments().GetForUpdate(ctx, pair)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotEnrolled
			}
			return err
		}

		// Current price and duration policy, captured while the pair lock
		// is held.
		info, err := h.catalogSvc.GetCourse(ctx, pair.CourseID)
		if err != nil {
			return err
		}

		rec, err := dropout.NewRecord(pair, enr.EnrolledAt, processedAt, info.DurationDays, info.Price, cmd.Reason)
		if err != nil {
			return err
		}

		if err := uow.Dropouts().Create(ctx, rec); err != nil {
			return err
		}
		if err := uow.Progress().Delete(ctx, pair); err != nil {
			return err
		}
		if err := uow.Enrollments().Remove(ctx, pair); err != nil {
			return err
		}

		result.Record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec := result.Record
	event := shared.NewEnrollmentWithdrawnEvent(
		pair.StudentID.String(), pair.CourseID.String(), cmd.Reason,
		rec.CompletedDuration, rec.RefundPercentage, rec.RefundAmount.String(), rec.ID,
	)
	event.CorrelationID = cmd.CorrelationID
	result.Events = append(result.Events, event)
	h.publish(event)

	h.logger.Info("student withdrawn",
		"student_id", pair.StudentID.String(),
		"course_id", pair.CourseID.String(),
		"completed_days", rec.CompletedDuration,
		"refund_percentage", rec.RefundPercentage,
		"refund_amount", rec.RefundAmount.String(),
	)

	return result, nil
}

func (h *WithdrawHandler) publish(event shared.Event) {
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

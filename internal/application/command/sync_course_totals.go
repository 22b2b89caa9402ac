package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/academica-hub/lifecycle-engine/internal/application/eventhandler"
	"github.com/academica-hub/lifecycle-engine/internal/domain/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC COURSE TOTALS COMMAND
// Lesson and assignment totals live in the catalog; the stored copies on
// progress records go stale when a course gains or loses items. This command
// reconciles one course: it re-reads the catalog totals and recomputes every
// enrolled pair's percentage under the usual pair lock. Transitions flow
// through the certificate issuer with unchanged crossing semantics.
// ══════════════════════════════════════════════════════════════════════════════

// SyncCourseTotalsCommand identifies the course to reconcile.
type SyncCourseTotalsCommand struct {
	// CourseID is the course whose totals to refresh.
	CourseID string
}

// Validate validates the command.
func (c SyncCourseTotalsCommand) Validate() error {
	_, err := shared.NewCourseID(c.CourseID)
	return err
}

// SyncCourseTotalsResult summarizes a reconciliation run.
type SyncCourseTotalsResult struct {
	// PairsChecked is the number of progress records visited.
	PairsChecked int

	// PairsUpdated is the number of records whose percentage moved.
	PairsUpdated int

	// CertificatesIssued is the number of completion certificates the
	// refreshed totals triggered.
	CertificatesIssued int
}

// SyncCourseTotalsHandler processes SyncCourseTotalsCommand.
type SyncCourseTotalsHandler struct {
	uowFactory UnitOfWorkFactory
	catalogSvc catalog.Service
	issuer     *eventhandler.CertificateIssuer
	eventBus   shared.EventPublisher
	logger     *slog.Logger
}

// NewSyncCourseTotalsHandler creates a new SyncCourseTotalsHandler.
func NewSyncCourseTotalsHandler(
	uowFactory UnitOfWorkFactory,
	catalogSvc catalog.Service,
	issuer *eventhandler.CertificateIssuer,
	eventBus shared.EventPublisher,
	logger *slog.Logger,
) *SyncCourseTotalsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncCourseTotalsHandler{
		uowFactory: uowFactory,
		catalogSvc: catalogSvc,
		issuer:     issuer,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle reconciles all enrolled pairs of the course against current catalog
// totals. Each pair is its own unit of work, so one failed pair does not
// poison the rest of the run.
func (h *SyncCourseTotalsHandler) Handle(ctx context.Context, cmd SyncCourseTotalsCommand) (*SyncCourseTotalsResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	courseID, _ := shared.NewCourseID(cmd.CourseID)

	info, err := h.catalogSvc.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	// Snapshot of pairs to visit; each pair re-checks its enrollment under
	// lock, so pairs withdrawn mid-run are skipped.
	records, err := h.listRecords(ctx, courseID)
	if err != nil {
		return nil, err
	}

	result := &SyncCourseTotalsResult{}
	for _, pair := range records {
		result.PairsChecked++
		if err := h.syncPair(ctx, pair, info, result); err != nil {
			h.logger.Warn("totals sync failed for pair",
				"student_id", pair.StudentID.String(),
				"course_id", pair.CourseID.String(),
				"error", err,
			)
		}
	}

	h.logger.Info("course totals synced",
		"course_id", cmd.CourseID,
		"pairs_checked", result.PairsChecked,
		"pairs_updated", result.PairsUpdated,
		"certificates_issued", result.CertificatesIssued,
	)

	return result, nil
}

func (h *SyncCourseTotalsHandler) listRecords(ctx context.Context, courseID shared.CourseID) ([]shared.Pair, error) {
	uow, err := h.uowFactory.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = uow.Rollback(ctx) }()

	records, err := uow.Progress().ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	pairs := make([]shared.Pair, 0, len(records))
	for _, r := range records {
		pairs = append(pairs, r.Pair())
	}
	return pairs, nil
}

func (h *SyncCourseTotalsHandler) syncPair(ctx context.Context, pair shared.Pair, info catalog.CourseInfo, result *SyncCourseTotalsResult) error {
	var events []shared.Event

	err := runInUnit(ctx, h.uowFactory, func(uow UnitOfWork) error {
		if _, err := uow.Enrollments().GetForUpdate(ctx, pair); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil // withdrawn since the snapshot
			}
			return err
		}

		rec, err := uow.Progress().Get(ctx, pair)
		if err != nil {
			return err
		}
		if rec.TotalLessons == info.TotalLessons && rec.TotalAssignments == info.TotalAssignments {
			return nil
		}

		before, after, err := rec.ApplyTotals(info.TotalLessons, info.TotalAssignments)
		if err != nil {
			return err
		}
		if err := uow.Progress().Save(ctx, rec); err != nil {
			return err
		}
		result.PairsUpdated++

		// Cache invalidation keys off this even when the percentage itself
		// did not move.
		events = append(events, shared.NewCourseTotalsRefreshedEvent(
			pair.StudentID.String(), pair.CourseID.String(),
			info.TotalLessons, info.TotalAssignments,
		))

		if before == after {
			return nil
		}

		event := shared.NewProgressChangedEvent(
			pair.StudentID.String(), pair.CourseID.String(),
			before.Float64(), after.Float64(),
		)
		events = append(events, event)

		cert, err := h.issuer.OnProgressChanged(ctx, uow.Certificates(), event)
		if err != nil {
			return err
		}
		if cert != nil {
			result.CertificatesIssued++
			events = append(events, shared.NewCertificateIssuedEvent(
				cert.ID, cert.StudentID.String(), cert.CourseID.String(),
				cert.Type.String(), cert.URL, cert.IssuedAt,
			))
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, event := range events {
		if h.eventBus != nil {
			if pubErr := h.eventBus.Publish(event); pubErr != nil {
				h.logger.Warn("failed to publish event", "event_type", event.EventType(), "error", pubErr)
			}
		}
	}
	return nil
}

// Package jobs contains the engine's scheduled jobs.
package jobs

import (
	"context"
	"log/slog"

	"github.com/academica-hub/lifecycle-engine/internal/application/command"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// CourseLister enumerates the courses with at least one active enrollment.
type CourseLister interface {
	ListActiveCourses(ctx context.Context) ([]shared.CourseID, error)
}

// SyncCourseTotalsJob periodically reconciles stored progress records against
// current catalog totals, course by course. Catalogs add lessons and
// assignments mid-course; without this job a student's percentage would only
// refresh on their next completion.
type SyncCourseTotalsJob struct {
	handler *command.SyncCourseTotalsHandler
	courses CourseLister
	logger  *slog.Logger
}

// NewSyncCourseTotalsJob creates the job.
func NewSyncCourseTotalsJob(
	handler *command.SyncCourseTotalsHandler,
	courses CourseLister,
	logger *slog.Logger,
) *SyncCourseTotalsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncCourseTotalsJob{
		handler: handler,
		courses: courses,
		logger:  logger,
	}
}

// Name implements scheduler.Job.
func (j *SyncCourseTotalsJob) Name() string {
	return "sync_course_totals"
}

// Description implements scheduler.Job.
func (j *SyncCourseTotalsJob) Description() string {
	return "Reconciles progress records against current catalog lesson and assignment totals"
}

// Run implements scheduler.Job. Courses are processed independently; a
// failure in one course is logged and the run continues.
func (j *SyncCourseTotalsJob) Run(ctx context.Context) error {
	courses, err := j.courses.ListActiveCourses(ctx)
	if err != nil {
		return err
	}

	var checked, updated, issued int
	var lastErr error

	for _, courseID := range courses {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := j.handler.Handle(ctx, command.SyncCourseTotalsCommand{
			CourseID: courseID.String(),
		})
		if err != nil {
			j.logger.Error("course totals sync failed",
				"course_id", courseID,
				"error", err,
			)
			lastErr = err
			continue
		}

		checked += result.PairsChecked
		updated += result.PairsUpdated
		issued += result.CertificatesIssued
	}

	j.logger.Info("course totals sync complete",
		"courses", len(courses),
		"pairs_checked", checked,
		"pairs_updated", updated,
		"certificates_issued", issued,
	)

	return lastErr
}

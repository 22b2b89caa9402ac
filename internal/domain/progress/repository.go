package progress

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ItemKind distinguishes the two kinds of completable course items.
type ItemKind string

const (
	// ItemLesson is a course lesson.
	ItemLesson ItemKind = "lesson"

	// ItemAssignment is a course assignment.
	ItemAssignment ItemKind = "assignment"
)

// Counts holds the membership-derived completion counts for a pair.
type Counts struct {
	CompletedLessons     int
	SubmittedAssignments int
}

// Repository defines storage operations for progress records and completion
// membership. The accumulator is the sole writer of records; dashboards and
// queries only read.
type Repository interface {
	// Get returns the progress record for the pair.
	// Returns ErrProgressNotFound if none exists.
	Get(ctx context.Context, pair shared.Pair) (*Record, error)

	// Save upserts a progress record.
	Save(ctx context.Context, r *Record) error

	// Delete removes the progress record and its membership rows for the
	// pair. Called when an enrollment is withdrawn.
	Delete(ctx context.Context, pair shared.Pair) error

	// MarkCompleted records membership of an item (lesson or assignment) in
	// the pair's completion set. Returns true if the item was newly recorded,
	// false if it was already present. Idempotent by construction.
	MarkCompleted(ctx context.Context, pair shared.Pair, kind ItemKind, itemID string) (bool, error)

	// CompletionCounts returns the distinct completion counts for the pair.
	CompletionCounts(ctx context.Context, pair shared.Pair) (Counts, error)

	// ListByCourse returns all progress records for a course. Used by the
	// course-totals sync job.
	ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*Record, error)
}

package enrollment

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Repository defines storage operations for the Enrollment Ledger.
// Implementations live in infrastructure/persistence.
//
// Remove is deliberately part of the same interface but is called only by the
// withdrawal workflow; no independent deletion API is exposed outside the
// engine, so refund accounting cannot be bypassed.
type Repository interface {
	// Create inserts a new active enrollment.
	// Returns ErrAlreadyEnrolled if an active row exists for the pair.
	Create(ctx context.Context, e *Enrollment) error

	// Get returns the active enrollment for the pair.
	// Returns ErrNotEnrolled if no active row exists.
	Get(ctx context.Context, pair shared.Pair) (*Enrollment, error)

	// GetForUpdate returns the active enrollment for the pair and, inside a
	// transaction, locks its row so concurrent engine operations on the same
	// pair serialize. Returns ErrNotEnrolled if no active row exists.
	GetForUpdate(ctx context.Context, pair shared.Pair) (*Enrollment, error)

	// Remove deletes the active enrollment for the pair.
	// Returns ErrNotEnrolled if no active row exists.
	Remove(ctx context.Context, pair shared.Pair) error

	// ListByCourse returns all active enrollments for a course. Used by the
	// course-totals sync job to find progress records to refresh.
	ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*Enrollment, error)

	// Exists reports whether an active enrollment exists for the pair.
	Exists(ctx context.Context, pair shared.Pair) (bool, error)
}

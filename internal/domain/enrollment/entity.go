// Package enrollment contains the Enrollment Ledger: the authoritative record
// of which student is active in which course, and since when. Enrollment
// existence is the shared gate for every other engine component — progress
// only accrues for enrolled pairs, and withdrawal is the only path that
// removes a row.
package enrollment

import (
	"time"

	"github.com/google/uuid"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
	"github.com/academica-hub/lifecycle-engine/pkg/timeutil"
)

// Enrollment is one active (student, course) row in the ledger.
// Unique per pair while active.
type Enrollment struct {
	// ID is the internal record identifier.
	ID string

	// StudentID identifies the enrolled student.
	StudentID shared.StudentID

	// CourseID identifies the course.
	CourseID shared.CourseID

	// EnrolledAt is when the enrollment became active.
	EnrolledAt time.Time

	// CreatedAt is the record creation time.
	CreatedAt time.Time
}

// New creates a new active enrollment for the pair.
func New(pair shared.Pair, enrolledAt time.Time) *Enrollment {
	if enrolledAt.IsZero() {
		enrolledAt = time.Now().UTC()
	}
	now := time.Now().UTC()
	return &Enrollment{
		ID:         uuid.NewString(),
		StudentID:  pair.StudentID,
		CourseID:   pair.CourseID,
		EnrolledAt: enrolledAt.UTC(),
		CreatedAt:  now,
	}
}

// Pair returns the (student, course) pair for this enrollment.
func (e *Enrollment) Pair() shared.Pair {
	return shared.Pair{StudentID: e.StudentID, CourseID: e.CourseID}
}

// ElapsedDays returns the number of whole days between enrollment and the
// given time, never negative.
func (e *Enrollment) ElapsedDays(at time.Time) int {
	return timeutil.WholeDaysBetween(e.EnrolledAt, at)
}

// Package progress contains the Progress Accumulator's state: per-pair counts
// of completed lessons and submitted assignments against course totals, and
// the derived completion percentage.
//
// The percentage is a derived column in spirit: it is recomputed by a pure
// function at write time and stored, and nothing outside this package mutates
// it directly. Completion is tracked as membership (which lessons, which
// assignments), not as a counter, so recording the same lesson twice can
// never double-count.
package progress

import (
	"math"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// CompletionThreshold is the percentage at or above which a course counts as
// completed and the automatic certificate workflow fires.
const CompletionThreshold = 90.0

// Record holds the accumulated progress for one (student, course) pair.
type Record struct {
	// StudentID identifies the student.
	StudentID shared.StudentID

	// CourseID identifies the course.
	CourseID shared.CourseID

	// TotalLessons is the lesson count for the course, from the catalog.
	TotalLessons int

	// CompletedLessons is the number of distinct lessons completed.
	CompletedLessons int

	// TotalAssignments is the assignment count for the course, from the catalog.
	TotalAssignments int

	// SubmittedAssignments is the number of distinct assignments submitted.
	SubmittedAssignments int

	// Percentage is the derived completion percentage in [0, 100].
	Percentage shared.Percentage

	// LastUpdated is when the record was last recomputed.
	LastUpdated time.Time
}

// NewRecord creates an empty progress record seeded with catalog totals.
func NewRecord(pair shared.Pair, totalLessons, totalAssignments int) (*Record, error) {
	r := &Record{
		StudentID:        pair.StudentID,
		CourseID:         pair.CourseID,
		TotalLessons:     totalLessons,
		TotalAssignments: totalAssignments,
		LastUpdated:      time.Now().UTC(),
	}
	pct, err := ComputePercentage(totalLessons, 0, totalAssignments, 0)
	if err != nil {
		return nil, err
	}
	r.Percentage = pct
	return r, nil
}

// Pair returns the (student, course) pair for this record.
func (r *Record) Pair() shared.Pair {
	return shared.Pair{StudentID: r.StudentID, CourseID: r.CourseID}
}

// Completed reports whether the record is at or above the completion threshold.
func (r *Record) Completed() bool {
	return r.Percentage.Float64() >= CompletionThreshold
}

// ApplyCounts sets the membership-derived counts and recomputes the
// percentage. Returns the
// percentage before and after the recompute.
func (r *Record) ApplyCounts(completedLessons, submittedAssignments int) (before, after shared.Percentage, err error) {
	before = r.Percentage
	pct, err := ComputePercentage(r.TotalLessons, completedLessons, r.TotalAssignments, submittedAssignments)
	if err != nil {
		return before, before, err
	}
	r.CompletedLessons = completedLessons
	r.SubmittedAssignments = submittedAssignments
	r.Percentage = pct
	r.LastUpdated = time.Now().UTC()
	return before, pct, nil
}

// ApplyTotals sets new catalog totals and recomputes the percentage against
// the existing counts. Used by the course-totals sync job.
func (r *Record) ApplyTotals(totalLessons, totalAssignments int) (before, after shared.Percentage, err error) {
	before = r.Percentage
	pct, err := ComputePercentage(totalLessons, r.CompletedLessons, totalAssignments, r.SubmittedAssignments)
	if err != nil {
		return before, before, err
	}
	r.TotalLessons = totalLessons
	r.TotalAssignments = totalAssignments
	r.Percentage = pct
	r.LastUpdated = time.Now().UTC()
	return before, pct, nil
}

// ComputePercentage derives the completion percentage:
//
//	0                                                  if totals sum to zero
//	(completed + submitted) * 100 / (lessons + assignments)  otherwise
//
// clamped to [0, 100] and rounded to 2 decimal places. Negative inputs are an
// invariant violation: they indicate corrupted membership data and must abort
// the surrounding unit of work rather than persist.
func ComputePercentage(totalLessons, completedLessons, totalAssignments, submittedAssignments int) (shared.Percentage, error) {
	if totalLessons < 0 || completedLessons < 0 || totalAssignments < 0 || submittedAssignments < 0 {
		return 0, shared.ErrInvalidPercentage
	}

	totalItems := totalLessons + totalAssignments
	if totalItems == 0 {
		return 0, nil
	}

	done := completedLessons + submittedAssignments
	pct := shared.Percentage(float64(done) * 100 / float64(totalItems)).Clamp()
	pct = shared.Percentage(math.Round(pct.Float64()*100) / 100)

	if !pct.IsValid() {
		return 0, shared.ErrInvalidPercentage
	}
	return pct, nil
}

// Crossed reports whether a percentage transition moved from below the
// completion threshold to at or above it. The automatic certificate workflow
// fires only on this crossing, never on repeated updates that merely stay
// above the threshold.
func Crossed(oldPct, newPct shared.Percentage) bool {
	return oldPct.Float64() < CompletionThreshold && newPct.Float64() >= CompletionThreshold
}

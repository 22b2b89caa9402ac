// Package dropout contains the append-only audit record written on
// withdrawal and the refund tier step function. Records are immutable once
// created: exactly one per withdrawal, always paired atomically with the
// deletion of the corresponding enrollment.
package dropout

import (
	"time"

	"github.com/google/uuid"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
	"github.com/academica-hub/lifecycle-engine/pkg/timeutil"
)

// Record is one dropout audit entry.
type Record struct {
	// ID is the internal record identifier.
	ID string

	// StudentID identifies the withdrawn student.
	StudentID shared.StudentID

	// CourseID identifies the course.
	CourseID shared.CourseID

	// EnrollmentDate is when the enrollment began.
	EnrollmentDate time.Time

	// DropoutDate is when the withdrawal was processed.
	DropoutDate time.Time

	// TotalCourseDuration is the course's policy duration in whole days.
	TotalCourseDuration int

	// CompletedDuration is the elapsed enrollment time in whole days,
	// clamped to [0, TotalCourseDuration].
	CompletedDuration int

	// RefundPercentage is the derived refund tier (90, 50, 25, or 0).
	RefundPercentage int

	// RefundAmount is the derived refund, course price at processing time
	// times the refund percentage.
	RefundAmount shared.Money

	// Reason is the caller-supplied withdrawal reason.
	Reason string

	// CreatedAt is the record creation time.
	CreatedAt time.Time
}

// RefundPercentage maps the elapsed-duration ratio to a refund tier:
//
//	ratio <= 0.25         -> 90%
//	0.25 < ratio <= 0.50  -> 50%
//	0.50 < ratio <= 0.75  -> 25%
//	ratio > 0.75          -> 0%
//
// completedDays is expected to already be clamped to [0, totalDays].
func RefundPercentage(completedDays, totalDays int) (int, error) {
	if totalDays <= 0 {
		return 0, shared.ErrInvalidDuration
	}
	if completedDays < 0 || completedDays > totalDays {
		return 0, shared.ErrInvalidRefund
	}

	ratio := timeutil.Ratio(completedDays, totalDays)
	switch {
	case ratio <= 0.25:
		return 90, nil
	case ratio <= 0.50:
		return 50, nil
	case ratio <= 0.75:
		return 25, nil
	default:
		return 0, nil
	}
}

// ClampDuration bounds elapsed days to [0, totalDays].
func ClampDuration(elapsedDays, totalDays int) int {
	if elapsedDays < 0 {
		return 0
	}
	if elapsedDays > totalDays {
		return totalDays
	}
	return elapsedDays
}

// NewRecord derives a dropout record from the enrollment dates, the course's
// policy duration, and the current course price. All derived fields
// (completed duration, refund tier, refund amount) are computed here and
// nowhere else.
func NewRecord(
	pair shared.Pair,
	enrolledAt, dropoutAt time.Time,
	totalDurationDays int,
	coursePrice shared.Money,
	reason string,
) (*Record, error) {
	if totalDurationDays <= 0 {
		return nil, shared.ErrInvalidDuration
	}

	enrolledAt = enrolledAt.UTC()
	dropoutAt = dropoutAt.UTC()

	elapsed := timeutil.WholeDaysBetween(enrolledAt, dropoutAt)
	completed := ClampDuration(elapsed, totalDurationDays)

	pct, err := RefundPercentage(completed, totalDurationDays)
	if err != nil {
		return nil, err
	}
	if pct < 0 || pct > 100 {
		return nil, shared.ErrInvalidRefund
	}

	return &Record{
		ID:                  uuid.NewString(),
		StudentID:           pair.StudentID,
		CourseID:            pair.CourseID,
		EnrollmentDate:      enrolledAt,
		DropoutDate:         dropoutAt,
		TotalCourseDuration: totalDurationDays,
		CompletedDuration:   completed,
		RefundPercentage:    pct,
		RefundAmount:        coursePrice.Percent(pct),
		Reason:              reason,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

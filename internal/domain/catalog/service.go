// Package catalog defines the engine's view of the external Courses
// collaborator. The catalog owns course pricing, duration policy, and
// lesson/assignment totals; the engine only reads them.
package catalog

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// CourseInfo is the catalog data the engine consumes.
type CourseInfo struct {
	// CourseID identifies the course.
	CourseID shared.CourseID

	// Price is the current course price. Withdrawal reads it at processing
	// time, inside the withdrawal transaction's scope.
	Price shared.Money

	// DurationDays is the fixed policy duration of the course in whole days.
	DurationDays int

	// TotalLessons is the number of lessons in the course.
	TotalLessons int

	// TotalAssignments is the number of assignments in the course.
	TotalAssignments int
}

// Service resolves course data from the catalog collaborator.
// Implementations live in infrastructure/external.
type Service interface {
	// GetCourse returns catalog data for a course.
	// Returns ErrCourseNotFound if the course does not exist.
	GetCourse(ctx context.Context, courseID shared.CourseID) (CourseInfo, error)
}

package dropout

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Repository defines storage operations for dropout records. The withdrawal
// workflow is the sole writer; records are never updated or deleted.
type Repository interface {
	// Create inserts a dropout record.
	Create(ctx context.Context, r *Record) error

	// ListByStudent returns a student's dropout records, newest first.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Record, error)

	// ListByCourse returns a course's dropout records, newest first. Read by
	// financial reporting.
	ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*Record, error)
}

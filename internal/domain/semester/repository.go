package semester

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Repository loads prerequisite policy rows. The engine never writes them;
// policy is maintained by catalog administration outside this system.
type Repository interface {
	// LoadAll returns every policy row, for building a PolicySet at startup.
	LoadAll(ctx context.Context) ([]Prerequisite, error)

	// Find returns the policy row for (course, current semester).
	// Returns ErrNoPolicyDefined if no row matches.
	Find(ctx context.Context, courseID shared.CourseID, currentSemester int) (Prerequisite, error)
}

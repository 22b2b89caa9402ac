package postgres

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/semester"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// SemesterRepository implements semester.Repository on PostgreSQL. The engine
// only reads policy rows; catalog administration writes them out of band.
type SemesterRepository struct {
	q Querier
}

// NewSemesterRepository creates a repository over the given querier.
func NewSemesterRepository(q Querier) *SemesterRepository {
	return &SemesterRepository{q: q}
}

// LoadAll returns every policy row.
func (r *SemesterRepository) LoadAll(ctx context.Context) ([]semester.Prerequisite, error) {
	query := `
		SELECT course_id, current_semester, next_semester,
		       min_credits_required, min_gpa_required
		FROM semester_prerequisites
		ORDER BY course_id, current_semester
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, shared.WrapError("semester", "LoadAll", shared.ErrStorage, "failed to query prerequisites", err)
	}
	defer rows.Close()

	var result []semester.Prerequisite
	for rows.Next() {
		var (
			p       semester.Prerequisite
			cid     string
			credits int
			gpa     float64
		)
		if err := rows.Scan(&cid, &p.CurrentSemester, &p.NextSemester, &credits, &gpa); err != nil {
			return nil, shared.WrapError("semester", "LoadAll", shared.ErrStorage, "failed to scan prerequisite", err)
		}
		p.CourseID = shared.CourseID(cid)
		p.MinCreditsRequired = shared.Credits(credits)
		p.MinGPARequired = shared.GPA(gpa)
		result = append(result, p)
	}

	return result, rows.Err()
}

// Find returns the policy row for (course, current semester).
func (r *SemesterRepository) Find(ctx context.Context, courseID shared.CourseID, currentSemester int) (semester.Prerequisite, error) {
	query := `
		SELECT course_id, current_semester, next_semester,
		       min_credits_required, min_gpa_required
		FROM semester_prerequisites
		WHERE course_id = $1 AND current_semester = $2
	`

	var (
		p       semester.Prerequisite
		cid     string
		credits int
		gpa     float64
	)
	err := r.q.QueryRow(ctx, query, courseID.String(), currentSemester).Scan(
		&cid,
		&p.CurrentSemester,
		&p.NextSemester,
		&credits,
		&gpa,
	)
	if err != nil {
		if IsNoRows(err) {
			return semester.Prerequisite{}, shared.ErrNoPolicyDefined
		}
		return semester.Prerequisite{}, shared.WrapError("semester", "Find", shared.ErrStorage, "failed to query prerequisite", err)
	}

	p.CourseID = shared.CourseID(cid)
	p.MinCreditsRequired = shared.Credits(credits)
	p.MinGPARequired = shared.GPA(gpa)
	return p, nil
}

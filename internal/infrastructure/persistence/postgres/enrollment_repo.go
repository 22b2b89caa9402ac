package postgres

import (
	"context"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// EnrollmentRepository implements enrollment.Repository on PostgreSQL.
// It is written against Querier, so the same code serves pool-backed reads
// and transaction-scoped units of work.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a repository over the given querier.
func NewEnrollmentRepository(q Querier) *EnrollmentRepository {
	return &EnrollmentRepository{q: q}
}

// Create inserts a new active enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, student_id, course_id, enrolled_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query,
		e.ID,
		e.StudentID.String(),
		e.CourseID.String(),
		e.EnrolledAt,
		e.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyEnrolled
		}
		return shared.WrapError("enrollment", "Create", shared.ErrStorage, "failed to insert enrollment", err)
	}

	return nil
}

// Get returns the active enrollment for the pair.
func (r *EnrollmentRepository) Get(ctx context.Context, pair shared.Pair) (*enrollment.Enrollment, error) {
	query := `
		SELECT id, student_id, course_id, enrolled_at, created_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
	`

	return r.scanOne(ctx, query, pair)
}

// GetForUpdate returns the active enrollment for the pair with its row
// locked. Inside a transaction this serializes all engine operations that
// touch the same pair; outside a transaction the lock is released
// immediately and the call degrades to a plain read.
func (r *EnrollmentRepository) GetForUpdate(ctx context.Context, pair shared.Pair) (*enrollment.Enrollment, error) {
	query := `
		SELECT id, student_id, course_id, enrolled_at, created_at
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
		FOR UPDATE
	`

	return r.scanOne(ctx, query, pair)
}

func (r *EnrollmentRepository) scanOne(ctx context.Context, query string, pair shared.Pair) (*enrollment.Enrollment, error) {
	var (
		e         enrollment.Enrollment
		studentID string
		courseID  string
	)

	err := r.q.QueryRow(ctx, query, pair.StudentID.String(), pair.CourseID.String()).Scan(
		&e.ID,
		&studentID,
		&courseID,
		&e.EnrolledAt,
		&e.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrNotEnrolled
		}
		return nil, shared.WrapError("enrollment", "Get", shared.ErrStorage, "failed to query enrollment", err)
	}

	e.StudentID = shared.StudentID(studentID)
	e.CourseID = shared.CourseID(courseID)
	return &e, nil
}

// Remove deletes the active enrollment for the pair.
func (r *EnrollmentRepository) Remove(ctx context.Context, pair shared.Pair) error {
	query := `DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2`

	tag, err := r.q.Exec(ctx, query, pair.StudentID.String(), pair.CourseID.String())
	if err != nil {
		return shared.WrapError("enrollment", "Remove", shared.ErrStorage, "failed to delete enrollment", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotEnrolled
	}

	return nil
}

// ListByCourse returns all active enrollments for a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT id, student_id, course_id, enrolled_at, created_at
		FROM enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at
	`

	rows, err := r.q.Query(ctx, query, courseID.String())
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListByCourse", shared.ErrStorage, "failed to query enrollments", err)
	}
	defer rows.Close()

	var result []*enrollment.Enrollment
	for rows.Next() {
		var (
			e          enrollment.Enrollment
			sid, cid   string
			enrolledAt time.Time
		)
		if err := rows.Scan(&e.ID, &sid, &cid, &enrolledAt, &e.CreatedAt); err != nil {
			return nil, shared.WrapError("enrollment", "ListByCourse", shared.ErrStorage, "failed to scan enrollment", err)
		}
		e.StudentID = shared.StudentID(sid)
		e.CourseID = shared.CourseID(cid)
		e.EnrolledAt = enrolledAt
		result = append(result, &e)
	}

	return result, rows.Err()
}

// ListActiveCourses returns the distinct courses with at least one active
// enrollment. Drives the course-totals sync job.
func (r *EnrollmentRepository) ListActiveCourses(ctx context.Context) ([]shared.CourseID, error) {
	query := `SELECT DISTINCT course_id FROM enrollments ORDER BY course_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, shared.WrapError("enrollment", "ListActiveCourses", shared.ErrStorage, "failed to query courses", err)
	}
	defer rows.Close()

	var result []shared.CourseID
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, shared.WrapError("enrollment", "ListActiveCourses", shared.ErrStorage, "failed to scan course id", err)
		}
		result = append(result, shared.CourseID(cid))
	}

	return result, rows.Err()
}

// Exists reports whether an active enrollment exists for the pair.
func (r *EnrollmentRepository) Exists(ctx context.Context, pair shared.Pair) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`

	var exists bool
	err := r.q.QueryRow(ctx, query, pair.StudentID.String(), pair.CourseID.String()).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("enrollment", "Exists", shared.ErrStorage, "failed to query enrollment", err)
	}

	return exists, nil
}

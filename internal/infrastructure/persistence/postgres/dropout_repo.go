package postgres

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// DropoutRepository implements dropout.Repository on PostgreSQL. Records are
// append-only; there is no update or delete path.
//
// Refund amounts are stored as NUMERIC and moved through text to preserve
// exact decimal values.
type DropoutRepository struct {
	q Querier
}

// NewDropoutRepository creates a repository over the given querier.
func NewDropoutRepository(q Querier) *DropoutRepository {
	return &DropoutRepository{q: q}
}

// Create inserts a dropout record.
func (r *DropoutRepository) Create(ctx context.Context, rec *dropout.Record) error {
	query := `
		INSERT INTO dropout_records (
			id, student_id, course_id,
			enrolled_at, dropout_at,
			total_course_duration, completed_duration,
			refund_percentage, refund_amount,
			reason, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.Exec(ctx, query,
		rec.ID,
		rec.StudentID.String(),
		rec.CourseID.String(),
		rec.EnrollmentDate,
		rec.DropoutDate,
		rec.TotalCourseDuration,
		rec.CompletedDuration,
		rec.RefundPercentage,
		rec.RefundAmount.String(),
		rec.Reason,
		rec.CreatedAt,
	)
	if err != nil {
		return shared.WrapError("dropout", "Create", shared.ErrStorage, "failed to insert dropout record", err)
	}

	return nil
}

// ListByStudent returns a student's dropout records, newest first.
func (r *DropoutRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*dropout.Record, error) {
	query := `
		SELECT id, student_id, course_id,
		       enrolled_at, dropout_at,
		       total_course_duration, completed_duration,
		       refund_percentage, refund_amount::text,
		       reason, created_at
		FROM dropout_records
		WHERE student_id = $1
		ORDER BY dropout_at DESC
	`

	return r.list(ctx, query, studentID.String())
}

// ListByCourse returns a course's dropout records, newest first.
func (r *DropoutRepository) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*dropout.Record, error) {
	query := `
		SELECT id, student_id, course_id,
		       enrolled_at, dropout_at,
		       total_course_duration, completed_duration,
		       refund_percentage, refund_amount::text,
		       reason, created_at
		FROM dropout_records
		WHERE course_id = $1
		ORDER BY dropout_at DESC
	`

	return r.list(ctx, query, courseID.String())
}

func (r *DropoutRepository) list(ctx context.Context, query string, arg string) ([]*dropout.Record, error) {
	rows, err := r.q.Query(ctx, query, arg)
	if err != nil {
		return nil, shared.WrapError("dropout", "List", shared.ErrStorage, "failed to query dropout records", err)
	}
	defer rows.Close()

	var result []*dropout.Record
	for rows.Next() {
		var (
			rec      dropout.Record
			sid, cid string
			amount   string
		)
		err := rows.Scan(
			&rec.ID,
			&sid,
			&cid,
			&rec.EnrollmentDate,
			&rec.DropoutDate,
			&rec.TotalCourseDuration,
			&rec.CompletedDuration,
			&rec.RefundPercentage,
			&amount,
			&rec.Reason,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, shared.WrapError("dropout", "List", shared.ErrStorage, "failed to scan dropout record", err)
		}

		money, err := shared.MoneyFromString(amount)
		if err != nil {
			return nil, shared.WrapError("dropout", "List", shared.ErrInvariantViolation, "stored refund amount is not a valid decimal", err)
		}

		rec.StudentID = shared.StudentID(sid)
		rec.CourseID = shared.CourseID(cid)
		rec.RefundAmount = money
		result = append(result, &rec)
	}

	return result, rows.Err()
}

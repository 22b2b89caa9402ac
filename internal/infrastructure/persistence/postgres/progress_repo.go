package postgres

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ProgressRepository implements progress.Repository on PostgreSQL.
//
// Completion is stored as membership rows in completed_items with a primary
// key over (student, course, kind, item); MarkCompleted inserts with
// ON CONFLICT DO NOTHING, so re-recording the same lesson or assignment is a
// no-op at the storage level rather than an application-level check.
type ProgressRepository struct {
	q Querier
}

// NewProgressRepository creates a repository over the given querier.
func NewProgressRepository(q Querier) *ProgressRepository {
	return &ProgressRepository{q: q}
}

// Get returns the progress record for the pair.
func (r *ProgressRepository) Get(ctx context.Context, pair shared.Pair) (*progress.Record, error) {
	query := `
		SELECT student_id, course_id,
		       completed_lessons, submitted_assignments,
		       total_lessons, total_assignments,
		       percentage, last_updated
		FROM progress_records
		WHERE student_id = $1 AND course_id = $2
	`

	rec, err := scanProgressRow(r.q.QueryRow(ctx, query, pair.StudentID.String(), pair.CourseID.String()))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrProgressNotFound
		}
		return nil, shared.WrapError("progress", "Get", shared.ErrStorage, "failed to query progress record", err)
	}

	return rec, nil
}

// Save upserts a progress record.
func (r *ProgressRepository) Save(ctx context.Context, rec *progress.Record) error {
	query := `
		INSERT INTO progress_records (
			student_id, course_id,
			completed_lessons, submitted_assignments,
			total_lessons, total_assignments,
			percentage, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, course_id) DO UPDATE SET
			completed_lessons = EXCLUDED.completed_lessons,
			submitted_assignments = EXCLUDED.submitted_assignments,
			total_lessons = EXCLUDED.total_lessons,
			total_assignments = EXCLUDED.total_assignments,
			percentage = EXCLUDED.percentage,
			last_updated = EXCLUDED.last_updated
	`

	_, err := r.q.Exec(ctx, query,
		rec.StudentID.String(),
		rec.CourseID.String(),
		rec.CompletedLessons,
		rec.SubmittedAssignments,
		rec.TotalLessons,
		rec.TotalAssignments,
		rec.Percentage.Float64(),
		rec.LastUpdated,
	)
	if err != nil {
		return shared.WrapError("progress", "Save", shared.ErrStorage, "failed to upsert progress record", err)
	}

	return nil
}

// Delete removes the progress record and its membership rows for the pair.
func (r *ProgressRepository) Delete(ctx context.Context, pair shared.Pair) error {
	sid := pair.StudentID.String()
	cid := pair.CourseID.String()

	if _, err := r.q.Exec(ctx,
		`DELETE FROM completed_items WHERE student_id = $1 AND course_id = $2`,
		sid, cid,
	); err != nil {
		return shared.WrapError("progress", "Delete", shared.ErrStorage, "failed to delete completion membership", err)
	}

	if _, err := r.q.Exec(ctx,
		`DELETE FROM progress_records WHERE student_id = $1 AND course_id = $2`,
		sid, cid,
	); err != nil {
		return shared.WrapError("progress", "Delete", shared.ErrStorage, "failed to delete progress record", err)
	}

	return nil
}

// MarkCompleted records membership of an item in the pair's completion set.
// Returns true if the item was newly recorded.
func (r *ProgressRepository) MarkCompleted(ctx context.Context, pair shared.Pair, kind progress.ItemKind, itemID string) (bool, error) {
	query := `
		INSERT INTO completed_items (student_id, course_id, kind, item_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, course_id, kind, item_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query,
		pair.StudentID.String(),
		pair.CourseID.String(),
		string(kind),
		itemID,
	)
	if err != nil {
		return false, shared.WrapError("progress", "MarkCompleted", shared.ErrStorage, "failed to insert completion membership", err)
	}

	return tag.RowsAffected() > 0, nil
}

// CompletionCounts returns the distinct completion counts for the pair.
func (r *ProgressRepository) CompletionCounts(ctx context.Context, pair shared.Pair) (progress.Counts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'lesson'),
			COUNT(*) FILTER (WHERE kind = 'assignment')
		FROM completed_items
		WHERE student_id = $1 AND course_id = $2
	`

	var counts progress.Counts
	err := r.q.QueryRow(ctx, query, pair.StudentID.String(), pair.CourseID.String()).Scan(
		&counts.CompletedLessons,
		&counts.SubmittedAssignments,
	)
	if err != nil {
		return progress.Counts{}, shared.WrapError("progress", "CompletionCounts", shared.ErrStorage, "failed to count completion membership", err)
	}

	return counts, nil
}

// ListByCourse returns all progress records for a course.
func (r *ProgressRepository) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*progress.Record, error) {
	query := `
		SELECT student_id, course_id,
		       completed_lessons, submitted_assignments,
		       total_lessons, total_assignments,
		       percentage, last_updated
		FROM progress_records
		WHERE course_id = $1
		ORDER BY student_id
	`

	rows, err := r.q.Query(ctx, query, courseID.String())
	if err != nil {
		return nil, shared.WrapError("progress", "ListByCourse", shared.ErrStorage, "failed to query progress records", err)
	}
	defer rows.Close()

	var result []*progress.Record
	for rows.Next() {
		rec, err := scanProgressRow(rows)
		if err != nil {
			return nil, shared.WrapError("progress", "ListByCourse", shared.ErrStorage, "failed to scan progress record", err)
		}
		result = append(result, rec)
	}

	return result, rows.Err()
}

// rowScanner abstracts pgx.Row and pgx.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProgressRow(row rowScanner) (*progress.Record, error) {
	var (
		rec        progress.Record
		sid, cid   string
		percentage float64
	)

	err := row.Scan(
		&sid,
		&cid,
		&rec.CompletedLessons,
		&rec.SubmittedAssignments,
		&rec.TotalLessons,
		&rec.TotalAssignments,
		&percentage,
		&rec.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	rec.StudentID = shared.StudentID(sid)
	rec.CourseID = shared.CourseID(cid)
	rec.Percentage = shared.Percentage(percentage)
	return &rec, nil
}

package postgres

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// CertificateRepository implements certificate.Repository on PostgreSQL.
// The unique constraint over (student, course, type) backs the issuer's
// idempotency check with a hard storage guarantee.
type CertificateRepository struct {
	q Querier
}

// NewCertificateRepository creates a repository over the given querier.
func NewCertificateRepository(q Querier) *CertificateRepository {
	return &CertificateRepository{q: q}
}

// Create inserts a certificate record.
func (r *CertificateRepository) Create(ctx context.Context, c *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (id, student_id, course_id, cert_type, issued_at, url)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		c.ID,
		c.StudentID.String(),
		c.CourseID.String(),
		c.Type.String(),
		c.IssuedAt,
		c.URL,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("certificate", "Create", shared.ErrAlreadyExists,
				"certificate already issued for this student, course, and type")
		}
		return shared.WrapError("certificate", "Create", shared.ErrStorage, "failed to insert certificate", err)
	}

	return nil
}

// Exists reports whether a certificate of the given type exists for the pair.
func (r *CertificateRepository) Exists(ctx context.Context, pair shared.Pair, certType certificate.Type) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM certificates
			WHERE student_id = $1 AND course_id = $2 AND cert_type = $3
		)
	`

	var exists bool
	err := r.q.QueryRow(ctx, query,
		pair.StudentID.String(),
		pair.CourseID.String(),
		certType.String(),
	).Scan(&exists)
	if err != nil {
		return false, shared.WrapError("certificate", "Exists", shared.ErrStorage, "failed to query certificate", err)
	}

	return exists, nil
}

// Get returns the certificate of the given type for the pair.
func (r *CertificateRepository) Get(ctx context.Context, pair shared.Pair, certType certificate.Type) (*certificate.Certificate, error) {
	query := `
		SELECT id, student_id, course_id, cert_type, issued_at, url
		FROM certificates
		WHERE student_id = $1 AND course_id = $2 AND cert_type = $3
	`

	var (
		c              certificate.Certificate
		sid, cid, kind string
	)
	err := r.q.QueryRow(ctx, query,
		pair.StudentID.String(),
		pair.CourseID.String(),
		certType.String(),
	).Scan(&c.ID, &sid, &cid, &kind, &c.IssuedAt, &c.URL)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCertificateNotFound
		}
		return nil, shared.WrapError("certificate", "Get", shared.ErrStorage, "failed to query certificate", err)
	}

	c.StudentID = shared.StudentID(sid)
	c.CourseID = shared.CourseID(cid)
	c.Type = certificate.Type(kind)
	return &c, nil
}

// ListByStudent returns all certificates issued to a student, newest first.
func (r *CertificateRepository) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*certificate.Certificate, error) {
	query := `
		SELECT id, student_id, course_id, cert_type, issued_at, url
		FROM certificates
		WHERE student_id = $1
		ORDER BY issued_at DESC
	`

	rows, err := r.q.Query(ctx, query, studentID.String())
	if err != nil {
		return nil, shared.WrapError("certificate", "ListByStudent", shared.ErrStorage, "failed to query certificates", err)
	}
	defer rows.Close()

	var result []*certificate.Certificate
	for rows.Next() {
		var (
			c              certificate.Certificate
			sid, cid, kind string
		)
		if err := rows.Scan(&c.ID, &sid, &cid, &kind, &c.IssuedAt, &c.URL); err != nil {
			return nil, shared.WrapError("certificate", "ListByStudent", shared.ErrStorage, "failed to scan certificate", err)
		}
		c.StudentID = shared.StudentID(sid)
		c.CourseID = shared.CourseID(cid)
		c.Type = certificate.Type(kind)
		result = append(result, &c)
	}

	return result, rows.Err()
}

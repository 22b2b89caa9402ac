package certificate

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Repository defines storage operations for certificates. The issuer is the
// sole writer; display and notification surfaces only read.
type Repository interface {
	// Create inserts a certificate record.
	// Returns a conflict error if a record with the same (student, course,
	// type) already exists; the storage layer enforces this uniqueness in
	// addition to the issuer's idempotency check.
	Create(ctx context.Context, c *Certificate) error

	// Exists reports whether a certificate of the given type exists for the
	// pair. The issuer's idempotency check.
	Exists(ctx context.Context, pair shared.Pair, certType Type) (bool, error)

	// Get returns the certificate of the given type for the pair.
	// Returns ErrCertificateNotFound if none exists.
	Get(ctx context.Context, pair shared.Pair, certType Type) (*Certificate, error)

	// ListByStudent returns all certificates issued to a student.
	ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*Certificate, error)
}

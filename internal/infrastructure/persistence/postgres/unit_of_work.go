package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/academica-hub/lifecycle-engine/internal/application/command"
	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWorkFactory begins pgx-backed units of work.
type UnitOfWorkFactory struct {
	conn *Connection
}

// NewUnitOfWorkFactory creates a factory over the connection pool.
func NewUnitOfWorkFactory(conn *Connection) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{conn: conn}
}

// Begin starts a new transaction and returns repositories bound to it.
func (f *UnitOfWorkFactory) Begin(ctx context.Context) (command.UnitOfWork, error) {
	tx, err := f.conn.BeginTx(ctx, DefaultTxOptions())
	if err != nil {
		return nil, shared.WrapError("postgres", "Begin", shared.ErrStorage, "failed to begin transaction", err)
	}

	return &unitOfWork{
		tx:           tx,
		enrollments:  NewEnrollmentRepository(tx),
		progress:     NewProgressRepository(tx),
		certificates: NewCertificateRepository(tx),
		dropouts:     NewDropoutRepository(tx),
	}, nil
}

// unitOfWork binds all engine repositories to a single pgx transaction.
// The enrollment row lock taken through Enrollments().GetForUpdate serializes
// concurrent units touching the same (student, course) pair.
type unitOfWork struct {
	tx           pgx.Tx
	enrollments  *EnrollmentRepository
	progress     *ProgressRepository
	certificates *CertificateRepository
	dropouts     *DropoutRepository

	mu   sync.Mutex
	done bool
}

// Enrollments returns the transaction-scoped enrollment ledger.
func (u *unitOfWork) Enrollments() enrollment.Repository {
	return u.enrollments
}

// Progress returns the transaction-scoped progress repository.
func (u *unitOfWork) Progress() progress.Repository {
	return u.progress
}

// Certificates returns the transaction-scoped certificate repository.
func (u *unitOfWork) Certificates() certificate.Repository {
	return u.certificates
}

// Dropouts returns the transaction-scoped dropout repository.
func (u *unitOfWork) Dropouts() dropout.Repository {
	return u.dropouts
}

// Commit commits the transaction.
func (u *unitOfWork) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return nil
	}
	u.done = true

	if err := u.tx.Commit(ctx); err != nil {
		if IsSerializationFailure(err) {
			return shared.WrapError("postgres", "Commit", shared.ErrConcurrentModification, "transaction serialization failure", err)
		}
		return shared.WrapError("postgres", "Commit", shared.ErrStorage, "failed to commit transaction", err)
	}

	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.done {
		return nil
	}
	u.done = true

	if err := u.tx.Rollback(ctx); err != nil {
		return shared.WrapError("postgres", "Rollback", shared.ErrStorage, "failed to roll back transaction", err)
	}

	return nil
}

// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// Every engine command runs as one atomic unit: all repositories below operate
// on the same underlying transaction, and the enrollment row lock taken inside
// it serializes concurrent operations on the same (student, course) pair.
// ══════════════════════════════════════════════════════════════════════════════

// UnitOfWork exposes transaction-scoped repositories with commit/rollback
// semantics. Either every write in the unit commits, or none do.
type UnitOfWork interface {
	// Enrollments returns the enrollment ledger within the transaction.
	Enrollments() enrollment.Repository

	// Progress returns the progress repository within the transaction.
	Progress() progress.Repository

	// Certificates returns the certificate repository within the transaction.
	Certificates() certificate.Repository

	// Dropouts returns the dropout repository within the transaction.
	Dropouts() dropout.Repository

	// Commit commits the transaction.
	Commit(ctx context.Context) error

	// Rollback aborts the transaction. Safe to call after Commit.
	Rollback(ctx context.Context) error
}

// UnitOfWorkFactory begins new units of work.
type UnitOfWorkFactory interface {
	// Begin starts a new transaction.
	Begin(ctx context.Context) (UnitOfWork, error)
}

// runInUnit executes fn inside a unit of work, committing on success and
// rolling back on error or panic.
func runInUnit(ctx context.Context, factory UnitOfWorkFactory, fn func(uow UnitOfWork) error) error {
	uow, err := factory.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(uow); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}

	return uow.Commit(ctx)
}

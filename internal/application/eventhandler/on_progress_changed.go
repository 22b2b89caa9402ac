// Package eventhandler contains handlers for domain events.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER (Certificate Issuer)
//
// Consumes ProgressChanged synchronously, inside the same transaction that
// updated the progress record. Fires the completion workflow only on the
// threshold crossing (old < 90 && new >= 90) and checks for an existing
// Completion certificate before inserting, so issuance is exactly-once per
// pair: repeated updates that keep the percentage at or above the threshold
// never produce a second certificate.
// ══════════════════════════════════════════════════════════════════════════════

// CertificateIssuerConfig contains configuration for the issuer.
type CertificateIssuerConfig struct {
	// CertificateBaseURL is the public base URL for certificate references,
	// e.g. "https://certificates.academica.example".
	CertificateBaseURL string
}

// DefaultCertificateIssuerConfig returns defaults for local development.
func DefaultCertificateIssuerConfig() CertificateIssuerConfig {
	return CertificateIssuerConfig{
		CertificateBaseURL: "https://certificates.localhost",
	}
}

// CertificateIssuer reacts to completion-percentage transitions.
type CertificateIssuer struct {
	config CertificateIssuerConfig
	logger *slog.Logger
}

// NewCertificateIssuer creates a new CertificateIssuer.
func NewCertificateIssuer(config CertificateIssuerConfig, logger *slog.Logger) *CertificateIssuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateIssuer{config: config, logger: logger}
}

// OnProgressChanged runs the completion workflow for one progress transition.
// It must be called with the transaction-scoped certificate repository of the
// unit of work that produced the event, so the insert commits or aborts
// together with the progress update.
//
// Returns the issued certificate, or nil when nothing was issued (no
// crossing, or a Completion certificate already exists).
func (ci *CertificateIssuer) OnProgressChanged(
	ctx context.Context,
	certs certificate.Repository,
	event shared.ProgressChangedEvent,
) (*certificate.Certificate, error) {
	oldPct := shared.Percentage(event.OldPercentage)
	newPct := shared.Percentage(event.NewPercentage)

	if !progress.Crossed(oldPct, newPct) {
		return nil, nil
	}

	pair, err := shared.NewPair(event.StudentID, event.CourseID)
	if err != nil {
		return nil, err
	}

	// Idempotency check before insert. Pair-level serialization upstream
	// prevents two concurrent updates from both passing this check.
	exists, err := certs.Exists(ctx, pair, certificate.TypeCompletion)
	if err != nil {
		return nil, err
	}
	if exists {
		ci.logger.Debug("completion certificate already issued",
			"student_id", event.StudentID,
			"course_id", event.CourseID,
		)
		return nil, nil
	}

	cert, err := certificate.New(pair, certificate.TypeCompletion, time.Now().UTC(), ci.config.CertificateBaseURL)
	if err != nil {
		return nil, err
	}

	if err := certs.Create(ctx, cert); err != nil {
		// The storage-level uniqueness constraint is the backstop for the
		// idempotency check; a conflict here means the certificate exists.
		if shared.IsConflict(err) {
			return nil, nil
		}
		return nil, err
	}

	ci.logger.Info("completion certificate issued",
		"student_id", event.StudentID,
		"course_id", event.CourseID,
		"old_percentage", event.OldPercentage,
		"new_percentage", event.NewPercentage,
		"url", cert.URL,
	)

	return cert, nil
}

package command

import (
	"context"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATE COMMAND
// Manual issuance path for Excellence and Proficiency certificates, triggered
// by external academic decisions. The automatic Completion path belongs to
// the certificate issuer alone; this command refuses the completion type so
// the two paths cannot race each other's idempotency rules.
// ══════════════════════════════════════════════════════════════════════════════

// IssueCertificateCommand contains the data for a manual issuance.
type IssueCertificateCommand struct {
	// StudentID is the certificate recipient.
	StudentID string

	// CourseID is the course the certificate is for.
	CourseID string

	// Type is the certificate kind (excellence or proficiency).
	Type certificate.Type

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c IssueCertificateCommand) Validate() error {
	if _, err := shared.NewPair(c.StudentID, c.CourseID); err != nil {
		return err
	}
	if !c.Type.IsValid() {
		return shared.ErrInvalidCertType
	}
	if c.Type == certificate.TypeCompletion {
		return shared.NewDomainError("certificate", "Issue", shared.ErrInvalidInput,
			"completion certificates are issued automatically, not manually")
	}
	return nil
}

// IssueCertificateResult contains the outcome of a manual issuance.
type IssueCertificateResult struct {
	// Certificate is the issued record, or the pre-existing one when the
	// command was a no-op.
	Certificate *certificate.Certificate

	// Issued indicates whether a new record was created.
	Issued bool

	// Events contains domain events published after commit.
	Events []shared.Event
}

// IssueCertificateHandler processes IssueCertificateCommand.
type IssueCertificateHandler struct {
	uowFactory UnitOfWorkFactory
	baseURL    string
	eventBus   shared.EventPublisher
	logger     *slog.Logger
}

// NewIssueCertificateHandler creates a new IssueCertificateHandler.
func NewIssueCertificateHandler(
	uowFactory UnitOfWorkFactory,
	certificateBaseURL string,
	eventBus shared.EventPublisher,
	logger *slog.Logger,
) *IssueCertificateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueCertificateHandler{
		uowFactory: uowFactory,
		baseURL:    certificateBaseURL,
		eventBus:   eventBus,
		logger:     logger,
	}
}

// Handle issues the certificate. Issuing the same type twice for one pair is
// a no-op that returns the existing record.
func (h *IssueCertificateHandler) Handle(ctx context.Context, cmd IssueCertificateCommand) (*IssueCertificateResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	pair, _ := shared.NewPair(cmd.StudentID, cmd.CourseID)

	result := &IssueCertificateResult{}

	err := runInUnit(ctx, h.uowFactory, func(uow UnitOfWork) error {
		existing, err := uow.Certificates().Get(ctx, pair, cmd.Type)
		if err == nil {
			result.Certificate = existing
			return nil
		}
		if !shared.IsNotFound(err) {
			return err
		}

		cert, err := certificate.New(pair, cmd.Type, time.Now().UTC(), h.baseURL)
		if err != nil {
			return err
		}
		if err := uow.Certificates().Create(ctx, cert); err != nil {
			return err
		}

		result.Certificate = cert
		result.Issued = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Issued {
		cert := result.Certificate
		event := shared.NewCertificateIssuedEvent(
			cert.ID, cert.StudentID.String(), cert.CourseID.String(),
			cert.Type.String(), cert.URL, cert.IssuedAt,
		)
		event.CorrelationID = cmd.CorrelationID
		result.Events = append(result.Events, event)
		h.publish(event)

		h.logger.Info("certificate issued manually",
			"student_id", cmd.StudentID,
			"course_id", cmd.CourseID,
			"type", cmd.Type.String(),
		)
	}

	return result, nil
}

func (h *IssueCertificateHandler) publish(event shared.Event) {
	if h.eventBus == nil {
		return
	}
	if err := h.eventBus.Publish(event); err != nil {
		h.logger.Warn("failed to publish event",
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

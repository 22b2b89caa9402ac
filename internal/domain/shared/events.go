// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the reactive parts of the engine.
// Each event represents something significant that happened in the domain.
const (
	// Enrollment events
	EventEnrollmentCreated   EventType = "enrollment.created"
	EventEnrollmentWithdrawn EventType = "enrollment.withdrawn"

	// Progress events
	EventProgressChanged       EventType = "progress.changed"
	EventLessonCompleted       EventType = "progress.lesson_completed"
	EventAssignmentSubmitted   EventType = "progress.assignment_submitted"
	EventCourseTotalsRefreshed EventType = "progress.totals_refreshed"

	// Certificate events
	EventCertificateIssued EventType = "certificate.issued"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	// For this engine the aggregate is the (student, course) pair.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// PairKey builds the aggregate ID for a (student, course) pair.
func PairKey(studentID, courseID string) string {
	return studentID + ":" + courseID
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentCreatedEvent is emitted when a student enrolls in a course.
type EnrollmentCreatedEvent struct {
	BaseEvent
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Payload implements Event interface.
func (e EnrollmentCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"course_id":   e.CourseID,
		"enrolled_at": e.EnrolledAt.Format(time.RFC3339),
	}
}

// NewEnrollmentCreatedEvent creates a new EnrollmentCreatedEvent.
func NewEnrollmentCreatedEvent(studentID, courseID string, enrolledAt time.Time) EnrollmentCreatedEvent {
	return EnrollmentCreatedEvent{
		BaseEvent:  NewBaseEvent(EventEnrollmentCreated, PairKey(studentID, courseID)),
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: enrolledAt,
	}
}

// EnrollmentWithdrawnEvent is emitted after a withdrawal commits. It carries
// the refund figures so the revenue/reporting collaborators can post the
// matching refund-liability entry.
type EnrollmentWithdrawnEvent struct {
	BaseEvent
	StudentID        string `json:"student_id"`
	CourseID         string `json:"course_id"`
	Reason           string `json:"reason"`
	CompletedDays    int    `json:"completed_days"`
	RefundPercentage int    `json:"refund_percentage"`
	RefundAmount     string `json:"refund_amount"`
	DropoutRecordID  string `json:"dropout_record_id"`
}

// Payload implements Event interface.
func (e EnrollmentWithdrawnEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":        e.StudentID,
		"course_id":         e.CourseID,
		"reason":            e.Reason,
		"completed_days":    e.CompletedDays,
		"refund_percentage": e.RefundPercentage,
		"refund_amount":     e.RefundAmount,
		"dropout_record_id": e.DropoutRecordID,
	}
}

// NewEnrollmentWithdrawnEvent creates a new EnrollmentWithdrawnEvent.
func NewEnrollmentWithdrawnEvent(studentID, courseID, reason string, completedDays, refundPct int, refundAmount, recordID string) EnrollmentWithdrawnEvent {
	return EnrollmentWithdrawnEvent{
		BaseEvent:        NewBaseEvent(EventEnrollmentWithdrawn, PairKey(studentID, courseID)),
		StudentID:        studentID,
		CourseID:         courseID,
		Reason:           reason,
		CompletedDays:    completedDays,
		RefundPercentage: refundPct,
		RefundAmount:     refundAmount,
		DropoutRecordID:  recordID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ProgressChangedEvent is emitted whenever a progress record's derived
// percentage is recomputed. It carries both the old and the new percentage so
// consumers can detect threshold crossings rather than absolute states.
type ProgressChangedEvent struct {
	BaseEvent
	StudentID     string  `json:"student_id"`
	CourseID      string  `json:"course_id"`
	OldPercentage float64 `json:"old_percentage"`
	NewPercentage float64 `json:"new_percentage"`
}

// Payload implements Event interface.
func (e ProgressChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":     e.StudentID,
		"course_id":      e.CourseID,
		"old_percentage": e.OldPercentage,
		"new_percentage": e.NewPercentage,
	}
}

// NewProgressChangedEvent creates a new ProgressChangedEvent.
func NewProgressChangedEvent(studentID, courseID string, oldPct, newPct float64) ProgressChangedEvent {
	return ProgressChangedEvent{
		BaseEvent:     NewBaseEvent(EventProgressChanged, PairKey(studentID, courseID)),
		StudentID:     studentID,
		CourseID:      courseID,
		OldPercentage: oldPct,
		NewPercentage: newPct,
	}
}

// ItemRecordedEvent is emitted when a lesson completion or assignment
// submission enters the completion set for the first time. Re-deliveries of
// an already-recorded item emit nothing.
type ItemRecordedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	ItemID    string `json:"item_id"`
}

// Payload implements Event interface.
func (e ItemRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
		"item_id":    e.ItemID,
	}
}

// NewLessonCompletedEvent creates the ItemRecordedEvent for a completed lesson.
func NewLessonCompletedEvent(studentID, courseID, itemID string) ItemRecordedEvent {
	return ItemRecordedEvent{
		BaseEvent: NewBaseEvent(EventLessonCompleted, PairKey(studentID, courseID)),
		StudentID: studentID,
		CourseID:  courseID,
		ItemID:    itemID,
	}
}

// NewAssignmentSubmittedEvent creates the ItemRecordedEvent for a submitted
// assignment.
func NewAssignmentSubmittedEvent(studentID, courseID, itemID string) ItemRecordedEvent {
	return ItemRecordedEvent{
		BaseEvent: NewBaseEvent(EventAssignmentSubmitted, PairKey(studentID, courseID)),
		StudentID: studentID,
		CourseID:  courseID,
		ItemID:    itemID,
	}
}

// CourseTotalsRefreshedEvent is emitted when a reconciliation run rewrites a
// pair's stored lesson and assignment totals. Cache layers key off it even
// when the derived percentage happens not to move.
type CourseTotalsRefreshedEvent struct {
	BaseEvent
	StudentID        string `json:"student_id"`
	CourseID         string `json:"course_id"`
	TotalLessons     int    `json:"total_lessons"`
	TotalAssignments int    `json:"total_assignments"`
}

// Payload implements Event interface.
func (e CourseTotalsRefreshedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":        e.StudentID,
		"course_id":         e.CourseID,
		"total_lessons":     e.TotalLessons,
		"total_assignments": e.TotalAssignments,
	}
}

// NewCourseTotalsRefreshedEvent creates a new CourseTotalsRefreshedEvent.
func NewCourseTotalsRefreshedEvent(studentID, courseID string, totalLessons, totalAssignments int) CourseTotalsRefreshedEvent {
	return CourseTotalsRefreshedEvent{
		BaseEvent:        NewBaseEvent(EventCourseTotalsRefreshed, PairKey(studentID, courseID)),
		StudentID:        studentID,
		CourseID:         courseID,
		TotalLessons:     totalLessons,
		TotalAssignments: totalAssignments,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certificate Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateIssuedEvent is emitted when a certificate record is created.
// Consumed by the notification collaborator for delivery.
type CertificateIssuedEvent struct {
	BaseEvent
	CertificateID string    `json:"certificate_id"`
	StudentID     string    `json:"student_id"`
	CourseID      string    `json:"course_id"`
	CertType      string    `json:"cert_type"`
	URL           string    `json:"url"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Payload implements Event interface.
func (e CertificateIssuedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certificate_id": e.CertificateID,
		"student_id":     e.StudentID,
		"course_id":      e.CourseID,
		"cert_type":      e.CertType,
		"url":            e.URL,
		"issued_at":      e.IssuedAt.Format(time.RFC3339),
	}
}

// NewCertificateIssuedEvent creates a new CertificateIssuedEvent.
func NewCertificateIssuedEvent(certID, studentID, courseID, certType, url string, issuedAt time.Time) CertificateIssuedEvent {
	return CertificateIssuedEvent{
		BaseEvent:     NewBaseEvent(EventCertificateIssued, PairKey(studentID, courseID)),
		CertificateID: certID,
		StudentID:     studentID,
		CourseID:      courseID,
		CertType:      certType,
		URL:           url,
		IssuedAt:      issuedAt,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// withdrawFixture enrolls the test pair at a fixed date and returns the wired
// withdraw handler plus collaborators.
func withdrawFixture(t *testing.T, enrolledAt time.Time) (*WithdrawHandler, *fakeUoWFactory, *captureBus) {
	t.Helper()
	factory := newFakeUoWFactory()
	bus := &captureBus{}
	cat := testCatalog()

	enrollHandler := NewEnrollHandler(factory, cat, nil, nil)
	_, err := enrollHandler.Handle(context.Background(), EnrollCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		EnrolledAt: enrolledAt,
	})
	require.NoError(t, err)

	return NewWithdrawHandler(factory, cat, bus, nil), factory, bus
}

func TestWithdrawHandler_Handle(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler, factory, bus := withdrawFixture(t, enrolledAt)

	result, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		Reason:      "schedule conflict",
		ProcessedAt: enrolledAt.AddDate(0, 0, 30), // day 30 of 180
	})
	require.NoError(t, err)

	rec := result.Record
	assert.Equal(t, 30, rec.CompletedDuration)
	assert.Equal(t, 90, rec.RefundPercentage)
	assert.Equal(t, "900.00", rec.RefundAmount.String())
	assert.Equal(t, "schedule conflict", rec.Reason)

	// The enrollment, its progress, and its membership are gone; the audit
	// record is the only trace left.
	assert.Empty(t, factory.store.enrollments)
	assert.Empty(t, factory.store.records)
	assert.Empty(t, factory.store.items)
	assert.Len(t, factory.store.dropouts, 1)

	assert.Equal(t, []shared.EventType{shared.EventEnrollmentWithdrawn}, bus.types())
}

func TestWithdrawHandler_Handle_RefundTiers(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		wantPct int
	}{
		{"first quarter", 40, 90},
		{"second quarter", 80, 50},
		{"third quarter", 120, 25},
		{"final quarter", 170, 0},
	}

	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := withdrawFixture(t, enrolledAt)

			result, err := handler.Handle(context.Background(), WithdrawCommand{
				StudentID:   testStudentID,
				CourseID:    testCourseID,
				Reason:      "test",
				ProcessedAt: enrolledAt.AddDate(0, 0, tt.days),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPct, result.Record.RefundPercentage)
		})
	}
}

func TestWithdrawHandler_Handle_NotEnrolled(t *testing.T) {
	factory := newFakeUoWFactory()
	handler := NewWithdrawHandler(factory, testCatalog(), nil, nil)

	_, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Reason:    "test",
	})
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
}

func TestWithdrawHandler_Handle_SecondWithdrawalFails(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler, factory, _ := withdrawFixture(t, enrolledAt)

	cmd := WithdrawCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		Reason:      "test",
		ProcessedAt: enrolledAt.AddDate(0, 0, 10),
	}

	_, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	// The enrollment row is gone, so a repeat withdrawal has nothing to lock.
	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrNotEnrolled)
	assert.Len(t, factory.store.dropouts, 1)
}

func TestWithdrawHandler_Handle_ReasonRequired(t *testing.T) {
	handler, _, _ := withdrawFixture(t, time.Now().UTC())

	_, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
	})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestWithdrawHandler_Handle_AuditWriteFailureKeepsEnrollment(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler, factory, bus := withdrawFixture(t, enrolledAt)

	boom := errors.New("disk full")
	factory.store.failDropoutCreate = boom

	_, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		Reason:      "test",
		ProcessedAt: enrolledAt.AddDate(0, 0, 10),
	})
	assert.ErrorIs(t, err, boom)

	// The unit aborted before touching the enrollment: no partial state and
	// no event.
	assert.Len(t, factory.store.enrollments, 1)
	assert.Empty(t, factory.store.dropouts)
	assert.Empty(t, bus.types())
}

func TestWithdrawHandler_Handle_FailureAfterAuditWriteRollsBack(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler, factory, bus := withdrawFixture(t, enrolledAt)

	boom := errors.New("connection reset")
	factory.store.failProgressDelete = boom

	_, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		Reason:      "test",
		ProcessedAt: enrolledAt.AddDate(0, 0, 10),
	})
	require.ErrorIs(t, err, boom)

	// The audit record was written before the failure, but the unit rolled
	// back: the record is gone and the enrollment untouched.
	assert.Empty(t, factory.store.dropouts)
	assert.Len(t, factory.store.enrollments, 1)
	assert.Len(t, factory.store.records, 1)
	assert.Empty(t, bus.types())
	assert.Equal(t, 1, factory.commits) // the enroll in the fixture
	assert.Equal(t, 1, factory.rollbacks)
}

func TestWithdrawHandler_Handle_CommitFailureLeavesStoreUntouched(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	handler, factory, bus := withdrawFixture(t, enrolledAt)

	boom := errors.New("serialization failure")
	factory.commitErr = boom

	_, err := handler.Handle(context.Background(), WithdrawCommand{
		StudentID:   testStudentID,
		CourseID:    testCourseID,
		Reason:      "test",
		ProcessedAt: enrolledAt.AddDate(0, 0, 10),
	})
	require.ErrorIs(t, err, boom)

	assert.Empty(t, factory.store.dropouts)
	assert.Len(t, factory.store.enrollments, 1)
	assert.Len(t, factory.store.records, 1)
	assert.Empty(t, bus.types())
}

func TestWithdrawHandler_Handle_CatalogFailureAborts(t *testing.T) {
	enrolledAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	factory := newFakeUoWFactory()

	enrollHandler := NewEnrollHandler(factory, testCatalog(), nil, nil)
	_, err := enrollHandler.Handle(context.Background(), EnrollCommand{
		StudentID:  testStudentID,
		CourseID:   testCourseID,
		EnrolledAt: enrolledAt,
	})
	require.NoError(t, err)

	handler := NewWithdrawHandler(factory, &stubCatalog{err: shared.ErrCatalogUnavailable}, nil, nil)

	_, err = handler.Handle(context.Background(), WithdrawCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Reason:    "test",
	})
	assert.ErrorIs(t, err, shared.ErrCatalogUnavailable)
	assert.Len(t, factory.store.enrollments, 1)
	assert.Empty(t, factory.store.dropouts)
}

package command

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

func TestSyncCourseTotalsHandler_Handle(t *testing.T) {
	factory := newFakeUoWFactory()
	cat := testCatalog()
	ctx := context.Background()

	enrollHandler := NewEnrollHandler(factory, cat, nil, nil)
	_, err := enrollHandler.Handle(ctx, EnrollCommand{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)

	// Student finishes 9 of 10 lessons: 90 percent, certificate issued.
	progressHandler := NewRecordProgressHandler(factory, testIssuer(), nil, nil)
	for i := 1; i <= 9; i++ {
		_, err := progressHandler.RecordLessonCompletion(ctx, RecordProgressCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			ItemID:    fmt.Sprintf("lesson-%d", i),
		})
		require.NoError(t, err)
	}
	require.Len(t, factory.store.certificates, 1)

	// The catalog grows the course to 20 lessons; stored totals are stale.
	info := cat.courses[shared.CourseID(testCourseID)]
	info.TotalLessons = 20
	cat.courses[shared.CourseID(testCourseID)] = info

	bus := &captureBus{}
	handler := NewSyncCourseTotalsHandler(factory, cat, testIssuer(), bus, nil)
	result, err := handler.Handle(ctx, SyncCourseTotalsCommand{CourseID: testCourseID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PairsChecked)
	assert.Equal(t, 1, result.PairsUpdated)
	assert.Equal(t, 0, result.CertificatesIssued)

	rec, err := memProgressRepo{s: factory.store}.Get(ctx, mustTestPair(t))
	require.NoError(t, err)
	assert.Equal(t, 20, rec.TotalLessons)
	assert.Equal(t, 45.0, rec.Percentage.Float64())

	// The refresh announces both the totals rewrite and the percentage move.
	assert.Equal(t, []shared.EventType{
		shared.EventCourseTotalsRefreshed,
		shared.EventProgressChanged,
	}, bus.types())
}

func TestSyncCourseTotalsHandler_Handle_CrossingIssuesCertificate(t *testing.T) {
	factory := newFakeUoWFactory()
	cat := testCatalog()
	ctx := context.Background()

	// Enroll against a 12-lesson course and complete 9: 75 percent.
	info := cat.courses[shared.CourseID(testCourseID)]
	info.TotalLessons = 12
	cat.courses[shared.CourseID(testCourseID)] = info

	enrollHandler := NewEnrollHandler(factory, cat, nil, nil)
	_, err := enrollHandler.Handle(ctx, EnrollCommand{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)

	progressHandler := NewRecordProgressHandler(factory, testIssuer(), nil, nil)
	for i := 1; i <= 9; i++ {
		_, err := progressHandler.RecordLessonCompletion(ctx, RecordProgressCommand{
			StudentID: testStudentID,
			CourseID:  testCourseID,
			ItemID:    fmt.Sprintf("lesson-%d", i),
		})
		require.NoError(t, err)
	}
	require.Empty(t, factory.store.certificates)

	// The catalog shrinks the course to 10 lessons: the same 9 completions
	// now cross the threshold, and the sync run issues the certificate.
	info.TotalLessons = 10
	cat.courses[shared.CourseID(testCourseID)] = info

	handler := NewSyncCourseTotalsHandler(factory, cat, testIssuer(), nil, nil)
	result, err := handler.Handle(ctx, SyncCourseTotalsCommand{CourseID: testCourseID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PairsUpdated)
	assert.Equal(t, 1, result.CertificatesIssued)
	assert.Len(t, factory.store.certificates, 1)
}

func TestSyncCourseTotalsHandler_Handle_UnchangedTotalsAreSkipped(t *testing.T) {
	factory := newFakeUoWFactory()
	cat := testCatalog()
	ctx := context.Background()

	enrollHandler := NewEnrollHandler(factory, cat, nil, nil)
	_, err := enrollHandler.Handle(ctx, EnrollCommand{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)

	handler := NewSyncCourseTotalsHandler(factory, cat, testIssuer(), nil, nil)
	result, err := handler.Handle(ctx, SyncCourseTotalsCommand{CourseID: testCourseID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PairsChecked)
	assert.Equal(t, 0, result.PairsUpdated)
	assert.Equal(t, 0, result.CertificatesIssued)
}

func TestSyncCourseTotalsHandler_Handle_UnchangedPercentageStillAnnouncesTotals(t *testing.T) {
	factory := newFakeUoWFactory()
	cat := testCatalog()
	ctx := context.Background()

	enrollHandler := NewEnrollHandler(factory, cat, nil, nil)
	_, err := enrollHandler.Handle(ctx, EnrollCommand{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)

	// No completions yet: growing the course leaves the percentage at zero,
	// but the stored totals still change and caches must hear about it.
	info := cat.courses[shared.CourseID(testCourseID)]
	info.TotalLessons = 20
	cat.courses[shared.CourseID(testCourseID)] = info

	bus := &captureBus{}
	handler := NewSyncCourseTotalsHandler(factory, cat, testIssuer(), bus, nil)
	result, err := handler.Handle(ctx, SyncCourseTotalsCommand{CourseID: testCourseID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.PairsUpdated)
	assert.Equal(t, []shared.EventType{shared.EventCourseTotalsRefreshed}, bus.types())
}

func TestSyncCourseTotalsHandler_Handle_CatalogFailure(t *testing.T) {
	factory := newFakeUoWFactory()
	handler := NewSyncCourseTotalsHandler(factory, &stubCatalog{err: shared.ErrCatalogUnavailable}, testIssuer(), nil, nil)

	_, err := handler.Handle(context.Background(), SyncCourseTotalsCommand{CourseID: testCourseID})
	assert.ErrorIs(t, err, shared.ErrCatalogUnavailable)
}

func mustTestPair(t *testing.T) shared.Pair {
	t.Helper()
	pair, err := shared.NewPair(testStudentID, testCourseID)
	require.NoError(t, err)
	return pair
}

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/semester"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

type fakePolicyRepo struct {
	policies []semester.Prerequisite
}

func (r *fakePolicyRepo) LoadAll(ctx context.Context) ([]semester.Prerequisite, error) {
	return r.policies, nil
}

func (r *fakePolicyRepo) Find(ctx context.Context, courseID shared.CourseID, currentSemester int) (semester.Prerequisite, error) {
	for _, p := range r.policies {
		if p.CourseID == courseID && p.CurrentSemester == currentSemester {
			return p, nil
		}
	}
	return semester.Prerequisite{}, shared.ErrNoPolicyDefined
}

func testPolicyRepo() *fakePolicyRepo {
	courseID, _ := shared.NewCourseID(testCourseID)
	return &fakePolicyRepo{policies: []semester.Prerequisite{
		{
			CourseID:           courseID,
			CurrentSemester:    2,
			NextSemester:       3,
			MinCreditsRequired: 30,
			MinGPARequired:     2.5,
		},
	}}
}

func TestCanAdvance_Allowed(t *testing.T) {
	h := NewCanAdvanceHandler(testPolicyRepo(), quietLogger())

	result, err := h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        testCourseID,
		CurrentSemester: 2,
		StudentCredits:  45,
		StudentGPA:      3.2,
	})
	require.NoError(t, err)

	assert.True(t, result.Allowed)
	assert.Equal(t, 3, result.NextSemester)
	assert.Equal(t, 30, result.MinCreditsRequired)
	assert.Equal(t, 2.5, result.MinGPARequired)
}

func TestCanAdvance_ExactFloorsPass(t *testing.T) {
	h := NewCanAdvanceHandler(testPolicyRepo(), quietLogger())

	result, err := h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        testCourseID,
		CurrentSemester: 2,
		StudentCredits:  30,
		StudentGPA:      2.5,
	})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestCanAdvance_Denied(t *testing.T) {
	tests := []struct {
		name    string
		credits int
		gpa     float64
	}{
		{"credits below floor", 29, 3.5},
		{"gpa below floor", 60, 2.49},
		{"both below floor", 10, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCanAdvanceHandler(testPolicyRepo(), quietLogger())

			result, err := h.Handle(context.Background(), CanAdvanceQuery{
				CourseID:        testCourseID,
				CurrentSemester: 2,
				StudentCredits:  tt.credits,
				StudentGPA:      tt.gpa,
			})
			require.NoError(t, err)
			assert.False(t, result.Allowed)
		})
	}
}

func TestCanAdvance_MissingPolicyIsAnError(t *testing.T) {
	h := NewCanAdvanceHandler(testPolicyRepo(), quietLogger())

	// No row for semester 5: the gate must refuse to decide, not default.
	_, err := h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        testCourseID,
		CurrentSemester: 5,
		StudentCredits:  100,
		StudentGPA:      4.0,
	})
	assert.ErrorIs(t, err, shared.ErrNoPolicyDefined)
}

func TestCanAdvance_Validation(t *testing.T) {
	h := NewCanAdvanceHandler(testPolicyRepo(), quietLogger())

	_, err := h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        "not-a-course",
		CurrentSemester: 2,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidID)

	_, err = h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        testCourseID,
		CurrentSemester: 0,
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = h.Handle(context.Background(), CanAdvanceQuery{
		CourseID:        testCourseID,
		CurrentSemester: 2,
		StudentCredits:  -1,
	})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

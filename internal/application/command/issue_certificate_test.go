package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

func TestIssueCertificateHandler_Handle(t *testing.T) {
	factory := newFakeUoWFactory()
	bus := &captureBus{}
	handler := NewIssueCertificateHandler(factory, "https://certs.example.com", bus, nil)

	result, err := handler.Handle(context.Background(), IssueCertificateCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Type:      certificate.TypeExcellence,
	})
	require.NoError(t, err)

	assert.True(t, result.Issued)
	assert.Equal(t, certificate.TypeExcellence, result.Certificate.Type)
	assert.Contains(t, result.Certificate.URL, "/certificates/excellence/")
	assert.Equal(t, []shared.EventType{shared.EventCertificateIssued}, bus.types())
}

func TestIssueCertificateHandler_Handle_Idempotent(t *testing.T) {
	factory := newFakeUoWFactory()
	bus := &captureBus{}
	handler := NewIssueCertificateHandler(factory, "https://certs.example.com", bus, nil)

	cmd := IssueCertificateCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Type:      certificate.TypeProficiency,
	}

	first, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.True(t, first.Issued)

	second, err := handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	assert.False(t, second.Issued)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	assert.Len(t, factory.store.certificates, 1)
	assert.Len(t, bus.types(), 1) // only the first issuance published
}

func TestIssueCertificateHandler_Handle_DifferentTypesCoexist(t *testing.T) {
	factory := newFakeUoWFactory()
	handler := NewIssueCertificateHandler(factory, "https://certs.example.com", nil, nil)
	ctx := context.Background()

	_, err := handler.Handle(ctx, IssueCertificateCommand{
		StudentID: testStudentID, CourseID: testCourseID, Type: certificate.TypeExcellence,
	})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, IssueCertificateCommand{
		StudentID: testStudentID, CourseID: testCourseID, Type: certificate.TypeProficiency,
	})
	require.NoError(t, err)

	assert.True(t, result.Issued)
	assert.Len(t, factory.store.certificates, 2)
}

func TestIssueCertificateHandler_Handle_RefusesCompletionType(t *testing.T) {
	handler := NewIssueCertificateHandler(newFakeUoWFactory(), "https://certs.example.com", nil, nil)

	_, err := handler.Handle(context.Background(), IssueCertificateCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Type:      certificate.TypeCompletion,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestIssueCertificateHandler_Handle_InvalidType(t *testing.T) {
	handler := NewIssueCertificateHandler(newFakeUoWFactory(), "https://certs.example.com", nil, nil)

	_, err := handler.Handle(context.Background(), IssueCertificateCommand{
		StudentID: testStudentID,
		CourseID:  testCourseID,
		Type:      certificate.Type("honorary"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidCertType)
}

package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

const (
	testStudentID = "5f0c6b9a-22d5-4a7e-9c1a-3b8f4e2d6a01"
	testCourseID  = "c3a1b5d7-9e2f-4c6a-8b0d-2e4f6a8c0e12"
)

type fakeCertRepo struct {
	certs     map[string]*certificate.Certificate
	createErr error
	existsErr error
}

func newFakeCertRepo() *fakeCertRepo {
	return &fakeCertRepo{certs: make(map[string]*certificate.Certificate)}
}

func (r *fakeCertRepo) key(pair shared.Pair, certType certificate.Type) string {
	return pair.Key() + ":" + string(certType)
}

func (r *fakeCertRepo) Create(ctx context.Context, c *certificate.Certificate) error {
	if r.createErr != nil {
		return r.createErr
	}
	pair := shared.Pair{StudentID: c.StudentID, CourseID: c.CourseID}
	key := r.key(pair, c.Type)
	if _, ok := r.certs[key]; ok {
		return shared.NewDomainError("certificate", "Create", shared.ErrAlreadyExists, "duplicate")
	}
	r.certs[key] = c
	return nil
}

func (r *fakeCertRepo) Exists(ctx context.Context, pair shared.Pair, certType certificate.Type) (bool, error) {
	if r.existsErr != nil {
		return false, r.existsErr
	}
	_, ok := r.certs[r.key(pair, certType)]
	return ok, nil
}

func (r *fakeCertRepo) Get(ctx context.Context, pair shared.Pair, certType certificate.Type) (*certificate.Certificate, error) {
	c, ok := r.certs[r.key(pair, certType)]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	return c, nil
}

func (r *fakeCertRepo) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*certificate.Certificate, error) {
	var out []*certificate.Certificate
	for _, c := range r.certs {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func testIssuer() *CertificateIssuer {
	return NewCertificateIssuer(CertificateIssuerConfig{
		CertificateBaseURL: "https://certs.example.com",
	}, nil)
}

func changedEvent(oldPct, newPct float64) shared.ProgressChangedEvent {
	return shared.NewProgressChangedEvent(testStudentID, testCourseID, oldPct, newPct)
}

func TestCertificateIssuer_IssuesOnCrossing(t *testing.T) {
	repo := newFakeCertRepo()

	cert, err := testIssuer().OnProgressChanged(context.Background(), repo, changedEvent(80, 90))
	require.NoError(t, err)

	require.NotNil(t, cert)
	assert.Equal(t, certificate.TypeCompletion, cert.Type)
	assert.Equal(t, testStudentID, cert.StudentID.String())
	assert.Contains(t, cert.URL, "https://certs.example.com/certificates/completion/")
	assert.Len(t, repo.certs, 1)
}

func TestCertificateIssuer_NoCrossingNoCertificate(t *testing.T) {
	tests := []struct {
		name   string
		oldPct float64
		newPct float64
	}{
		{"stays below", 10, 50},
		{"lands just under", 85, 89.99},
		{"already above moves up", 90, 95},
		{"already above stays", 95, 95},
		{"drops below", 95, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeCertRepo()
			cert, err := testIssuer().OnProgressChanged(context.Background(), repo, changedEvent(tt.oldPct, tt.newPct))
			require.NoError(t, err)
			assert.Nil(t, cert)
			assert.Empty(t, repo.certs)
		})
	}
}

func TestCertificateIssuer_IdempotentAcrossCrossings(t *testing.T) {
	repo := newFakeCertRepo()
	issuer := testIssuer()
	ctx := context.Background()

	first, err := issuer.OnProgressChanged(ctx, repo, changedEvent(80, 95))
	require.NoError(t, err)
	require.NotNil(t, first)

	// A later drop and re-crossing must not produce a second certificate.
	second, err := issuer.OnProgressChanged(ctx, repo, changedEvent(85, 92))
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, repo.certs, 1)
}

func TestCertificateIssuer_ConflictOnInsertIsNotAnError(t *testing.T) {
	repo := newFakeCertRepo()
	repo.createErr = shared.NewDomainError("certificate", "Create", shared.ErrAlreadyExists, "duplicate")

	cert, err := testIssuer().OnProgressChanged(context.Background(), repo, changedEvent(0, 100))
	require.NoError(t, err)
	assert.Nil(t, cert)
}

func TestCertificateIssuer_StorageErrorPropagates(t *testing.T) {
	repo := newFakeCertRepo()
	boom := errors.New("connection reset")
	repo.existsErr = boom

	_, err := testIssuer().OnProgressChanged(context.Background(), repo, changedEvent(0, 100))
	assert.ErrorIs(t, err, boom)
}

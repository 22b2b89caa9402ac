package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

func testPair(t *testing.T) shared.Pair {
	t.Helper()
	pair, err := shared.NewPair("5f0c6b9a-22d5-4a7e-9c1a-3b8f4e2d6a01", "c3a1b5d7-9e2f-4c6a-8b0d-2e4f6a8c0e12")
	require.NoError(t, err)
	return pair
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeCompletion.IsValid())
	assert.True(t, TypeExcellence.IsValid())
	assert.True(t, TypeProficiency.IsValid())

	assert.False(t, Type("").IsValid())
	assert.False(t, Type("participation").IsValid())
	assert.False(t, Type("Completion").IsValid())
}

func TestNew(t *testing.T) {
	issuedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cert, err := New(testPair(t), TypeCompletion, issuedAt, "https://certs.example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, cert.ID)
	assert.Equal(t, "5f0c6b9a-22d5-4a7e-9c1a-3b8f4e2d6a01", cert.StudentID.String())
	assert.Equal(t, "c3a1b5d7-9e2f-4c6a-8b0d-2e4f6a8c0e12", cert.CourseID.String())
	assert.Equal(t, TypeCompletion, cert.Type)
	assert.Equal(t, issuedAt, cert.IssuedAt)
	assert.True(t, strings.HasPrefix(cert.URL, "https://certs.example.com/certificates/completion/"))
}

func TestNew_InvalidType(t *testing.T) {
	_, err := New(testPair(t), Type("honorary"), time.Now(), "https://certs.example.com")
	assert.ErrorIs(t, err, shared.ErrInvalidCertType)
}

func TestNew_ZeroIssuedAtDefaultsToNow(t *testing.T) {
	cert, err := New(testPair(t), TypeExcellence, time.Time{}, "https://certs.example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), cert.IssuedAt, 5*time.Second)
}

func TestReferenceURL_Deterministic(t *testing.T) {
	pair := testPair(t)
	issuedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	first := ReferenceURL("https://certs.example.com", pair, TypeCompletion, issuedAt)
	second := ReferenceURL("https://certs.example.com", pair, TypeCompletion, issuedAt)
	assert.Equal(t, first, second)
}

func TestReferenceDigest_SensitiveToEveryInput(t *testing.T) {
	pair := testPair(t)
	issuedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	base := ReferenceDigest(pair, TypeCompletion, issuedAt)

	otherStudent, err := shared.NewPair("7d2e4f6a-8b3c-4d5e-9f0a-1b2c3d4e5f60", "c3a1b5d7-9e2f-4c6a-8b0d-2e4f6a8c0e12")
	require.NoError(t, err)
	assert.NotEqual(t, base, ReferenceDigest(otherStudent, TypeCompletion, issuedAt))

	otherCourse, err := shared.NewPair("5f0c6b9a-22d5-4a7e-9c1a-3b8f4e2d6a01", "d4b2c6e8-0f3a-4d7b-9c1e-3f5a7b9d1f23")
	require.NoError(t, err)
	assert.NotEqual(t, base, ReferenceDigest(otherCourse, TypeCompletion, issuedAt))

	assert.NotEqual(t, base, ReferenceDigest(pair, TypeExcellence, issuedAt))
	assert.NotEqual(t, base, ReferenceDigest(pair, TypeCompletion, issuedAt.Add(time.Second)))
}

func TestReferenceDigest_Format(t *testing.T) {
	digest := ReferenceDigest(testPair(t), TypeCompletion, time.Now())

	// Truncated SHA3-256, 16 bytes hex encoded.
	assert.Len(t, digest, 32)
	assert.Regexp(t, "^[0-9a-f]+$", digest)
}

func TestReferenceDigest_FieldBoundaries(t *testing.T) {
	// The separator between hashed fields must prevent ambiguous
	// concatenations from colliding.
	a := shared.Pair{StudentID: "ab", CourseID: "c"}
	b := shared.Pair{StudentID: "a", CourseID: "bc"}

	issuedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.NotEqual(t, ReferenceDigest(a, TypeCompletion, issuedAt), ReferenceDigest(b, TypeCompletion, issuedAt))
}

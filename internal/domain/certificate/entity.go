// Package certificate contains certificate records and the reference URL
// scheme. The automatic Completion certificate is issued reactively on the
// completion-threshold crossing; Excellence and Proficiency are issued by
// separate, externally-triggered decisions through the same storage.
package certificate

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Type is the kind of certificate.
type Type string

const (
	// TypeCompletion is issued automatically on the completion crossing.
	TypeCompletion Type = "completion"

	// TypeExcellence is issued by an external academic decision.
	TypeExcellence Type = "excellence"

	// TypeProficiency is issued by an external academic decision.
	TypeProficiency Type = "proficiency"
)

// IsValid checks whether the type is one of the known kinds.
func (t Type) IsValid() bool {
	switch t {
	case TypeCompletion, TypeExcellence, TypeProficiency:
		return true
	}
	return false
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// Certificate is one issued certificate record. At most one record exists per
// (student, course, type); the automatic path additionally fires at most once
// per pair.
type Certificate struct {
	// ID is the internal record identifier.
	ID string

	// StudentID identifies the student.
	StudentID shared.StudentID

	// CourseID identifies the course.
	CourseID shared.CourseID

	// Type is the certificate kind.
	Type Type

	// IssuedAt is the issuance time.
	IssuedAt time.Time

	// URL is the deterministic, collision-resistant reference for display
	// and verification surfaces.
	URL string
}

// New creates a certificate record with its reference URL.
func New(pair shared.Pair, certType Type, issuedAt time.Time, baseURL string) (*Certificate, error) {
	if !certType.IsValid() {
		return nil, shared.ErrInvalidCertType
	}
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	issuedAt = issuedAt.UTC()

	return &Certificate{
		ID:        uuid.NewString(),
		StudentID: pair.StudentID,
		CourseID:  pair.CourseID,
		Type:      certType,
		IssuedAt:  issuedAt,
		URL:       ReferenceURL(baseURL, pair, certType, issuedAt),
	}, nil
}

// ReferenceURL builds the deterministic certificate reference. The digest
// covers student, course, type, and issuance time, so two certificates can
// only collide if every input is identical.
func ReferenceURL(baseURL string, pair shared.Pair, certType Type, issuedAt time.Time) string {
	digest := ReferenceDigest(pair, certType, issuedAt)
	return fmt.Sprintf("%s/certificates/%s/%s", baseURL, certType, digest)
}

// ReferenceDigest returns the truncated hex SHA3-256 digest of a
// certificate's identifying inputs.
func ReferenceDigest(pair shared.Pair, certType Type, issuedAt time.Time) string {
	h := sha3.New256()
	h.Write([]byte(pair.StudentID.String()))
	h.Write([]byte{0})
	h.Write([]byte(pair.CourseID.String()))
	h.Write([]byte{0})
	h.Write([]byte(certType))
	h.Write([]byte{0})
	h.Write([]byte(issuedAt.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

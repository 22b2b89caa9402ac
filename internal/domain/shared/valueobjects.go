// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents an opaque student identifier resolved by the identity
// collaborator. The engine trusts it as valid but requires UUID shape.
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	s := StudentID(strings.TrimSpace(id))
	if !s.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "student ID must be a UUID")
	}
	return s, nil
}

// CourseID represents a course identifier supplied by the catalog collaborator.
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	c := CourseID(strings.TrimSpace(id))
	if !c.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "course ID must be a UUID")
	}
	return c, nil
}

// Pair identifies the unit of isolation for all engine operations:
// a (student, course) combination.
type Pair struct {
	StudentID StudentID
	CourseID  CourseID
}

// NewPair creates a validated pair.
func NewPair(studentID, courseID string) (Pair, error) {
	s, err := NewStudentID(studentID)
	if err != nil {
		return Pair{}, err
	}
	c, err := NewCourseID(courseID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{StudentID: s, CourseID: c}, nil
}

// Key returns the canonical string key for the pair.
func (p Pair) Key() string {
	return PairKey(p.StudentID.String(), p.CourseID.String())
}

// ═══════════════════════════════════════════════════════════════════════════
// Money
// ═══════════════════════════════════════════════════════════════════════════

// Money represents a monetary amount with exact decimal arithmetic.
// Course prices and refund amounts go through this type so that refund math
// never accumulates binary floating point error.
type Money struct {
	amount decimal.Decimal
}

// NewMoney creates Money from a decimal amount.
func NewMoney(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, NewDomainError("shared", "NewMoney", ErrNegativeValue, "amount cannot be negative")
	}
	return Money{amount: amount}, nil
}

// MoneyFromString parses an amount like "1000.00".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, WrapError("shared", "MoneyFromString", ErrInvalidInput, "cannot parse amount", err)
	}
	return NewMoney(d)
}

// MustMoney parses an amount and panics on error. Test helper.
func MustMoney(s string) Money {
	m, err := MoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Percent returns pct percent of the amount, rounded to 2 decimal places.
func (m Money) Percent(pct int) Money {
	result := m.amount.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100))
	return Money{amount: result.Round(2)}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// Equal reports whether two amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// String returns the amount formatted with 2 decimal places.
func (m Money) String() string {
	return m.amount.StringFixed(2)
}

// ═══════════════════════════════════════════════════════════════════════════
// Percentage
// ═══════════════════════════════════════════════════════════════════════════

// Percentage is a derived completion value in [0, 100].
type Percentage float64

// IsValid checks the [0, 100] range invariant.
func (p Percentage) IsValid() bool {
	return p >= 0 && p <= 100
}

// Float64 returns the underlying value.
func (p Percentage) Float64() float64 {
	return float64(p)
}

// Clamp bounds the value to [0, 100].
func (p Percentage) Clamp() Percentage {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// GPA represents a grade point average on the platform's scale.
type GPA float64

// IsValid checks that the GPA is non-negative.
func (g GPA) IsValid() bool {
	return g >= 0
}

// Credits represents accumulated course credits.
type Credits int

// IsValid checks that credits are non-negative.
func (c Credits) IsValid() bool {
	return c >= 0
}

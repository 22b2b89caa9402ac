// Package semester contains the Semester Gate: static prerequisite policy
// mapping (course, current semester) to the credit and GPA minimums required
// to advance. The gate performs no mutation; it is a read-only decision
// consulted by an external advancement workflow that supplies the student's
// totals.
package semester

import (
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// Prerequisite is one policy row.
type Prerequisite struct {
	// CourseID identifies the course the policy applies to.
	CourseID shared.CourseID

	// CurrentSemester is the semester the student is in.
	CurrentSemester int

	// NextSemester is the semester advancement leads to.
	NextSemester int

	// MinCreditsRequired is the credit floor for advancement.
	MinCreditsRequired shared.Credits

	// MinGPARequired is the GPA floor for advancement.
	MinGPARequired shared.GPA
}

// Satisfied reports whether the given totals meet this policy's minimums.
func (p Prerequisite) Satisfied(credits shared.Credits, gpa shared.GPA) bool {
	return credits >= p.MinCreditsRequired && gpa >= p.MinGPARequired
}

// PolicySet is an immutable collection of prerequisite rows, loaded at
// startup or fetched per decision. Callers pass it explicitly; there is no
// ambient global lookup.
type PolicySet struct {
	rows map[policyKey]Prerequisite
}

type policyKey struct {
	courseID shared.CourseID
	semester int
}

// NewPolicySet builds a set from policy rows. Later rows with the same
// (course, semester) key replace earlier ones.
func NewPolicySet(rows []Prerequisite) *PolicySet {
	m := make(map[policyKey]Prerequisite, len(rows))
	for _, r := range rows {
		m[policyKey{courseID: r.CourseID, semester: r.CurrentSemester}] = r
	}
	return &PolicySet{rows: m}
}

// Find returns the policy for (course, current semester).
// Returns ErrNoPolicyDefined if no row matches: a configuration gap is
// surfaced, never silently defaulted.
func (s *PolicySet) Find(courseID shared.CourseID, currentSemester int) (Prerequisite, error) {
	p, ok := s.rows[policyKey{courseID: courseID, semester: currentSemester}]
	if !ok {
		return Prerequisite{}, shared.ErrNoPolicyDefined
	}
	return p, nil
}

// CanAdvance reports whether a student with the given totals may advance from
// the current semester of the course. Pure lookup plus comparison.
func (s *PolicySet) CanAdvance(courseID shared.CourseID, currentSemester int, credits shared.Credits, gpa shared.GPA) (bool, error) {
	p, err := s.Find(courseID, currentSemester)
	if err != nil {
		return false, err
	}
	return p.Satisfied(credits, gpa), nil
}

// Len returns the number of policy rows in the set.
func (s *PolicySet) Len() int {
	return len(s.rows)
}

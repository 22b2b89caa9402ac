package command

import (
	"context"
	"sort"
	"sync"

	"github.com/academica-hub/lifecycle-engine/internal/domain/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/domain/certificate"
	"github.com/academica-hub/lifecycle-engine/internal/domain/dropout"
	"github.com/academica-hub/lifecycle-engine/internal/domain/enrollment"
	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// memStore is an in-memory stand-in for the persistence layer. It implements
// every domain repository directly, so a fake unit of work can hand out the
// same store for each repository accessor. Each unit of work operates on a
// clone; only Commit makes the clone visible through the factory, so a unit
// that fails after some writes leaves none of them behind.
type memStore struct {
	mu sync.Mutex

	enrollments  map[string]*enrollment.Enrollment
	records      map[string]*progress.Record
	items        map[string]map[string]bool
	certificates map[string]*certificate.Certificate
	dropouts     []*dropout.Record

	failDropoutCreate  error
	failProgressSave   error
	failProgressDelete error
}

func newMemStore() *memStore {
	return &memStore{
		enrollments:  make(map[string]*enrollment.Enrollment),
		records:      make(map[string]*progress.Record),
		items:        make(map[string]map[string]bool),
		certificates: make(map[string]*certificate.Certificate),
	}
}

// clone deep-copies the store, entities included, so in-place mutations made
// inside an uncommitted unit never reach the shared state.
func (s *memStore) clone() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newMemStore()
	for k, e := range s.enrollments {
		cp := *e
		c.enrollments[k] = &cp
	}
	for k, rec := range s.records {
		cp := *rec
		c.records[k] = &cp
	}
	for k, set := range s.items {
		inner := make(map[string]bool, len(set))
		for ik, v := range set {
			inner[ik] = v
		}
		c.items[k] = inner
	}
	for k, cert := range s.certificates {
		cp := *cert
		c.certificates[k] = &cp
	}
	c.dropouts = make([]*dropout.Record, len(s.dropouts))
	for i, rec := range s.dropouts {
		cp := *rec
		c.dropouts[i] = &cp
	}

	c.failDropoutCreate = s.failDropoutCreate
	c.failProgressSave = s.failProgressSave
	c.failProgressDelete = s.failProgressDelete
	return c
}

// ─────────────────────────────────────────────────────────────────────────────
// enrollment.Repository
// ─────────────────────────────────────────────────────────────────────────────

func (s *memStore) Create(ctx context.Context, e *enrollment.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := shared.PairKey(e.StudentID.String(), e.CourseID.String())
	if _, ok := s.enrollments[key]; ok {
		return shared.ErrAlreadyEnrolled
	}
	s.enrollments[key] = e
	return nil
}

func (s *memStore) Get(ctx context.Context, pair shared.Pair) (*enrollment.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[pair.Key()]
	if !ok {
		return nil, shared.ErrNotEnrolled
	}
	return e, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, pair shared.Pair) (*enrollment.Enrollment, error) {
	return s.Get(ctx, pair)
}

func (s *memStore) Remove(ctx context.Context, pair shared.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[pair.Key()]; !ok {
		return shared.ErrNotEnrolled
	}
	delete(s.enrollments, pair.Key())
	return nil
}

func (s *memStore) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*enrollment.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*enrollment.Enrollment
	for _, e := range s.enrollments {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Exists(ctx context.Context, pair shared.Pair) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.enrollments[pair.Key()]
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// progress.Repository (implemented on a wrapper to avoid method collisions)
// ─────────────────────────────────────────────────────────────────────────────

type memProgressRepo struct{ s *memStore }

func (r memProgressRepo) Get(ctx context.Context, pair shared.Pair) (*progress.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.records[pair.Key()]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return rec, nil
}

func (r memProgressRepo) Save(ctx context.Context, rec *progress.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failProgressSave != nil {
		return r.s.failProgressSave
	}
	r.s.records[rec.Pair().Key()] = rec
	return nil
}

func (r memProgressRepo) Delete(ctx context.Context, pair shared.Pair) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failProgressDelete != nil {
		return r.s.failProgressDelete
	}
	delete(r.s.records, pair.Key())
	delete(r.s.items, pair.Key())
	return nil
}

func (r memProgressRepo) MarkCompleted(ctx context.Context, pair shared.Pair, kind progress.ItemKind, itemID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	set, ok := r.s.items[pair.Key()]
	if !ok {
		set = make(map[string]bool)
		r.s.items[pair.Key()] = set
	}
	key := string(kind) + ":" + itemID
	if set[key] {
		return false, nil
	}
	set[key] = true
	return true, nil
}

func (r memProgressRepo) CompletionCounts(ctx context.Context, pair shared.Pair) (progress.Counts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var counts progress.Counts
	for key := range r.s.items[pair.Key()] {
		if key[0] == 'l' {
			counts.CompletedLessons++
		} else {
			counts.SubmittedAssignments++
		}
	}
	return counts, nil
}

func (r memProgressRepo) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*progress.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*progress.Record
	for _, rec := range r.s.records {
		if rec.CourseID == courseID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// certificate.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memCertificateRepo struct{ s *memStore }

func certKey(pair shared.Pair, certType certificate.Type) string {
	return pair.Key() + ":" + string(certType)
}

func (r memCertificateRepo) Create(ctx context.Context, c *certificate.Certificate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pair := shared.Pair{StudentID: c.StudentID, CourseID: c.CourseID}
	key := certKey(pair, c.Type)
	if _, ok := r.s.certificates[key]; ok {
		return shared.NewDomainError("certificate", "Create", shared.ErrAlreadyExists, "certificate already issued")
	}
	r.s.certificates[key] = c
	return nil
}

func (r memCertificateRepo) Exists(ctx context.Context, pair shared.Pair, certType certificate.Type) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.certificates[certKey(pair, certType)]
	return ok, nil
}

func (r memCertificateRepo) Get(ctx context.Context, pair shared.Pair, certType certificate.Type) (*certificate.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.certificates[certKey(pair, certType)]
	if !ok {
		return nil, shared.ErrCertificateNotFound
	}
	return c, nil
}

func (r memCertificateRepo) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*certificate.Certificate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*certificate.Certificate
	for _, c := range r.s.certificates {
		if c.StudentID == studentID {
			out = append(out, c)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// dropout.Repository
// ─────────────────────────────────────────────────────────────────────────────

type memDropoutRepo struct{ s *memStore }

func (r memDropoutRepo) Create(ctx context.Context, rec *dropout.Record) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failDropoutCreate != nil {
		return r.s.failDropoutCreate
	}
	r.s.dropouts = append(r.s.dropouts, rec)
	return nil
}

func (r memDropoutRepo) ListByStudent(ctx context.Context, studentID shared.StudentID) ([]*dropout.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*dropout.Record
	for _, rec := range r.s.dropouts {
		if rec.StudentID == studentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r memDropoutRepo) ListByCourse(ctx context.Context, courseID shared.CourseID) ([]*dropout.Record, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*dropout.Record
	for _, rec := range r.s.dropouts {
		if rec.CourseID == courseID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Unit of work
// ─────────────────────────────────────────────────────────────────────────────

// fakeUnitOfWork works against a private clone of the factory store. Commit
// swaps the clone in as the new shared state; Rollback discards it, so
// every write inside the unit becomes visible together or not at all.
type fakeUnitOfWork struct {
	factory *fakeUoWFactory
	working *memStore
}

func (u *fakeUnitOfWork) Enrollments() enrollment.Repository { return u.working }
func (u *fakeUnitOfWork) Progress() progress.Repository      { return memProgressRepo{s: u.working} }
func (u *fakeUnitOfWork) Certificates() certificate.Repository {
	return memCertificateRepo{s: u.working}
}
func (u *fakeUnitOfWork) Dropouts() dropout.Repository { return memDropoutRepo{s: u.working} }

func (u *fakeUnitOfWork) Commit(ctx context.Context) error {
	if u.factory.commitErr != nil {
		return u.factory.commitErr
	}
	u.factory.store = u.working
	u.factory.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback(ctx context.Context) error {
	u.factory.rollbacks++
	return nil
}

type fakeUoWFactory struct {
	store     *memStore
	commits   int
	rollbacks int
	beginErr  error
	commitErr error
}

func newFakeUoWFactory() *fakeUoWFactory {
	return &fakeUoWFactory{store: newMemStore()}
}

func (f *fakeUoWFactory) Begin(ctx context.Context) (UnitOfWork, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeUnitOfWork{
		factory: f,
		working: f.store.clone(),
	}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog stub and event capture
// ─────────────────────────────────────────────────────────────────────────────

type stubCatalog struct {
	courses map[shared.CourseID]catalog.CourseInfo
	err     error
}

func (c *stubCatalog) GetCourse(ctx context.Context, courseID shared.CourseID) (catalog.CourseInfo, error) {
	if c.err != nil {
		return catalog.CourseInfo{}, c.err
	}
	info, ok := c.courses[courseID]
	if !ok {
		return catalog.CourseInfo{}, shared.ErrCourseNotFound
	}
	return info, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *captureBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *captureBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventType()
	}
	return out
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ProgressCache implements query.ProgressCache using the generic Redis Cache.
// Snapshots are keyed per (student, course) pair and expire on TTL; the
// accumulator invalidates them on every write so dashboards never read a
// stale percentage for longer than one round trip.
type ProgressCache struct {
	cache *Cache
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(cache *Cache) *ProgressCache {
	return &ProgressCache{cache: cache}
}

// ProgressKey returns the cache key for a pair's progress snapshot.
func ProgressKey(pair shared.Pair) string {
	return fmt.Sprintf("%s%s", PrefixProgress, pair.Key())
}

// progressSnapshot is the JSON shape stored in Redis. Kept separate from the
// domain record so cache layout changes never leak into the domain.
type progressSnapshot struct {
	StudentID            string    `json:"student_id"`
	CourseID             string    `json:"course_id"`
	TotalLessons         int       `json:"total_lessons"`
	CompletedLessons     int       `json:"completed_lessons"`
	TotalAssignments     int       `json:"total_assignments"`
	SubmittedAssignments int       `json:"submitted_assignments"`
	Percentage           float64   `json:"percentage"`
	LastUpdated          time.Time `json:"last_updated"`
}

// Get returns the cached record for the pair, or shared.ErrNotFound on a miss.
func (p *ProgressCache) Get(ctx context.Context, pair shared.Pair) (*progress.Record, error) {
	var snap progressSnapshot
	if err := p.cache.Get(ctx, ProgressKey(pair), &snap); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	return &progress.Record{
		StudentID:            shared.StudentID(snap.StudentID),
		CourseID:             shared.CourseID(snap.CourseID),
		TotalLessons:         snap.TotalLessons,
		CompletedLessons:     snap.CompletedLessons,
		TotalAssignments:     snap.TotalAssignments,
		SubmittedAssignments: snap.SubmittedAssignments,
		Percentage:           shared.Percentage(snap.Percentage),
		LastUpdated:          snap.LastUpdated,
	}, nil
}

// Set stores the record with a TTL.
func (p *ProgressCache) Set(ctx context.Context, r *progress.Record, ttl time.Duration) error {
	if r == nil {
		return nil
	}

	snap := progressSnapshot{
		StudentID:            r.StudentID.String(),
		CourseID:             r.CourseID.String(),
		TotalLessons:         r.TotalLessons,
		CompletedLessons:     r.CompletedLessons,
		TotalAssignments:     r.TotalAssignments,
		SubmittedAssignments: r.SubmittedAssignments,
		Percentage:           r.Percentage.Float64(),
		LastUpdated:          r.LastUpdated,
	}

	return p.cache.Set(ctx, ProgressKey(r.Pair()), snap, ttl)
}

// Invalidate removes the cached record for the pair.
func (p *ProgressCache) Invalidate(ctx context.Context, pair shared.Pair) error {
	return p.cache.Delete(ctx, ProgressKey(pair))
}

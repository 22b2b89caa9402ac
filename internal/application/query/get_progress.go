// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/academica-hub/lifecycle-engine/internal/domain/progress"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Read-only surface over progress records for dashboards. Served from the
// cache when warm, from the repository otherwise; the percentage exposed here
// is never writable through this path.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressCache caches progress snapshots for the dashboard surface.
// Implemented in infrastructure/persistence/redis.
type ProgressCache interface {
	// Get returns the cached record for the pair, or ErrNotFound on a miss.
	Get(ctx context.Context, pair shared.Pair) (*progress.Record, error)

	// Set stores the record with a TTL.
	Set(ctx context.Context, r *progress.Record, ttl time.Duration) error

	// Invalidate removes the cached record for the pair.
	Invalidate(ctx context.Context, pair shared.Pair) error
}

// GetProgressQuery contains the parameters for a progress lookup.
type GetProgressQuery struct {
	// StudentID identifies the student.
	StudentID string

	// CourseID identifies the course.
	CourseID string

	// BypassCache forces a repository read.
	BypassCache bool
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	_, err := shared.NewPair(q.StudentID, q.CourseID)
	return err
}

// ProgressDTO is the dashboard projection of a progress record.
type ProgressDTO struct {
	StudentID            string    `json:"student_id"`
	CourseID             string    `json:"course_id"`
	TotalLessons         int       `json:"total_lessons"`
	CompletedLessons     int       `json:"completed_lessons"`
	TotalAssignments     int       `json:"total_assignments"`
	SubmittedAssignments int       `json:"submitted_assignments"`
	Percentage           float64   `json:"percentage"`
	Completed            bool      `json:"completed"`
	LastUpdated          time.Time `json:"last_updated"`
}

// GetProgressHandler serves progress lookups.
type GetProgressHandler struct {
	progressRepo progress.Repository
	cache        ProgressCache
	cacheTTL     time.Duration
	logger       *slog.Logger
}

// NewGetProgressHandler creates a new GetProgressHandler. The cache is
// optional; pass nil to always read from the repository.
func NewGetProgressHandler(
	progressRepo progress.Repository,
	cache ProgressCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *GetProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &GetProgressHandler{
		progressRepo: progressRepo,
		cache:        cache,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Handle returns the progress snapshot for the pair.
// Returns ErrProgressNotFound if the pair has no record.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*ProgressDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	pair, _ := shared.NewPair(q.StudentID, q.CourseID)

	if h.cache != nil && !q.BypassCache {
		if rec, err := h.cache.Get(ctx, pair); err == nil {
			return toDTO(rec), nil
		} else if !errors.Is(err, shared.ErrNotFound) {
			// Cache trouble degrades to a repository read.
			h.logger.Warn("progress cache read failed", "error", err)
		}
	}

	rec, err := h.progressRepo.Get(ctx, pair)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, rec, h.cacheTTL); err != nil {
			h.logger.Warn("progress cache write failed", "error", err)
		}
	}

	return toDTO(rec), nil
}

func toDTO(r *progress.Record) *ProgressDTO {
	return &ProgressDTO{
		StudentID:            r.StudentID.String(),
		CourseID:             r.CourseID.String(),
		TotalLessons:         r.TotalLessons,
		CompletedLessons:     r.CompletedLessons,
		TotalAssignments:     r.TotalAssignments,
		SubmittedAssignments: r.SubmittedAssignments,
		Percentage:           r.Percentage.Float64(),
		Completed:            r.Completed(),
		LastUpdated:          r.LastUpdated,
	}
}

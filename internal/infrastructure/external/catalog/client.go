// Package catalog implements the HTTP client for the course catalog
// collaborator. The catalog owns pricing, duration policy, and lesson and
// assignment totals; the engine reads them at enrollment, withdrawal, and
// totals sync. Calls are wrapped in a retrier and a circuit breaker so a
// flapping catalog degrades enrollment rather than taking the engine down.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	domaincatalog "github.com/academica-hub/lifecycle-engine/internal/domain/catalog"
	"github.com/academica-hub/lifecycle-engine/internal/domain/shared"
	"github.com/academica-hub/lifecycle-engine/pkg/circuitbreaker"
	"github.com/academica-hub/lifecycle-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog API client.
type ClientConfig struct {
	// BaseURL is the catalog API base URL
	BaseURL string

	// APIKey is the API key for authentication (if applicable)
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the catalog API client. Implements catalog.Service.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	retrier        *retry.Retrier
	circuitBreaker *circuitbreaker.Breaker
}

// NewClient creates a new catalog API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	logger := config.Logger

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.CatalogAPIRetrier(),
		circuitBreaker: circuitbreaker.CatalogAPIBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	}
}

// courseDTO is the catalog API's course representation.
type courseDTO struct {
	ID               string `json:"id"`
	Price            string `json:"price"`
	DurationDays     int    `json:"duration_days"`
	TotalLessons     int    `json:"total_lessons"`
	TotalAssignments int    `json:"total_assignments"`
}

// GetCourse returns catalog data for a course.
func (c *Client) GetCourse(ctx context.Context, courseID shared.CourseID) (domaincatalog.CourseInfo, error) {
	var dto courseDTO
	path := fmt.Sprintf("/api/v1/courses/%s", courseID.String())

	if err := c.doRequest(ctx, http.MethodGet, path, &dto); err != nil {
		return domaincatalog.CourseInfo{}, err
	}

	return c.mapCourse(dto)
}

// mapCourse converts the API representation into the engine's view.
func (c *Client) mapCourse(dto courseDTO) (domaincatalog.CourseInfo, error) {
	price, err := shared.MoneyFromString(dto.Price)
	if err != nil {
		return domaincatalog.CourseInfo{}, shared.WrapError("catalog", "GetCourse", shared.ErrInvalidInput,
			"catalog returned an unparseable price", err)
	}

	if dto.DurationDays <= 0 {
		return domaincatalog.CourseInfo{}, shared.ErrInvalidDuration
	}

	return domaincatalog.CourseInfo{
		CourseID:         shared.CourseID(dto.ID),
		Price:            price,
		DurationDays:     dto.DurationDays,
		TotalLessons:     dto.TotalLessons,
		TotalAssignments: dto.TotalAssignments,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// doRequest executes a request through the circuit breaker and retrier.
func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, method, path, result)
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return shared.ErrCatalogUnavailable
		}
		return err
	}

	return nil
}

// doSingleRequest executes one HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, result interface{}) error {
	fullURL := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are worth retrying
		return retry.Retryable(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("catalog request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return retry.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil

	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(shared.ErrCourseNotFound)

	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return retry.Retryable(fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body)))

	default:
		return retry.Permanent(fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body)))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy reports whether the catalog is currently reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.circuitBreaker.State()
}

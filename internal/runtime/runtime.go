package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/topaplus/commandcenter/config"
)

// ErrBusy is returned when a slot could not be acquired in time.
var ErrBusy = errors.New("runtime: capacity exhausted")

// Limits captures the concurrency and listing guardrails configured for the server.
type Limits struct {
	// Concurrency caps
	MaxConcurrentRequests int
	MaxConcurrentLoads    int

	// Listing bounds
	DefaultPageSize int
	MaxPageSize     int
	DefaultTopN     int

	// Timeouts
	OperationTimeout      time.Duration
	AcquireRequestTimeout time.Duration
	// AcquireLoadTimeout bounds the wait for a source fetch slot.
	AcquireLoadTimeout time.Duration
}

// NewLimits initializes Limits with sensible fallbacks when values are unset.
func NewLimits(maxConcurrentRequests, maxConcurrentLoads int) Limits {
	if maxConcurrentRequests <= 0 {
		maxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if maxConcurrentLoads <= 0 {
		maxConcurrentLoads = config.DefaultMaxConcurrentLoads
	}

	return Limits{
		MaxConcurrentRequests: maxConcurrentRequests,
		MaxConcurrentLoads:    maxConcurrentLoads,
		DefaultPageSize:       config.DefaultPageSize,
		MaxPageSize:           config.DefaultMaxPageSize,
		DefaultTopN:           config.DefaultTopN,
		OperationTimeout:      config.DefaultOperationTimeout,
		AcquireRequestTimeout: config.DefaultAcquireRequestTimeout,
		AcquireLoadTimeout:    config.DefaultOperationTimeout,
	}
}

// FromConfig derives limits from the loaded configuration.
func FromConfig(c *config.Config) Limits {
	l := NewLimits(c.Limits.MaxConcurrentRequests, c.Limits.MaxConcurrentLoads)
	if c.Limits.OperationTimeout > 0 {
		l.OperationTimeout = c.Limits.OperationTimeout
		l.AcquireLoadTimeout = c.Limits.OperationTimeout
	}
	return l
}

// ClampPageSize applies the default and the upper bound to a requested page size.
func (l Limits) ClampPageSize(n int) int {
	if n <= 0 {
		n = l.DefaultPageSize
	}
	if l.MaxPageSize > 0 && n > l.MaxPageSize {
		n = l.MaxPageSize
	}
	return n
}

// Controller coordinates runtime semaphores for request and source load guardrails.
type Controller struct {
	limits           Limits
	requestSemaphore *semaphore.Weighted
	loadSemaphore    *semaphore.Weighted
}

// NewController constructs a Controller backed by weighted semaphores.
func NewController(limits Limits) *Controller {
	return &Controller{
		limits:           limits,
		requestSemaphore: semaphore.NewWeighted(int64(limits.MaxConcurrentRequests)),
		loadSemaphore:    semaphore.NewWeighted(int64(limits.MaxConcurrentLoads)),
	}
}

// AcquireRequest reserves capacity for an incoming request.
func (c *Controller) AcquireRequest(ctx context.Context) error {
	return c.requestSemaphore.Acquire(ctx, 1)
}

// ReleaseRequest frees previously-acquired request capacity.
func (c *Controller) ReleaseRequest() {
	c.requestSemaphore.Release(1)
}

// AcquireLoad reserves a source fetch slot, waiting at most AcquireLoadTimeout.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	if c.limits.AcquireLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.limits.AcquireLoadTimeout)
		defer cancel()
	}
	if err := c.loadSemaphore.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %d source loads in flight: %v", ErrBusy, c.limits.MaxConcurrentLoads, err)
	}
	return nil
}

// ReleaseLoad frees a source fetch slot.
func (c *Controller) ReleaseLoad() {
	c.loadSemaphore.Release(1)
}

// LimitsSnapshot exposes the configured guardrails for telemetry and discovery.
func (c *Controller) LimitsSnapshot() Limits {
	return c.limits
}

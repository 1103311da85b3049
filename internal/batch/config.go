// Package batch runs planned page windows through an extraction gateway and
// merges the per-window results into one clause list.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackzampolin/charter/internal/providers"
)

// Defaults for a batched run.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultMaxWorkers = 3
)

// Slicer produces a standalone PDF holding pages [start, end] of a source
// document. Implementations must be safe for concurrent use.
type Slicer interface {
	Slice(ctx context.Context, start, end int) ([]byte, error)
}

// RetryPolicy bounds the gateway attempts made for one window.
type RetryPolicy struct {
	// MaxRetries is the total number of gateway attempts per window.
	// Values below 1 mean a single attempt.
	MaxRetries int

	// RetryDelay is the wait before the second attempt. It doubles for
	// every further attempt.
	RetryDelay time.Duration
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, RetryDelay: DefaultRetryDelay}
}

func (p RetryPolicy) attempts() int {
	return max(1, p.MaxRetries)
}

// Mode selects sequential or bounded concurrent execution.
type Mode struct {
	Parallel   bool
	MaxWorkers int // Pool width when Parallel (default: 3)
}

// Sequential is the single-threaded execution mode.
var Sequential = Mode{}

// Concurrent returns a pooled execution mode of the given width.
func Concurrent(maxWorkers int) Mode {
	return Mode{Parallel: true, MaxWorkers: maxWorkers}
}

func (m Mode) workers() int {
	if m.MaxWorkers <= 0 {
		return DefaultMaxWorkers
	}
	return m.MaxWorkers
}

func (m Mode) String() string {
	if !m.Parallel {
		return "sequential"
	}
	return "concurrent"
}

// Config configures an Executor.
type Config struct {
	Extractor providers.Extractor // Required
	Prompt    string              // Base extraction prompt, page context is appended per window
	Retry     RetryPolicy
	Mode      Mode
	Logger    *slog.Logger
}

package providers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an Extractor for testing and dry runs.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailKind     ErrorKind // kind of error returned when failing
	FailFirst    int       // Fail the first N requests (0 = never)
	ResponseJSON string    // Raw model output, run through the normal parser

	// Handler, when set, replaces the canned response entirely.
	Handler func(ctx context.Context, pdf []byte, prompt string) (*Result, error)

	// State
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseJSON: `{"clauses":[{"page":1,"clause_number":"1.","title":"Mock","text":"Mock clause text."}]}`,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Extract returns the canned response after Latency.
func (c *MockClient) Extract(ctx context.Context, pdf []byte, prompt string) (*Result, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	if c.ShouldFail {
		return nil, &GatewayError{Kind: c.FailKind, Provider: MockClientName, Message: "mock client configured to fail"}
	}
	if c.FailFirst > 0 && int(count) <= c.FailFirst {
		return nil, &GatewayError{Kind: c.FailKind, Provider: MockClientName, Message: fmt.Sprintf("mock failure %d of %d", count, c.FailFirst)}
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if c.Handler != nil {
		return c.Handler(ctx, pdf, prompt)
	}

	clauses, err := decodeClauses(MockClientName, c.ResponseJSON)
	if err != nil {
		return nil, err
	}
	return &Result{
		Clauses:          clauses,
		PromptTokens:     len(prompt) / 4, // Rough estimate
		CompletionTokens: len(c.ResponseJSON) / 4,
		Provider:         MockClientName,
		ModelUsed:        MockClientName,
		RequestID:        fmt.Sprintf("mock-%d", count),
		ExecutionTime:    time.Since(start),
		Content:          c.ResponseJSON,
	}, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
}

// Verify interface
var _ Extractor = (*MockClient)(nil)

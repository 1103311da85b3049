package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"
)

// MaxPDFBytes is the largest sub-document any gateway will send.
const MaxPDFBytes = 32 << 20

// Default generation parameters shared by all gateways.
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 32768
	DefaultTimeout     = 300 * time.Second
)

// Extractor sends one PDF plus a prompt to a vision model and returns the
// clauses it found. Page numbers in the result are those reported by the
// model, relative to the PDF it was given.
type Extractor interface {
	// Extract runs a single model call. It does not retry; failures are
	// returned as *GatewayError where the kind is known.
	Extract(ctx context.Context, pdf []byte, prompt string) (*Result, error)

	// Name returns the gateway identifier (e.g., "openrouter").
	Name() string
}

// Clause is one numbered clause as reported by the model.
type Clause struct {
	Page         int    `json:"page" yaml:"page"`
	ClauseNumber string `json:"clause_number" yaml:"clause_number"`
	Text         string `json:"text" yaml:"text"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
}

// Result is the parsed response of one gateway call.
type Result struct {
	Clauses []Clause `json:"clauses"`

	// Token counts
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`

	// Provider info
	Provider      string        `json:"provider"`
	ModelUsed     string        `json:"model_used"`
	RequestID     string        `json:"request_id"`
	ExecutionTime time.Duration `json:"execution_time"`

	// Raw model output before parsing
	Content string `json:"-"`
}

// checkPayload rejects PDFs no gateway will accept.
func checkPayload(provider string, pdf []byte) error {
	if len(pdf) == 0 {
		return permanentError(provider, "empty PDF payload")
	}
	if len(pdf) > MaxPDFBytes {
		return permanentError(provider, fmt.Sprintf("PDF payload too large: %.1f MiB > %d MiB",
			float64(len(pdf))/(1<<20), MaxPDFBytes>>20))
	}
	return nil
}

// pdfDataURL encodes a PDF as a base64 data URL for file content parts.
func pdfDataURL(pdf []byte) string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	GeminiName         = "gemini"
	GeminiDefaultModel = "gemini-3-flash-preview"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Endpoint    string // Optional (tests)
}

// GeminiClient implements Extractor using the Gemini SDK. The PDF is sent as
// an inline blob part. The underlying SDK client is created on first use.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	endpoint    string

	mu     sync.Mutex
	client *genai.Client
	closed bool
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &GeminiClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		endpoint:    cfg.Endpoint,
	}
}

// Name returns the provider identifier.
func (c *GeminiClient) Name() string {
	return GeminiName
}

// Model returns the configured model.
func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, permanentError(GeminiName, "client is closed")
	}
	if c.client != nil {
		return c.client, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(c.apiKey)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, permanentError(GeminiName, fmt.Sprintf("failed to create client: %v", err))
	}
	c.client = client
	return client, nil
}

// Extract sends the PDF as an inline blob followed by the prompt.
func (c *GeminiClient) Extract(ctx context.Context, pdf []byte, prompt string) (*Result, error) {
	if err := checkPayload(GeminiName, pdf); err != nil {
		return nil, err
	}
	client, err := c.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(float32(c.temperature))
	model.SetMaxOutputTokens(int32(c.maxTokens))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: "application/pdf", Data: pdf},
		genai.Text(prompt),
	)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &GatewayError{Kind: KindTransient, Provider: GeminiName, Message: "no candidates in response"}
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonMaxTokens {
		return nil, parseError(GeminiName, "response truncated at max_output_tokens", nil)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	content := sb.String()

	clauses, err := decodeClauses(GeminiName, content)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Clauses:       clauses,
		Provider:      GeminiName,
		ModelUsed:     c.model,
		RequestID:     uuid.New().String(),
		ExecutionTime: time.Since(start),
		Content:       content,
	}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return result, nil
}

// Close releases the SDK client. A closed client rejects further calls.
func (c *GeminiClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func mapGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return &GatewayError{Kind: KindPermanent, Provider: GeminiName, Message: "response blocked", Err: err}
	}

	if apiErr, ok := apierror.FromError(err); ok {
		if code := apiErr.HTTPCode(); code > 0 {
			gwErr := statusError(GeminiName, code, apiErr.Reason())
			gwErr.Err = err
			return gwErr
		}
	}

	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return &GatewayError{Kind: classifyGRPCCode(s.Code()), Provider: GeminiName, Message: s.Message(), Err: err}
	}
	return transportError(GeminiName, err)
}

func classifyGRPCCode(code codes.Code) ErrorKind {
	switch code {
	case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded,
		codes.Internal, codes.Aborted:
		return KindTransient
	default:
		return KindPermanent
	}
}

var _ Extractor = (*GeminiClient)(nil)

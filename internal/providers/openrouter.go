package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	OpenRouterName         = "openrouter"
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	OpenRouterDefaultModel = "google/gemini-3-flash-preview"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	Temperature  float64
	MaxTokens    int
	// PDFEngine selects OpenRouter's file-parser engine ("native", "mistral-ocr", "pdf-text").
	PDFEngine string
}

// OpenRouterClient implements Extractor using the OpenRouter chat API with a
// PDF file content part.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	temperature  float64
	maxTokens    int
	pdfEngine    string
	client       *http.Client
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenRouterDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.PDFEngine == "" {
		cfg.PDFEngine = "native"
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		pdfEngine:    cfg.PDFEngine,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// Model returns the model requests are sent to.
func (c *OpenRouterClient) Model() string {
	return c.defaultModel
}

// Extract sends the PDF and prompt as one user message.
func (c *OpenRouterClient) Extract(ctx context.Context, pdf []byte, prompt string) (*Result, error) {
	if err := checkPayload(OpenRouterName, pdf); err != nil {
		return nil, err
	}
	start := time.Now()
	requestID := uuid.New().String()

	orReq := openRouterRequest{
		Model: c.defaultModel,
		Messages: []openRouterMessage{{
			Role: "user",
			Content: []openRouterContent{
				{
					Type: "file",
					File: &openRouterFile{
						Filename: "window.pdf",
						FileData: pdfDataURL(pdf),
					},
				},
				{Type: "text", Text: prompt},
			},
		}},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &openRouterResponseFormat{Type: "json_object"},
		Plugins: []openRouterPlugin{{
			ID:  "file-parser",
			PDF: &openRouterPDFPlugin{Engine: c.pdfEngine},
		}},
	}

	orResp, err := c.doRequest(ctx, "/chat/completions", requestID, &orReq)
	if err != nil {
		return nil, err
	}

	choice := orResp.Choices[0]
	if choice.FinishReason == "length" {
		return nil, parseError(OpenRouterName, "response truncated at max_tokens", nil)
	}

	content := choice.Message.Content
	clauses, err := decodeClauses(OpenRouterName, content)
	if err != nil {
		return nil, err
	}

	return &Result{
		Clauses:          clauses,
		PromptTokens:     orResp.Usage.PromptTokens,
		CompletionTokens: orResp.Usage.CompletionTokens,
		Provider:         OpenRouterName,
		ModelUsed:        orResp.Model,
		RequestID:        requestID,
		ExecutionTime:    time.Since(start),
		Content:          content,
	}, nil
}

// Verify interface
var _ Extractor = (*OpenRouterClient)(nil)

func (c *OpenRouterClient) String() string {
	return fmt.Sprintf("%s(%s)", OpenRouterName, c.defaultModel)
}

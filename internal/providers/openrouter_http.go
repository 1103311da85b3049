package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doRequest makes a single HTTP request to OpenRouter and classifies any
// failure. Retrying is left to the caller.
func (c *OpenRouterClient) doRequest(ctx context.Context, path, requestID string, orReq *openRouterRequest) (*openRouterResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(orReq)
	if err != nil {
		return nil, permanentError(OpenRouterName, fmt.Sprintf("failed to marshal request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, permanentError(OpenRouterName, fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/charter")
	req.Header.Set("X-Title", "Charter")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(OpenRouterName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(OpenRouterName, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(OpenRouterName, resp.StatusCode, string(respBody))
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, parseError(OpenRouterName, "failed to unmarshal response", err)
	}

	if err := c.checkResponse(&orResp); err != nil {
		return nil, err
	}
	return &orResp, nil
}

// checkResponse classifies a 200 OK response that still carries no usable
// answer.
func (c *OpenRouterClient) checkResponse(resp *openRouterResponse) error {
	if resp.Error != nil {
		code := fmt.Sprintf("%v", resp.Error.Code)
		switch code {
		case "rate_limit_exceeded", "429":
			return &GatewayError{Kind: KindTransient, Provider: OpenRouterName, StatusCode: http.StatusTooManyRequests, Message: resp.Error.Message}
		case "overloaded", "408", "500", "502", "503", "504":
			return &GatewayError{Kind: KindTransient, Provider: OpenRouterName, Message: resp.Error.Message}
		}
		// content_filter, invalid_request and the like
		return &GatewayError{Kind: KindPermanent, Provider: OpenRouterName, Message: fmt.Sprintf("%s (code %s)", resp.Error.Message, code)}
	}

	// Empty choices - likely transient, worth retrying
	if len(resp.Choices) == 0 {
		return &GatewayError{
			Kind:     KindTransient,
			Provider: OpenRouterName,
			Message:  fmt.Sprintf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID),
		}
	}
	return nil
}

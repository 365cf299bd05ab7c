package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	llmerrors "github.com/navchetna/whispey-sub001/internal/llm/errors"
	"github.com/navchetna/whispey-sub001/internal/llm/transport"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleAdapter implements the native non-chat-compatible provider family.
// Gemini has no OpenAI-shaped endpoint: messages become content parts, the
// system instruction is merged into the first user turn (there is no system
// role), and the API key travels as a query parameter rather than a header.
type GoogleAdapter struct{}

// Name returns the provider name.
func (a *GoogleAdapter) Name() string { return ProviderGoogle }

// Build constructs a generateContent request from the normalized call.
func (a *GoogleAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", baseURL, req.Model, req.APIKey)

	// No system role: prepend the system instruction to the user turn.
	userText := req.UserPrompt
	if req.SystemPrompt != "" {
		userText = req.SystemPrompt + "\n\n" + userText
	}

	body := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": userText},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxTokens,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	return httpReq, nil
}

// Parse extracts the normalized response from a generateContent reply.
func (a *GoogleAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, parseGoogleError(httpResp.StatusCode, body)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
			TotalTokenCount      int64 `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse google response: %w", err)
	}

	var text string
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}

	return &transport.Response{
		Text: text,
		Usage: transport.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
		Headers: httpResp.Header,
		RawBody: body,
	}, nil
}

// parseGoogleError converts Gemini error responses to typed errors. The 403
// and 404 statuses get distinct user-facing configuration messages: the
// former points at the key, the latter at the model or endpoint.
func parseGoogleError(statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusForbidden:
		return llmerrors.NewConfigError(ProviderGoogle,
			"request was refused (HTTP 403): check that the API key is valid and has access to the Generative Language API")
	case http.StatusNotFound:
		return llmerrors.NewConfigError(ProviderGoogle,
			"endpoint not found (HTTP 404): check the model name and API base URL")
	}

	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return &llmerrors.ProviderError{
			Provider:   ProviderGoogle,
			StatusCode: statusCode,
			Message:    errResp.Error.Message,
			Code:       errResp.Error.Status,
			Type:       llmerrors.Classify(statusCode),
		}
	}

	return &llmerrors.ProviderError{
		Provider:   ProviderGoogle,
		StatusCode: statusCode,
		Message:    string(body),
		Type:       llmerrors.Classify(statusCode),
	}
}

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GoogleProvider speaks the Google generative-content format.
type GoogleProvider struct {
	httpClient *http.Client
}

// NewGoogleProvider creates a new Google provider.
func NewGoogleProvider(httpClient *http.Client) *GoogleProvider {
	return &GoogleProvider{httpClient: httpClient}
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type googleRequest struct {
	Contents         []googleContent        `json:"contents"`
	GenerationConfig googleGenerationConfig `json:"generationConfig"`
}

type googleResponse struct {
	Candidates []struct {
		Content      googleContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// googleRole maps a logical role onto the wire role. Google names the assistant "model".
func googleRole(role string) string {
	if role == RoleAssistant {
		return "model"
	}
	return "user"
}

// Complete implements Provider.
func (p *GoogleProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	payload := googleRequest{
		Contents: make([]googleContent, 0, len(req.History)),
		GenerationConfig: googleGenerationConfig{
			Temperature:     req.Params.Temperature,
			MaxOutputTokens: req.Params.MaxTokens,
		},
	}
	for _, m := range req.History {
		payload.Contents = append(payload.Contents, googleContent{
			Role:  googleRole(m.Role),
			Parts: []googlePart{{Text: m.Content}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		req.BaseURL, url.PathEscape(req.Model), url.QueryEscape(req.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Provider: req.Provider, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Provider: req.Provider, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{
			Provider:   req.Provider,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	var gr googleResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", &UpstreamError{
			Provider:   req.Provider,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 || gr.Candidates[0].Content.Parts[0].Text == "" {
		return "", &UpstreamError{
			Provider:   req.Provider,
			StatusCode: resp.StatusCode,
			Err:        errors.New("no content in response"),
		}
	}

	return gr.Candidates[0].Content.Parts[0].Text, nil
}

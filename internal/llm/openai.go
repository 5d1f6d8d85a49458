package llm

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the OpenAI chat completions format, shared by OpenAI, Groq and DeepSeek.
type OpenAIProvider struct {
	httpClient *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIProvider{httpClient: httpClient}
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	// The key is per user, so the client is built per call.
	cfg := openai.DefaultConfig(req.APIKey)
	cfg.BaseURL = req.BaseURL
	capture := &errorBodyCapture{base: p.httpClient.Transport}
	httpClient := *p.httpClient
	httpClient.Transport = capture
	cfg.HTTPClient = &httpClient
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History))
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
	}
	if isReasoningModel(req.Model) {
		// Reasoning models reject max_tokens and non-default sampling parameters.
		chatReq.MaxCompletionTokens = req.Params.MaxTokens
	} else {
		chatReq.MaxTokens = req.Params.MaxTokens
		chatReq.Temperature = req.Params.Temperature
		if chatReq.Temperature == 0 {
			// go-openai omits a zero temperature; this value is sent and read upstream as 0.
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", openAIError(req.Provider, err, capture.body())
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &UpstreamError{
			Provider:   req.Provider,
			StatusCode: http.StatusOK,
			Err:        errors.New("no content in response"),
		}
	}

	return resp.Choices[0].Message.Content, nil
}

// openAIError converts go-openai errors into *UpstreamError, keeping status and the raw body.
func openAIError(provider string, err error, rawBody []byte) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		body := string(rawBody)
		if body == "" {
			body = apiErr.Message
		}
		return &UpstreamError{
			Provider:   provider,
			StatusCode: apiErr.HTTPStatusCode,
			Body:       body,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := string(reqErr.Body)
		if len(rawBody) > 0 {
			body = string(rawBody)
		}
		return &UpstreamError{
			Provider:   provider,
			StatusCode: reqErr.HTTPStatusCode,
			Body:       body,
			Err:        reqErr.Err,
		}
	}

	return &UpstreamError{Provider: provider, Err: err}
}

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// errorBodyCapture keeps a copy of the last non-2xx response body, which go-openai
// otherwise reduces to the parsed error message.
type errorBodyCapture struct {
	base http.RoundTripper

	mu  sync.Mutex
	raw []byte
}

func (c *errorBodyCapture) RoundTrip(r *http.Request) (*http.Response, error) {
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(r)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return resp, err
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	c.mu.Lock()
	c.raw = raw
	c.mu.Unlock()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp, nil
}

func (c *errorBodyCapture) body() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.raw
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Dialect identifies an upstream wire format.
type Dialect string

// Supported dialects.
const (
	DialectOpenAI Dialect = "openai-compatible"
	DialectGoogle Dialect = "google"
)

// Provider sends one completion request in a specific wire dialect and returns the reply text.
// Failures are reported as *UpstreamError.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderSpec is the static registry entry of an upstream provider.
type ProviderSpec struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Dialect Dialect  `json:"dialect"`
	BaseURL string   `json:"-"`
	Models  []string `json:"models"`
}

// DefaultProviderSpecs returns the built-in provider registry in display order.
func DefaultProviderSpecs() []ProviderSpec {
	return []ProviderSpec{
		{
			ID:      "openai",
			Name:    "OpenAI",
			Dialect: DialectOpenAI,
			BaseURL: "https://api.openai.com/v1",
			Models:  []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-3.5-turbo"},
		},
		{
			ID:      "groq",
			Name:    "Groq",
			Dialect: DialectOpenAI,
			BaseURL: "https://api.groq.com/openai/v1",
			Models:  []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant", "mixtral-8x7b-32768"},
		},
		{
			ID:      "deepseek",
			Name:    "DeepSeek",
			Dialect: DialectOpenAI,
			BaseURL: "https://api.deepseek.com/v1",
			Models:  []string{"deepseek-chat", "deepseek-reasoner"},
		},
		{
			ID:      "google",
			Name:    "Google Gemini",
			Dialect: DialectGoogle,
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Models:  []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
		},
	}
}

// Client routes completion requests to the dialect registered for a provider id.
type Client struct {
	specs    []ProviderSpec
	byID     map[string]int
	dialects map[Dialect]Provider
	params   ChatParams
}

// NewClient creates a Client over the default provider registry.
// baseURLs overrides registry base URLs by provider id; httpClient is shared by both dialects.
func NewClient(httpClient *http.Client, baseURLs map[string]string, params ChatParams) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		byID: make(map[string]int),
		dialects: map[Dialect]Provider{
			DialectOpenAI: NewOpenAIProvider(httpClient),
			DialectGoogle: NewGoogleProvider(httpClient),
		},
		params: params,
	}
	for _, spec := range DefaultProviderSpecs() {
		if u := baseURLs[spec.ID]; u != "" {
			spec.BaseURL = strings.TrimRight(u, "/")
		}
		c.Register(spec)
	}
	return c
}

// Register adds or replaces a registry entry.
func (c *Client) Register(spec ProviderSpec) {
	if i, ok := c.byID[spec.ID]; ok {
		c.specs[i] = spec
		return
	}
	c.byID[spec.ID] = len(c.specs)
	c.specs = append(c.specs, spec)
}

// SetDialect replaces the implementation used for a dialect.
func (c *Client) SetDialect(d Dialect, p Provider) {
	c.dialects[d] = p
}

// Provider returns the registry entry for id.
func (c *Client) Provider(id string) (ProviderSpec, bool) {
	i, ok := c.byID[id]
	if !ok {
		return ProviderSpec{}, false
	}
	return c.specs[i], true
}

// Providers returns all registry entries in registration order.
func (c *Client) Providers() []ProviderSpec {
	out := make([]ProviderSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Complete sends history to model at providerID, authenticating with apiKey.
func (c *Client) Complete(ctx context.Context, providerID, apiKey, model string, history []Message) (string, error) {
	spec, ok := c.Provider(providerID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, providerID)
	}
	p, ok := c.dialects[spec.Dialect]
	if !ok {
		return "", fmt.Errorf("%w: no dialect %s for %s", ErrUnsupportedProvider, spec.Dialect, providerID)
	}

	return p.Complete(ctx, CompletionRequest{
		Provider: spec.ID,
		BaseURL:  spec.BaseURL,
		APIKey:   apiKey,
		Model:    model,
		History:  history,
		Params:   c.params,
	})
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"writing-assistant/internal/domain"
	"writing-assistant/internal/integrations/paramstore"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client serves completions for every non-Claude model through the OpenAI API
// (or any OpenAI-compatible endpoint set with WithBaseURL).
type Client struct {
	baseURL    string
	httpClient *http.Client
	getter     paramstore.Getter
	keyParam   string

	keyMu  sync.Mutex
	apiKey string

	clientOnce sync.Once
	api        *goopenai.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if b := strings.TrimRight(strings.TrimSpace(baseURL), "/"); b != "" {
			c.baseURL = b
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithParamStore makes the client fetch its API key from an SSM parameter on first use.
func WithParamStore(getter paramstore.Getter, name string) Option {
	return func(c *Client) {
		c.getter = getter
		c.keyParam = strings.TrimSpace(name)
	}
}

// NewClient needs either a static apiKey or WithParamStore.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" && (c.getter == nil || c.keyParam == "") {
		return nil, errors.New("openai: api key or parameter store reference is required")
	}
	return c, nil
}

func (c *Client) Name() string {
	return providerName
}

// Supports reports whether the model belongs to this provider.
func (c *Client) Supports(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	return m != "" && !strings.HasPrefix(m, "claude")
}

// resolveAPIKey returns the static key, or fetches it from SSM. Only a successful
// fetch is cached, and the fetch ignores cancellation of ctx.
func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	key, err := paramstore.FetchToken(context.WithoutCancel(ctx), c.getter, c.keyParam)
	if err != nil {
		return "", err
	}
	c.apiKey = key
	return key, nil
}

func (c *Client) client(ctx context.Context) (*goopenai.Client, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("openai: resolve api key: %w", err)
	}
	c.clientOnce.Do(func() {
		cfg := goopenai.DefaultConfig(apiKey)
		cfg.BaseURL = c.baseURL
		if c.httpClient != nil {
			cfg.HTTPClient = c.httpClient
		}
		c.api = goopenai.NewClientWithConfig(cfg)
	})
	return c.api, nil
}

// Complete sends prompt as a single user message.
func (c *Client) Complete(ctx context.Context, prompt, model string) (domain.Completion, error) {
	if strings.TrimSpace(model) == "" {
		return domain.Completion{}, errors.New("openai: model must not be empty")
	}
	api, err := c.client(ctx)
	if err != nil {
		return domain.Completion{}, err
	}

	resp, err := api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return domain.Completion{}, wrapError("chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, errors.New("openai: no choices in response")
	}

	out := domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

// ListModels returns the models visible to the configured key, sorted by id.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	api, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	list, err := api.ListModels(ctx)
	if err != nil {
		return nil, wrapError("list models", err)
	}

	models := make([]domain.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, domain.ModelInfo{ID: m.ID, Name: m.ID, Provider: providerName})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// wrapError keeps the upstream HTTP status visible to callers.
func wrapError(op string, err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &HTTPStatusError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return fmt.Errorf("openai: %s request failed: %w", op, err)
}

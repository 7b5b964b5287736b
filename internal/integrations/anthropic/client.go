package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"writing-assistant/internal/domain"
	"writing-assistant/internal/integrations/paramstore"
)

const (
	providerName     = "anthropic"
	defaultMaxTokens = 4096
)

// catalogue is what ListModels reports; any claude* id is still accepted by Complete.
var catalogue = []string{
	"claude-3-5-haiku-latest",
	"claude-3-7-sonnet-latest",
	"claude-sonnet-4-0",
	"claude-opus-4-0",
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("anthropic: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *HTTPStatusError) Unwrap() error {
	return e.Err
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	maxTokens  int64
	getter     paramstore.Getter
	keyParam   string

	keyMu  sync.Mutex
	apiKey string

	clientOnce sync.Once
	api        sdk.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient replaces the SDK transport. The SDK's own retries are disabled
// when a client is supplied so retries happen in one place.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = int64(n)
		}
	}
}

func WithParamStore(getter paramstore.Getter, name string) Option {
	return func(c *Client) {
		c.getter = getter
		c.keyParam = strings.TrimSpace(name)
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		apiKey:    strings.TrimSpace(apiKey),
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" && (c.getter == nil || c.keyParam == "") {
		return nil, errors.New("anthropic: api key or parameter store reference is required")
	}
	return c, nil
}

func (c *Client) Name() string {
	return providerName
}

func (c *Client) Supports(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "claude")
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

func (c *Client) client(ctx context.Context) (*sdk.Client, error) {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("anthropic: resolve api key: %w", err)
	}
	c.clientOnce.Do(func() {
		opts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if c.baseURL != "" {
			opts = append(opts, option.WithBaseURL(c.baseURL))
		}
		if c.httpClient != nil {
			opts = append(opts, option.WithHTTPClient(c.httpClient), option.WithMaxRetries(0))
		}
		c.api = sdk.NewClient(opts...)
	})
	return &c.api, nil
}

// Complete sends prompt as a single user message and joins the returned text blocks.
func (c *Client) Complete(ctx context.Context, prompt, model string) (domain.Completion, error) {
	if strings.TrimSpace(model) == "" {
		return domain.Completion{}, errors.New("anthropic: model must not be empty")
	}
	api, err := c.client(ctx)
	if err != nil {
		return domain.Completion{}, err
	}

	msg, err := api.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: c.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
			return domain.Completion{}, &HTTPStatusError{StatusCode: apiErr.StatusCode, Err: err}
		}
		return domain.Completion{}, fmt.Errorf("anthropic: request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.Completion{}, errors.New("anthropic: no text content in response")
	}

	out := domain.Completion{
		Text:             text.String(),
		Model:            string(msg.Model),
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	if out.Model == "" {
		out.Model = model
	}
	return out, nil
}

// ListModels returns the static catalogue; it does not call the API.
func (c *Client) ListModels(_ context.Context) ([]domain.ModelInfo, error) {
	models := make([]domain.ModelInfo, 0, len(catalogue))
	for _, id := range catalogue {
		models = append(models, domain.ModelInfo{ID: id, Name: id, Provider: providerName})
	}
	return models, nil
}

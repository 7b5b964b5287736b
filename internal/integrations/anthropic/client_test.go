package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"writing-assistant/internal/domain"
)

type fakeGetter struct {
	val   string
	err   error
	calls int
}

func (f *fakeGetter) GetParameter(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.val, f.err
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL + "/"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient("sk-ant-test", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)

	c, err := NewClient("", WithParamStore(&fakeGetter{}, "/writing-assistant/anthropic"))
	require.NoError(t, err)
	require.Equal(t, int64(defaultMaxTokens), c.maxTokens)
}

func TestSupports(t *testing.T) {
	c, err := NewClient("sk-ant-test")
	require.NoError(t, err)

	require.True(t, c.Supports("claude-sonnet-4-0"))
	require.True(t, c.Supports(" Claude-3-opus "))
	require.False(t, c.Supports("gpt-4o"))
	require.False(t, c.Supports(""))
}

func TestClient_Complete_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "sk-ant-test", r.Header.Get("X-Api-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content []struct {
					Type string `json:"type"`
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "claude-sonnet-4-0", req.Model)
		require.Equal(t, 512, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		require.Equal(t, "user", req.Messages[0].Role)
		require.Equal(t, "Rewrite this", req.Messages[0].Content[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-0",
			"content": [
				{"type": "text", "text": "Hello "},
				{"type": "text", "text": "there"}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 11, "output_tokens": 4}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithMaxTokens(512))
	out, err := c.Complete(context.Background(), "Rewrite this", "claude-sonnet-4-0")
	require.NoError(t, err)
	require.Equal(t, domain.Completion{Text: "Hello there", Model: "claude-sonnet-4-0", PromptTokens: 11, CompletionTokens: 4}, out)
}

func TestClient_Complete_NoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-0","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Complete(context.Background(), "p", "claude-sonnet-4-0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no text content")
}

func TestClient_Complete_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError} {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`))
		}))

		c := newTestClient(t, srv)
		_, err := c.Complete(context.Background(), "p", "claude-sonnet-4-0")
		srv.Close()

		var statusErr *HTTPStatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, status, statusErr.HTTPStatusCode())
		require.Equal(t, 1, calls, "SDK retries must be disabled when a client is supplied")
	}
}

func TestClient_Complete_EmptyModel(t *testing.T) {
	c, err := NewClient("sk-ant-test")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "p", " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")
}

func TestClient_Complete_KeyFromParamStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sk-from-ssm", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m","type":"message","role":"assistant","model":"claude-opus-4-0","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	g := &fakeGetter{val: `{"token":"sk-from-ssm"}`}
	c, err := NewClient("",
		WithParamStore(g, "/writing-assistant/anthropic"),
		WithBaseURL(srv.URL+"/"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.Complete(context.Background(), "p", "claude-opus-4-0")
		require.NoError(t, err)
	}
	require.Equal(t, 1, g.calls)
}

func TestClient_Complete_KeyFetchError(t *testing.T) {
	c, err := NewClient("", WithParamStore(&fakeGetter{err: errors.New("ssm down")}, "/writing-assistant/anthropic"))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "p", "claude-opus-4-0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ssm down")
}

func TestClient_ListModels(t *testing.T) {
	c, err := NewClient("sk-ant-test")
	require.NoError(t, err)

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, len(catalogue))
	for _, m := range models {
		require.Equal(t, "anthropic", m.Provider)
		require.True(t, c.Supports(m.ID))
	}
}

func TestClient_Complete_KeyFetchRecovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sk-from-ssm", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"m","type":"message","role":"assistant","model":"claude-opus-4-0","content":[{"type":"text","text":"ok"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	g := &fakeGetter{err: errors.New("throttled")}
	c, err := NewClient("",
		WithParamStore(g, "/writing-assistant/anthropic"),
		WithBaseURL(srv.URL+"/"),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, "p", "claude-opus-4-0")
	require.ErrorContains(t, err, "throttled")

	g.err = nil
	g.val = `{"token":"sk-from-ssm"}`
	out, err := c.Complete(context.Background(), "p", "claude-opus-4-0")
	require.NoError(t, err)
	require.Equal(t, "ok", out.Text)
	require.Equal(t, 2, g.calls)
}

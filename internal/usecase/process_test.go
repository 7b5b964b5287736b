package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"writing-assistant/internal/domain"
)

type stubCompleter struct {
	out    domain.Completion
	err    error
	prompt string
	model  string
	calls  int
}

func (s *stubCompleter) Complete(_ context.Context, prompt, model string) (domain.Completion, error) {
	s.calls++
	s.prompt = prompt
	s.model = model
	return s.out, s.err
}

type statusErr struct{ code int }

func (e *statusErr) Error() string       { return fmt.Sprintf("status %d", e.code) }
func (e *statusErr) HTTPStatusCode() int { return e.code }

func fixedUUID(t *testing.T, id string) {
	t.Helper()
	orig := newUUID
	newUUID = func() string { return id }
	t.Cleanup(func() { newUUID = orig })
}

func TestNewProcessService(t *testing.T) {
	_, err := NewProcessService(nil, "", "")
	require.Error(t, err)

	svc, err := NewProcessService(&stubCompleter{}, "", "  ")
	require.NoError(t, err)
	require.Equal(t, "gpt-3.5-turbo", svc.DefaultModel())

	svc, err = NewProcessService(&stubCompleter{}, "", "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", svc.DefaultModel())
}

func TestProcess_HappyPath(t *testing.T) {
	fixedUUID(t, "abc")
	c := &stubCompleter{out: domain.Completion{Text: "  Hello there.  ", Model: "gpt-3.5-turbo-0125", PromptTokens: 40, CompletionTokens: 3}}
	svc, err := NewProcessService(c, "", "")
	require.NoError(t, err)

	out, err := svc.Process(context.Background(), ProcessInput{Text: " hi there ", Prompt: " be polite ", Attempt: 3})
	require.NoError(t, err)
	require.Equal(t, ProcessOutput{
		ID:       "result_3_abc",
		Original: "hi there",
		Result:   "Hello there.",
		Prompt:   "be polite",
		Attempt:  3,
		Model:    "gpt-3.5-turbo-0125",
		Tokens:   43,
	}, out)
	require.Equal(t, "gpt-3.5-turbo", c.model)
	require.Equal(t, BuildPrompt(domain.PromptRequest{Text: "hi there", Instruction: "be polite"}), c.prompt)
}

func TestProcess_PassesSystemPromptAndContext(t *testing.T) {
	c := &stubCompleter{out: domain.Completion{Text: "x"}}
	svc, err := NewProcessService(c, "  House style.  ", "")
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), ProcessInput{
		Prompt: "continue", ContextBefore: "Before.", ContextAfter: "After.", Model: "claude-sonnet-4-0",
	})
	require.NoError(t, err)
	require.Equal(t, "claude-sonnet-4-0", c.model)
	require.Equal(t, BuildPrompt(domain.PromptRequest{
		Instruction: "continue", ContextBefore: "Before.", ContextAfter: "After.", SystemPrompt: "House style.",
	}), c.prompt)
}

func TestProcess_DefaultsAttemptAndFallsBackToWordCount(t *testing.T) {
	fixedUUID(t, "id")
	c := &stubCompleter{out: domain.Completion{Text: "two words"}}
	svc, err := NewProcessService(c, "", "")
	require.NoError(t, err)

	out, err := svc.Process(context.Background(), ProcessInput{Prompt: "write"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Attempt)
	require.Equal(t, "result_1_id", out.ID)
	require.Equal(t, "gpt-3.5-turbo", out.Model)
	require.Equal(t, countWords(c.prompt)+2, out.Tokens)
}

func TestProcess_EmptyPromptRejected(t *testing.T) {
	c := &stubCompleter{}
	svc, err := NewProcessService(c, "", "")
	require.NoError(t, err)

	_, err = svc.Process(context.Background(), ProcessInput{Text: "abc", Prompt: "   "})
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInvalidInput, ucErr.Code)
	require.Equal(t, "empty_prompt", ucErr.Reason)
	require.Equal(t, "Prompt is required", ucErr.Message)
	require.Zero(t, c.calls)
}

func TestProcess_MapsCompletionErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		reason string
	}{
		{name: "model unavailable", err: fmt.Errorf("route: %w", domain.ErrModelUnavailable), code: ErrorModelUnavailable, reason: "model_unavailable"},
		{name: "rate limited", err: fmt.Errorf("wrapped: %w", &statusErr{code: http.StatusTooManyRequests}), code: ErrorRateLimited, reason: "provider_rate_limited"},
		{name: "server error", err: &statusErr{code: http.StatusInternalServerError}, code: ErrorUpstream, reason: "provider_error"},
		{name: "network", err: errors.New("dial tcp: refused"), code: ErrorUpstream, reason: "provider_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := NewProcessService(&stubCompleter{err: tc.err}, "", "")
			require.NoError(t, err)

			_, err = svc.Process(context.Background(), ProcessInput{Prompt: "p"})
			var ucErr *Error
			require.ErrorAs(t, err, &ucErr)
			require.Equal(t, tc.code, ucErr.Code)
			require.Equal(t, tc.reason, ucErr.Reason)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

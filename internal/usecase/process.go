package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"writing-assistant/internal/domain"
)

const defaultModel = "gpt-3.5-turbo"

// Completer sends a fully built prompt to a named model.
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (domain.Completion, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type ProcessService struct {
	completer    Completer
	systemPrompt string
	defaultModel string
}

type ProcessInput struct {
	Text          string
	Prompt        string
	ContextBefore string
	ContextAfter  string
	Attempt       int
	Model         string
}

type ProcessOutput struct {
	ID       string
	Original string
	Result   string
	Prompt   string
	Attempt  int
	Model    string
	Tokens   int
}

// NewProcessService wires the completion client with the process-wide system prompt.
// The system prompt is fixed for the lifetime of the service.
func NewProcessService(c Completer, systemPrompt, model string) (*ProcessService, error) {
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	return &ProcessService{
		completer:    c,
		systemPrompt: strings.TrimSpace(systemPrompt),
		defaultModel: model,
	}, nil
}

func (s *ProcessService) DefaultModel() string {
	return s.defaultModel
}

func (s *ProcessService) Process(ctx context.Context, in ProcessInput) (ProcessOutput, error) {
	text := strings.TrimSpace(in.Text)
	instruction := strings.TrimSpace(in.Prompt)
	if instruction == "" {
		return ProcessOutput{}, newError(ErrorInvalidInput, "empty_prompt", "Prompt is required", nil)
	}
	attempt := in.Attempt
	if attempt <= 0 {
		attempt = 1
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.defaultModel
	}

	prompt := BuildPrompt(domain.PromptRequest{
		Text:          text,
		Instruction:   instruction,
		ContextBefore: in.ContextBefore,
		ContextAfter:  in.ContextAfter,
		SystemPrompt:  s.systemPrompt,
	})

	completion, err := s.completer.Complete(ctx, prompt, model)
	if err != nil {
		return ProcessOutput{}, completionError(err, model)
	}

	result := strings.TrimSpace(completion.Text)
	if completion.Model != "" {
		model = completion.Model
	}
	tokens := completion.TotalTokens()
	if tokens == 0 {
		tokens = countWords(prompt) + countWords(result)
	}

	return ProcessOutput{
		ID:       resultID(attempt),
		Original: text,
		Result:   result,
		Prompt:   instruction,
		Attempt:  attempt,
		Model:    model,
		Tokens:   tokens,
	}, nil
}

func completionError(err error, model string) *Error {
	if errors.Is(err, domain.ErrModelUnavailable) {
		return newError(ErrorModelUnavailable, "model_unavailable",
			fmt.Sprintf("Model %q is not available", model), err)
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return newError(ErrorRateLimited, "provider_rate_limited", "The completion provider is rate limiting requests", err)
	}
	return newError(ErrorUpstream, "provider_error", "The completion provider request failed", err)
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func resultID(attempt int) string {
	return fmt.Sprintf("result_%d_%s", attempt, newUUID())
}

var newUUID = func() string {
	return uuid.NewString()
}

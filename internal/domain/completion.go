package domain

import "errors"

// ErrModelUnavailable is returned when no configured provider can serve a model.
var ErrModelUnavailable = errors.New("model unavailable")

// Completion is the provider-agnostic result of a single completion call.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

func (c Completion) TotalTokens() int {
	return c.PromptTokens + c.CompletionTokens
}

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

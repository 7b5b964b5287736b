package domain

// PromptRequest carries everything the prompt builder needs for one call.
// SystemPrompt is process-wide and set once at startup.
type PromptRequest struct {
	Text          string
	Instruction   string
	ContextBefore string
	ContextAfter  string
	SystemPrompt  string
}

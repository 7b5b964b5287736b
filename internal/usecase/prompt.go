package usecase

import (
	"fmt"
	"strings"

	"writing-assistant/internal/domain"
)

const (
	assistantRole     = "You are a helpful writing assistant."
	insertionMarker   = "[INSERT NEW TEXT HERE]"
	generatedTextCue  = "Generated text:"
	modifiedTextCue   = "Modified text:"
	sectionSeparator  = "\n\n"
	onlyOutputFormat  = "Please respond with ONLY the %s text, without any explanation or additional commentary."
	generationRequest = "The user wants you to generate text based on this request: "
	editRequest       = "The user has selected some text and wants you to: "
)

// BuildPrompt turns a request into the single prompt string sent to the model.
// An empty (or whitespace-only) Text selects generation mode, anything else edit mode.
// A configured system prompt is emitted first and replaces the generic assistant role.
// A blank system prompt counts as none.
func BuildPrompt(req domain.PromptRequest) string {
	var b strings.Builder
	hasSystem := strings.TrimSpace(req.SystemPrompt) != ""
	if hasSystem {
		b.WriteString(req.SystemPrompt)
		b.WriteString(sectionSeparator)
	}

	if isGeneration(req.Text) {
		b.WriteString(baseInstruction(generationRequest+req.Instruction, "generated", hasSystem))
		b.WriteString(generationContext(req.ContextBefore, req.ContextAfter))
	} else {
		b.WriteString(baseInstruction(editRequest+req.Instruction, "modified", hasSystem))
		b.WriteString(editContext(req.Text, req.ContextBefore, req.ContextAfter))
	}
	return b.String()
}

func isGeneration(text string) bool {
	return strings.TrimSpace(text) == ""
}

func baseInstruction(request, outputKind string, hasSystem bool) string {
	if hasSystem {
		return request
	}
	return assistantRole + " " + request + sectionSeparator + fmt.Sprintf(onlyOutputFormat, outputKind)
}

func generationContext(before, after string) string {
	if before == "" && after == "" {
		return sectionSeparator + generatedTextCue
	}
	parts := []string{"Here's the context where the text should be inserted:"}
	if before != "" {
		parts = append(parts, "BEFORE: ..."+before)
	}
	parts = append(parts, insertionMarker)
	if after != "" {
		parts = append(parts, "AFTER: "+after+"...")
	}
	parts = append(parts, generatedTextCue)
	return sectionSeparator + strings.Join(parts, sectionSeparator)
}

func editContext(text, before, after string) string {
	var parts []string
	if before == "" && after == "" {
		parts = []string{"Selected text to modify:\n" + text}
	} else {
		parts = []string{"Here's the context around the selected text:"}
		if before != "" {
			parts = append(parts, "BEFORE: ..."+before)
		}
		parts = append(parts, "SELECTED TEXT: "+text)
		if after != "" {
			parts = append(parts, "AFTER: "+after+"...")
		}
	}
	parts = append(parts, modifiedTextCue)
	return sectionSeparator + strings.Join(parts, sectionSeparator)
}

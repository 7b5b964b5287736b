package systemprompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"writing-assistant/internal/integrations/paramstore"
)

// ErrNotFound is returned when a system prompt file does not exist.
var ErrNotFound = errors.New("systemprompt: file not found")

// Load resolves source once at startup. An empty source yields an empty prompt,
// "ssm:/name" reads a parameter, anything else is a path to a markdown file.
// The result is trimmed.
func Load(ctx context.Context, source string, getter paramstore.Getter) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil
	}

	if name, ok := paramstore.ParseReference(source); ok {
		if getter == nil {
			return "", fmt.Errorf("systemprompt: %q needs a parameter store client", source)
		}
		v, err := getter.GetParameter(ctx, name)
		if err != nil {
			return "", fmt.Errorf("systemprompt: load parameter: %w", err)
		}
		return strings.TrimSpace(v), nil
	}

	data, err := os.ReadFile(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, source)
		}
		return "", fmt.Errorf("systemprompt: read %s: %w", source, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Preview shortens a prompt for startup logs.
func Preview(prompt string, limit int) string {
	r := []rune(prompt)
	if limit <= 0 || len(r) <= limit {
		return prompt
	}
	return string(r[:limit]) + "..."
}

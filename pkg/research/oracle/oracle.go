// Package oracle is the language-model boundary of the assistant.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrMalformedOutput is returned when a structured completion does not
// contain a JSON object that decodes into the requested type.
var ErrMalformedOutput = errors.New("malformed structured output")

// Oracle is the language-model completion service shared by every node.
// Implementations must be safe for concurrent use.
type Oracle interface {
	// Complete returns free text for a system prompt and user content.
	Complete(ctx context.Context, system, user string) (string, error)

	// CompleteStructured decodes the model's answer into out.
	// A transport failure is returned as is; an answer that cannot be
	// decoded wraps ErrMalformedOutput.
	CompleteStructured(ctx context.Context, system, user string, out Structured) error
}

// Structured is a result type the model is asked to fill in.
// Format describes the expected JSON object to the model.
type Structured interface {
	Format() string
}

// DecodeStructured extracts the outermost JSON object from model text,
// tolerating code fences and surrounding prose, and decodes it into out.
func DecodeStructured(text string, out any) error {
	body := strings.TrimSpace(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return fmt.Errorf("%w: no JSON object in %q", ErrMalformedOutput, truncate(body, 80))
	}
	if err := sonic.UnmarshalString(body[start:end+1], out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

// structuredPrompt appends the output contract to a system prompt.
func structuredPrompt(system string, out Structured) string {
	return system + "\n\nRespond with a single JSON object and nothing else. Shape:\n" + out.Format()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

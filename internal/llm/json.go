package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"shipdoc/internal"
)

// ExtractJSON strips markdown fences and returns the outermost {...} object
// in content, or "" when there is none.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// DecodeJSON decodes model output into v. Any failure is reported as
// ErrMalformedLLMOutput.
func DecodeJSON(content string, v any) error {
	raw := ExtractJSON(content)
	if raw == "" {
		return fmt.Errorf("%w: no json object", internal.ErrMalformedLLMOutput)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrMalformedLLMOutput, err)
	}
	return nil
}

// Ask sends a system+user exchange and decodes the reply into v.
func Ask(ctx context.Context, c Completer, system, user string, v any) error {
	content, err := c.Complete(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return err
	}
	return DecodeJSON(content, v)
}

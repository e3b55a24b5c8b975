package generator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError is returned when a JSON-mode reply does not decode.
// It is surfaced as-is; re-running the stage is the recovery path.
type MalformedResponseError struct {
	Stage string
	Raw   string
	Err   error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed JSON reply: %v", e.Stage, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// StripJSONFence removes a leading ```json / ``` marker and a trailing ```
// that some models wrap around JSON replies.
func StripJSONFence(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// DecodeJSON strips fences from raw and decodes it into v. The reply must be
// a single JSON object.
func DecodeJSON(stage, raw string, v any) error {
	body := StripJSONFence(raw)
	if !strings.HasPrefix(body, "{") {
		return &MalformedResponseError{Stage: stage, Raw: raw, Err: fmt.Errorf("expected a JSON object")}
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return &MalformedResponseError{Stage: stage, Raw: raw, Err: err}
	}
	return nil
}

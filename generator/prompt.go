package generator

// Prompt is one request to the text-generation service.
type Prompt struct {
	// Stage labels the request for logging and for the mock client.
	Stage   string
	System  string
	User    string
	History []Message

	Temperature float64
	// JSONMode asks for a single JSON object with no surrounding prose.
	JSONMode  bool
	MaxTokens int
}

// Message is a prior turn replayed before the user request.
type Message struct {
	Role    string
	Content string
}

const jsonOnlySuffix = "\n\nIMPORTANT: You must respond with valid JSON only. No markdown code blocks, no explanations - just the raw JSON object."

// SystemText returns the system instructions, with the JSON-only reminder
// appended when JSONMode is set.
func (p Prompt) SystemText() string {
	if p.JSONMode {
		return p.System + jsonOnlySuffix
	}
	return p.System
}

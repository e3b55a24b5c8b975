// Package revision applies reviewer comments on a single line of a post.
package revision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auto_blog_pipeline/generator"
)

const (
	contextLines     = 5
	revisionTokens   = 8000
	revisionTemp     = 0.3
	revisionStage    = "revision"
	maxCommentLogLen = 100
)

var (
	// ErrEmptyRevision is returned when the service replies without content.
	ErrEmptyRevision = errors.New("revision: no revised content returned")
	ErrEmptyComment  = errors.New("revision: comment is empty")
)

const systemPrompt = `You are an expert editor revising a technical blog post based on reviewer feedback.
Read the whole post, focus on the line the reviewer commented on, and apply the suggestion while keeping the author's voice, technical accuracy and markdown structure.
Make targeted, minimal changes. Apply document-wide changes only when the feedback asks for them.

Respond with a JSON object:
{
  "revised_content": "the full revised markdown",
  "changes_made": "1-2 sentence summary",
  "lines_affected": "which lines changed"
}`

// Result is one revision reply.
type Result struct {
	RevisedContent string `json:"revised_content"`
	ChangesMade    string `json:"changes_made"`
	LinesAffected  string `json:"lines_affected"`
}

// Turn records a comment and the revision it produced.
type Turn struct {
	Line      int       `json:"line"`
	Comment   string    `json:"comment"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Session holds one document across successive revisions.
type Session struct {
	ID      string
	Content string
	History []Turn
	llm     generator.LLMClient
}

func NewSession(id, content string, llm generator.LLMClient) (*Session, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Session{ID: id, Content: content, llm: llm}, nil
}

// Revise asks for a revision targeting line (1-based) and, on success,
// replaces the session content with it.
func (s *Session) Revise(ctx context.Context, line int, comment string) (Result, error) {
	if strings.TrimSpace(comment) == "" {
		return Result{}, ErrEmptyComment
	}
	raw, err := s.llm.Complete(ctx, generator.Prompt{
		Stage:       revisionStage,
		System:      systemPrompt,
		User:        buildPrompt(s.Content, line, comment),
		History:     s.historyMessages(),
		Temperature: revisionTemp,
		JSONMode:    true,
		MaxTokens:   revisionTokens,
	})
	if err != nil {
		return Result{}, fmt.Errorf("revision: %w", err)
	}
	var res Result
	if err := generator.DecodeJSON(revisionStage, raw, &res); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(res.RevisedContent) == "" {
		return Result{}, ErrEmptyRevision
	}
	s.Content = res.RevisedContent
	s.History = append(s.History, Turn{Line: line, Comment: comment, Result: res, CreatedAt: time.Now()})
	return res, nil
}

// historyMessages replays earlier comments and their summaries so the
// service knows what was already changed.
func (s *Session) historyMessages() []generator.Message {
	msgs := make([]generator.Message, 0, len(s.History)*2)
	for _, t := range s.History {
		msgs = append(msgs,
			generator.Message{Role: "user", Content: fmt.Sprintf("Line %d: %s", t.Line, t.Comment)},
			generator.Message{Role: "assistant", Content: t.Result.ChangesMade},
		)
	}
	return msgs
}

// LineContext is the target line and up to contextLines lines either side.
type LineContext struct {
	Line   int
	Target string
	Before []string
	After  []string
}

// ContextFor extracts the neighbourhood of a 1-based line. A line outside
// the document yields an empty target.
func ContextFor(content string, line, radius int) LineContext {
	lines := strings.Split(content, "\n")
	idx := line - 1
	lc := LineContext{Line: line}
	if idx >= 0 && idx < len(lines) {
		lc.Target = lines[idx]
	}
	start := max(0, idx-radius)
	end := min(len(lines), idx+radius+1)
	if start < idx && start < len(lines) {
		lc.Before = lines[start:min(idx, len(lines))]
	}
	if idx+1 < end {
		lc.After = lines[max(idx+1, 0):end]
	}
	return lc
}

func buildPrompt(content string, line int, comment string) string {
	lc := ContextFor(content, line, contextLines)
	var b strings.Builder
	b.WriteString("## Full Document Content\n\n")
	b.WriteString(content)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Location**: Line %d\n\n", line)
	fmt.Fprintf(&b, "**Target Line**:\n```\n%s\n```\n\n", lc.Target)
	b.WriteString("**Surrounding Context**:\n```\n")
	for _, l := range lc.Before {
		b.WriteString(l + "\n")
	}
	fmt.Fprintf(&b, ">>> %s  <<<  [LINE %d - REVIEWER COMMENT HERE]\n", lc.Target, line)
	for _, l := range lc.After {
		b.WriteString(l + "\n")
	}
	b.WriteString("```\n\n")
	fmt.Fprintf(&b, "**Reviewer's Comment**:\n%s\n\n", comment)
	b.WriteString("Revise the document according to the feedback. Focus on the indicated line unless the feedback asks for more.")
	return b.String()
}

// Abbreviate shortens a comment for log lines.
func Abbreviate(comment string) string {
	r := []rune(comment)
	if len(r) <= maxCommentLogLen {
		return comment
	}
	return string(r[:maxCommentLogLen]) + "..."
}

package publisher

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const (
	untitled          = "Untitled Post"
	descriptionLimit  = 150
	defaultAuthor     = "Adam"
	reviewCommentOpen = "<!-- "
)

var defaultBaseTags = []string{"technical-leadership"}

// Frontmatter is the YAML block at the top of a finished post.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Author      string   `yaml:"author"`
	Tags        []string `yaml:"tags,flow"`
	Description string   `yaml:"description"`
}

// ReviewSummary is the part of the quality review shown in the post's
// review comment.
type ReviewSummary struct {
	QualityScore      float64
	ContentType       string
	VoicePreserved    bool
	ConclusionQuality string
	ReadyToPublish    bool
	Notes             string
}

// Article is everything Finalize needs from a reviewed pipeline run.
type Article struct {
	// Body is the polished markdown, H1 title included.
	Body        string
	Thesis      string
	ContentType string
	Review      *ReviewSummary
}

// Options controls frontmatter values that do not come from the article.
type Options struct {
	Author   string
	BaseTags []string
	Date     time.Time
}

// ExtractTitle returns the text of the first "# " line.
func ExtractTitle(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return untitled
}

// StripTitle removes every "# " line and trims the result.
func StripTitle(markdown string) string {
	lines := strings.Split(markdown, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "# ") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// TagsFor returns base followed by the tags for a content type.
func TagsFor(contentType string, base []string) []string {
	tags := append([]string(nil), base...)
	switch contentType {
	case "personal_insight":
		tags = append(tags, "personal", "insights")
	case "technical_howto":
		tags = append(tags, "tutorial", "how-to")
	case "business_case":
		tags = append(tags, "business", "roi")
	case "thought_leadership":
		tags = append(tags, "strategy", "leadership")
	default:
		tags = append(tags, "engineering")
	}
	return tags
}

func description(thesis string) string {
	thesis = strings.TrimSpace(thesis)
	if utf8.RuneCountInString(thesis) <= descriptionLimit {
		return thesis
	}
	return string([]rune(thesis)[:descriptionLimit]) + "..."
}

// Finalize builds the publishable markdown: YAML frontmatter, the review
// comment (when a review is present) and the body without its H1.
func Finalize(a Article, opts Options) (string, error) {
	if opts.Author == "" {
		opts.Author = defaultAuthor
	}
	if opts.BaseTags == nil {
		opts.BaseTags = defaultBaseTags
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}

	fm := Frontmatter{
		Title:       ExtractTitle(a.Body),
		Date:        opts.Date.Format("2006-01-02"),
		Author:      opts.Author,
		Tags:        TagsFor(a.ContentType, opts.BaseTags),
		Description: description(a.Thesis),
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	if a.Review != nil {
		b.WriteString(reviewComment(*a.Review, a.ContentType))
		b.WriteString("\n\n")
	}
	b.WriteString(StripTitle(a.Body))
	b.WriteString("\n")
	return b.String(), nil
}

func reviewComment(r ReviewSummary, contentType string) string {
	if r.ContentType == "" {
		r.ContentType = contentType
	}
	status := "⚠️ Needs Review"
	if r.ReadyToPublish {
		status = "✅ Ready to Publish"
	}
	notes := r.Notes
	if notes == "" {
		notes = "No notes"
	}
	// A stray terminator would end the comment early.
	notes = strings.ReplaceAll(notes, "-->", "->")

	lines := []string{
		reviewCommentOpen,
		"Pipeline Review:",
		fmt.Sprintf("- Quality Score: %g/10", r.QualityScore),
		"- Content Type: " + r.ContentType,
		fmt.Sprintf("- Voice Preserved: %v", r.VoicePreserved),
	}
	if r.ConclusionQuality != "" {
		lines = append(lines, "- Conclusion Quality: "+r.ConclusionQuality)
	}
	lines = append(lines, "- Status: "+status, "- Notes: "+notes, "-->")
	return strings.Join(lines, "\n")
}

// SplitFrontmatter separates a leading "---" block from the body. Markdown
// without frontmatter returns a zero Frontmatter and the input unchanged.
func SplitFrontmatter(markdown string) (Frontmatter, string, error) {
	var fm Frontmatter
	if !strings.HasPrefix(markdown, "---\n") {
		return fm, markdown, nil
	}
	rest := markdown[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, markdown, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, markdown, fmt.Errorf("decode frontmatter: %w", err)
	}
	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return fm, body, nil
}

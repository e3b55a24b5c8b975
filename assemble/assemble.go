// Package assemble splices generated images into a finished post.
package assemble

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"auto_blog_pipeline/images"
)

// Unmatched reasons.
const (
	ReasonNoHeading = "no matching H2 heading"
	ReasonNoImage   = "image not generated"
	ReasonDuplicate = "an earlier diagram targets the same heading"
)

// Unmatched describes a planned diagram that was not placed. It does not
// change what gets inserted.
type Unmatched struct {
	ImageID       string `json:"image_id"`
	TargetSection string `json:"target_section"`
	Reason        string `json:"reason"`
}

// Output is the assembled markdown plus diagnostics.
type Output struct {
	Markdown  string
	Unmatched []Unmatched
	// Placed counts inserted image references, hero included.
	Placed int
}

var (
	wordSeparators = regexp.MustCompile(`[-_/]`)
	nonWordChars   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// NormalizeHeading lower-cases s, turns hyphens, underscores and slashes into
// spaces, drops everything else except ASCII letters, digits and whitespace,
// and collapses whitespace runs. "Scaling-Up!" becomes "scaling up".
func NormalizeHeading(s string) string {
	s = wordSeparators.ReplaceAllString(strings.ToLower(s), " ")
	s = nonWordChars.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

type diagram struct {
	id     string
	target string
	ref    string
	alt    string
	cap    string
}

// Insert walks the markdown once and adds image references: the hero after
// the frontmatter and review comment, and each diagram after the H2 whose
// normalized text equals its normalized target. relDir is the directory the
// references point into. Input lines are never removed or reordered.
func Insert(markdown string, result *images.Result, plan images.Plan, relDir string) Output {
	byTarget := map[string][]diagram{}
	var unmatched []Unmatched
	for i, d := range plan.Diagrams {
		id := d.ImageID
		if id == "" {
			id = fmt.Sprintf("section_%d", i+1)
		}
		if d.TargetSection == "" {
			unmatched = append(unmatched, Unmatched{ImageID: id, Reason: ReasonNoHeading})
			continue
		}
		img, ok := result.Lookup(id)
		if !ok {
			unmatched = append(unmatched, Unmatched{ImageID: id, TargetSection: d.TargetSection, Reason: ReasonNoImage})
			continue
		}
		alt := d.AltText
		if alt == "" {
			alt = "Diagram: " + d.TargetSection
		}
		key := NormalizeHeading(d.TargetSection)
		byTarget[key] = append(byTarget[key], diagram{
			id:     id,
			target: d.TargetSection,
			ref:    imageRef(relDir, img.FilePath),
			alt:    alt,
			cap:    d.Caption,
		})
	}

	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines)+8)
	var (
		inFrontmatter    bool
		frontmatterEnded bool
		heroInserted     bool
		placed           int
	)
	hero, hasHero := result.Lookup(images.HeroImageID)
	matched := map[string]bool{}

	for i, line := range lines {
		out = append(out, line)
		trimmed := strings.TrimSpace(line)

		if trimmed == "---" {
			if !inFrontmatter {
				inFrontmatter = true
			} else {
				frontmatterEnded = true
				inFrontmatter = false
				continue
			}
		}

		if frontmatterEnded && !heroInserted && isHeroTrigger(lines, i) {
			if hasHero {
				out = append(out, "", fmt.Sprintf("![Hero Image](%s)", imageRef(relDir, hero.FilePath)), "")
				placed++
			}
			heroInserted = true
		}

		if strings.HasPrefix(line, "## ") {
			key := NormalizeHeading(line[3:])
			if candidates := byTarget[key]; len(candidates) > 0 {
				d := candidates[0]
				out = append(out, "", fmt.Sprintf("![%s](%s)", d.alt, d.ref))
				if d.cap != "" {
					out = append(out, "*"+d.cap+"*")
				}
				out = append(out, "")
				placed++
				matched[key] = true
			}
		}
	}

	for key, ds := range byTarget {
		for i, d := range ds {
			reason := ReasonNoHeading
			if matched[key] {
				if i == 0 {
					continue
				}
				reason = ReasonDuplicate
			}
			unmatched = append(unmatched, Unmatched{ImageID: d.id, TargetSection: d.target, Reason: reason})
		}
	}

	return Output{Markdown: strings.Join(out, "\n"), Unmatched: sortUnmatched(plan, unmatched), Placed: placed}
}

// isHeroTrigger reports whether line idx is the closing "-->" of the review
// comment or the first real content line after it.
func isHeroTrigger(lines []string, idx int) bool {
	trimmed := strings.TrimSpace(lines[idx])
	if trimmed == "-->" {
		return true
	}
	if trimmed == "" || strings.HasPrefix(trimmed, "<!--") || strings.HasPrefix(trimmed, "-") {
		return false
	}
	return !inHTMLComment(lines, idx)
}

// inHTMLComment rescans lines[0..idx] on every call. A line that opens a
// comment without closing it enters comment state; any line containing
// "-->" leaves it.
func inHTMLComment(lines []string, idx int) bool {
	in := false
	for i := 0; i <= idx && i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.Contains(line, "<!--") && !strings.Contains(line, "-->"):
			in = true
		case strings.Contains(line, "-->"):
			in = false
		}
	}
	return in
}

func imageRef(relDir, filePath string) string {
	name := filepath.Base(filePath)
	if relDir == "" {
		return name
	}
	return path.Join(relDir, name)
}

// sortUnmatched restores plan order, which map iteration loses.
func sortUnmatched(plan images.Plan, in []Unmatched) []Unmatched {
	if len(in) == 0 {
		return nil
	}
	out := make([]Unmatched, 0, len(in))
	used := make([]bool, len(in))
	for i, d := range plan.Diagrams {
		id := d.ImageID
		if id == "" {
			id = fmt.Sprintf("section_%d", i+1)
		}
		for j, u := range in {
			if !used[j] && u.ImageID == id && u.TargetSection == d.TargetSection {
				out = append(out, u)
				used[j] = true
			}
		}
	}
	return out
}

// CopyImages copies every generated image that exists on disk into destDir
// and returns the destination paths.
func CopyImages(result *images.Result, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	var copied []string
	if result == nil {
		return copied, nil
	}
	for _, img := range result.Images {
		if _, err := os.Stat(img.FilePath); err != nil {
			continue
		}
		dest := filepath.Join(destDir, filepath.Base(img.FilePath))
		if err := copyFile(img.FilePath, dest); err != nil {
			return copied, fmt.Errorf("copy %s: %w", img.ImageID, err)
		}
		copied = append(copied, dest)
	}
	return copied, nil
}

func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

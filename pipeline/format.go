package pipeline

import (
	"fmt"
	"strings"
)

const (
	noPreserveText  = "No specific elements flagged"
	noEvidenceText  = "No external evidence - rely on author's experience"
	noSectionsText  = "No H2 sections found"
	noSearchResults = "No results found"
	noSearcherText  = "No search results available. Use only information from the original draft."
)

// outlineSummary renders one line per section for query planning:
// "- Title: point, point".
func outlineSummary(outline []Section) string {
	lines := make([]string, 0, len(outline))
	for _, s := range outline {
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Title, strings.Join(s.KeyPoints, ", ")))
	}
	return strings.Join(lines, "\n")
}

// outlineDetail renders the numbered outline handed to expansion.
func outlineDetail(outline []Section) string {
	blocks := make([]string, 0, len(outline))
	for i, s := range outline {
		purpose := s.Purpose
		if purpose == "" {
			purpose = "N/A"
		}
		blocks = append(blocks, fmt.Sprintf("%d. %s\n   Purpose: %s\n   Points: %s",
			i+1, s.Title, purpose, strings.Join(s.KeyPoints, ", ")))
	}
	return strings.Join(blocks, "\n")
}

func preserveBlock(elements []string) string {
	if len(elements) == 0 {
		return noPreserveText
	}
	lines := make([]string, len(elements))
	for i, e := range elements {
		lines[i] = "- " + e
	}
	return strings.Join(lines, "\n")
}

// evidenceBlock lists external claims, or the author-experience fallback when
// the synthesis flagged insufficient evidence or returned none.
func evidenceBlock(ev *Evidence) string {
	if ev == nil || ev.InsufficientEvidence() || len(ev.Evidence) == 0 {
		return noEvidenceText
	}
	lines := make([]string, len(ev.Evidence))
	for i, c := range ev.Evidence {
		source := c.Source
		if source == "" {
			source = "N/A"
		}
		lines[i] = fmt.Sprintf("- %s (Source: %s)", c.Claim, source)
	}
	return strings.Join(lines, "\n")
}

// ExtractH2 returns the text of every line starting with "## ", in order.
func ExtractH2(markdown string) []string {
	var headings []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimSpace(line[3:]))
		}
	}
	return headings
}

func headingList(headings []string) string {
	if len(headings) == 0 {
		return noSectionsText
	}
	lines := make([]string, len(headings))
	for i, h := range headings {
		lines[i] = "- " + h
	}
	return strings.Join(lines, "\n")
}

// authorExperienceContext stands in for search results when external
// grounding is bypassed.
func authorExperienceContext(ct ContentType, thesis string) string {
	return fmt.Sprintf(`Content type: %s
This is a personal insight piece. The author's own experience is the primary evidence.
Do not invent external statistics or case studies.
Thesis: %s`, ct, thesis)
}

package pipeline

import (
	"fmt"
	"strings"
)

// Prompt texts. The pipeline only cares about the data threaded through
// them; the wording is editorial and can change freely.

const intakeSystem = `You are an expert editor who helps authors develop their ideas into well-structured content. Understand what the author is trying to say; do not impose a formula. Personal insight essays keep their voice and examples, technical guides need clear steps, business content may use metrics and case studies, thought leadership needs its unique perspective amplified.`

const queriesSystem = `You are a research assistant helping to find supporting evidence for a blog post. You are honest about what you find and what you don't find.`

const synthesisSystem = `You synthesize research findings honestly. You NEVER invent statistics, case studies, or sources. If you don't have real data, you say so.`

const expansionSystem = `You are an expert writer who adapts your style to match the content. You preserve the author's voice and unique elements while improving structure and clarity.`

const polishSystem = `You are a senior editor who polishes writing while preserving the author's voice. You make targeted improvements without sanitizing personality.`

const reviewSystem = `You evaluate content against its own goals, not a fixed rubric. Different content types succeed in different ways. You are critical but constructive.`

const imagePlanSystem = `You are an art director for a technical blog. You plan one artistic hero image and a small number of clean explanatory diagrams for sections that genuinely benefit from a visual.`

func intakeUser(draft string) string {
	var sb strings.Builder
	sb.WriteString("Read this draft and work out what the author is actually trying to communicate.\n\n")
	sb.WriteString("1. Detect the content type: personal_insight, technical_howto, business_case, thought_leadership or hybrid.\n")
	sb.WriteString("2. State the core insight in 1-2 sentences and a fuller thesis.\n")
	sb.WriteString("3. Describe the author's voice and list examples, anecdotes or phrasings that MUST be preserved.\n")
	sb.WriteString("4. Suggest 3-5 sections that help the draft succeed at what it is trying to do.\n")
	sb.WriteString("5. Flag only the gaps that matter for THIS type of content.\n\n")
	sb.WriteString(`Output as JSON:
{
  "content_type": "string",
  "core_insight": "string",
  "thesis": "string",
  "author_voice": "string",
  "preserve_elements": ["string"],
  "outline": [{"section_title": "string", "purpose": "string", "key_points": ["string"]}],
  "gaps_to_address": ["string"],
  "guidance_for_later_stages": "string"
}`)
	sb.WriteString("\n\nHere is the raw draft:\n\n")
	sb.WriteString(draft)
	return sb.String()
}

func queriesUser(contentType ContentType, thesis, guidance, outline string) string {
	return fmt.Sprintf(`Based on the content type and thesis below, determine what kind of grounding this piece needs.

Content Type: %s
Thesis: %s
Guidance: %s

Outline:
%s

personal_insight pieces may not need external sources: the author's experience IS the evidence.
Generate 3-5 search queries ONLY if external grounding would strengthen this piece.

Output as JSON:
{
  "grounding_strategy": "string",
  "author_experience_sufficient": true,
  "search_queries": [{"query": "string", "purpose": "string", "priority": "high|medium|low", "required": false}]
}`, contentType, thesis, guidance, outline)
}

func synthesisUser(contentType ContentType, searchResults string) string {
	return fmt.Sprintf(`Based on the search results below, extract what's actually there.

Rules:
- ONLY include information that is actually in the search results.
- If the results are empty or insufficient, set has_sufficient_external_evidence to false and leave evidence and case_studies empty.
- NEVER invent statistics, percentages, metrics or case studies.
- For personal_insight content the author's experience is valid evidence.

Content Type: %s
Search Results:
%s

Output as JSON:
{
  "has_sufficient_external_evidence": false,
  "evidence": [{"claim": "string", "source": "string", "metric": null}],
  "case_studies": [{"company": "string", "example": "string", "result": "string", "source": "string"}],
  "author_experience_notes": "string",
  "gaps": ["string"]
}`, contentType, searchResults)
}

type expansionInput struct {
	ContentType ContentType
	Voice       string
	Guidance    string
	Thesis      string
	Preserve    string
	Outline     string
	Evidence    string
	Draft       string
}

func expansionUser(in expansionInput) string {
	return fmt.Sprintf(`Write a complete blog post from the structured input below. Adapt to the content type:
personal_insight keeps first-person voice and anecdotes with no corporate framing; technical_howto is precise with steps;
business_case uses metrics only if they appear in the research; thought_leadership develops the framework fully.

Open with the core insight, keep paragraphs short, use active voice, target 600-900 words,
and write markdown with an H1 title and H2 sections.

Content Type: %s
Author Voice: %s
Guidance: %s

Core Insight: %s

Elements to PRESERVE:
%s

Outline:
%s

Research/Evidence (use only what's real):
%s

Original Draft:
%s

Do NOT add fake statistics or case studies. Do NOT include meta-commentary - just write the post.`,
		in.ContentType, in.Voice, in.Guidance, in.Thesis, in.Preserve, in.Outline, in.Evidence, in.Draft)
}

func polishUser(contentType ContentType, voice, draft string) string {
	return fmt.Sprintf(`Polish this draft while preserving its character.

Content Type: %s
Author Voice: %s

Tighten sentences, prefer active voice, give each paragraph one clear point and check the opening delivers the core insight.
Do not add statistics, remove anecdotes, switch person, or make it sound corporate.

Draft:
%s

Provide the polished version. Output markdown only.`, contentType, voice, draft)
}

func reviewUser(contentType ContentType, insight, voice, content string) string {
	return fmt.Sprintf(`Review this post against what it's TRYING to be.

Content Type: %s
Original Core Insight: %s
Author Voice: %s

Check that the core insight is clear early, the structure serves the content, the length is right, and the
conclusion is specific rather than a generic call to action (flag a weak conclusion as a medium issue).

Post to Review:
%s

Output as JSON:
{
  "quality_score": 8,
  "content_type_fit": "string",
  "voice_preserved": true,
  "core_insight_clear": true,
  "conclusion_quality": "strong|adequate|weak|generic",
  "issues": [{"severity": "high|medium|low", "issue": "string", "suggestion": "string"}],
  "ready_to_publish": true,
  "reviewer_notes": "string"
}`, contentType, insight, voice, content)
}

func imagePlanUser(contentType ContentType, insight, voice, sections, article string) string {
	return fmt.Sprintf(`Plan the images for this finished blog post.

Content Type: %s
Core Insight: %s
Author Voice: %s

H2 sections (target_section MUST be copied exactly from this list):
%s

Post:
%s

Output as JSON:
{
  "hero": {"prompt": "string", "description": "string"},
  "diagrams": [
    {"image_id": "section_1", "target_section": "string", "diagram_type": "flow|infographic|architecture|comparison",
     "prompt": "string", "alt_text": "string", "caption": "string"}
  ]
}`, contentType, insight, voice, sections, article)
}

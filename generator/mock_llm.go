package generator

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
)

// MockLLM is an offline stand-in for local dry runs. It answers each stage
// with a fixed, well-formed reply and never calls a network service.
type MockLLM struct{}

var mockReplies = map[string]string{
	"stage1": `{
  "content_type": "personal_insight",
  "core_insight": "Small feedback loops beat big plans.",
  "thesis": "Teams learn faster when they shorten the loop between doing and noticing.",
  "author_voice": "first_person_reflective",
  "preserve_elements": ["the hot tub story"],
  "outline": [
    {"section_title": "The Moment It Clicked", "purpose": "hook", "key_points": ["hot tub", "realization"]},
    {"section_title": "Why Loops Matter", "purpose": "argument", "key_points": ["speed", "honesty"]}
  ],
  "gaps_to_address": [],
  "guidance_for_later_stages": "Keep it personal."
}`,
	"stage2a": `{"grounding_strategy": "author experience", "author_experience_sufficient": true, "search_queries": []}`,
	"stage2b": `{"has_sufficient_external_evidence": false, "evidence": [], "case_studies": [], "author_experience_notes": "Author experience is the evidence.", "gaps": []}`,
	"stage3":  mockArticle,
	"stage4":  mockArticle,
	"stage5":  `{"quality_score": 8, "voice_preserved": true, "core_insight_clear": true, "conclusion_quality": "strong", "issues": [], "ready_to_publish": true, "reviewer_notes": "Mock review."}`,
	"stage6": `{
  "hero": {"prompt": "A warm abstract illustration of a feedback loop", "description": "feedback loop"},
  "diagrams": [
    {"image_id": "section_1", "target_section": "Why Loops Matter", "diagram_type": "flow", "prompt": "A simple loop diagram", "alt_text": "Loop diagram", "caption": "Doing, noticing, adjusting."}
  ]
}`,
	"revision": `{"revised_content": "", "changes_made": "none", "lines_affected": "none"}`,
}

const mockArticle = `# Small Loops Win

I figured this out in a hot tub, of all places.

## The Moment It Clicked

The water was too hot, and I kept adjusting it a little at a time.

## Why Loops Matter

Short loops make it cheap to be wrong.
`

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	if reply, ok := mockReplies[prompt.Stage]; ok {
		return reply, nil
	}
	if prompt.JSONMode {
		return "{}", nil
	}
	return prompt.User, nil
}

// MockImager returns a 1x1 PNG for every prompt.
type MockImager struct{}

func (MockImager) GenerateImage(_ context.Context, _, _ string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

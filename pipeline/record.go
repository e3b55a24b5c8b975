package pipeline

import (
	"encoding/json"
	"fmt"
)

// ContentType classifies a draft; downstream prompts adapt to it.
type ContentType string

const (
	PersonalInsight   ContentType = "personal_insight"
	TechnicalHowTo    ContentType = "technical_howto"
	BusinessCase      ContentType = "business_case"
	ThoughtLeadership ContentType = "thought_leadership"
	Hybrid            ContentType = "hybrid"
	UnknownType       ContentType = "unknown"
)

// Stage numbers. Stage 2 covers both the query-planning and synthesis calls.
const (
	StageIntake    = 1
	StageGrounding = 2
	StageExpansion = 3
	StagePolish    = 4
	StageReview    = 5
	StagePlan      = 6
	StageGenerate  = 7
	StageAssemble  = 8
)

// Section is one outline entry proposed at intake.
type Section struct {
	Title     string   `json:"section_title"`
	Purpose   string   `json:"purpose,omitempty"`
	KeyPoints []string `json:"key_points,omitempty"`
}

// Query is a planned web search.
type Query struct {
	Query    string `json:"query"`
	Purpose  string `json:"purpose,omitempty"`
	Priority string `json:"priority,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Claim is a piece of external evidence. Metric is whatever the synthesis
// returned (number, string or null).
type Claim struct {
	Claim  string `json:"claim"`
	Source string `json:"source,omitempty"`
	Metric any    `json:"metric,omitempty"`
}

type CaseStudy struct {
	Company string `json:"company,omitempty"`
	Example string `json:"example,omitempty"`
	Result  string `json:"result,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Evidence is the research synthesis, kept exactly as the service returned
// it. HasSufficientExternalEvidence is nil when the reply omitted it.
type Evidence struct {
	HasSufficientExternalEvidence *bool       `json:"has_sufficient_external_evidence,omitempty"`
	Evidence                      []Claim     `json:"evidence"`
	CaseStudies                   []CaseStudy `json:"case_studies"`
	AuthorExperienceNotes         string      `json:"author_experience_notes,omitempty"`
	Gaps                          []string    `json:"gaps"`
	Extra                         Extras      `json:"-"`
}

// InsufficientEvidence reports an explicit "not enough external evidence".
func (e *Evidence) InsufficientEvidence() bool {
	return e != nil && e.HasSufficientExternalEvidence != nil && !*e.HasSufficientExternalEvidence
}

type Issue struct {
	Severity   string `json:"severity"`
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Review is the stage 5 quality assessment.
type Review struct {
	QualityScore      float64 `json:"quality_score"`
	ContentTypeFit    string  `json:"content_type_fit,omitempty"`
	VoicePreserved    bool    `json:"voice_preserved"`
	CoreInsightClear  bool    `json:"core_insight_clear,omitempty"`
	ConclusionQuality string  `json:"conclusion_quality,omitempty"`
	Issues            []Issue `json:"issues"`
	ReadyToPublish    bool    `json:"ready_to_publish"`
	ReviewerNotes     string  `json:"reviewer_notes,omitempty"`
	Extra             Extras  `json:"-"`
}

// Record accumulates stage outputs. Each stage returns a new Record holding
// everything it received plus its own fields; nothing is deleted.
type Record struct {
	RunID string `json:"run_id,omitempty"`
	// Stage is bookkeeping only; stages never branch on it.
	Stage int `json:"stage"`

	OriginalDraft string `json:"original_draft"`

	// Stage 1.
	ContentType      ContentType `json:"content_type,omitempty"`
	CoreInsight      string      `json:"core_insight,omitempty"`
	Thesis           string      `json:"thesis,omitempty"`
	AuthorVoice      string      `json:"author_voice,omitempty"`
	PreserveElements []string    `json:"preserve_elements,omitempty"`
	Outline          []Section   `json:"outline,omitempty"`
	GapsToAddress    []string    `json:"gaps_to_address,omitempty"`
	Guidance         string      `json:"guidance_for_later_stages,omitempty"`

	// Stage 2.
	GroundingStrategy          string    `json:"grounding_strategy,omitempty"`
	AuthorExperienceSufficient bool      `json:"author_experience_sufficient,omitempty"`
	SearchQueries              []Query   `json:"search_queries,omitempty"`
	ResearchSynthesis          *Evidence `json:"research_synthesis,omitempty"`

	// Stages 3-5.
	DraftContent    string  `json:"draft_content,omitempty"`
	PolishedContent string  `json:"polished_content,omitempty"`
	Review          *Review `json:"review,omitempty"`

	Extra Extras `json:"-"`
}

type (
	recordAlias   Record
	evidenceAlias Evidence
	reviewAlias   Review
)

func (r Record) MarshalJSON() ([]byte, error) {
	return marshalWithExtras(recordAlias(r), r.Extra)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtras(data, (*recordAlias)(r), &r.Extra)
}

func (e Evidence) MarshalJSON() ([]byte, error) {
	return marshalWithExtras(evidenceAlias(e), e.Extra)
}

func (e *Evidence) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtras(data, (*evidenceAlias)(e), &e.Extra)
}

func (rv Review) MarshalJSON() ([]byte, error) {
	return marshalWithExtras(reviewAlias(rv), rv.Extra)
}

func (rv *Review) UnmarshalJSON(data []byte) error {
	return unmarshalWithExtras(data, (*reviewAlias)(rv), &rv.Extra)
}

// NewRecord starts a record from a raw draft.
func NewRecord(draft string) *Record {
	return &Record{OriginalDraft: draft}
}

// Clone returns a deep copy.
func (r *Record) Clone() (*Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("clone record: %w", err)
	}
	out := &Record{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("clone record: %w", err)
	}
	return out, nil
}

// Merge overlays the top-level keys of a JSON object reply onto a copy of r.
// A key present in reply replaces the whole field; absent keys are kept.
// original_draft cannot be replaced once set.
func (r *Record) Merge(reply []byte) (*Record, error) {
	base, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("merge record: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("merge record: %w", err)
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(reply, &patch); err != nil {
		return nil, err
	}
	for k, v := range patch {
		if k == "original_draft" && r.OriginalDraft != "" {
			continue
		}
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("merge record: %w", err)
	}
	next := &Record{}
	if err := json.Unmarshal(merged, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Type returns content_type, defaulting to "unknown".
func (r *Record) Type() ContentType {
	if r.ContentType == "" {
		return UnknownType
	}
	return r.ContentType
}

// Voice returns author_voice, defaulting to "not specified".
func (r *Record) Voice() string {
	if r.AuthorVoice == "" {
		return "not specified"
	}
	return r.AuthorVoice
}

// ThesisText prefers thesis and falls back to core_insight.
func (r *Record) ThesisText() string {
	if r.Thesis != "" {
		return r.Thesis
	}
	return r.CoreInsight
}

// Insight prefers core_insight and falls back to thesis.
func (r *Record) Insight() string {
	if r.CoreInsight != "" {
		return r.CoreInsight
	}
	return r.Thesis
}

// MissingFieldError reports that an upstream stage did not produce a field
// the current stage requires. It is always fatal.
type MissingFieldError struct {
	Stage int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("stage %d: required field %q missing from record (run the earlier stage first)", e.Stage, e.Field)
}

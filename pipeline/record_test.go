package pipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/logging"
)

func TestMerge_OverwritesPresentKeysAndKeepsTheRest(t *testing.T) {
	rec := &Record{
		Stage:         1,
		OriginalDraft: "draft",
		ContentType:   PersonalInsight,
		CoreInsight:   "insight",
		Outline:       []Section{{Title: "A"}},
	}

	next, err := rec.Merge([]byte(`{"content_type":"technical_howto","outline":[{"section_title":"B","key_points":["x"]}],"original_draft":"hijack","mystery":{"a":1}}`))
	require.NoError(t, err)

	assert.Equal(t, TechnicalHowTo, next.ContentType)
	assert.Equal(t, []Section{{Title: "B", KeyPoints: []string{"x"}}}, next.Outline)
	assert.Equal(t, "insight", next.CoreInsight)
	assert.Equal(t, "draft", next.OriginalDraft, "original_draft is immutable")
	assert.JSONEq(t, `{"a":1}`, string(next.Extra["mystery"]))

	// The input is untouched.
	assert.Equal(t, PersonalInsight, rec.ContentType)
	assert.Equal(t, "A", rec.Outline[0].Title)
	assert.Nil(t, rec.Extra)
}

func TestMerge_ReplacesNestedObjectsWhole(t *testing.T) {
	sufficient := true
	rec := &Record{OriginalDraft: "d", ResearchSynthesis: &Evidence{
		HasSufficientExternalEvidence: &sufficient,
		Evidence:                      []Claim{{Claim: "old"}},
	}}
	next, err := rec.Merge([]byte(`{"research_synthesis":{"gaps":["g"]}}`))
	require.NoError(t, err)
	assert.Nil(t, next.ResearchSynthesis.HasSufficientExternalEvidence)
	assert.Empty(t, next.ResearchSynthesis.Evidence)
	assert.Equal(t, []string{"g"}, next.ResearchSynthesis.Gaps)
}

func TestMerge_SetsDraftWhenEmpty(t *testing.T) {
	next, err := (&Record{}).Merge([]byte(`{"original_draft":"first"}`))
	require.NoError(t, err)
	assert.Equal(t, "first", next.OriginalDraft)
}

func TestMerge_RejectsNonObject(t *testing.T) {
	_, err := NewRecord("d").Merge([]byte(`["not","an","object"]`))
	assert.Error(t, err)
	_, err = NewRecord("d").Merge([]byte(`{"outline":"not a list"}`))
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	rec := &Record{OriginalDraft: "d", PreserveElements: []string{"story"}, Review: &Review{QualityScore: 7}}
	c, err := rec.Clone()
	require.NoError(t, err)
	c.PreserveElements[0] = "changed"
	c.Review.QualityScore = 1
	assert.Equal(t, "story", rec.PreserveElements[0])
	assert.Equal(t, 7.0, rec.Review.QualityScore)
}

func TestEvidence_KeepsUnknownFieldsVerbatim(t *testing.T) {
	raw := `{"has_sufficient_external_evidence":false,"evidence":[],"case_studies":[],"gaps":["no data"],"confidence":"low"}`
	var ev Evidence
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))
	assert.True(t, ev.InsufficientEvidence())

	out, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestEvidence_InsufficientOnlyOnExplicitFalse(t *testing.T) {
	var ev Evidence
	require.NoError(t, json.Unmarshal([]byte(`{"evidence":[]}`), &ev))
	assert.False(t, ev.InsufficientEvidence())
	var nilEv *Evidence
	assert.False(t, nilEv.InsufficientEvidence())
}

func TestRecordDefaults(t *testing.T) {
	rec := &Record{}
	assert.Equal(t, UnknownType, rec.Type())
	assert.Equal(t, "not specified", rec.Voice())

	rec.CoreInsight = "insight"
	assert.Equal(t, "insight", rec.ThesisText())
	assert.Equal(t, "insight", rec.Insight())

	rec.Thesis = "thesis"
	assert.Equal(t, "thesis", rec.ThesisText())
	assert.Equal(t, "insight", rec.Insight())
}

func TestMissingFieldError(t *testing.T) {
	err := &MissingFieldError{Stage: 4, Field: "draft_content"}
	assert.Contains(t, err.Error(), "stage 4")
	assert.Contains(t, err.Error(), `"draft_content"`)
}

// Stages 3-5 add exactly one field and set stage; everything else survives.
func TestProperty_StagesPreserveFields(t *testing.T) {
	p := New(generator.MockLLM{}, nil, logging.Discard(), 0)
	stages := []struct {
		n     int
		field string
		run   func(context.Context, *Record) (*Record, error)
	}{
		{StageExpansion, "draft_content", p.Expand},
		{StagePolish, "polished_content", p.Polish},
		{StageReview, "review", p.Review},
	}

	rapid.Check(t, func(rt *rapid.T) {
		nonEmpty := rapid.StringMatching(`[a-zA-Z ]{1,20}`)
		rec := &Record{
			RunID:            rapid.String().Draw(rt, "run_id"),
			Stage:            rapid.IntRange(0, 5).Draw(rt, "stage"),
			OriginalDraft:    nonEmpty.Draw(rt, "draft"),
			ContentType:      ContentType(rapid.SampledFrom([]string{"", "personal_insight", "hybrid"}).Draw(rt, "type")),
			CoreInsight:      rapid.String().Draw(rt, "insight"),
			AuthorVoice:      rapid.String().Draw(rt, "voice"),
			PreserveElements: rapid.SliceOf(rapid.String()).Draw(rt, "preserve"),
			Guidance:         rapid.String().Draw(rt, "guidance"),
			DraftContent:     nonEmpty.Draw(rt, "draft_content"),
			PolishedContent:  nonEmpty.Draw(rt, "polished"),
		}
		if rapid.Bool().Draw(rt, "extra") {
			rec.Extra = Extras{"custom_note": json.RawMessage(`"keep me"`)}
		}
		stage := stages[rapid.IntRange(0, len(stages)-1).Draw(rt, "which")]

		next, err := stage.run(context.Background(), rec)
		if err != nil {
			rt.Fatalf("stage %d: %v", stage.n, err)
		}
		if next.Stage != stage.n {
			rt.Fatalf("stage = %d, want %d", next.Stage, stage.n)
		}

		before, after := fieldsOf(rt, rec), fieldsOf(rt, next)
		for k, v := range before {
			if k == "stage" || k == stage.field {
				continue
			}
			if string(after[k]) != string(v) {
				rt.Fatalf("field %s changed: %s -> %s", k, v, after[k])
			}
		}
		if _, ok := after[stage.field]; !ok {
			rt.Fatalf("field %s missing after stage %d", stage.field, stage.n)
		}
	})
}

func fieldsOf(rt *rapid.T, rec *Record) map[string]json.RawMessage {
	data, err := json.Marshal(rec)
	if err != nil {
		rt.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		rt.Fatalf("unmarshal: %v", err)
	}
	return m
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/images"
	"auto_blog_pipeline/logging"
	"auto_blog_pipeline/research"
)

const defaultMaxTokens = 4000

// Sampling temperatures per call.
const (
	tempIntake    = 0.3
	tempQueries   = 0.3
	tempSynthesis = 0.3
	tempExpansion = 0.5
	tempPolish    = 0.3
	tempReview    = 0.2
	tempImagePlan = 0.4
)

// Pipeline holds the collaborators the stage functions call. Every stage
// takes a Record and returns a new one; the input is never modified.
type Pipeline struct {
	llm       generator.LLMClient
	search    research.Searcher
	logger    *logging.Logger
	maxTokens int
}

// New builds a Pipeline. search may be nil, which disables web search.
func New(llm generator.LLMClient, search research.Searcher, logger *logging.Logger, maxTokens int) *Pipeline {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Pipeline{llm: llm, search: search, logger: logger, maxTokens: maxTokens}
}

func (p *Pipeline) complete(ctx context.Context, prompt generator.Prompt) (string, error) {
	prompt.MaxTokens = p.maxTokens
	p.logger.Infof("[%s] requesting (temperature %.1f, json %v)", prompt.Stage, prompt.Temperature, prompt.JSONMode)
	reply, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", prompt.Stage, err)
	}
	return reply, nil
}

// completeJSON runs a JSON-mode request and decodes the reply into v.
func (p *Pipeline) completeJSON(ctx context.Context, prompt generator.Prompt, v any) error {
	prompt.JSONMode = true
	reply, err := p.complete(ctx, prompt)
	if err != nil {
		return err
	}
	return generator.DecodeJSON(prompt.Stage, reply, v)
}

// mergeReply decodes a JSON-mode reply onto rec.
func (p *Pipeline) mergeReply(ctx context.Context, rec *Record, prompt generator.Prompt) (*Record, error) {
	var raw json.RawMessage
	if err := p.completeJSON(ctx, prompt, &raw); err != nil {
		return nil, err
	}
	next, err := rec.Merge(raw)
	if err != nil {
		return nil, &generator.MalformedResponseError{Stage: prompt.Stage, Raw: string(raw), Err: err}
	}
	return next, nil
}

// Intake analyzes the raw draft: content type, insight, voice, outline.
func (p *Pipeline) Intake(ctx context.Context, rec *Record) (*Record, error) {
	if rec.OriginalDraft == "" {
		return nil, &MissingFieldError{Stage: StageIntake, Field: "original_draft"}
	}
	next, err := p.mergeReply(ctx, rec, generator.Prompt{
		Stage:       "stage1",
		System:      intakeSystem,
		User:        intakeUser(rec.OriginalDraft),
		Temperature: tempIntake,
	})
	if err != nil {
		return nil, err
	}
	next.Stage = StageIntake
	p.logger.Infof("[stage1] content type %s, %d sections, %d elements to preserve",
		next.Type(), len(next.Outline), len(next.PreserveElements))
	return next, nil
}

// Ground plans research, decides whether to search, and synthesizes evidence.
// The synthesis reply is stored as returned.
func (p *Pipeline) Ground(ctx context.Context, rec *Record) (*Record, error) {
	next, err := p.mergeReply(ctx, rec, generator.Prompt{
		Stage:       "stage2a",
		System:      queriesSystem,
		User:        queriesUser(rec.Type(), rec.ThesisText(), rec.Guidance, outlineSummary(rec.Outline)),
		Temperature: tempQueries,
	})
	if err != nil {
		return nil, err
	}
	if next.GroundingStrategy == "" {
		next.GroundingStrategy = "standard"
	}
	p.logger.Infof("[stage2] grounding strategy %q, %d queries", next.GroundingStrategy, len(next.SearchQueries))

	searchContext, err := p.groundingContext(ctx, next)
	if err != nil {
		return nil, err
	}

	var ev Evidence
	if err := p.completeJSON(ctx, generator.Prompt{
		Stage:       "stage2b",
		System:      synthesisSystem,
		User:        synthesisUser(next.Type(), searchContext),
		Temperature: tempSynthesis,
	}, &ev); err != nil {
		return nil, err
	}
	next.ResearchSynthesis = &ev
	next.Stage = StageGrounding
	if ev.InsufficientEvidence() {
		p.logger.Infof("[stage2] limited external evidence, relying on author's experience")
	} else {
		p.logger.Infof("[stage2] %d evidence points, %d case studies", len(ev.Evidence), len(ev.CaseStudies))
	}
	return next, nil
}

// groundingContext is what the synthesis call sees in place of raw search
// results. Author-experience pieces never trigger a search.
func (p *Pipeline) groundingContext(ctx context.Context, rec *Record) (string, error) {
	if rec.AuthorExperienceSufficient || rec.Type() == PersonalInsight {
		p.logger.Infof("[stage2] author experience is the primary evidence, skipping search")
		return authorExperienceContext(rec.Type(), rec.ThesisText()), nil
	}
	if p.search == nil || len(rec.SearchQueries) == 0 {
		return noSearcherText, nil
	}
	queries := make([]string, 0, len(rec.SearchQueries))
	for _, q := range rec.SearchQueries {
		queries = append(queries, q.Query)
	}
	results := research.SearchAll(ctx, p.search, queries, p.logger)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(results) == 0 {
		return noSearchResults, nil
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("stage2: encode search results: %w", err)
	}
	return string(data), nil
}

// Expand writes the full draft from the outline, evidence and original text.
func (p *Pipeline) Expand(ctx context.Context, rec *Record) (*Record, error) {
	if rec.OriginalDraft == "" {
		return nil, &MissingFieldError{Stage: StageExpansion, Field: "original_draft"}
	}
	draft, err := p.complete(ctx, generator.Prompt{
		Stage:  "stage3",
		System: expansionSystem,
		User: expansionUser(expansionInput{
			ContentType: rec.Type(),
			Voice:       rec.Voice(),
			Guidance:    rec.Guidance,
			Thesis:      rec.ThesisText(),
			Preserve:    preserveBlock(rec.PreserveElements),
			Outline:     outlineDetail(rec.Outline),
			Evidence:    evidenceBlock(rec.ResearchSynthesis),
			Draft:       rec.OriginalDraft,
		}),
		Temperature: tempExpansion,
	})
	if err != nil {
		return nil, err
	}
	next, err := rec.Clone()
	if err != nil {
		return nil, err
	}
	next.DraftContent = draft
	next.Stage = StageExpansion
	p.logger.Infof("[stage3] draft complete: ~%d words", len(strings.Fields(draft)))
	return next, nil
}

// Polish tightens the draft without changing its voice.
func (p *Pipeline) Polish(ctx context.Context, rec *Record) (*Record, error) {
	if rec.DraftContent == "" {
		return nil, &MissingFieldError{Stage: StagePolish, Field: "draft_content"}
	}
	polished, err := p.complete(ctx, generator.Prompt{
		Stage:       "stage4",
		System:      polishSystem,
		User:        polishUser(rec.Type(), rec.Voice(), rec.DraftContent),
		Temperature: tempPolish,
	})
	if err != nil {
		return nil, err
	}
	next, err := rec.Clone()
	if err != nil {
		return nil, err
	}
	next.PolishedContent = polished
	next.Stage = StagePolish
	p.logger.Infof("[stage4] polished: ~%d words", len(strings.Fields(polished)))
	return next, nil
}

// Review scores the polished post against its own goals.
func (p *Pipeline) Review(ctx context.Context, rec *Record) (*Record, error) {
	if rec.PolishedContent == "" {
		return nil, &MissingFieldError{Stage: StageReview, Field: "polished_content"}
	}
	var review Review
	if err := p.completeJSON(ctx, generator.Prompt{
		Stage:       "stage5",
		System:      reviewSystem,
		User:        reviewUser(rec.Type(), rec.Insight(), rec.Voice(), rec.PolishedContent),
		Temperature: tempReview,
	}, &review); err != nil {
		return nil, err
	}
	next, err := rec.Clone()
	if err != nil {
		return nil, err
	}
	next.Review = &review
	next.Stage = StageReview
	p.logger.Infof("[stage5] quality score %.1f/10, %d issues, ready=%v", review.QualityScore, len(review.Issues), review.ReadyToPublish)
	return next, nil
}

// PlanImages asks for a hero and per-section diagrams for the final article.
// rec only supplies metadata; the plan is built from article's H2 headings.
func (p *Pipeline) PlanImages(ctx context.Context, article string, rec *Record) (*images.Plan, error) {
	if strings.TrimSpace(article) == "" {
		return nil, &MissingFieldError{Stage: StagePlan, Field: "final article"}
	}
	headings := ExtractH2(article)
	var plan images.Plan
	if err := p.completeJSON(ctx, generator.Prompt{
		Stage:       "stage6",
		System:      imagePlanSystem,
		User:        imagePlanUser(rec.Type(), rec.Insight(), rec.Voice(), headingList(headings), article),
		Temperature: tempImagePlan,
	}, &plan); err != nil {
		return nil, err
	}
	plan.Normalize()
	p.logger.Infof("[stage6] %d sections, %d diagrams planned", len(headings), len(plan.Diagrams))
	return &plan, nil
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"auto_blog_pipeline/assemble"
	"auto_blog_pipeline/images"
	"auto_blog_pipeline/logging"
	"auto_blog_pipeline/publisher"
)

// StageTitles names each stage for progress output.
var StageTitles = map[int]string{
	StageIntake:    "Intake & Structure",
	StageGrounding: "Grounding & Research",
	StageExpansion: "Expansion",
	StagePolish:    "Style & Polish",
	StageReview:    "Review",
	StagePlan:      "Image Planning",
	StageGenerate:  "Image Generation",
	StageAssemble:  "Assembly",
}

// ParseStages turns a selector such as "1,2,3", "1-5", "2-4,6" or "all"
// into a sorted, de-duplicated stage list.
func ParseStages(sel string) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.EqualFold(sel, "all") {
		sel = fmt.Sprintf("%d-%d", StageIntake, StageAssemble)
	}
	seen := map[int]bool{}
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
		}
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid stage %q", part)
		}
		to, err := strconv.Atoi(hi)
		if err != nil {
			return nil, fmt.Errorf("invalid stage %q", part)
		}
		if from > to || from < StageIntake || to > StageAssemble {
			return nil, fmt.Errorf("stage range %q outside %d-%d", part, StageIntake, StageAssemble)
		}
		for n := from; n <= to; n++ {
			seen[n] = true
		}
	}
	if len(seen) == 0 {
		return nil, errors.New("no stages selected")
	}
	stages := make([]int, 0, len(seen))
	for n := range seen {
		stages = append(stages, n)
	}
	sort.Ints(stages)
	return stages, nil
}

// Progress receives human-facing progress events.
type Progress interface {
	Stage(n int, title string)
	Step(format string, args ...any)
}

type nopProgress struct{}

func (nopProgress) Stage(int, string)   {}
func (nopProgress) Step(string, ...any) {}

// RunOptions selects what one run does.
type RunOptions struct {
	InputPath  string
	OutputPath string
	Stages     []int
	// SaveIntermediate writes stage1-5 snapshots. Stage 6 and 7 outputs and
	// the pre-assembly article are always written.
	SaveIntermediate bool
	IntermediateDir  string
	// ImagesDir is where stage 7 writes; defaults to
	// <IntermediateDir>/images/<output stem>.
	ImagesDir string
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID          string
	Stages         []int
	OutputPath     string
	Record         *Record
	Plan           *images.Plan
	Images         *images.Result
	ImagesEmbedded int
	Unmatched      []assemble.Unmatched
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Progress Progress
	Publish  publisher.Options
	Now      func() time.Time
}

// Runner drives the selected stages in order, resuming from snapshots when a
// run starts past stage 1.
type Runner struct {
	pipeline *Pipeline
	images   *images.Orchestrator
	logger   *logging.Logger
	progress Progress
	publish  publisher.Options
	now      func() time.Time
}

// NewRunner builds a Runner. orch may be nil when no image stage is selected.
func NewRunner(p *Pipeline, orch *images.Orchestrator, logger *logging.Logger, opts RunnerOptions) *Runner {
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{pipeline: p, images: orch, logger: logger, progress: opts.Progress, publish: opts.Publish, now: opts.Now}
}

const articleSnapshot = "article.md"

// SnapshotPath is where stage n's output lives inside dir.
func SnapshotPath(dir string, n int) string {
	return filepath.Join(dir, fmt.Sprintf("stage%d.json", n))
}

type planSnapshot struct {
	Stage       int         `json:"stage"`
	RunID       string      `json:"run_id,omitempty"`
	ContentType ContentType `json:"content_type"`
	ImagePlan   images.Plan `json:"image_plan"`
}

type resultSnapshot struct {
	Stage int    `json:"stage"`
	RunID string `json:"run_id,omitempty"`
	images.Result
}

type runState struct {
	opts    RunOptions
	rec     *Record
	article string
	plan    *images.Plan
	result  *images.Result
}

// Run executes opts.Stages in ascending order. Any stage error aborts the run.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	if len(opts.Stages) == 0 {
		return nil, errors.New("no stages selected")
	}
	if opts.IntermediateDir == "" {
		opts.IntermediateDir = filepath.Join("output", "intermediate")
	}
	if opts.OutputPath == "" {
		opts.OutputPath = filepath.Join("output", stem(opts.InputPath)+".md")
	}
	// One image directory per post; reuse must never cross drafts.
	if opts.ImagesDir == "" {
		opts.ImagesDir = filepath.Join(opts.IntermediateDir, "images", stem(opts.OutputPath))
	}

	st := &runState{opts: opts}
	sum := &Summary{Stages: opts.Stages, OutputPath: opts.OutputPath}

	for _, n := range opts.Stages {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		r.progress.Stage(n, StageTitles[n])
		if err := r.runStage(ctx, n, st, sum); err != nil {
			return sum, fmt.Errorf("stage %d: %w", n, err)
		}
	}

	sum.Record = st.rec
	sum.Plan = st.plan
	sum.Images = st.result
	if st.rec != nil {
		sum.RunID = st.rec.RunID
	}
	return sum, nil
}

func (r *Runner) runStage(ctx context.Context, n int, st *runState, sum *Summary) error {
	switch n {
	case StageIntake:
		draft, err := os.ReadFile(st.opts.InputPath)
		if err != nil {
			return fmt.Errorf("read draft: %w", err)
		}
		rec := NewRecord(string(draft))
		rec.RunID = uuid.NewString()
		r.logger.Infof("[runner] run %s started from %s", rec.RunID, st.opts.InputPath)
		next, err := r.pipeline.Intake(ctx, rec)
		if err != nil {
			return err
		}
		r.progress.Step("Content type: %s", next.Type())
		return r.advance(st, next)

	case StageGrounding, StageExpansion, StagePolish, StageReview:
		rec, err := r.recordFor(st, n)
		if err != nil {
			return err
		}
		var next *Record
		switch n {
		case StageGrounding:
			next, err = r.pipeline.Ground(ctx, rec)
		case StageExpansion:
			next, err = r.pipeline.Expand(ctx, rec)
		case StagePolish:
			next, err = r.pipeline.Polish(ctx, rec)
		default:
			next, err = r.pipeline.Review(ctx, rec)
		}
		if err != nil {
			return err
		}
		if err := r.advance(st, next); err != nil {
			return err
		}
		if n == StageReview {
			return r.finalize(st)
		}
		return nil

	case StagePlan:
		article, err := r.articleFor(st)
		if err != nil {
			return err
		}
		rec := st.rec
		if rec == nil {
			rec = r.metadataRecord(st.opts.IntermediateDir)
			st.rec = rec
		}
		plan, err := r.pipeline.PlanImages(ctx, article, rec)
		if err != nil {
			return err
		}
		st.plan = plan
		r.progress.Step("Hero: %s", orNA(plan.Hero.Description))
		for i, d := range plan.Diagrams {
			r.progress.Step("%d. [%s] for %q", i+1, d.DiagramType, d.TargetSection)
		}
		return writeJSON(SnapshotPath(st.opts.IntermediateDir, StagePlan), planSnapshot{
			Stage: StagePlan, RunID: rec.RunID, ContentType: rec.Type(), ImagePlan: *plan,
		})

	case StageGenerate:
		if r.images == nil {
			return errors.New("no image client configured")
		}
		plan, err := r.planFor(st)
		if err != nil {
			return err
		}
		result, err := r.images.Generate(ctx, *plan, st.opts.ImagesDir)
		if err != nil {
			return err
		}
		st.result = result
		r.progress.Step("Generated %d/%d images", len(result.Images), plan.Prompted())
		if len(result.Failures) > 0 {
			r.progress.Step("%d image(s) failed; the post will be assembled without them", len(result.Failures))
		}
		return writeJSON(SnapshotPath(st.opts.IntermediateDir, StageGenerate), resultSnapshot{
			Stage: StageGenerate, RunID: runID(st.rec), Result: *result,
		})

	case StageAssemble:
		article, err := r.articleFor(st)
		if err != nil {
			return err
		}
		plan, err := r.planFor(st)
		if err != nil {
			return err
		}
		result, err := r.resultFor(st)
		if err != nil {
			return err
		}
		slug := stem(st.opts.OutputPath)
		copied, err := assemble.CopyImages(result, filepath.Join(filepath.Dir(st.opts.OutputPath), slug))
		if err != nil {
			return err
		}
		out := assemble.Insert(article, result, *plan, slug)
		if err := writeFile(st.opts.OutputPath, out.Markdown); err != nil {
			return err
		}
		sum.ImagesEmbedded = out.Placed
		sum.Unmatched = out.Unmatched
		r.progress.Step("Copied %d images, embedded %d", len(copied), out.Placed)
		for _, u := range out.Unmatched {
			r.logger.Warnf("[stage8] diagram %s (%q) not placed: %s", u.ImageID, u.TargetSection, u.Reason)
		}
		return nil
	}
	return fmt.Errorf("unknown stage %d", n)
}

// advance stores next as the current record and snapshots it when asked.
func (r *Runner) advance(st *runState, next *Record) error {
	st.rec = next
	if !st.opts.SaveIntermediate {
		return nil
	}
	path := SnapshotPath(st.opts.IntermediateDir, next.Stage)
	r.logger.Infof("[runner] saved %s", path)
	return writeJSON(path, next)
}

// recordFor returns the record stage n starts from, loading the previous
// stage's snapshot when this run has not produced one yet.
func (r *Runner) recordFor(st *runState, n int) (*Record, error) {
	if st.rec != nil {
		return st.rec, nil
	}
	path := SnapshotPath(st.opts.IntermediateDir, n-1)
	rec, err := LoadRecord(path)
	if err != nil {
		return nil, fmt.Errorf("resume needs %s (run stage %d with intermediate saving first): %w", path, n-1, err)
	}
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	r.logger.Infof("[runner] resumed run %s from %s", rec.RunID, path)
	st.rec = rec
	return rec, nil
}

// metadataRecord supplies content type, insight and voice for image planning
// when stages 1-5 did not run in this process.
func (r *Runner) metadataRecord(dir string) *Record {
	for n := StageReview; n >= StageIntake; n-- {
		if rec, err := LoadRecord(SnapshotPath(dir, n)); err == nil {
			return rec
		}
	}
	r.logger.Warnf("[runner] no record snapshot in %s; planning images without article metadata", dir)
	return &Record{RunID: uuid.NewString()}
}

func (r *Runner) finalize(st *runState) error {
	rec := st.rec
	var review *publisher.ReviewSummary
	if rec.Review != nil {
		review = &publisher.ReviewSummary{
			QualityScore:      rec.Review.QualityScore,
			ContentType:       string(rec.Type()),
			VoicePreserved:    rec.Review.VoicePreserved,
			ConclusionQuality: rec.Review.ConclusionQuality,
			ReadyToPublish:    rec.Review.ReadyToPublish,
			Notes:             rec.Review.ReviewerNotes,
		}
	}
	opts := r.publish
	opts.Date = r.now()
	article, err := publisher.Finalize(publisher.Article{
		Body:        rec.PolishedContent,
		Thesis:      rec.ThesisText(),
		ContentType: string(rec.Type()),
		Review:      review,
	}, opts)
	if err != nil {
		return err
	}
	st.article = article
	if err := writeFile(filepath.Join(st.opts.IntermediateDir, articleSnapshot), article); err != nil {
		return err
	}
	if err := writeFile(st.opts.OutputPath, article); err != nil {
		return err
	}
	r.progress.Step("Output saved to %s", st.opts.OutputPath)
	return nil
}

// articleFor returns the finalized, not yet illustrated article.
func (r *Runner) articleFor(st *runState) (string, error) {
	if st.article != "" {
		return st.article, nil
	}
	for _, path := range []string{filepath.Join(st.opts.IntermediateDir, articleSnapshot), st.opts.OutputPath} {
		data, err := os.ReadFile(path)
		if err == nil {
			st.article = string(data)
			return st.article, nil
		}
	}
	return "", fmt.Errorf("no final article found; run stage %d first", StageReview)
}

func (r *Runner) planFor(st *runState) (*images.Plan, error) {
	if st.plan != nil {
		return st.plan, nil
	}
	var snap planSnapshot
	path := SnapshotPath(st.opts.IntermediateDir, StagePlan)
	if err := readJSON(path, &snap); err != nil {
		return nil, fmt.Errorf("image plan: %w", err)
	}
	snap.ImagePlan.Normalize()
	st.plan = &snap.ImagePlan
	return st.plan, nil
}

func (r *Runner) resultFor(st *runState) (*images.Result, error) {
	if st.result != nil {
		return st.result, nil
	}
	var snap resultSnapshot
	path := SnapshotPath(st.opts.IntermediateDir, StageGenerate)
	if err := readJSON(path, &snap); err != nil {
		return nil, fmt.Errorf("image results: %w", err)
	}
	st.result = &snap.Result
	return st.result, nil
}

// LoadRecord reads a record snapshot.
func LoadRecord(path string) (*Record, error) {
	rec := &Record{}
	if err := readJSON(path, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, string(data)+"\n")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runID(rec *Record) string {
	if rec == nil {
		return ""
	}
	return rec.RunID
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

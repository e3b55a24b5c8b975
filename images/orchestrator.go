package images

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
	"unicode/utf8"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/logging"
)

const exhaustedMessage = "All retries exhausted"

// Options tunes the orchestrator. Zero values take the defaults.
type Options struct {
	MaxRetries   int
	AspectRatio  string
	RequestDelay time.Duration
	// Backoff returns the wait after failed attempt n (1-based).
	Backoff func(attempt int) time.Duration
	// Sleep replaces time-based waiting, mainly for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Orchestrator calls the image service once per planned image, sequentially,
// with bounded retries and skip-if-exists.
type Orchestrator struct {
	client generator.ImageClient
	logger *logging.Logger
	opts   Options
}

func NewOrchestrator(client generator.ImageClient, logger *logging.Logger, opts Options) *Orchestrator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.AspectRatio == "" {
		opts.AspectRatio = "16:9"
	}
	if opts.RequestDelay < 0 {
		opts.RequestDelay = 0
	}
	if opts.Backoff == nil {
		opts.Backoff = ExponentialBackoff
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Orchestrator{client: client, logger: logger, opts: opts}
}

// ExponentialBackoff waits 2^attempt seconds.
func ExponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FilePath is the deterministic location of an image inside dir.
func FilePath(dir, imageID string) string {
	name := unsafeIDChars.ReplaceAllString(imageID, "_")
	if name == "" {
		name = "image"
	}
	return filepath.Join(dir, name+".png")
}

// Generate produces every prompted image of plan into dir. Individual image
// failures are recorded in the result; only a cancelled context or an
// unusable output directory returns an error.
func (o *Orchestrator) Generate(ctx context.Context, plan Plan, dir string) (*Result, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("images: create output dir: %w", err)
	}
	plan.Diagrams = append([]DiagramSpec(nil), plan.Diagrams...)
	plan.Normalize()
	res := &Result{Images: []GeneratedImage{}, Failures: []Failure{}}

	if plan.Hero.Prompt != "" {
		img := GeneratedImage{ImageID: HeroImageID, ImageType: TypeHero, PromptUsed: truncatePrompt(plan.Hero.Prompt)}
		if err := o.produce(ctx, res, img, plan.Hero.Prompt, dir); err != nil {
			return res, err
		}
	}

	requested := false
	for _, d := range plan.Diagrams {
		if d.Prompt == "" {
			o.logger.Infof("[images] skipping %s: no prompt", d.ImageID)
			continue
		}
		img := GeneratedImage{
			ImageID:       d.ImageID,
			ImageType:     TypeDiagram,
			DiagramType:   d.DiagramType,
			TargetSection: d.TargetSection,
			PromptUsed:    truncatePrompt(d.Prompt),
		}
		if o.reuse(res, img, dir) {
			continue
		}
		if requested {
			if err := o.opts.Sleep(ctx, o.opts.RequestDelay); err != nil {
				return res, err
			}
		}
		requested = true
		if err := o.produce(ctx, res, img, d.Prompt, dir); err != nil {
			return res, err
		}
	}

	o.logger.Infof("[images] generated %d/%d images (%d failures)", len(res.Images), plan.Prompted(), len(res.Failures))
	return res, nil
}

// produce reuses an existing file or runs the retry loop, appending the
// outcome to res.
func (o *Orchestrator) produce(ctx context.Context, res *Result, img GeneratedImage, prompt, dir string) error {
	if o.reuse(res, img, dir) {
		return nil
	}
	path := FilePath(dir, img.ImageID)
	img.FilePath = path

	o.logger.Infof("[images] generating %s", img.ImageID)
	if err := o.generateWithRetry(ctx, prompt, path); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		o.logger.Warnf("[images] %s failed: %v", img.ImageID, err)
		res.Failures = append(res.Failures, Failure{ImageID: img.ImageID, TargetSection: img.TargetSection, Error: exhaustedMessage})
		return nil
	}
	res.Images = append(res.Images, img)
	return nil
}

func (o *Orchestrator) generateWithRetry(ctx context.Context, prompt, path string) error {
	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxRetries; attempt++ {
		data, err := o.client.GenerateImage(ctx, prompt, o.opts.AspectRatio)
		if err == nil && len(data) == 0 {
			err = generator.ErrNoImage
		}
		if err == nil {
			return os.WriteFile(path, data, 0o644)
		}
		lastErr = err
		o.logger.Warnf("[images] attempt %d/%d: %v", attempt, o.opts.MaxRetries, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt < o.opts.MaxRetries {
			if err := o.opts.Sleep(ctx, o.opts.Backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return lastErr
}

// reuse records img as a success when its file is already on disk.
func (o *Orchestrator) reuse(res *Result, img GeneratedImage, dir string) bool {
	path := FilePath(dir, img.ImageID)
	if !exists(path) {
		return false
	}
	img.FilePath = path
	img.Reused = true
	o.logger.Infof("[images] %s already exists at %s", img.ImageID, path)
	res.Images = append(res.Images, img)
	return true
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func truncatePrompt(p string) string {
	const limit = 100
	if utf8.RuneCountInString(p) <= limit {
		return p
	}
	return string([]rune(p)[:limit]) + "..."
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/images"
	"auto_blog_pipeline/logging"
	"auto_blog_pipeline/pipeline"
	"auto_blog_pipeline/publisher"
	"auto_blog_pipeline/research"
)

type runFlags struct {
	output           string
	stages           string
	provider         string
	model            string
	imageProvider    string
	saveIntermediate bool
	skipSearch       bool
	uploadAssets     bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run <draft.md>",
		Short: "Run pipeline stages on a draft",
		Long: `Run the selected stages on a draft markdown file.

Stages are selected with --stages as "all", a list ("1,2,3") or a range
("6-8"). When the first selected stage is after stage 1 the run resumes from
the previous stage's snapshot in the intermediate directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := pipeline.ParseStages(flags.stages)
			if err != nil {
				return err
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			flags.apply(cfg)
			logger := root.logger(cmd.ErrOrStderr())

			runner, err := buildRunner(cfg, stages, logger, terminalProgress{w: cmd.OutOrStdout()})
			if err != nil {
				return err
			}

			input := args[0]
			output := flags.output
			if output == "" {
				output = filepath.Join(cfg.Output.Dir, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))+".md")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			sum, err := runner.Run(ctx, pipeline.RunOptions{
				InputPath:        input,
				OutputPath:       output,
				Stages:           stages,
				SaveIntermediate: flags.saveIntermediate,
				IntermediateDir:  cfg.Output.IntermediateDir,
			})
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)

			if flags.uploadAssets {
				published, err := uploadAssets(ctx, cfg.Assets, sum.OutputPath, logger)
				if err != nil {
					return fmt.Errorf("uploading assets: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", "Published:")), published)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output markdown path (defaults to <output.dir>/<draft name>.md)")
	cmd.Flags().StringVar(&flags.stages, "stages", "all", `Stages to run: "all", "1,2,3" or "1-5"`)
	cmd.Flags().StringVar(&flags.provider, "provider", "", "LLM provider (claude, openai, deepseek, azure, mock)")
	cmd.Flags().StringVar(&flags.model, "model", "", "LLM model, overriding the provider default")
	cmd.Flags().StringVar(&flags.imageProvider, "image-provider", "", "Image provider (openai, mock)")
	cmd.Flags().BoolVar(&flags.saveIntermediate, "save-intermediate", false, "Write stage1-5 snapshots to the intermediate directory")
	cmd.Flags().BoolVar(&flags.skipSearch, "skip-search", false, "Do not call the web search service in stage 2")
	cmd.Flags().BoolVar(&flags.uploadAssets, "upload-assets", false, "Upload post images to S3 and write <name>.published.md")

	return cmd
}

func (f runFlags) apply(cfg *config.Config) {
	if f.provider != "" {
		cfg.LLM.Provider = f.provider
	}
	if f.model != "" {
		cfg.LLM.Model = f.model
	}
	if f.imageProvider != "" {
		cfg.Image.Provider = f.imageProvider
	}
	if f.skipSearch {
		cfg.Search.APIKey = ""
	}
}

// buildRunner wires only the clients the selected stages need, so a
// stage 8 re-assembly works without any credentials.
func buildRunner(cfg *config.Config, stages []int, logger *logging.Logger, progress pipeline.Progress) (*pipeline.Runner, error) {
	var llm generator.LLMClient
	if stages[0] <= pipeline.StagePlan {
		var err error
		if llm, err = generator.NewLLM(cfg.LLM); err != nil {
			return nil, err
		}
	}

	var orch *images.Orchestrator
	if contains(stages, pipeline.StageGenerate) {
		imager, err := generator.NewImager(cfg.Image)
		if err != nil {
			return nil, err
		}
		orch = images.NewOrchestrator(imager, logger, images.Options{
			MaxRetries:   cfg.Image.MaxRetries,
			AspectRatio:  cfg.Image.AspectRatio,
			RequestDelay: cfg.Image.RequestDelay,
		})
	}

	searcher := research.New(cfg.Search, nil)
	if searcher == nil {
		logger.Infof("[run] web search disabled")
	}

	p := pipeline.New(llm, searcher, logger, cfg.LLM.MaxTokens)
	return pipeline.NewRunner(p, orch, logger, pipeline.RunnerOptions{
		Progress: progress,
		Publish: publisher.Options{
			Author:   cfg.Output.Author,
			BaseTags: cfg.Output.BaseTags,
		},
	}), nil
}

func uploadAssets(ctx context.Context, cfg config.AssetsConfig, postPath string, logger *logging.Logger) (string, error) {
	pub, err := publisher.NewAssetPublisher(ctx, cfg, logger)
	if err != nil {
		return "", err
	}
	md, err := pub.Publish(ctx, postPath)
	if err != nil {
		return "", err
	}
	out := strings.TrimSuffix(postPath, filepath.Ext(postPath)) + ".published.md"
	if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func contains(ns []int, n int) bool {
	for _, v := range ns {
		if v == n {
			return true
		}
	}
	return false
}

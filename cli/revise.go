package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/revision"
)

type reviseFlags struct {
	line     int
	comment  string
	provider string
	output   string
}

func newReviseCmd(root *rootFlags) *cobra.Command {
	var flags reviseFlags

	cmd := &cobra.Command{
		Use:   "revise <post.md>",
		Short: "Apply a reviewer comment to one line of a post",
		Long: `Send the post, the commented line and its surrounding context to the LLM
and write the revised document back.

The comment may ask for a local edit ("tighten this sentence") or a
document-wide one ("make the tone more formal throughout").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.line < 1 {
				return fmt.Errorf("--line must be 1 or greater")
			}
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if flags.provider != "" {
				cfg.LLM.Provider = flags.provider
			}
			logger := root.logger(cmd.ErrOrStderr())

			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			llm, err := generator.NewLLM(cfg.LLM)
			if err != nil {
				return err
			}
			id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			session, err := revision.NewSession(id, string(content), llm)
			if err != nil {
				return err
			}

			logger.Infof("[revise] line %d: %s", flags.line, revision.Abbreviate(flags.comment))
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := session.Revise(ctx, flags.line, flags.comment)
			if err != nil {
				return err
			}

			out := flags.output
			if out == "" {
				out = path
			}
			if err := os.WriteFile(out, []byte(session.Content), 0o644); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, stageStyle.Render("REVISION APPLIED"))
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Changes:"), res.ChangesMade)
			if res.LinesAffected != "" {
				fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Lines:"), res.LinesAffected)
			}
			fmt.Fprintf(w, "  %s %s\n", labelStyle.Render("Written:"), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.line, "line", 0, "1-based line number the comment refers to")
	cmd.Flags().StringVar(&flags.comment, "comment", "", "Reviewer comment")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "LLM provider, overriding the config")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write the revision here instead of overwriting the post")
	_ = cmd.MarkFlagRequired("line")
	_ = cmd.MarkFlagRequired("comment")

	return cmd
}

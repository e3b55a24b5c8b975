package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"auto_blog_pipeline/publisher"
)

func newRenderCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render <post.md>",
		Short: "Render a finished post to HTML",
		Long: `Render a finished post to an HTML fragment. The frontmatter title becomes
the <h1>; the review comment is dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			html, err := publisher.RenderHTML(string(md))
			if err != nil {
				return fmt.Errorf("rendering %s: %w", args[0], err)
			}
			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(output, []byte(html), 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "HTML output path (defaults to stdout)")
	return cmd
}

package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/server"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	var (
		addr     string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the revision API for review tools",
		Long: `Start an HTTP server exposing revision sessions:

  POST /api/sessions        {"content": "..."}            create a session
  GET  /api/sessions/{id}                                  current content and history
  POST /api/sessions/{id}   {"line": N, "comment": "..."}  apply a reviewer comment
  POST /api/render          {"markdown": "..."}           HTML preview`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.LLM.Provider = provider
			}
			logger := root.logger(cmd.ErrOrStderr())
			llm, err := generator.NewLLM(cfg.LLM)
			if err != nil {
				return err
			}
			srv, err := server.New(llm, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Starting revision server on %s\n", addr)
			hs := &http.Server{
				Addr:              addr,
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return hs.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider, overriding the config")
	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"auto_blog_pipeline/config"
	"auto_blog_pipeline/generator"
	"auto_blog_pipeline/logging"
	"auto_blog_pipeline/pipeline"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// rootFlags are the persistent flags every subcommand reads.
type rootFlags struct {
	configPath string
	verbose    bool
}

func (f *rootFlags) load() (*config.Config, error) {
	return config.Load(f.configPath)
}

func (f *rootFlags) logger(w io.Writer) *logging.Logger {
	return logging.New(w, f.verbose)
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "blogpipe",
		Short: "Turn a rough draft into an illustrated, publish-ready post",
		Long: `blogpipe runs a draft through an eight stage pipeline: intake, research
grounding, expansion, polish, review, image planning, image generation and
assembly. Each stage can be run on its own and resumes from the previous
stage's snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config.yaml (defaults to ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable info logs")

	root.AddCommand(
		newRunCmd(flags),
		newReviseCmd(flags),
		newRenderCmd(),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blogpipe %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// Describe turns a command error into the line printed before exiting.
// Known failure kinds get a label so users can tell configuration problems
// from bad service replies.
func Describe(err error) string {
	var (
		cfgErr       *config.ConfigurationError
		malformed    *generator.MalformedResponseError
		missingField *pipeline.MissingFieldError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "Configuration error: " + err.Error()
	case errors.As(err, &malformed):
		return "Malformed response: " + err.Error()
	case errors.As(err, &missingField):
		return "Incomplete record: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

package main

import (
	"fmt"
	"log"
	"os"

	"auto_blog_pipeline/cli"
)

// Set by ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cli.SetVersionInfo(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		os.Exit(1)
	}
}

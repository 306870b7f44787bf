// Command yalla is the terminal entrypoint for the REPL described in
// spec.md: it parses flags, wires the component packages together,
// and runs the session loop, the same division of labor the teacher's
// cmd/gsh/main.go gives its own interactive shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// buildVersion is overridden at link time via -ldflags.
var buildVersion = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "yalla",
		Short:   "yalla is an embeddable terminal REPL framework",
		Version: buildVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newReplCmd().RunE(cmd, args)
		},
	}
	root.AddCommand(newReplCmd())
	return root
}

func newReplCmd() *cobra.Command {
	var (
		configPath string
		bootstrap  string
		noHistory  bool
		noColors   bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(replFlags{
				configPath: configPath,
				bootstrap:  bootstrap,
				noHistory:  noHistory,
				noColors:   noColors,
				quiet:      quiet,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVarP(&bootstrap, "bootstrap", "b", "", "path to a bootstrap script to run before the prompt appears")
	flags.BoolVar(&noHistory, "no-history", false, "disable persistent input history")
	flags.BoolVar(&noColors, "no-colors", false, "disable ANSI color output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress the welcome banner and startup notices")

	return cmd
}

func exitError(err error) error {
	fmt.Fprintln(os.Stderr, "yalla:", err)
	return err
}

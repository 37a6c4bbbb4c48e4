// Package main is quirectl, a command-line companion to the quire server.
// It exposes the slug rules and the renderer chain for scripting and for
// checking templates before they are saved.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. stdin is read by "render -".
func newRootCmd(stdin io.Reader) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "quirectl",
		Short: "Slug and template tools for quire content",
		Long: `quirectl checks slugs and renders page templates the same way the
quire server does.

Examples:
  quirectl slugify "About Us"            # about-us
  quirectl validate-slug about-us/team
  quirectl render page.tmpl --assign title=Hello
  quirectl render notes.md --markdown --format text`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newSlugifyCmd(),
		newValidateSlugCmd(),
		newRenderCmd(stdin),
		newCacheFlushCmd(),
	)
	return root
}

// printf writes to the command's output stream.
func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

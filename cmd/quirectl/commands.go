package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quire/internal/cache"
	"quire/internal/config"
	"quire/internal/engine"
	"quire/internal/models"
	"quire/internal/render"
	"quire/internal/slug"
)

func newSlugifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slugify <text>...",
		Short: "Print the slug derived from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printf(cmd, "%s\n", slug.Slugify(strings.Join(args, " ")))
			return nil
		},
	}
}

func newValidateSlugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-slug <slug>",
		Short: "Check a page slug against the slug grammar and reserved words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := args[0]
			switch {
			case !slug.Valid(s):
				return fmt.Errorf("%q is not a valid slug", s)
			case slug.Reserved(s):
				return fmt.Errorf("%q is reserved", s)
			}
			printf(cmd, "%s ok\n", s)
			return nil
		},
	}
}

type renderFlags struct {
	format   string
	markdown bool
	assigns  []string
	partials string
	maxDepth int
}

func newRenderCmd(stdin io.Reader) *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Render a template file to stdout",
		Long: `Render a template file (or stdin, for "-") through the macro, template
and output stages and print the result. Partials named by include are read
from <partials>/<name>.tmpl.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0], stdin)
			if err != nil {
				return err
			}
			return runRender(cmd, src, f)
		},
	}
	cmd.Flags().StringVarP(&f.format, "format", "f", "html", "output format (html, text)")
	cmd.Flags().BoolVar(&f.markdown, "markdown", false, "treat the source as Markdown")
	cmd.Flags().StringArrayVarP(&f.assigns, "assign", "a", nil, "template variable as key=value (repeatable)")
	cmd.Flags().StringVar(&f.partials, "partials", "", "directory holding partial templates")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", engine.DefaultMaxDepth, "maximum partial include depth")
	return cmd
}

func runRender(cmd *cobra.Command, src string, f renderFlags) error {
	format, err := render.ParseFormat(f.format)
	if err != nil {
		return err
	}
	assigns, err := parseAssigns(f.assigns)
	if err != nil {
		return err
	}

	var resolver engine.Resolver
	if f.partials != "" {
		resolver = dirResolver(f.partials)
	}
	ev := engine.New(resolver)
	ev.MaxDepth = f.maxDepth
	r := render.New(ev, nil)

	opts := render.Options{Assigns: assigns}
	var out render.Output
	if f.markdown {
		out, err = r.RenderMarkdown(cmd.Context(), src, format, opts)
	} else {
		out, err = r.Render(cmd.Context(), src, format, opts)
	}
	if err != nil {
		return err
	}

	printf(cmd, "%s", out.String())
	return nil
}

func readSource(path string, stdin io.Reader) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read template: %w", err)
	}
	return string(b), nil
}

// parseAssigns turns key=value pairs into template assigns.
func parseAssigns(pairs []string) (engine.Assigns, error) {
	assigns := make(engine.Assigns, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("assign %q: want key=value", p)
		}
		assigns[k] = v
	}
	return assigns, nil
}

// dirResolver reads partials from files in dir. Every name resolves in
// the global scope only.
func dirResolver(dir string) engine.Resolver {
	return engine.ResolverFunc(func(_ context.Context, name string, scope models.Scope) (string, error) {
		if !scope.IsGlobal() || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			return "", &engine.NotFoundError{Name: name, Scope: scope}
		}
		b, err := os.ReadFile(filepath.Join(dir, name+".tmpl"))
		if errors.Is(err, os.ErrNotExist) {
			return "", &engine.NotFoundError{Name: name, Scope: scope}
		}
		if err != nil {
			return "", fmt.Errorf("read partial %q: %w", name, err)
		}
		return string(b), nil
	})
}

func newCacheFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-flush",
		Short: "Drop every rendered page from the Valkey page cache",
		Long: `Connect to Valkey using the server's environment configuration
(VALKEY_HOST, VALKEY_PORT, VALKEY_PASSWORD, VALKEY_DB) and delete all cached pages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.ValkeyHost == "" {
				return errors.New("VALKEY_HOST is not set")
			}
			client, err := cache.ConnectValkey(cmd.Context(), cache.ValkeyOptions{
				Host:     cfg.ValkeyHost,
				Port:     cfg.ValkeyPort,
				Password: cfg.ValkeyPassword,
				DB:       cfg.ValkeyDB,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			cache.NewPageCache(client, cfg.PageCacheTTL).InvalidateAll(cmd.Context())
			printf(cmd, "page cache flushed\n")
			return nil
		},
	}
}

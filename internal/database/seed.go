package database

import (
	"context"
	"fmt"
	"log/slog"

	"quire/internal/content"
	"quire/internal/models"
)

// Seed populates an empty database with a small global site for
// development: a layout, a header and footer partial, and two pages that
// use them. It does nothing when any global page exists already.
func Seed(ctx context.Context, svc *content.Service) error {
	pages, err := svc.ListPages(ctx, models.Global)
	if err != nil {
		return fmt.Errorf("seed check pages: %w", err)
	}
	if len(pages) > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	header := models.NewPartial(models.Global)
	header.Name = "header"
	header.Content = `<header><a href="{{ page_url "home" }}">Quire</a></header>`
	if err := svc.CreatePartial(ctx, header); err != nil {
		return fmt.Errorf("seed header: %w", err)
	}

	footer := models.NewPartial(models.Global)
	footer.Name = "footer"
	footer.Content = `<footer>{{ .site_name | default "Quire" }}</footer>`
	if err := svc.CreatePartial(ctx, footer); err != nil {
		return fmt.Errorf("seed footer: %w", err)
	}

	layout := models.NewLayout(models.Global)
	layout.Name = "default"
	layout.Content = `<!DOCTYPE html>
<html>
<head><title>{{ .page.title }}</title></head>
<body>
{{ include "header" }}
<main>{{ .content_for_layout }}</main>
{{ include "footer" }}
</body>
</html>`
	if err := svc.CreateLayout(ctx, layout); err != nil {
		return fmt.Errorf("seed layout: %w", err)
	}

	for _, p := range []struct{ name, title, body string }{
		{"Home", "Welcome", `<h1>{{ .page.title }}</h1><p>Pages live at their slug. Try <a href="{{ page_url "about-us" }}">About us</a>.</p>`},
		{"About Us", "About us", `<h1>{{ .page.title | upcase }}</h1><p>Written by the {{ .site_name | default "Quire" }} team.</p>`},
	} {
		page := models.NewPage(models.Global)
		page.SetName(p.name)
		page.Title = p.title
		page.Content = p.body
		page.LayoutID = &layout.ID
		if err := svc.CreatePage(ctx, page); err != nil {
			return fmt.Errorf("seed page %q: %w", p.name, err)
		}
	}

	slog.Info("database seeded with sample pages", "pages", 2, "partials", 2, "layouts", 1)
	return nil
}

package handlers

import (
	"fmt"
	"unicode/utf8"

	"quire/internal/models"
)

// Length limits for submitted page fields. They match the column sizes in
// the content_nodes table.
const (
	maxNameLen    = 255
	maxTitleLen   = 255
	maxSlugLen    = 512
	maxContentLen = 500_000
)

// validateLengths checks submitted field values against the column limits
// before they reach the model. Field names are the configured external
// names, so errors point at what the client actually sent.
func validateLengths(opts models.NodeOptions, fields map[string]string) models.ValidationErrors {
	limits := map[string]int{
		opts.NameField: maxNameLen,
		"title":        maxTitleLen,
		opts.SlugField: maxSlugLen,
		"content":      maxContentLen,
	}

	var errs models.ValidationErrors
	for field, limit := range limits {
		if utf8.RuneCountInString(fields[field]) > limit {
			errs.Add(field, fmt.Sprintf("is too long (max %d characters)", limit))
		}
	}
	return errs
}

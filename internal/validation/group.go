package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var groupSlugRegex = regexp.MustCompile(`^[a-z0-9-]+$`)

const (
	maxGroupTitle = 200
	maxGroupSlug  = 255
)

// ValidateGroupSlug validates the URL identifier of a group.
func ValidateGroupSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > maxGroupSlug {
		return fmt.Errorf("slug must not exceed %d characters", maxGroupSlug)
	}
	if !groupSlugRegex.MatchString(slug) {
		return fmt.Errorf("slug can only contain lowercase letters, numbers, and hyphens")
	}
	if strings.HasPrefix(slug, "-") || strings.HasSuffix(slug, "-") {
		return fmt.Errorf("slug cannot start or end with a hyphen")
	}
	return nil
}

// ValidateGroupTitle requires a non-blank title of at most 200 characters.
func ValidateGroupTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > maxGroupTitle {
		return fmt.Errorf("title must not exceed %d characters", maxGroupTitle)
	}
	return nil
}

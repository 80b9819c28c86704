package validation

import (
	"strings"
	"testing"
)

func TestValidateGroupSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		slug string
		ok   bool
	}{
		{name: "simple", slug: "cats", ok: true},
		{name: "with hyphen and digits", slug: "test-slug-2", ok: true},
		{name: "single char", slug: "a", ok: true},
		{name: "empty", slug: "", ok: false},
		{name: "max length", slug: strings.Repeat("a", 255), ok: true},
		{name: "too long", slug: strings.Repeat("a", 256), ok: false},
		{name: "uppercase", slug: "Cats", ok: false},
		{name: "underscore", slug: "big_cats", ok: false},
		{name: "leading hyphen", slug: "-cats", ok: false},
		{name: "trailing hyphen", slug: "cats-", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateGroupSlug(tc.slug)
			if tc.ok && err != nil {
				t.Fatalf("expected valid slug, got error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected invalid slug, got nil error")
			}
		})
	}
}

func TestValidateGroupTitle(t *testing.T) {
	t.Parallel()

	if err := ValidateGroupTitle("Cats"); err != nil {
		t.Fatalf("expected valid title, got %v", err)
	}
	if err := ValidateGroupTitle("   "); err == nil {
		t.Fatal("expected blank title to fail")
	}
	if err := ValidateGroupTitle(strings.Repeat("я", 201)); err == nil {
		t.Fatal("expected long title to fail")
	}
}

package seed

import (
	_ "embed"
	"errors"
	"fmt"

	"chronicle/internal/models"
	"chronicle/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed groups.yml
var builtInGroupsYAML []byte

// GroupDefinition describes one seeded group.
type GroupDefinition struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupFile struct {
	Groups []GroupDefinition `yaml:"groups"`
}

// LoadGroups parses a groups document and validates every entry.
func LoadGroups(data []byte) ([]GroupDefinition, error) {
	var file groupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	if len(file.Groups) == 0 {
		return nil, errors.New("parse groups: no groups defined")
	}

	seen := make(map[string]bool, len(file.Groups))
	for i, g := range file.Groups {
		if err := validation.ValidateGroupTitle(g.Title); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %d: duplicate slug %q", i, g.Slug)
		}
		seen[g.Slug] = true
	}
	return file.Groups, nil
}

// BuiltInGroups returns the groups shipped with the seeder.
func BuiltInGroups() ([]GroupDefinition, error) {
	return LoadGroups(builtInGroupsYAML)
}

// Groups upserts defs by slug and returns the stored rows in the same order.
func Groups(db *gorm.DB, defs []GroupDefinition) ([]*models.Group, error) {
	out := make([]*models.Group, 0, len(defs))
	for _, def := range defs {
		group := &models.Group{Title: def.Title, Slug: def.Slug}
		if def.Description != "" {
			desc := def.Description
			group.Description = &desc
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(group).Error; err != nil {
			return nil, fmt.Errorf("seed group %s: %w", def.Slug, err)
		}

		// Some drivers leave the id unset on the update path.
		if group.ID == 0 {
			if err := db.Where("slug = ?", def.Slug).First(group).Error; err != nil {
				return nil, fmt.Errorf("seed group %s: %w", def.Slug, err)
			}
		}
		out = append(out, group)
	}
	return out, nil
}

package frontmatter

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"

	"github.com/s2md/slack2md/internal/tmpl"
)

// Template is one user-configurable frontmatter layout.  Field order in
// Frontmatter is preserved through storage and into the serialized
// output.
type Template struct {
	Name        string        `yaml:"name" validate:"required"`
	Enabled     bool          `yaml:"enabled"`
	Category    string        `yaml:"category" validate:"required,oneof=slack web"`
	Frontmatter yaml.MapSlice `yaml:"frontmatter" validate:"required,min=1"`
}

// fields converts the stored layout into resolvable fields.
func (t *Template) fields() []tmpl.Field {
	fields := make([]tmpl.Field, 0, len(t.Frontmatter))
	for _, item := range t.Frontmatter {
		fields = append(fields, tmpl.Field{Key: fmt.Sprint(item.Key), Value: item.Value})
	}
	return fields
}

// Store holds the template set keyed by ID.  Built-in IDs are re-seeded
// on load when missing and cannot be deleted; user edits to them are kept.
type Store struct {
	Templates map[string]*Template `yaml:"templates"`
}

// builtinOrder fixes the iteration order for Active: built-ins first, in
// seeding order, then user templates sorted by ID.
var builtinOrder = []string{"slack_default", "slack_detailed", "web_default"}

var ErrBuiltin = errors.New("cannot delete a built-in template")

var validate = validator.New()

func defaults() map[string]*Template {
	datetime := `{{captured|date:"YYYY-MM-DDTHH:mm:ssZ"}}`
	return map[string]*Template{
		"slack_default": {
			Name:     "Slack Default",
			Enabled:  true,
			Category: "slack",
			Frontmatter: yaml.MapSlice{
				{Key: "title", Value: "{{channel}}"},
				{Key: "source", Value: "{{source_category}}"},
				{Key: "source_url", Value: "{{source_url}}"},
				{Key: "workspace", Value: "{{workspace}}"},
				{Key: "channel", Value: "{{channel}}"},
				{Key: "channel_type", Value: "{{channel_type}}"},
				{Key: "captured", Value: datetime},
				{Key: "date_range", Value: "{{date_range}}"},
				{Key: "message_count", Value: "{{message_count}}"},
				{Key: "tags", Value: []any{"slack"}},
			},
		},
		"slack_detailed": {
			Name:     "Slack Detailed",
			Enabled:  false,
			Category: "slack",
			Frontmatter: yaml.MapSlice{
				{Key: "title", Value: "{{channel}}"},
				{Key: "source", Value: "{{source_category}}"},
				{Key: "source_url", Value: "{{source_url}}"},
				{Key: "workspace", Value: "{{workspace}}"},
				{Key: "channel", Value: "{{channel}}"},
				{Key: "channel_type", Value: "{{channel_type}}"},
				{Key: "topic", Value: "{{topic}}"},
				{Key: "purpose", Value: "{{purpose}}"},
				{Key: "participants", Value: `{{participants|join:", "}}`},
				{Key: "captured", Value: datetime},
				{Key: "date_range", Value: "{{date_range}}"},
				{Key: "message_count", Value: "{{message_count}}"},
				{Key: "export_scope", Value: "{{export_scope}}"},
				{Key: "tags", Value: []any{"slack", "{{workspace|lowercase|slug}}"}},
			},
		},
		"web_default": {
			Name:     "Web Clip Default",
			Enabled:  true,
			Category: "web",
			Frontmatter: yaml.MapSlice{
				{Key: "title", Value: "{{title}}"},
				{Key: "source", Value: "{{source_category}}"},
				{Key: "source_url", Value: "{{source_url}}"},
				{Key: "author", Value: "{{author}}"},
				{Key: "published", Value: `{{published|date:"YYYY-MM-DD"}}`},
				{Key: "captured", Value: datetime},
				{Key: "tags", Value: []any{"web-clip"}},
			},
		},
	}
}

// Defaults returns a store seeded with the built-in templates only.
func Defaults() *Store {
	return &Store{Templates: defaults()}
}

// Load reads a template store file, validates every template and re-adds
// any missing built-ins.  A missing file yields the defaults.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	} else if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	var s Store
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if s.Templates == nil {
		s.Templates = make(map[string]*Template)
	}
	for id, t := range s.Templates {
		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", id, err)
		}
	}
	s.mergeDefaults()
	return &s, nil
}

// Save writes the store to path.
func (s *Store) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal templates: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}
	return nil
}

// mergeDefaults re-adds missing built-ins without touching templates the
// user has edited.
func (s *Store) mergeDefaults() {
	for id, t := range defaults() {
		if _, ok := s.Templates[id]; !ok {
			s.Templates[id] = t
		}
	}
}

// Active returns the first enabled template of the category, built-ins
// first, or nil when none is enabled.
func (s *Store) Active(category string) *Template {
	for _, id := range s.ids() {
		if t := s.Templates[id]; t.Category == category && t.Enabled {
			return t
		}
	}
	return nil
}

// Delete removes a user template.  Built-ins cannot be deleted.
func (s *Store) Delete(id string) error {
	if IsBuiltin(id) {
		return fmt.Errorf("%q: %w", id, ErrBuiltin)
	}
	delete(s.Templates, id)
	return nil
}

// IsBuiltin reports whether id names a built-in template.
func IsBuiltin(id string) bool {
	return slices.Contains(builtinOrder, id)
}

// ids returns template IDs in deterministic order: built-ins in seeding
// order, then user templates sorted.
func (s *Store) ids() []string {
	ids := make([]string, 0, len(s.Templates))
	for _, id := range builtinOrder {
		if _, ok := s.Templates[id]; ok {
			ids = append(ids, id)
		}
	}
	var user []string
	for id := range s.Templates {
		if !IsBuiltin(id) {
			user = append(user, id)
		}
	}
	slices.Sort(user)
	return append(ids, user...)
}

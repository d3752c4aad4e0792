package extract

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var builtinFS embed.FS

// ErrNoSchema is returned by Select when nothing matches and no default is registered.
var ErrNoSchema = errors.New("no extraction schema matches the document")

// Matcher decides whether a schema applies to a markdown document.
type Matcher interface {
	Match(markdown string) bool
}

// MarkerMatcher matches when the document contains any of its literal markers.
type MarkerMatcher []string

// Match implements Matcher.
func (m MarkerMatcher) Match(markdown string) bool {
	for _, marker := range m {
		if marker != "" && strings.Contains(markdown, marker) {
			return true
		}
	}
	return false
}

type entry struct {
	schema  *Schema
	matcher Matcher
}

// Registry holds the known schemas ordered by priority.
type Registry struct {
	entries []entry
	def     *Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Builtin returns a registry with the schemas shipped in the binary.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	err := fs.WalkDir(builtinFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := builtinFS.ReadFile(path)
		if err != nil {
			return err
		}
		return r.load(path, data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in schemas: %w", err)
	}
	return r, nil
}

// LoadDir adds every *.yaml and *.yml schema in dir. A schema whose id is
// already registered replaces the earlier one.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read schema directory: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := r.load(path, data); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) load(path string, data []byte) error {
	s := &Schema{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse schema %s: %w", path, err)
	}
	if err := r.Add(s); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Add registers s with a MarkerMatcher over its markers.
func (r *Registry) Add(s *Schema) error {
	return r.Register(s, MarkerMatcher(s.Markers))
}

// Register adds s with a custom matcher. A default schema becomes the
// fallback and is never matched directly.
func (r *Registry) Register(s *Schema, m Matcher) error {
	if err := s.validate(); err != nil {
		return err
	}
	if _, err := s.compile(); err != nil {
		return err
	}

	r.remove(s.ID)
	if s.Default {
		r.def = s
		return nil
	}
	if m == nil {
		return fmt.Errorf("schema %s has no matcher and is not the default", s.ID)
	}
	if mm, ok := m.(MarkerMatcher); ok && len(mm) == 0 {
		return fmt.Errorf("schema %s has no markers and is not the default", s.ID)
	}

	r.entries = append(r.entries, entry{schema: s, matcher: m})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].schema.Priority < r.entries[j].schema.Priority
	})
	return nil
}

func (r *Registry) remove(id string) {
	if r.def != nil && r.def.ID == id {
		r.def = nil
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.schema.ID != id {
			kept = append(kept, e)
		}
	}
	r.entries = kept
}

// Select returns the first schema, by priority, whose matcher accepts the
// document, or the default schema.
func (r *Registry) Select(markdown string) (*Schema, error) {
	for _, e := range r.entries {
		if e.matcher.Match(markdown) {
			return e.schema, nil
		}
	}
	if r.def == nil {
		return nil, ErrNoSchema
	}
	return r.def, nil
}

// Schemas lists the registered schemas in selection order, default last.
func (r *Registry) Schemas() []*Schema {
	out := make([]*Schema, 0, len(r.entries)+1)
	for _, e := range r.entries {
		out = append(out, e.schema)
	}
	if r.def != nil {
		out = append(out, r.def)
	}
	return out
}

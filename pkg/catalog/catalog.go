// Package catalog holds the fixed list of OBS plugins the installer knows about.
package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/mickfx/obsplug/pkg/errors"
)

// PluginSpec describes one installable plugin. Values are immutable once the
// catalog is built.
type PluginSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version,omitempty"`
	PageURL     string `yaml:"page_url"`
	DownloadURL string `yaml:"download_url"`
	// FileName is the artifact whose presence in the plugin directory means
	// the plugin is installed.
	FileName string `yaml:"file_name"`
	Required bool   `yaml:"required"`
}

// Catalog is an ordered, validated set of plugin specs.
//
// Entries returns required plugins first and optional plugins after them,
// each group in declaration order. Status reports and renderings rely on this
// order staying stable.
type Catalog struct {
	entries []PluginSpec
	byName  map[string]int
}

// New validates specs and builds a catalog.
func New(specs []PluginSpec) (*Catalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("catalog has no entries: %w", errors.ErrCatalogInvalid)
	}

	names := make(map[string]struct{}, len(specs))
	files := make(map[string]string, len(specs))
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		if _, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("name %q: %w", s.Name, errors.ErrCatalogDuplicate)
		}
		key := strings.ToLower(s.FileName)
		if owner, dup := files[key]; dup {
			return nil, fmt.Errorf("file name %q used by %q and %q: %w", s.FileName, owner, s.Name, errors.ErrCatalogDuplicate)
		}
		names[s.Name] = struct{}{}
		files[key] = s.Name
	}

	ordered := make([]PluginSpec, 0, len(specs))
	for _, s := range specs {
		if s.Required {
			ordered = append(ordered, s)
		}
	}
	for _, s := range specs {
		if !s.Required {
			ordered = append(ordered, s)
		}
	}

	c := &Catalog{entries: ordered, byName: make(map[string]int, len(ordered))}
	for i, s := range ordered {
		c.byName[s.Name] = i
	}
	return c, nil
}

// MustNew is New for static catalogs; it panics on invalid input.
func MustNew(specs []PluginSpec) *Catalog {
	c, err := New(specs)
	if err != nil {
		panic(err)
	}
	return c
}

// Entries returns a copy of the catalog in its canonical order.
func (c *Catalog) Entries() []PluginSpec {
	out := make([]PluginSpec, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Lookup finds a spec by name.
func (c *Catalog) Lookup(name string) (PluginSpec, bool) {
	i, ok := c.byName[name]
	if !ok {
		return PluginSpec{}, false
	}
	return c.entries[i], true
}

// Get is Lookup returning ErrUnknownPlugin for a missing name.
func (c *Catalog) Get(name string) (PluginSpec, error) {
	s, ok := c.Lookup(name)
	if !ok {
		return PluginSpec{}, fmt.Errorf("%q: %w", name, errors.ErrUnknownPlugin)
	}
	return s, nil
}

// Index returns the position of name in Entries, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.byName[name]; ok {
		return i
	}
	return -1
}

// Required returns the required entries in order.
func (c *Catalog) Required() []PluginSpec {
	var out []PluginSpec
	for _, s := range c.entries {
		if s.Required {
			out = append(out, s)
		}
	}
	return out
}

// Optional returns the optional entries in order.
func (c *Catalog) Optional() []PluginSpec {
	var out []PluginSpec
	for _, s := range c.entries {
		if !s.Required {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks a single spec in isolation.
func (s PluginSpec) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("name is empty: %w", errors.ErrCatalogInvalid)
	case strings.TrimSpace(s.FileName) == "":
		return fmt.Errorf("%s: file name is empty: %w", s.Name, errors.ErrCatalogInvalid)
	case strings.ContainsAny(s.FileName, `/\`):
		return fmt.Errorf("%s: file name %q must not contain a path: %w", s.Name, s.FileName, errors.ErrCatalogInvalid)
	}
	if err := validateURL(s.DownloadURL); err != nil {
		return fmt.Errorf("%s: download url: %w", s.Name, err)
	}
	if s.PageURL != "" {
		if err := validateURL(s.PageURL); err != nil {
			return fmt.Errorf("%s: page url: %w", s.Name, err)
		}
	}
	if s.Version != "" {
		if _, err := version.NewVersion(s.Version); err != nil {
			return fmt.Errorf("%s: version %q: %w: %w", s.Name, s.Version, errors.ErrCatalogInvalid, err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrCatalogInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) url: %w", raw, errors.ErrCatalogInvalid)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host: %w", raw, errors.ErrCatalogInvalid)
	}
	return nil
}

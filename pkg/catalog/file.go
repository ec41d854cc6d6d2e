package catalog

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mickfx/obsplug/pkg/errors"
)

// File is the on-disk shape of a catalog override.
type File struct {
	Plugins []PluginSpec `yaml:"plugins"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalog file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Load reads a YAML catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Tag(errors.ErrCatalogInvalid, err, "failed to parse catalog")
	}
	return New(file.Plugins)
}

// Encode writes the catalog in the same format Load accepts.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Plugins: c.Entries()}); err != nil {
		return errors.Wrap(err, "failed to encode catalog")
	}
	return enc.Close()
}

package source

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Definitions is the parsed sources.yaml file.
type Definitions struct {
	Boards []BoardDefinition `yaml:"boards"`
}

// BoardDefinition describes how to scrape one HTML job board. Field
// selectors are CSS selectors relative to Item; "sel@attr" reads an
// attribute instead of text, and "@attr" reads it from the item itself.
type BoardDefinition struct {
	Name string `yaml:"name"`
	// URL is a template; see expandTemplate for the placeholders.
	URL  string  `yaml:"url"`
	Item string  `yaml:"item"`
	Rate float64 `yaml:"rate"`

	Title    string `yaml:"title"`
	Practice string `yaml:"practice"`
	Location string `yaml:"location"`
	Link     string `yaml:"link"`
	Posted   string `yaml:"posted"`

	// DateLayout is the Go time layout of the posted field. Relative
	// "3 days ago" text is always understood.
	DateLayout string `yaml:"date_layout"`
}

// LoadDefinitions reads board definitions from path. A missing file yields
// empty definitions.
func LoadDefinitions(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Definitions{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "source: read definitions %s", path)
	}
	return ParseDefinitions(data)
}

// ParseDefinitions decodes and validates sources.yaml content.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, eris.Wrap(err, "source: parse definitions")
	}
	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return &defs, nil
}

// Validate checks that every board is usable.
func (d *Definitions) Validate() error {
	seen := make(map[string]bool, len(d.Boards))
	for i, b := range d.Boards {
		if strings.TrimSpace(b.Name) == "" {
			return eris.Errorf("source: board %d: name is required", i)
		}
		if seen[b.Name] {
			return eris.Errorf("source: board %q defined twice", b.Name)
		}
		seen[b.Name] = true
		if b.URL == "" || b.Item == "" || b.Title == "" {
			return eris.Errorf("source: board %q: url, item and title are required", b.Name)
		}
		if _, err := url.Parse(b.URL); err != nil {
			return eris.Wrapf(err, "source: board %q: bad url", b.Name)
		}
	}
	return nil
}

// HostRates returns the per-host request rates declared by boards.
func (d *Definitions) HostRates() map[string]float64 {
	rates := make(map[string]float64)
	for _, b := range d.Boards {
		if b.Rate <= 0 {
			continue
		}
		u, err := url.Parse(b.URL)
		if err != nil || u.Host == "" {
			continue
		}
		rates[u.Host] = b.Rate
	}
	return rates
}

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

var (
	// ErrProductionNotFound reports an unknown production number.
	ErrProductionNotFound = errors.New("production not found")
	// ErrUnitNotFound reports an unknown serial number within a production.
	ErrUnitNotFound = errors.New("serial number not found")
)

// Unit is one serialized item and its label markup.
type Unit struct {
	SerialNumber string `json:"serialNumber" yaml:"serialNumber"`
	TagCode      string `json:"tagCode" yaml:"tagCode"`
}

// Production groups units under a production number.
type Production struct {
	ProductionNumber string `json:"productionNumber" yaml:"productionNumber"`
	Description      string `json:"description" yaml:"description"`
	SerialNumbers    []Unit `json:"serialNumbers" yaml:"serialNumbers"`
}

// Catalog is the decoded catalog file.
type Catalog struct {
	Productions []Production `json:"productions" yaml:"productions"`
}

// Format selects the catalog decoder.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the decoder from the file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes catalog data.
func Parse(data []byte, format Format) (*Catalog, error) {
	var cat Catalog
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	}
	return &cat, nil
}

// Load reads and decodes the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, FormatForPath(path))
}

// Find looks up a production number ignoring case and surrounding spaces.
func (c *Catalog) Find(number string) (Production, error) {
	if c == nil {
		return Production{}, ErrProductionNotFound
	}
	want := fold(number)
	if want == "" {
		return Production{}, fmt.Errorf("%w: empty production number", ErrProductionNotFound)
	}
	for _, p := range c.Productions {
		if fold(p.ProductionNumber) == want {
			return p, nil
		}
	}
	return Production{}, fmt.Errorf("%w: %s", ErrProductionNotFound, strings.TrimSpace(number))
}

// Unit returns the unit with the given serial number.
func (p Production) Unit(serial string) (Unit, error) {
	serial = strings.TrimSpace(serial)
	for _, u := range p.SerialNumbers {
		if u.SerialNumber == serial {
			return u, nil
		}
	}
	return Unit{}, fmt.Errorf("%w: %s in %s", ErrUnitNotFound, serial, p.ProductionNumber)
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Source serves a catalog file and reloads it when its modification time
// changes.
type Source struct {
	path string

	mu      sync.Mutex
	cat     *Catalog
	modTime time.Time
}

// NewSource builds a lazily loaded source for path.
func NewSource(path string) *Source {
	return &Source{path: path}
}

// Path returns the backing file.
func (s *Source) Path() string {
	return s.path
}

// Current returns the catalog, reloading it if the file changed. A reload
// failure keeps serving the last good copy when there is one.
func (s *Source) Current() (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if s.cat != nil {
			return s.cat, nil
		}
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	if s.cat != nil && info.ModTime().Equal(s.modTime) {
		return s.cat, nil
	}
	cat, err := Load(s.path)
	if err != nil {
		if s.cat != nil {
			return s.cat, nil
		}
		return nil, err
	}
	s.cat = cat
	s.modTime = info.ModTime()
	return cat, nil
}

// Find looks up a production in the current catalog.
func (s *Source) Find(number string) (Production, error) {
	cat, err := s.Current()
	if err != nil {
		return Production{}, err
	}
	return cat.Find(number)
}

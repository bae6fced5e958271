// Package templates holds the declarative layout rules for each supported
// document type. Defaults are embedded; a directory of YAML files can
// override them by name or add new ones.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/sequence"
	"github.com/joseph-ayodele/docrecon/internal/core/table"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Recognition granularity requested from the OCR engine.
const (
	GranularityWord = "word"
	GranularityLine = "line"
)

// Template is one document layout.
type Template struct {
	Name        constants.Template `yaml:"name"`
	Description string             `yaml:"description"`
	DPI         int                `yaml:"dpi"`
	Granularity string             `yaml:"granularity"`
	Table       *TableSpec         `yaml:"table,omitempty"`
	Sequence    *sequence.Spec     `yaml:"sequence,omitempty"`

	scanner *sequence.Scanner
}

// TableSpec configures spatial reconstruction.
type TableSpec struct {
	Tolerance float64             `yaml:"tolerance"`
	Bands     []entity.ColumnBand `yaml:"bands"`
}

// Kind reports the reconstruction strategy: table when the document declares
// a table block, sequential when it declares a sequence block.
func (t *Template) Kind() string {
	if t.Table != nil {
		return constants.KindTable
	}
	return constants.KindSequential
}

// Scanner returns the compiled sequential scanner, nil for table templates.
func (t *Template) Scanner() *sequence.Scanner { return t.scanner }

// FieldOrder lists the header fields a sequential template reports.
func (t *Template) FieldOrder() []string {
	if t.scanner == nil {
		return nil
	}
	return t.scanner.FieldOrder()
}

// Registry is the set of loaded templates keyed by name.
type Registry struct {
	byName map[constants.Template]*Template
}

// Load reads the embedded defaults, then any *.yaml/*.yml files in dir. A
// file replaces the default of the same name; other names are added. dir may
// be empty.
func Load(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{byName: make(map[constants.Template]*Template)}

	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, err
	}
	if err := r.loadFS(sub, logger); err != nil {
		return nil, fmt.Errorf("embedded templates: %w", err)
	}
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("templates dir: %w", err)
		}
		if err := r.loadFS(os.DirFS(dir), logger); err != nil {
			return nil, fmt.Errorf("templates dir %s: %w", dir, err)
		}
	}
	return r, nil
}

func (r *Registry) loadFS(fsys fs.FS, logger *slog.Logger) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return err
		}
		t, err := Parse(data, logger)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, exists := r.byName[t.Name]; exists {
			logger.Info("template overridden", "template", t.Name, "file", e.Name())
		} else {
			logger.Debug("template loaded", "template", t.Name, "kind", t.Kind(), "file", e.Name())
		}
		r.byName[t.Name] = t
	}
	return nil
}

// Parse decodes and compiles a single template document.
func Parse(data []byte, logger *slog.Logger) (*Template, error) {
	var t Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	canon, ok := constants.Canonicalize(string(t.Name))
	if !ok {
		return nil, fmt.Errorf("invalid template name %q", t.Name)
	}
	t.Name = canon
	switch {
	case t.Table != nil && t.Sequence != nil:
		return nil, fmt.Errorf("%s: declare either table or sequence, not both", t.Name)
	case t.Table == nil && t.Sequence == nil:
		return nil, fmt.Errorf("%s: table or sequence rules required", t.Name)
	}
	if t.DPI <= 0 {
		t.DPI = 300
	}

	switch t.Kind() {
	case constants.KindTable:
		if len(t.Table.Bands) == 0 {
			return nil, fmt.Errorf("%s: table bands required", t.Name)
		}
		if t.Table.Tolerance <= 0 {
			t.Table.Tolerance = table.DefaultTolerance
		}
		for _, b := range t.Table.Bands {
			if b.Name == "" || b.XMax <= b.XMin {
				return nil, fmt.Errorf("%s: invalid band %+v", t.Name, b)
			}
		}
		if t.Granularity == "" {
			t.Granularity = GranularityWord
		}
	default:
		sc, err := sequence.NewScanner(*t.Sequence, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		t.scanner = sc
		if t.Granularity == "" {
			t.Granularity = GranularityLine
		}
	}
	if t.Granularity != GranularityWord && t.Granularity != GranularityLine {
		return nil, fmt.Errorf("%s: unknown granularity %q", t.Name, t.Granularity)
	}
	return &t, nil
}

// Get resolves a loaded template by name or synonym.
func (r *Registry) Get(name string) (*Template, error) {
	canon, ok := constants.Canonicalize(name)
	if ok {
		if t, found := r.byName[canon]; found {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown template %q (want one of %s)",
		common.ErrInvalidInput, name, strings.Join(r.Names(), ", "))
}

// Names lists loaded templates in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, string(n))
	}
	sort.Strings(out)
	return out
}

// IsUnknown reports whether err came from an unknown template lookup.
func IsUnknown(err error) bool { return errors.Is(err, common.ErrInvalidInput) }

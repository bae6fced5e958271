// Package sequence extracts header fields and repeating line items from an
// ordered list of OCR lines using declarative anchor rules.
package sequence

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/core/normalize"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

type fieldRule struct {
	kind      RuleKind
	pattern   *regexp.Regexp
	anchor    *regexp.Regexp
	lines     int
	group     int
	corrector normalize.Corrector
}

type field struct {
	name  string
	rules []fieldRule
}

type derived struct {
	name      string
	from      string
	transform func(string) (string, bool)
}

// Scanner runs a compiled Spec over line buffers. It holds no per-scan state
// and is safe for concurrent use.
type Scanner struct {
	logger  *slog.Logger
	fields  []field
	derived []derived
	windows []*window
	blocks  []*block
	order   []string
}

// NewScanner compiles spec. Unknown correctors, validators, transforms and bad
// patterns are reported here rather than at scan time.
func NewScanner(spec Spec, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{logger: logger}
	seen := make(map[string]bool)
	addName := func(name string) error {
		if name == "" {
			return fmt.Errorf("field with empty name")
		}
		if seen[name] {
			return fmt.Errorf("duplicate field %q", name)
		}
		seen[name] = true
		s.order = append(s.order, name)
		return nil
	}

	for _, fs := range spec.Fields {
		if err := addName(fs.Name); err != nil {
			return nil, err
		}
		f := field{name: fs.Name}
		for i, r := range fs.Rules {
			cr, err := compileRule(r)
			if err != nil {
				return nil, fmt.Errorf("field %s rule %d: %w", fs.Name, i, err)
			}
			f.rules = append(f.rules, cr)
		}
		s.fields = append(s.fields, f)
	}

	for _, ws := range spec.Windows {
		w, err := compileWindow(ws)
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", ws.Kind, err)
		}
		for _, name := range w.outputs() {
			if err := addName(name); err != nil {
				return nil, fmt.Errorf("window %s: %w", ws.Kind, err)
			}
		}
		s.windows = append(s.windows, w)
	}

	for _, ds := range spec.Derived {
		fn, ok := normalize.LookupDeriver(ds.Transform)
		if !ok {
			return nil, fmt.Errorf("derived %s: unknown transform %q", ds.Name, ds.Transform)
		}
		if !seen[ds.From] {
			return nil, fmt.Errorf("derived %s: unknown source field %q", ds.Name, ds.From)
		}
		if err := addName(ds.Name); err != nil {
			return nil, err
		}
		s.derived = append(s.derived, derived{name: ds.Name, from: ds.From, transform: fn})
	}

	for _, bs := range spec.Blocks {
		b, err := compileBlock(bs)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", bs.Kind, err)
		}
		s.blocks = append(s.blocks, b)
	}
	return s, nil
}

// FieldOrder lists every field name Scan reports, in declaration order.
func (s *Scanner) FieldOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Scan resolves all fields and line items. Every declared field is present in
// the map; a nil value means no rule matched. Malformed blocks are skipped.
func (s *Scanner) Scan(buf entity.LineBuffer) (map[string]*string, []entity.LineItemRow) {
	fields := make(map[string]*string, len(s.order))
	text := buf.Text()

	for _, f := range s.fields {
		fields[f.name] = nil
		for _, r := range f.rules {
			if v, ok := r.apply(buf, text); ok {
				fields[f.name] = &v
				break
			}
		}
		if fields[f.name] == nil {
			s.logger.Debug("field not found", "field", f.name)
		}
	}

	items := make([]entity.LineItemRow, 0)
	for _, w := range s.windows {
		results := w.scan(buf)
		for _, name := range w.outputs() {
			fields[name] = nil
		}
		if len(results) > 0 {
			for name, v := range results[0] {
				fields[name] = v
			}
		}
		for _, res := range results {
			if row, ok := w.row(res); ok {
				items = append(items, row)
			} else {
				s.logger.Debug("window row incomplete", "kind", w.kind)
			}
		}
	}

	for _, d := range s.derived {
		fields[d.name] = nil
		src := fields[d.from]
		if src == nil {
			continue
		}
		if v, ok := d.transform(*src); ok {
			fields[d.name] = &v
		}
	}

	for _, b := range s.blocks {
		items = append(items, b.scan(buf, s.logger)...)
	}
	return fields, items
}

func compileRule(r FieldRule) (fieldRule, error) {
	cr := fieldRule{kind: r.Kind, lines: r.Lines, group: r.Group}
	var err error
	if cr.pattern, err = compilePattern(r.Pattern, r.CaseSensitive); err != nil {
		return cr, err
	}
	if cr.group == 0 && cr.pattern.NumSubexp() > 0 {
		cr.group = 1
	}
	if cr.group > cr.pattern.NumSubexp() {
		return cr, fmt.Errorf("group %d out of range for %q", cr.group, r.Pattern)
	}
	switch r.Kind {
	case RuleText, RuleLine:
	case RuleLookahead:
		if cr.anchor, err = compilePattern(r.Anchor, r.CaseSensitive); err != nil {
			return cr, fmt.Errorf("anchor: %w", err)
		}
		if cr.lines <= 0 {
			cr.lines = 1
		}
	default:
		return cr, fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	if r.Corrector != "" {
		c, ok := normalize.LookupCorrector(r.Corrector)
		if !ok {
			return cr, fmt.Errorf("unknown corrector %q", r.Corrector)
		}
		cr.corrector = c
	}
	return cr, nil
}

func compilePattern(p string, caseSensitive bool) (*regexp.Regexp, error) {
	if p == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if !caseSensitive {
		p = "(?i)" + p
	}
	return regexp.Compile(p)
}

func (r fieldRule) apply(buf entity.LineBuffer, text string) (string, bool) {
	var v string
	var ok bool
	switch r.kind {
	case RuleText:
		v, ok = r.capture(text)
	case RuleLine:
		for i := 0; i < buf.Len() && !ok; i++ {
			line, _ := buf.At(i)
			v, ok = r.capture(line)
		}
	case RuleLookahead:
		for i := 0; i < buf.Len() && !ok; i++ {
			line, _ := buf.At(i)
			if !r.anchor.MatchString(line) {
				continue
			}
			for _, l := range buf.Window(i, r.lines) {
				if v, ok = r.capture(l); ok {
					break
				}
			}
		}
	}
	if !ok {
		return "", false
	}
	if r.corrector != nil {
		v = r.corrector(v)
	}
	return v, true
}

func (r fieldRule) capture(s string) (string, bool) {
	m := r.pattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[r.group])
	return v, v != ""
}

package sequence

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

type part struct {
	name    string
	pattern *regexp.Regexp
	remove  []string
}

type composite struct {
	name     string
	format   string
	requires []string
}

type pair struct {
	name  string
	line  string
	next  string
	value string
}

type after struct {
	name    string
	marker  *regexp.Regexp
	pattern *regexp.Regexp
}

type window struct {
	kind       string
	anchor     *regexp.Regexp
	size       int
	parts      []part
	composites []composite
	pairs      []pair
	after      []after
}

func compileWindow(ws WindowSpec) (*window, error) {
	w := &window{kind: ws.Kind, size: ws.Size}
	if w.size <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	var err error
	if w.anchor, err = compilePattern(ws.Anchor, false); err != nil {
		return nil, fmt.Errorf("anchor: %w", err)
	}

	known := make(map[string]bool)
	for _, ps := range ws.Parts {
		re, err := compilePattern(ps.Pattern, ps.CaseSensitive)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", ps.Name, err)
		}
		known[ps.Name] = true
		w.parts = append(w.parts, part{name: ps.Name, pattern: re, remove: ps.Remove})
	}
	for _, cs := range ws.Composites {
		c := composite{name: cs.Name, format: cs.Format}
		for _, m := range placeholder.FindAllStringSubmatch(cs.Format, -1) {
			if !known[m[1]] {
				return nil, fmt.Errorf("composite %s: unknown part %q", cs.Name, m[1])
			}
			c.requires = append(c.requires, m[1])
		}
		if len(c.requires) == 0 {
			return nil, fmt.Errorf("composite %s: format references no parts", cs.Name)
		}
		w.composites = append(w.composites, c)
	}
	for _, p := range ws.Pairs {
		w.pairs = append(w.pairs, pair{name: p.Name, line: p.Line, next: p.Next, value: p.Value})
	}
	for _, as := range ws.After {
		marker, err := compilePattern(as.Marker, false)
		if err != nil {
			return nil, fmt.Errorf("after %s marker: %w", as.Name, err)
		}
		re, err := compilePattern(as.Pattern, false)
		if err != nil {
			return nil, fmt.Errorf("after %s: %w", as.Name, err)
		}
		w.after = append(w.after, after{name: as.Name, marker: marker, pattern: re})
	}
	return w, nil
}

// outputs lists the field names a window produces, composites first.
func (w *window) outputs() []string {
	var out []string
	for _, c := range w.composites {
		out = append(out, c.name)
	}
	for _, p := range w.pairs {
		out = append(out, p.name)
	}
	for _, a := range w.after {
		out = append(out, a.name)
	}
	return out
}

// scan evaluates every window opened by an anchor line.
func (w *window) scan(buf entity.LineBuffer) []map[string]*string {
	var results []map[string]*string
	for i := 0; i < buf.Len(); i++ {
		line, _ := buf.At(i)
		if !w.anchor.MatchString(line) {
			continue
		}
		results = append(results, w.evaluate(buf.Window(i, w.size)))
	}
	return results
}

func (w *window) evaluate(lines []string) map[string]*string {
	out := make(map[string]*string)

	parts := make(map[string]string, len(w.parts))
	for _, line := range lines {
		for _, p := range w.parts {
			if !p.pattern.MatchString(line) {
				continue
			}
			v := strings.TrimSpace(line)
			for _, r := range p.remove {
				v = strings.ReplaceAll(v, r, "")
			}
			parts[p.name] = v
		}
	}
	for _, c := range w.composites {
		out[c.name] = c.render(parts)
	}

	for _, p := range w.pairs {
		out[p.name] = nil
		for i := 0; i+1 < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == p.line && strings.HasPrefix(strings.TrimSpace(lines[i+1]), p.next) {
				v := p.value
				out[p.name] = &v
				break
			}
		}
	}

	for _, a := range w.after {
		out[a.name] = nil
		armed := false
		for _, line := range lines {
			t := strings.TrimSpace(line)
			if armed && a.pattern.MatchString(t) {
				out[a.name] = &t
				break
			}
			if a.marker.MatchString(line) {
				armed = true
			}
		}
	}
	return out
}

func (c composite) render(parts map[string]string) *string {
	for _, name := range c.requires {
		if parts[name] == "" {
			return nil
		}
	}
	s := placeholder.ReplaceAllStringFunc(c.format, func(m string) string {
		return parts[m[1:len(m)-1]]
	})
	s = strings.ReplaceAll(s, "  ", " ")
	return &s
}

// row converts one window result into a line item. Windows missing a
// required composite produce no row.
func (w *window) row(res map[string]*string) (entity.LineItemRow, bool) {
	row := entity.LineItemRow{Kind: w.kind}
	for _, c := range w.composites {
		if res[c.name] == nil {
			return entity.LineItemRow{}, false
		}
	}
	for _, name := range w.outputs() {
		if v := res[name]; v != nil {
			row.Values = append(row.Values, entity.Value{Name: name, Value: *v})
		}
	}
	return row, true
}

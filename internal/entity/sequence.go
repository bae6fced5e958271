package entity

import (
	"bytes"
	"encoding/json"
	"strings"
)

// LineBuffer is the ordered, read-only line list a sequential scan works on.
type LineBuffer struct {
	lines []string
}

// NewLineBuffer copies lines so later mutation by the caller is not observed.
func NewLineBuffer(lines []string) LineBuffer {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return LineBuffer{lines: cp}
}

// LinesFromTokens keeps OCR emission order, one line per token.
func LinesFromTokens(tokens []OcrToken) LineBuffer {
	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lines = append(lines, t.Text)
	}
	return LineBuffer{lines: lines}
}

func (b LineBuffer) Len() int { return len(b.lines) }

// At returns the line at i, or false when out of range.
func (b LineBuffer) At(i int) (string, bool) {
	if i < 0 || i >= len(b.lines) {
		return "", false
	}
	return b.lines[i], true
}

// Window returns up to n lines starting at i (shorter near the end).
func (b LineBuffer) Window(i, n int) []string {
	if i < 0 || i >= len(b.lines) || n <= 0 {
		return nil
	}
	end := i + n
	if end > len(b.lines) {
		end = len(b.lines)
	}
	return b.lines[i:end]
}

// Text joins all lines with "\n" for whole-document regex search.
func (b LineBuffer) Text() string { return strings.Join(b.lines, "\n") }

// Lines returns a copy of the underlying lines.
func (b LineBuffer) Lines() []string {
	cp := make([]string, len(b.lines))
	copy(cp, b.lines)
	return cp
}

// Value is one named sub-field of a LineItemRow.
type Value struct {
	Name  string
	Value string
}

// LineItemRow is a repeating record recovered from a block of lines. Values
// keep slot order so serialized rows read the same way the block did.
type LineItemRow struct {
	Kind   string
	Values []Value
}

// Get returns the value for name.
func (r LineItemRow) Get(name string) (string, bool) {
	for _, v := range r.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Map flattens the row; used by the schema validator and the XLSX exporter.
func (r LineItemRow) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for _, v := range r.Values {
		m[v.Name] = v.Value
	}
	return m
}

// MarshalJSON emits an object whose keys follow slot order.
func (r LineItemRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.Values {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(v.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(v.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

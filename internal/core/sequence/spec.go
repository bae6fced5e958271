package sequence

// RuleKind selects how a field rule searches the line buffer.
type RuleKind string

const (
	// RuleText searches the newline-joined document.
	RuleText RuleKind = "text"
	// RuleLine takes the first single line that matches.
	RuleLine RuleKind = "line"
	// RuleLookahead finds an anchor line, then searches it and the next
	// Lines-1 lines for the value pattern.
	RuleLookahead RuleKind = "lookahead"
)

// Spec is the declarative rule table for one sequential template.
type Spec struct {
	Fields  []FieldSpec   `yaml:"fields"`
	Derived []DerivedSpec `yaml:"derived"`
	Windows []WindowSpec  `yaml:"windows"`
	Blocks  []BlockSpec   `yaml:"blocks"`
}

// FieldSpec is a header field resolved by the first rule that yields a value.
type FieldSpec struct {
	Name  string      `yaml:"name"`
	Rules []FieldRule `yaml:"rules"`
}

type FieldRule struct {
	Kind          RuleKind `yaml:"kind"`
	Pattern       string   `yaml:"pattern"`
	Anchor        string   `yaml:"anchor,omitempty"`
	Lines         int      `yaml:"lines,omitempty"`
	Group         int      `yaml:"group,omitempty"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
	Corrector     string   `yaml:"corrector,omitempty"`
}

// DerivedSpec computes a field from another field's value.
type DerivedSpec struct {
	Name      string `yaml:"name"`
	From      string `yaml:"from"`
	Transform string `yaml:"transform"`
}

// WindowSpec describes a composite block that starts at an anchor line and
// spans Size lines.
type WindowSpec struct {
	Kind       string          `yaml:"kind"`
	Anchor     string          `yaml:"anchor"`
	Size       int             `yaml:"size"`
	Parts      []PartSpec      `yaml:"parts"`
	Composites []CompositeSpec `yaml:"composites"`
	Pairs      []PairSpec      `yaml:"pairs"`
	After      []AfterSpec     `yaml:"after"`
}

// PartSpec captures the last window line matching Pattern, with Remove
// substrings stripped.
type PartSpec struct {
	Name          string   `yaml:"name"`
	Pattern       string   `yaml:"pattern"`
	CaseSensitive bool     `yaml:"case_sensitive,omitempty"`
	Remove        []string `yaml:"remove,omitempty"`
}

// CompositeSpec joins parts with a format such as "{desc} - {code}". Every
// referenced part is required.
type CompositeSpec struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
}

// PairSpec yields Value when a line equal to Line is followed by a line
// starting with Next.
type PairSpec struct {
	Name  string `yaml:"name"`
	Line  string `yaml:"line"`
	Next  string `yaml:"next"`
	Value string `yaml:"value"`
}

// AfterSpec yields the first line matching Pattern after a Marker line.
type AfterSpec struct {
	Name    string `yaml:"name"`
	Marker  string `yaml:"marker"`
	Pattern string `yaml:"pattern"`
}

// BlockSpec is a fixed-width record: one line per slot, the first slot being
// the anchor.
type BlockSpec struct {
	Kind  string     `yaml:"kind"`
	Slots []SlotSpec `yaml:"slots"`
}

// SlotSpec validates one line of a block either by a named validator or a
// pattern. A slot with neither accepts any line.
type SlotSpec struct {
	Name      string `yaml:"name"`
	Validator string `yaml:"validator,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
}

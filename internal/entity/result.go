package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrecon/constants"
)

// Meta summarizes how a result was produced. It is not part of the payload.
type Meta struct {
	Engine     string        `json:"engine"`
	Pages      int           `json:"pages"`
	Tokens     int           `json:"tokens"`
	Rows       int           `json:"rows"`
	Confidence float64       `json:"confidence"`
	Duration   time.Duration `json:"duration"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// Result is the structured record set for one document.
type Result struct {
	ID       uuid.UUID
	Source   string
	Template constants.Template
	Kind     string // constants.KindTable or constants.KindSequential

	// Table-mode output.
	Transactions []ParsedTransaction

	// Sequential-mode output. FieldOrder lists every configured field name, so
	// absent fields still appear (as null) in the payload.
	Fields     map[string]*string
	FieldOrder []string
	Items      []LineItemRow

	Meta Meta
}

type statementPayload struct {
	Table []ParsedTransaction `json:"table"`
}

type formPayload struct {
	Fields map[string]*string `json:"fields"`
	Table  []LineItemRow      `json:"table"`
}

// Payload returns the caller-facing shape: {"table": [...]} for statements and
// {"fields": {...}, "table": [...]} for header + line-item documents.
func (r *Result) Payload() any {
	if r.Kind == constants.KindTable {
		tx := r.Transactions
		if tx == nil {
			tx = []ParsedTransaction{}
		}
		return statementPayload{Table: tx}
	}
	fields := r.Fields
	if fields == nil {
		fields = map[string]*string{}
	}
	items := r.Items
	if items == nil {
		items = []LineItemRow{}
	}
	return formPayload{Fields: fields, Table: items}
}

// Ptr returns a pointer to s; handy for optional fields.
func Ptr(s string) *string { return &s }

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

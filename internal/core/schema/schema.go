// Package schema checks output payloads against JSON Schemas derived from
// the template definitions.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/templates"
)

// BuildStatementSchema describes {"table": [transaction...]}.
func BuildStatementSchema() map[string]any {
	nullableString := map[string]any{"type": []string{"string", "null"}}
	amount := map[string]any{"type": "string", "pattern": `^-?\d{1,3}(,\d{3})*\.\d{2}$`}
	tx := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"txn_date":    map[string]any{"type": "string", "pattern": `^\d{1,2} [A-Za-z]{3} \d{4}`},
			"value_date":  map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"ref_no":      map[string]any{"type": "string"},
			"amount":      amount,
			"type":        map[string]any{"type": "string", "enum": []string{string(constants.Credit), string(constants.Debit)}},
			"mode": map[string]any{"type": "string", "enum": []string{
				string(constants.ModeNEFT), string(constants.ModeIMPS), string(constants.ModeCheque),
				string(constants.ModeRTGS), string(constants.ModeOther),
			}},
			"customer_name": nullableString,
			"balance":       amount,
		},
		"required": []string{"txn_date", "value_date", "description", "ref_no", "amount", "type", "mode", "customer_name"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"table": map[string]any{"type": "array", "items": tx},
		},
		"required": []string{"table"},
	}
}

// BuildFormSchema describes {"fields": {...}, "table": [row...]} where every
// named field is present and either a string or null.
func BuildFormSchema(fields []string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f] = map[string]any{"type": []string{"string", "null"}}
	}
	row := map[string]any{
		"type":                 "object",
		"minProperties":        1,
		"additionalProperties": map[string]any{"type": "string"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fields": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           props,
				"required":             fields,
			},
			"table": map[string]any{"type": "array", "items": row},
		},
		"required": []string{"fields", "table"},
	}
}

// For returns the schema map for a template.
func For(t *templates.Template) map[string]any {
	if t.Kind() == constants.KindTable {
		return BuildStatementSchema()
	}
	return BuildFormSchema(t.FieldOrder())
}

// Compile turns a schema map into a compiled schema.
func Compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// Validator caches one compiled schema per template.
type Validator struct {
	mu    sync.Mutex
	cache map[constants.Template]*jsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{cache: make(map[constants.Template]*jsonschema.Schema)}
}

// Validate marshals payload and checks it against the template's schema. A
// mismatch means the extractor broke its own output contract and is reported
// as an internal error.
func (v *Validator) Validate(t *templates.Template, payload any) error {
	s, err := v.schemaFor(t)
	if err != nil {
		return fmt.Errorf("%w: %s schema: %w", common.ErrInternal, t.Name, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", common.ErrInternal, err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: unmarshal payload: %w", common.ErrInternal, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: payload does not match %s schema: %w", common.ErrInternal, t.Name, err)
	}
	return nil
}

func (v *Validator) schemaFor(t *templates.Template) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[t.Name]; ok {
		return s, nil
	}
	s, err := Compile(string(t.Name), For(t))
	if err != nil {
		return nil, err
	}
	v.cache[t.Name] = s
	return s, nil
}

package constants

import (
	"regexp"
	"strings"
)

// Template names one document layout with its own rule table.
type Template string

// Built-in templates shipped with the embedded defaults.
const (
	BankStatement Template = "bank_statement"
	IOCLInvoice   Template = "iocl_invoice"
	ERVChallan    Template = "erv_challan"
)

var templateName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Canonicalize maps user input (route segments, flags, directory names) to a
// Template. Synonyms resolve to the built-in names; any other well-formed
// name passes through so templates loaded from disk can be addressed.
// Whether the template actually exists is the registry's call.
func Canonicalize(input string) (Template, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	synonyms := map[string]Template{
		"statement":        BankStatement,
		"bank":             BankStatement,
		"sbi":              BankStatement,
		"invoice":          IOCLInvoice,
		"iocl":             IOCLInvoice,
		"erv":              ERVChallan,
		"challan":          ERVChallan,
		"delivery_challan": ERVChallan,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	if !templateName.MatchString(normalized) {
		return "", false
	}
	return Template(normalized), true
}

// Reconstruction strategies. A template's kind follows from which rule block
// it declares.
const (
	KindTable      = "table"
	KindSequential = "sequential"
)

package entity

import "github.com/joseph-ayodele/docrecon/constants"

// ColumnBand is one logical column: tokens whose x-center lies in [XMin, XMax).
type ColumnBand struct {
	Name string  `yaml:"name" json:"name"`
	XMin float64 `yaml:"x_min" json:"x_min"`
	XMax float64 `yaml:"x_max" json:"x_max"`
}

// Contains reports whether x falls inside the half-open band.
func (b ColumnBand) Contains(x float64) bool { return b.XMin <= x && x < b.XMax }

// RowCluster is the set of tokens that quantized to the same vertical bucket.
type RowCluster struct {
	Page   int
	Key    float64
	Tokens []OcrToken
}

// JoinedRow maps every band name to the text assigned to it ("" when empty).
type JoinedRow struct {
	Page    int
	Key     float64
	Columns map[string]string
}

// Get returns the column text, "" for unknown columns.
func (r JoinedRow) Get(name string) string { return r.Columns[name] }

// ParsedTransaction is a statement line that passed the date and amount gates.
type ParsedTransaction struct {
	TxnDate      string            `json:"txn_date"`
	ValueDate    string            `json:"value_date"`
	Description  string            `json:"description"`
	RefNo        string            `json:"ref_no"`
	Amount       string            `json:"amount"`
	Type         constants.TxnType `json:"type"`
	Mode         constants.TxnMode `json:"mode"`
	CustomerName *string           `json:"customer_name"`
	Balance      *string           `json:"balance,omitempty"`
}

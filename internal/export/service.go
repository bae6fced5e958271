package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Sheet names written by ExportXLSX.
const (
	SheetTransactions = "Transactions"
	SheetFields       = "Fields"
	SheetLineItems    = "Line Items"
)

// Service turns extraction results into an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX writes statements to a Transactions sheet, header fields to a
// Fields sheet (one row per document), and line items to a Line Items
// sheet. Sheets with nothing to show are left out; an empty input yields a
// workbook with only the Transactions header row.
func (s *Service) ExportXLSX(results []*entity.Result) ([]byte, error) {
	start := time.Now()

	var statements, forms []*entity.Result
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Kind == constants.KindTable {
			statements = append(statements, r)
		} else {
			forms = append(forms, r)
		}
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	w := &workbook{f: f}

	if len(statements) > 0 || len(forms) == 0 {
		if err := w.transactions(statements); err != nil {
			return nil, err
		}
	}
	if len(forms) > 0 {
		if err := w.fields(forms); err != nil {
			return nil, err
		}
		if err := w.lineItems(forms); err != nil {
			return nil, err
		}
	}
	if idx, _ := f.GetSheetIndex(w.first); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"documents", len(statements)+len(forms),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

type workbook struct {
	f     *excelize.File
	first string
}

// sheet creates name, reusing the default sheet for the first one.
func (w *workbook) sheet(name string) error {
	if w.first == "" {
		w.first = name
		return w.f.SetSheetName("Sheet1", name)
	}
	_, err := w.f.NewSheet(name)
	return err
}

func (w *workbook) row(sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return w.f.SetSheetRow(sheet, cell, &values)
}

func (w *workbook) transactions(results []*entity.Result) error {
	if err := w.sheet(SheetTransactions); err != nil {
		return err
	}
	headers := []any{"Source", "Txn Date", "Value Date", "Description", "Ref No", "Amount", "Type", "Mode", "Customer", "Balance"}
	if err := w.row(SheetTransactions, 1, headers); err != nil {
		return err
	}
	row := 2
	for _, r := range results {
		for _, tx := range r.Transactions {
			vals := []any{
				r.Source, tx.TxnDate, tx.ValueDate, tx.Description, tx.RefNo,
				tx.Amount, string(tx.Type), string(tx.Mode),
				entity.Deref(tx.CustomerName), entity.Deref(tx.Balance),
			}
			if err := w.row(SheetTransactions, row, vals); err != nil {
				return err
			}
			row++
		}
	}
	_ = w.f.SetColWidth(SheetTransactions, "A", "A", 24)
	_ = w.f.SetColWidth(SheetTransactions, "B", "C", 14)
	_ = w.f.SetColWidth(SheetTransactions, "D", "D", 48)
	_ = w.f.SetColWidth(SheetTransactions, "E", "E", 18)
	_ = w.f.SetColWidth(SheetTransactions, "F", "F", 14)
	_ = w.f.SetColWidth(SheetTransactions, "J", "J", 16)
	return nil
}

func (w *workbook) fields(results []*entity.Result) error {
	if err := w.sheet(SheetFields); err != nil {
		return err
	}
	var names []string
	seen := make(map[string]bool)
	for _, r := range results {
		for _, n := range r.FieldOrder {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	headers := []any{"Source", "Template"}
	for _, n := range names {
		headers = append(headers, n)
	}
	if err := w.row(SheetFields, 1, headers); err != nil {
		return err
	}
	for i, r := range results {
		vals := []any{r.Source, string(r.Template)}
		for _, n := range names {
			vals = append(vals, entity.Deref(r.Fields[n]))
		}
		if err := w.row(SheetFields, i+2, vals); err != nil {
			return err
		}
	}
	_ = w.f.SetColWidth(SheetFields, "A", "A", 24)
	return nil
}

func (w *workbook) lineItems(results []*entity.Result) error {
	var names []string
	seen := make(map[string]bool)
	for _, r := range results {
		for _, item := range r.Items {
			for _, v := range item.Values {
				if !seen[v.Name] {
					seen[v.Name] = true
					names = append(names, v.Name)
				}
			}
		}
	}
	if len(names) == 0 {
		return nil
	}
	if err := w.sheet(SheetLineItems); err != nil {
		return err
	}
	headers := []any{"Source", "Template", "Kind"}
	for _, n := range names {
		headers = append(headers, n)
	}
	if err := w.row(SheetLineItems, 1, headers); err != nil {
		return err
	}
	row := 2
	for _, r := range results {
		for _, item := range r.Items {
			m := item.Map()
			vals := []any{r.Source, string(r.Template), item.Kind}
			for _, n := range names {
				vals = append(vals, m[n])
			}
			if err := w.row(SheetLineItems, row, vals); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}

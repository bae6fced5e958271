package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Column names a statement template must declare.
const (
	ColTxnDate     = "txn_date"
	ColValueDate   = "value_date"
	ColDescription = "description"
	ColRefNo       = "ref_no"
	ColDebit       = "debit"
	ColCredit      = "credit"
	ColBalance     = "balance"
)

var datePattern = regexp.MustCompile(`^\d{1,2} [A-Za-z]{3} \d{4}`)

// IsTxnDate reports whether s starts like "05 Jan 2024".
func IsTxnDate(s string) bool { return datePattern.MatchString(s) }

// ValidateTransaction turns a joined row into a transaction, or rejects it.
// Rows without a leading date, or without an amount in either the credit or
// debit column, are rejected. Credit is checked first.
func ValidateTransaction(row entity.JoinedRow) (entity.ParsedTransaction, bool) {
	txnDate := row.Get(ColTxnDate)
	if !IsTxnDate(txnDate) {
		return entity.ParsedTransaction{}, false
	}

	var (
		raw     string
		txnType constants.TxnType
	)
	if m, ok := FindAmount(row.Get(ColCredit)); ok {
		raw, txnType = m, constants.Credit
	} else if m, ok := FindAmount(row.Get(ColDebit)); ok {
		raw, txnType = m, constants.Debit
	} else {
		return entity.ParsedTransaction{}, false
	}

	amount, ok := FormatAmount(raw)
	if !ok {
		return entity.ParsedTransaction{}, false
	}

	desc := row.Get(ColDescription)
	tx := entity.ParsedTransaction{
		TxnDate:      txnDate,
		ValueDate:    row.Get(ColValueDate),
		Description:  desc,
		RefNo:        row.Get(ColRefNo),
		Amount:       amount,
		Type:         txnType,
		Mode:         ClassifyMode(desc),
		CustomerName: CustomerName(desc),
	}
	if m, ok := FindAmount(row.Get(ColBalance)); ok {
		if bal, ok := FormatAmount(m); ok {
			tx.Balance = &bal
		}
	}
	return tx, true
}

// ClassifyMode scans the description for a payment rail keyword.
func ClassifyMode(description string) constants.TxnMode {
	upper := strings.ToUpper(description)
	for _, m := range constants.ModeKeywords {
		if strings.Contains(upper, string(m)) {
			return m
		}
	}
	return constants.ModeOther
}

// CustomerName guesses the counterparty from "*"-delimited descriptions such
// as "NEFT*HDFC0001*JOHN DOE*SALARY". It takes the first word after the second
// "*", or after the first when there is no second. Non-alphabetic words are
// rejected.
func CustomerName(description string) *string {
	parts := strings.Split(description, "*")
	var candidate string
	if len(parts) > 2 {
		candidate = firstWord(parts[2])
	}
	if candidate == "" && len(parts) > 1 {
		candidate = firstWord(parts[1])
	}
	if candidate == "" || !isAlpha(candidate) {
		return nil
	}
	return &candidate
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

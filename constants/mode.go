package constants

// TxnType is the direction of a statement line.
type TxnType string

const (
	Credit TxnType = "credit"
	Debit  TxnType = "debit"
)

// TxnMode is the payment rail inferred from the description.
type TxnMode string

const (
	ModeNEFT   TxnMode = "NEFT"
	ModeIMPS   TxnMode = "IMPS"
	ModeCheque TxnMode = "CHEQUE"
	ModeRTGS   TxnMode = "RTGS"
	ModeOther  TxnMode = "OTHER"
)

// ModeKeywords is the scan order used for classification; first hit wins.
var ModeKeywords = []TxnMode{ModeNEFT, ModeIMPS, ModeCheque, ModeRTGS}

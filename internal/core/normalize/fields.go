package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Slot validators for fixed-width line items.
var (
	itemNumberPattern   = regexp.MustCompile(`^\d{1,3}$`)
	materialCodePattern = regexp.MustCompile(`^M\d{4,5}$`)
	quantityPattern     = regexp.MustCompile(`^\d+(\.\d{1,3})?$`)
	hsnCodePattern      = regexp.MustCompile(`^\d{6}$`)
)

// SlotValidator accepts or rejects a single trimmed line.
type SlotValidator func(string) bool

func ItemNumber(s string) bool   { return itemNumberPattern.MatchString(s) }
func MaterialCode(s string) bool { return materialCodePattern.MatchString(s) }
func Quantity(s string) bool     { return quantityPattern.MatchString(s) }
func HSNCode(s string) bool      { return hsnCodePattern.MatchString(s) }
func Any(string) bool            { return true }

var slotValidators = map[string]SlotValidator{
	"item_number":   ItemNumber,
	"material_code": MaterialCode,
	"quantity":      Quantity,
	"hsn_code":      HSNCode,
	"any":           Any,
}

// LookupSlotValidator resolves a validator by the name templates use.
func LookupSlotValidator(name string) (SlotValidator, bool) {
	v, ok := slotValidators[name]
	return v, ok
}

// Corrector rewrites a best-effort extracted value.
type Corrector func(string) string

var correctors = map[string]Corrector{
	"vehicle_number": CorrectVehicleNumber,
}

// LookupCorrector resolves a corrector by the name templates use.
func LookupCorrector(name string) (Corrector, bool) {
	c, ok := correctors[name]
	return c, ok
}

// CorrectVehicleNumber fixes common OCR misreads in Indian registration
// numbers, e.g. TSTZUA5601 -> TS12UA5601.
func CorrectVehicleNumber(s string) string {
	s = strings.ReplaceAll(s, "TST", "TS1")
	return strings.ReplaceAll(s, "1Z", "12")
}

var indianDatetimePattern = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})\s+(\d{1,2})[.:](\d{2})(?:[.:](\d{2}))?(?:\s*([AaPp][Mm]))?$`)

// ParseIndianDatetime converts "dd-mm-yyyy hh.mm[.ss] AM|PM" into
// "yyyy-mm-dd HH:MM:SS".
func ParseIndianDatetime(s string) (string, bool) {
	m := indianDatetimePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second := 0
	if m[6] != "" {
		second, _ = strconv.Atoi(m[6])
	}
	switch strings.ToUpper(m[7]) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}
	if day < 1 || day > 31 || month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 {
		return "", false
	}
	return fmt.Sprintf("%s-%02d-%02d %02d:%02d:%02d", m[3], month, day, hour, minute, second), true
}

var derivers = map[string]func(string) (string, bool){
	"indian_datetime": ParseIndianDatetime,
}

// LookupDeriver resolves a derived-field transform by name.
func LookupDeriver(name string) (func(string) (string, bool), bool) {
	d, ok := derivers[name]
	return d, ok
}

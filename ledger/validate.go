package ledger

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Field length limits, in characters.
const (
	MaxChildNameLen    = 100
	MaxWorkbookNameLen = 200
	MaxDescriptionLen  = 60
)

// DateLayout is the only accepted date shape.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// ValidateDate checks the YYYY-MM-DD shape, month in [1,12] and day in
// [1,31]. It does not check the day against the month, so "2022-02-31"
// passes.
func ValidateDate(s string) error {
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return &ValidationError{Field: "date", Message: "Date must be in YYYY-MM-DD format"}
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return &ValidationError{Field: "date", Message: "Month must be between 01 and 12"}
	}
	if day < 1 || day > 31 {
		return &ValidationError{Field: "date", Message: "Day must be between 01 and 31"}
	}
	return nil
}

// ValidateDateStrict applies ValidateDate and also requires a real
// calendar date.
func ValidateDateStrict(s string) error {
	if err := ValidateDate(s); err != nil {
		return err
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return &ValidationError{Field: "date", Message: "Date is not a valid calendar date"}
	}
	return nil
}

func validateLength(field, value string, max int) error {
	n := utf8.RuneCountInString(value)
	if n == 0 {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	if n > max {
		return &ValidationError{Field: field, Message: "must be at most " + strconv.Itoa(max) + " characters"}
	}
	return nil
}

// ValidateChildName requires 1 to 100 characters.
func ValidateChildName(name string) error {
	return validateLength("name", name, MaxChildNameLen)
}

// ValidateWorkbookName requires 1 to 200 characters.
func ValidateWorkbookName(name string) error {
	return validateLength("name", name, MaxWorkbookNameLen)
}

// ValidateDescription requires 1 to 60 characters.
func ValidateDescription(desc string) error {
	return validateLength("description", desc, MaxDescriptionLen)
}

// ParseAmount parses a signed decimal amount as typed into a form.
// NaN and infinities are rejected, as are values a float64 column cannot hold.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Field: "amount", Message: "must be a number"}
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateAmount rejects magnitudes a float64 amount column cannot hold:
// too large overflows to infinity, too small (but non-zero) rounds to 0.
func ValidateAmount(d decimal.Decimal) error {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) {
		return &ValidationError{Field: "amount", Message: "is out of range"}
	}
	if f == 0 && !d.IsZero() {
		return &ValidationError{Field: "amount", Message: "is too small"}
	}
	return nil
}

// ValidateRunningTotals rejects a ledger whose running totals, folded in
// the order given, leave the float64 range at any point.
func ValidateRunningTotals(txs []Transaction) error {
	for _, e := range RunningBalance(txs) {
		if math.IsInf(e.Cumulative.InexactFloat64(), 0) {
			return &ValidationError{Field: "amount", Message: "would put the balance out of range"}
		}
	}
	return nil
}

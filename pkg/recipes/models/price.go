package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// PriceMaxDigits is the total number of digits a price may hold
	PriceMaxDigits = 10
	// PriceDecimalPlaces is the number of digits after the decimal point
	PriceDecimalPlaces = 2
)

var (
	ErrPriceInvalid        = errors.New("a valid number is required")
	ErrPriceTooManyDigits  = fmt.Errorf("ensure that there are no more than %d digits in total", PriceMaxDigits)
	ErrPriceTooManyDecimal = fmt.Errorf("ensure that there are no more than %d decimal places", PriceDecimalPlaces)
	ErrPriceTooManyWhole   = fmt.Errorf("ensure that there are no more than %d digits before the decimal point", PriceMaxDigits-PriceDecimalPlaces)
)

// Price is a fixed-point decimal amount stored as hundredths.
// It is persisted as decimal(10,2) and rendered in JSON as a string, e.g. "1.50".
type Price int64

// ParsePrice parses a decimal string such as "12", "-3.5" or "1.50".
// Values with more precision than decimal(10,2) are rejected, never rounded.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrPriceInvalid
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, ErrPriceInvalid
	}
	if !isDigits(whole) || !isDigits(frac) {
		return 0, ErrPriceInvalid
	}

	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")

	if len(whole)+len(frac) > PriceMaxDigits {
		return 0, ErrPriceTooManyDigits
	}
	if len(frac) > PriceDecimalPlaces {
		return 0, ErrPriceTooManyDecimal
	}
	if len(whole) > PriceMaxDigits-PriceDecimalPlaces {
		return 0, ErrPriceTooManyWhole
	}

	for len(frac) < PriceDecimalPlaces {
		frac += "0"
	}
	cents, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, ErrPriceInvalid
	}
	if negative {
		cents = -cents
	}
	return Price(cents), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String renders the price with exactly two decimal places
func (p Price) String() string {
	cents := int64(p)
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON renders the price as a quoted decimal string
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string
func (p *Price) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer
func (p Price) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner for decimal columns, which drivers return
// as strings, byte slices, floats or integers
func (p *Price) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*p = 0
		return nil
	case []byte:
		return p.scanString(string(v))
	case string:
		return p.scanString(v)
	case float64:
		return p.scanString(strconv.FormatFloat(v, 'f', PriceDecimalPlaces, 64))
	case int64:
		*p = Price(v * 100)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Price", value)
	}
}

func (p *Price) scanString(s string) error {
	parsed, err := ParsePrice(s)
	if err != nil {
		return fmt.Errorf("scan price %q: %w", s, err)
	}
	*p = parsed
	return nil
}

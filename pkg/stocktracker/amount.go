package stocktracker

import (
	"database/sql/driver"
	"strconv"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the currency used when formatting amounts for display.
const DefaultCurrency = money.USD

// Amount wraps decimal.Decimal for share counts and monetary values.
// JSON marshaling outputs a float64 number (compatible with frontend),
// while internal arithmetic uses precise decimal operations.
type Amount struct {
	decimal.Decimal
}

// Zero is the zero Amount.
var Zero = Amount{decimal.Zero}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	f, _ := a.Round(4).Float64()
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Scan implements sql.Scanner, reading values from SQLite TEXT or REAL columns.
func (a *Amount) Scan(src any) error {
	if src == nil {
		a.Decimal = decimal.Zero
		return nil
	}
	switch v := src.(type) {
	case float64:
		a.Decimal = decimal.NewFromFloat(v)
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.Scan(src)
}

// Value stores the exact decimal string so round trips through SQLite are lossless.
func (a Amount) Value() (driver.Value, error) {
	return a.Decimal.String(), nil
}

// Float returns the amount as a float64, rounded to 4 decimals.
func (a Amount) Float() float64 {
	f, _ := a.Round(4).Float64()
	return f
}

// Display formats the amount as money in the given currency, e.g. "$1,234.50".
func (a Amount) Display(currency string) string {
	cur := money.New(0, currency).Currency()
	return cur.Formatter().Format(a.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{a.Decimal.Add(b.Decimal)} }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return Amount{a.Decimal.Sub(b.Decimal)} }

// Mul returns a * b.
func (a Amount) Mul(b Amount) Amount { return Amount{a.Decimal.Mul(b.Decimal)} }

// Div returns a / b, or zero when b is zero.
func (a Amount) Div(b Amount) Amount {
	if b.IsZero() {
		return Zero
	}
	return Amount{a.Decimal.Div(b.Decimal)}
}

// Percent returns a / b * 100, or zero when b is zero.
func (a Amount) Percent(b Amount) Amount {
	if b.IsZero() {
		return Zero
	}
	return Amount{a.Decimal.Div(b.Decimal).Mul(decimal.NewFromInt(100))}
}

// NewAmount creates an Amount from a float64.
func NewAmount(f float64) Amount {
	return Amount{decimal.NewFromFloat(f)}
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string such as "12.5".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, err
	}
	return Amount{d}, nil
}

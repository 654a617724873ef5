package models

import "github.com/shopspring/decimal"

// Money is a two-place fixed-point amount. It renders as a quoted string with
// exactly two fractional digits ("20.00").
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

func MustMoney(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

// Times returns m multiplied by qty, rounded to cents.
func (m Money) Times(qty int) Money {
	return NewMoney(m.Mul(decimal.NewFromInt(int64(qty))))
}

func (m Money) String() string {
	return m.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts quoted or bare numbers and rounds to cents like NewMoney.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*m = NewMoney(d)
	return nil
}

package money

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

// Money is an exact amount in minor units of a single currency. It is never
// backed by floating point; aggregation is integer arithmetic and percentage
// math goes through decimal with deterministic rounding.
type Money struct {
	Cents    int64          `json:"cents"`
	Currency enums.Currency `json:"currency"`
}

// New builds a Money value from minor units.
func New(cents int64, currency enums.Currency) Money {
	return Money{Cents: cents, Currency: currency}
}

// Zero returns the zero amount in the given currency.
func Zero(currency enums.Currency) Money {
	return Money{Currency: currency}
}

// Add returns m + other, failing on mixed currencies or overflow.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	sum, ok := addInt64(m.Cents, other.Cents)
	if !ok {
		return Money{}, overflowError(m.Cents, other.Cents)
	}
	return Money{Cents: sum, Currency: m.Currency}, nil
}

// Sub returns m - other, failing on mixed currencies or overflow.
func (m Money) Sub(other Money) (Money, error) {
	return m.Add(other.Neg())
}

// MustAdd is Add for call sites that have already established currency
// homogeneity, such as summation inside a single balance period.
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Cents == 0
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// Cmp compares two amounts of the same currency: -1 if m < other, 0 if equal,
// +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if err := m.checkCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Cents < other.Cents:
		return -1, nil
	case m.Cents > other.Cents:
		return 1, nil
	}
	return 0, nil
}

// PercentOf computes p percent of the amount, rounded half away from zero on
// minor units. The computation stays in decimal end to end so results are
// identical across platforms.
func (m Money) PercentOf(p decimal.Decimal) Money {
	cents := decimal.NewFromInt(m.Cents).
		Mul(p).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return Money{Cents: cents, Currency: m.Currency}
}

// String formats the amount for logs and error details. Formatting is an
// output boundary; the float conversion here never feeds back into arithmetic.
func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", float64(m.Cents)/100, m.Currency)
}

func (m Money) checkCurrency(other Money) error {
	if m.Currency == other.Currency {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeCurrencyMismatch,
		fmt.Sprintf("cannot combine %s with %s", m.Currency, other.Currency)).
		WithDetails(map[string]any{"left": m.Currency, "right": other.Currency})
}

func addInt64(a, b int64) (int64, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	if b < 0 && a < math.MinInt64-b {
		return 0, false
	}
	return a + b, true
}

func overflowError(a, b int64) error {
	return pkgerrors.New(pkgerrors.CodeLedgerIntegrity,
		fmt.Sprintf("amount overflow adding %d and %d", a, b))
}

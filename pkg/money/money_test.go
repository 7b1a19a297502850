package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
)

func TestAddSameCurrency(t *testing.T) {
	a := New(1500, enums.CurrencyUSD)
	b := New(-400, enums.CurrencyUSD)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if sum.Cents != 1100 || sum.Currency != enums.CurrencyUSD {
		t.Fatalf("unexpected sum %+v", sum)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub error: %v", err)
	}
	if diff.Cents != 1900 {
		t.Fatalf("unexpected diff %+v", diff)
	}
}

func TestAddRejectsMixedCurrencies(t *testing.T) {
	usd := New(100, enums.CurrencyUSD)
	eur := New(100, enums.CurrencyEUR)

	if _, err := usd.Add(eur); !pkgerrors.IsCode(err, pkgerrors.CodeCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if _, err := usd.Cmp(eur); !pkgerrors.IsCode(err, pkgerrors.CodeCurrencyMismatch) {
		t.Fatalf("expected currency mismatch from Cmp, got %v", err)
	}
}

func TestAddOverflowIsIntegrityError(t *testing.T) {
	big := New(math.MaxInt64, enums.CurrencyUSD)
	one := New(1, enums.CurrencyUSD)

	if _, err := big.Add(one); !pkgerrors.IsCode(err, pkgerrors.CodeLedgerIntegrity) {
		t.Fatalf("expected ledger integrity error, got %v", err)
	}

	small := New(math.MinInt64, enums.CurrencyUSD)
	if _, err := small.Sub(one); !pkgerrors.IsCode(err, pkgerrors.CodeLedgerIntegrity) {
		t.Fatalf("expected ledger integrity error on underflow, got %v", err)
	}
}

func TestPercentOfRoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		cents   int64
		percent string
		want    int64
	}{
		{10000, "9", 900},
		{333, "10", 33},   // 33.3 rounds down
		{335, "10", 34},   // 33.5 rounds up
		{-335, "10", -34}, // negative half rounds away from zero
		{101, "2.9", 3},   // 2.929 rounds to 3
		{0, "9", 0},
	}
	for _, tt := range tests {
		p, err := decimal.NewFromString(tt.percent)
		if err != nil {
			t.Fatalf("bad percent literal %q: %v", tt.percent, err)
		}
		got := New(tt.cents, enums.CurrencyUSD).PercentOf(p)
		if got.Cents != tt.want {
			t.Fatalf("%d at %s%%: expected %d, got %d", tt.cents, tt.percent, tt.want, got.Cents)
		}
	}
}

func TestCmpAndPredicates(t *testing.T) {
	a := New(500, enums.CurrencyGBP)
	b := New(700, enums.CurrencyGBP)

	if cmp, _ := a.Cmp(b); cmp != -1 {
		t.Fatalf("expected -1, got %d", cmp)
	}
	if cmp, _ := b.Cmp(a); cmp != 1 {
		t.Fatalf("expected 1, got %d", cmp)
	}
	if cmp, _ := a.Cmp(a); cmp != 0 {
		t.Fatalf("expected 0, got %d", cmp)
	}

	if !Zero(enums.CurrencyUSD).IsZero() {
		t.Fatal("zero should be zero")
	}
	if !a.Neg().IsNegative() {
		t.Fatal("negated positive should be negative")
	}
}

func TestStringFormatting(t *testing.T) {
	if got := New(123456, enums.CurrencyUSD).String(); got != "1234.56 USD" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := New(-50, enums.CurrencyEUR).String(); got != "-0.50 EUR" {
		t.Fatalf("unexpected format %q", got)
	}
}

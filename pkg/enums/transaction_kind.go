package enums

import "fmt"

// TransactionKind maps to the transaction_kind_enum enum in Postgres.
type TransactionKind string

const (
	TransactionKindSale               TransactionKind = "sale"
	TransactionKindRefund             TransactionKind = "refund"
	TransactionKindPartialRefund      TransactionKind = "partial_refund"
	TransactionKindChargeback         TransactionKind = "chargeback"
	TransactionKindChargebackReversal TransactionKind = "chargeback_reversal"
	TransactionKindCredit             TransactionKind = "credit"
	TransactionKindLoanRepayment      TransactionKind = "loan_repayment"
	TransactionKindFeeWaiver          TransactionKind = "fee_waiver"
)

var validTransactionKinds = []TransactionKind{
	TransactionKindSale,
	TransactionKindRefund,
	TransactionKindPartialRefund,
	TransactionKindChargeback,
	TransactionKindChargebackReversal,
	TransactionKindCredit,
	TransactionKindLoanRepayment,
	TransactionKindFeeWaiver,
}

// String implements fmt.Stringer.
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid reports whether the value matches the canonical transaction kind enum.
func (k TransactionKind) IsValid() bool {
	for _, candidate := range validTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsRefundLike reports whether the kind reverses some portion of an earlier sale.
func (k TransactionKind) IsRefundLike() bool {
	return k == TransactionKindRefund || k == TransactionKindPartialRefund
}

// RequiresOriginal reports whether events of this kind must reference the
// transaction they offset.
func (k TransactionKind) RequiresOriginal() bool {
	switch k {
	case TransactionKindRefund, TransactionKindPartialRefund,
		TransactionKindChargeback, TransactionKindChargebackReversal,
		TransactionKindCredit:
		return true
	}
	return false
}

// ParseTransactionKind converts raw input into TransactionKind.
func ParseTransactionKind(value string) (TransactionKind, error) {
	for _, candidate := range validTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction kind %q", value)
}

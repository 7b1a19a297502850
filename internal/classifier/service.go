package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harlowmarket/payouts-backend/internal/fees"
	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

// RawEvent is the classifier's only input: a money fact pushed by the
// checkout subsystem. AmountCents is an unsigned magnitude; the classifier
// owns all sign conventions.
type RawEvent struct {
	SellerID       uuid.UUID  `json:"seller_id" validate:"required"`
	Kind           string     `json:"kind" validate:"required"`
	OccurredAt     time.Time  `json:"occurred_at" validate:"required"`
	AmountCents    int64      `json:"amount_cents" validate:"gte=0"`
	TaxCents       int64      `json:"tax_cents" validate:"gte=0"`
	AffiliateCents int64      `json:"affiliate_cents" validate:"gte=0"`
	Currency       string     `json:"currency" validate:"required"`
	Processor      string     `json:"processor"`
	Holder         string     `json:"holder"`
	Channel        string     `json:"channel"`
	OriginalID     *uuid.UUID `json:"original_id"`
	FeeWaived      bool       `json:"fee_waived"`
}

// Service turns raw marketplace events into ledger transactions.
type Service interface {
	Classify(ctx context.Context, event RawEvent) (*models.Transaction, error)
}

// TransactionSource resolves previously recorded transactions for events
// that offset an earlier sale.
type TransactionSource interface {
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	SumRefundedAgainstOriginal(ctx context.Context, originalID uuid.UUID) (int64, error)
}

// PolicyStore is the slice of the policy repository the classifier needs:
// reading the fee tier inputs and rolling lifetime sales forward.
type PolicyStore interface {
	FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error)
	AddLifetimeSales(ctx context.Context, sellerID uuid.UUID, deltaCents int64, cachedTier int) error
}

type service struct {
	ledger       ledger.Service
	transactions TransactionSource
	policies     PolicyStore
}

// NewService wires a classifier with its ledger and lookup dependencies.
func NewService(ledgerSvc ledger.Service, transactions TransactionSource, policies PolicyStore) (Service, error) {
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if transactions == nil {
		return nil, fmt.Errorf("transaction source required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy store required")
	}
	return &service{ledger: ledgerSvc, transactions: transactions, policies: policies}, nil
}

// Classify validates and types the event, computes its fee, and records the
// resulting transaction into the seller's balance. Sales also roll the
// seller's lifetime volume forward so the cached fee tier stays current.
func (s *service) Classify(ctx context.Context, event RawEvent) (*models.Transaction, error) {
	kind, err := enums.ParseTransactionKind(event.Kind)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("unknown event kind %q", event.Kind))
	}
	if event.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if event.OccurredAt.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "occurred_at is required")
	}
	if event.AmountCents < 0 || event.TaxCents < 0 || event.AffiliateCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event amounts must be non-negative magnitudes")
	}

	currency, err := enums.ParseCurrency(event.Currency)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("unknown currency %q", event.Currency))
	}
	holder := enums.HolderPlatform
	if event.Holder != "" {
		if holder, err = enums.ParseHolder(event.Holder); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("unknown holder %q", event.Holder))
		}
	}
	channel := enums.SaleChannelDirect
	if event.Channel != "" {
		if channel, err = enums.ParseSaleChannel(event.Channel); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("unknown sale channel %q", event.Channel))
		}
	}

	policy, err := s.policies.FindBySeller(ctx, event.SellerID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		SellerID:   event.SellerID,
		OccurredAt: event.OccurredAt.UTC(),
		Kind:       kind,
		Currency:   currency,
		Processor:  event.Processor,
		Holder:     holder,
		Channel:    channel,
	}

	switch kind {
	case enums.TransactionKindSale:
		err = s.classifySale(txn, event, policy)
	case enums.TransactionKindRefund, enums.TransactionKindPartialRefund:
		err = s.classifyRefund(ctx, txn, event)
	case enums.TransactionKindChargeback:
		err = s.classifyChargeback(ctx, txn, event)
	case enums.TransactionKindChargebackReversal:
		err = s.classifyChargebackReversal(ctx, txn, event)
	case enums.TransactionKindCredit:
		err = s.classifyCredit(ctx, txn, event)
	case enums.TransactionKindLoanRepayment:
		txn.GrossCents = -event.AmountCents
	case enums.TransactionKindFeeWaiver:
		txn.FeeCents = -event.AmountCents
		txn.FeeWaived = true
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Record(ctx, txn); err != nil {
		return nil, err
	}

	if kind == enums.TransactionKindSale {
		lifetime := policy.LifetimeSalesCents + txn.GrossCents
		tier := fees.TierFor(lifetime)
		if err := s.policies.AddLifetimeSales(ctx, event.SellerID, txn.GrossCents, int(tier)); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating lifetime sales")
		}
	}
	return txn, nil
}

func (s *service) classifySale(txn *models.Transaction, event RawEvent, policy *models.PayoutPolicy) error {
	if event.AmountCents == 0 {
		return pkgerrors.New(pkgerrors.CodeUnclassifiable, "sale amount must be positive")
	}
	txn.GrossCents = event.AmountCents
	txn.TaxCents = event.TaxCents
	txn.AffiliateCents = event.AffiliateCents
	if event.FeeWaived {
		txn.FeeWaived = true
		return nil
	}
	tier := fees.TierFor(policy.LifetimeSalesCents)
	fee := fees.FeeFor(money.New(event.AmountCents, txn.Currency), tier, policy.UsesMerchantAccount, txn.Channel)
	txn.FeeCents = fee.Cents
	return nil
}

// classifyRefund reverses the refunded portion of a sale. The returned fee,
// tax and affiliate share are proportional to the refunded portion; a sale
// whose fee was waived returns zero fee, never a second waiver.
func (s *service) classifyRefund(ctx context.Context, txn *models.Transaction, event RawEvent) error {
	original, err := s.findOriginal(ctx, event, enums.TransactionKindSale)
	if err != nil {
		return err
	}

	refunded, err := s.transactions.SumRefundedAgainstOriginal(ctx, original.ID)
	if err != nil {
		return err
	}
	remaining := original.GrossCents - refunded
	if remaining <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnclassifiable, "sale is already fully refunded").
			WithDetails(map[string]any{"original_id": original.ID})
	}

	portion := event.AmountCents
	if txn.Kind == enums.TransactionKindRefund || portion == 0 {
		portion = remaining
	}
	if portion > remaining {
		return pkgerrors.New(pkgerrors.CodeUnclassifiable, "refund exceeds the sale's remaining amount").
			WithDetails(map[string]any{
				"original_id":     original.ID,
				"remaining_cents": remaining,
				"refund_cents":    portion,
			})
	}

	txn.GrossCents = -portion
	txn.TaxCents = -proportionOf(original.TaxCents, portion, original.GrossCents)
	txn.AffiliateCents = -proportionOf(original.AffiliateCents, portion, original.GrossCents)
	txn.OriginalID = &original.ID
	txn.Channel = original.Channel
	txn.Holder = original.Holder
	if original.FeeWaived {
		txn.FeeWaived = true
		return nil
	}
	txn.FeeCents = -proportionOf(original.FeeCents, portion, original.GrossCents)
	return nil
}

// classifyChargeback nets whatever portion of the sale has not already been
// refunded, regardless of the disputed amount reported by the processor.
func (s *service) classifyChargeback(ctx context.Context, txn *models.Transaction, event RawEvent) error {
	original, err := s.findOriginal(ctx, event, enums.TransactionKindSale)
	if err != nil {
		return err
	}

	refunded, err := s.transactions.SumRefundedAgainstOriginal(ctx, original.ID)
	if err != nil {
		return err
	}
	remaining := original.GrossCents - refunded
	if remaining <= 0 {
		return pkgerrors.New(pkgerrors.CodeUnclassifiable, "sale has no remaining amount to charge back").
			WithDetails(map[string]any{"original_id": original.ID})
	}

	txn.GrossCents = -remaining
	txn.TaxCents = -proportionOf(original.TaxCents, remaining, original.GrossCents)
	txn.AffiliateCents = -proportionOf(original.AffiliateCents, remaining, original.GrossCents)
	txn.OriginalID = &original.ID
	txn.Channel = original.Channel
	txn.Holder = original.Holder
	if original.FeeWaived {
		txn.FeeWaived = true
		return nil
	}
	txn.FeeCents = -proportionOf(original.FeeCents, remaining, original.GrossCents)
	return nil
}

func (s *service) classifyChargebackReversal(ctx context.Context, txn *models.Transaction, event RawEvent) error {
	chargeback, err := s.findOriginal(ctx, event, enums.TransactionKindChargeback)
	if err != nil {
		return err
	}

	txn.GrossCents = -chargeback.GrossCents
	txn.FeeCents = -chargeback.FeeCents
	txn.TaxCents = -chargeback.TaxCents
	txn.AffiliateCents = -chargeback.AffiliateCents
	txn.FeeWaived = chargeback.FeeWaived
	txn.OriginalID = &chargeback.ID
	txn.Channel = chargeback.Channel
	txn.Holder = chargeback.Holder
	return nil
}

func (s *service) classifyCredit(ctx context.Context, txn *models.Transaction, event RawEvent) error {
	original, err := s.findOriginal(ctx, event, "")
	if err != nil {
		return err
	}
	txn.GrossCents = event.AmountCents
	txn.OriginalID = &original.ID
	return nil
}

// findOriginal loads the referenced transaction and, when wantKind is set,
// checks it is the right kind to offset.
func (s *service) findOriginal(ctx context.Context, event RawEvent, wantKind enums.TransactionKind) (*models.Transaction, error) {
	if event.OriginalID == nil || *event.OriginalID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("%s event must reference an original transaction", event.Kind))
	}
	original, err := s.transactions.FindTransaction(ctx, *event.OriginalID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, "referenced original transaction not found").
				WithDetails(map[string]any{"original_id": *event.OriginalID})
		}
		return nil, err
	}
	if original.SellerID != event.SellerID {
		return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, "referenced transaction belongs to a different seller").
			WithDetails(map[string]any{"original_id": original.ID})
	}
	if wantKind != "" && original.Kind != wantKind {
		return nil, pkgerrors.New(pkgerrors.CodeUnclassifiable, fmt.Sprintf("referenced transaction is a %s, expected %s", original.Kind, wantKind)).
			WithDetails(map[string]any{"original_id": original.ID})
	}
	return original, nil
}

// proportionOf scales total by part/whole in exact decimal arithmetic,
// rounding half away from zero on minor units.
func proportionOf(total, part, whole int64) int64 {
	if whole == 0 || total == 0 {
		return 0
	}
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(part)).
		Div(decimal.NewFromInt(whole)).
		Round(0).
		IntPart()
}

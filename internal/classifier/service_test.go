package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harlowmarket/payouts-backend/internal/ledger"
	"github.com/harlowmarket/payouts-backend/pkg/db/models"
	"github.com/harlowmarket/payouts-backend/pkg/enums"
	pkgerrors "github.com/harlowmarket/payouts-backend/pkg/errors"
	"github.com/harlowmarket/payouts-backend/pkg/money"
)

type fakeLedger struct {
	recorded []*models.Transaction
	fail     error
}

func (f *fakeLedger) Record(ctx context.Context, txn *models.Transaction) (*models.BalancePeriod, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	f.recorded = append(f.recorded, txn)
	return &models.BalancePeriod{ID: uuid.New(), SellerID: txn.SellerID}, nil
}

func (f *fakeLedger) UnpaidBalance(ctx context.Context, sellerID uuid.UUID, throughDate time.Time) (money.Money, error) {
	return money.Zero(enums.CurrencyUSD), nil
}

func (f *fakeLedger) SalesDataForPeriods(ctx context.Context, sellerID uuid.UUID, periodIDs []uuid.UUID) (*ledger.SalesBreakdown, error) {
	return nil, nil
}

type fakeTransactions struct {
	byID     map[uuid.UUID]*models.Transaction
	refunded map[uuid.UUID]int64
}

func newFakeTransactions() *fakeTransactions {
	return &fakeTransactions{
		byID:     map[uuid.UUID]*models.Transaction{},
		refunded: map[uuid.UUID]int64{},
	}
}

func (f *fakeTransactions) FindTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	txn, ok := f.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return txn, nil
}

func (f *fakeTransactions) SumRefundedAgainstOriginal(ctx context.Context, originalID uuid.UUID) (int64, error) {
	return f.refunded[originalID], nil
}

type fakePolicyStore struct {
	policy        *models.PayoutPolicy
	lifetimeDelta int64
	cachedTier    int
}

func (f *fakePolicyStore) FindBySeller(ctx context.Context, sellerID uuid.UUID) (*models.PayoutPolicy, error) {
	if f.policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvariantViolation, "seller has no payout policy configured")
	}
	return f.policy, nil
}

func (f *fakePolicyStore) AddLifetimeSales(ctx context.Context, sellerID uuid.UUID, deltaCents int64, cachedTier int) error {
	f.lifetimeDelta += deltaCents
	f.cachedTier = cachedTier
	return nil
}

func newTestClassifier(t *testing.T, sellerID uuid.UUID) (Service, *fakeLedger, *fakeTransactions, *fakePolicyStore) {
	t.Helper()
	ledgerFake := &fakeLedger{}
	transactions := newFakeTransactions()
	policies := &fakePolicyStore{policy: &models.PayoutPolicy{
		SellerID:           sellerID,
		Frequency:          enums.PayoutFrequencyWeekly,
		MinimumPayoutCents: 1000,
		Currency:           enums.CurrencyUSD,
	}}
	svc, err := NewService(ledgerFake, transactions, policies)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc, ledgerFake, transactions, policies
}

func saleEvent(sellerID uuid.UUID, amount int64) RawEvent {
	return RawEvent{
		SellerID:    sellerID,
		Kind:        "sale",
		OccurredAt:  time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC),
		AmountCents: amount,
		Currency:    "USD",
	}
}

func TestClassify_Sale(t *testing.T) {
	sellerID := uuid.New()
	svc, ledgerFake, _, policies := newTestClassifier(t, sellerID)

	txn, err := svc.Classify(context.Background(), saleEvent(sellerID, 10000))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	if txn.Kind != enums.TransactionKindSale {
		t.Fatalf("kind = %s, want sale", txn.Kind)
	}
	if txn.GrossCents != 10000 {
		t.Fatalf("gross = %d, want 10000", txn.GrossCents)
	}
	// Tier 1 platform-account direct rate is 9%.
	if txn.FeeCents != 900 {
		t.Fatalf("fee = %d, want 900", txn.FeeCents)
	}
	if len(ledgerFake.recorded) != 1 {
		t.Fatalf("recorded %d transactions, want 1", len(ledgerFake.recorded))
	}
	if policies.lifetimeDelta != 10000 {
		t.Fatalf("lifetime delta = %d, want 10000", policies.lifetimeDelta)
	}
	if policies.cachedTier != 1 {
		t.Fatalf("cached tier = %d, want 1", policies.cachedTier)
	}
}

func TestClassify_SaleFeeUsesCachedVolume(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, policies := newTestClassifier(t, sellerID)
	policies.policy.LifetimeSalesCents = 150_000 // tier 2: 7% platform-account

	txn, err := svc.Classify(context.Background(), saleEvent(sellerID, 10000))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.FeeCents != 700 {
		t.Fatalf("fee = %d, want 700", txn.FeeCents)
	}
}

func TestClassify_SaleCrossesTierBoundary(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, policies := newTestClassifier(t, sellerID)
	policies.policy.LifetimeSalesCents = 95_000

	_, err := svc.Classify(context.Background(), saleEvent(sellerID, 10000))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if policies.cachedTier != 2 {
		t.Fatalf("cached tier = %d, want 2 after crossing the boundary", policies.cachedTier)
	}
}

func TestClassify_DiscoverSaleCarriesSurcharge(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	event := saleEvent(sellerID, 10000)
	event.Channel = "discover"
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	// 9% base + 5% discover surcharge.
	if txn.FeeCents != 1400 {
		t.Fatalf("fee = %d, want 1400", txn.FeeCents)
	}
}

func TestClassify_FeeWaivedSale(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	event := saleEvent(sellerID, 10000)
	event.FeeWaived = true
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.FeeCents != 0 || !txn.FeeWaived {
		t.Fatalf("waived sale fee = %d waived=%v", txn.FeeCents, txn.FeeWaived)
	}
}

func TestClassify_PartialRefund(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		FeeCents:   900,
		TaxCents:   800,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderProcessor,
		Channel:    enums.SaleChannelDiscover,
	}
	transactions.byID[sale.ID] = sale

	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "partial_refund",
		OccurredAt:  time.Date(2026, time.February, 12, 9, 0, 0, 0, time.UTC),
		AmountCents: 4000,
		Currency:    "USD",
		OriginalID:  &sale.ID,
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	if txn.GrossCents != -4000 {
		t.Fatalf("gross = %d, want -4000", txn.GrossCents)
	}
	// 40% of the sale's 900 fee comes back.
	if txn.FeeCents != -360 {
		t.Fatalf("fee = %d, want -360", txn.FeeCents)
	}
	if txn.TaxCents != -320 {
		t.Fatalf("tax = %d, want -320", txn.TaxCents)
	}
	// Channel and holder follow the original sale.
	if txn.Channel != enums.SaleChannelDiscover || txn.Holder != enums.HolderProcessor {
		t.Fatalf("channel/holder = %s/%s, want discover/processor", txn.Channel, txn.Holder)
	}
}

func TestClassify_FullRefundDefaultsToRemaining(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		FeeCents:   900,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderPlatform,
		Channel:    enums.SaleChannelDirect,
	}
	transactions.byID[sale.ID] = sale
	transactions.refunded[sale.ID] = 4000

	event := RawEvent{
		SellerID:   sellerID,
		Kind:       "refund",
		OccurredAt: time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		Currency:   "USD",
		OriginalID: &sale.ID,
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.GrossCents != -6000 {
		t.Fatalf("gross = %d, want -6000 (remaining after earlier refund)", txn.GrossCents)
	}
	if txn.FeeCents != -540 {
		t.Fatalf("fee = %d, want -540", txn.FeeCents)
	}
}

func TestClassify_RefundOfWaivedSaleReturnsNoFee(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		FeeWaived:  true,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderPlatform,
		Channel:    enums.SaleChannelDirect,
	}
	transactions.byID[sale.ID] = sale

	event := RawEvent{
		SellerID:   sellerID,
		Kind:       "refund",
		OccurredAt: time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		Currency:   "USD",
		OriginalID: &sale.ID,
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.FeeCents != 0 || !txn.FeeWaived {
		t.Fatalf("waived refund fee = %d waived=%v", txn.FeeCents, txn.FeeWaived)
	}
}

func TestClassify_RefundExceedingRemaining(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderPlatform,
		Channel:    enums.SaleChannelDirect,
	}
	transactions.byID[sale.ID] = sale
	transactions.refunded[sale.ID] = 8000

	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "partial_refund",
		OccurredAt:  time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		AmountCents: 4000,
		Currency:    "USD",
		OriginalID:  &sale.ID,
	}
	_, err := svc.Classify(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnclassifiable) {
		t.Fatalf("expected unclassifiable, got %v", err)
	}
}

func TestClassify_ChargebackNetsRemaining(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		FeeCents:   900,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderPlatform,
		Channel:    enums.SaleChannelDirect,
	}
	transactions.byID[sale.ID] = sale
	transactions.refunded[sale.ID] = 2500

	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "chargeback",
		OccurredAt:  time.Date(2026, time.February, 20, 9, 0, 0, 0, time.UTC),
		AmountCents: 10000, // disputed amount is ignored; the remaining portion nets
		Currency:    "USD",
		OriginalID:  &sale.ID,
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.GrossCents != -7500 {
		t.Fatalf("gross = %d, want -7500", txn.GrossCents)
	}
	if txn.FeeCents != -675 {
		t.Fatalf("fee = %d, want -675", txn.FeeCents)
	}
}

func TestClassify_ChargebackReversalMirrorsChargeback(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	chargeback := &models.Transaction{
		ID:             uuid.New(),
		SellerID:       sellerID,
		Kind:           enums.TransactionKindChargeback,
		GrossCents:     -7500,
		FeeCents:       -675,
		TaxCents:       -100,
		AffiliateCents: -50,
		Currency:       enums.CurrencyUSD,
		Holder:         enums.HolderPlatform,
		Channel:        enums.SaleChannelDirect,
	}
	transactions.byID[chargeback.ID] = chargeback

	event := RawEvent{
		SellerID:   sellerID,
		Kind:       "chargeback_reversal",
		OccurredAt: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		Currency:   "USD",
		OriginalID: &chargeback.ID,
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.GrossCents != 7500 || txn.FeeCents != 675 || txn.TaxCents != 100 || txn.AffiliateCents != 50 {
		t.Fatalf("reversal does not mirror chargeback: %+v", txn)
	}
	if txn.OriginalID == nil || *txn.OriginalID != chargeback.ID {
		t.Fatal("reversal must reference the chargeback")
	}
}

func TestClassify_ReversalMustReferenceChargeback(t *testing.T) {
	sellerID := uuid.New()
	svc, _, transactions, _ := newTestClassifier(t, sellerID)

	sale := &models.Transaction{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Kind:       enums.TransactionKindSale,
		GrossCents: 10000,
		Currency:   enums.CurrencyUSD,
		Holder:     enums.HolderPlatform,
		Channel:    enums.SaleChannelDirect,
	}
	transactions.byID[sale.ID] = sale

	event := RawEvent{
		SellerID:   sellerID,
		Kind:       "chargeback_reversal",
		OccurredAt: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		Currency:   "USD",
		OriginalID: &sale.ID,
	}
	_, err := svc.Classify(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnclassifiable) {
		t.Fatalf("expected unclassifiable, got %v", err)
	}
}

func TestClassify_UnknownKind(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	event := saleEvent(sellerID, 10000)
	event.Kind = "mystery"
	_, err := svc.Classify(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnclassifiable) {
		t.Fatalf("expected unclassifiable, got %v", err)
	}
}

func TestClassify_MissingOriginal(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	missing := uuid.New()
	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "refund",
		OccurredAt:  time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		AmountCents: 4000,
		Currency:    "USD",
		OriginalID:  &missing,
	}
	_, err := svc.Classify(context.Background(), event)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnclassifiable) {
		t.Fatalf("expected unclassifiable, got %v", err)
	}
}

func TestClassify_LoanRepaymentDeducts(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "loan_repayment",
		OccurredAt:  time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		AmountCents: 2500,
		Currency:    "USD",
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.GrossCents != -2500 {
		t.Fatalf("gross = %d, want -2500", txn.GrossCents)
	}
}

func TestClassify_FeeWaiverReturnsFee(t *testing.T) {
	sellerID := uuid.New()
	svc, _, _, _ := newTestClassifier(t, sellerID)

	event := RawEvent{
		SellerID:    sellerID,
		Kind:        "fee_waiver",
		OccurredAt:  time.Date(2026, time.February, 14, 9, 0, 0, 0, time.UTC),
		AmountCents: 900,
		Currency:    "USD",
	}
	txn, err := svc.Classify(context.Background(), event)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if txn.FeeCents != -900 || txn.GrossCents != 0 {
		t.Fatalf("fee waiver fee = %d gross = %d", txn.FeeCents, txn.GrossCents)
	}
	if txn.NetCents() != 900 {
		t.Fatalf("net = %d, want 900 back to the seller", txn.NetCents())
	}
}

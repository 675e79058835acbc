package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billing/internal/model"
	"billing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestAllocatePaymentPartialFIFO(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Fatou Diop", "0")
	lot := env.seedLot(t, "rice 25kg", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	inv1 := env.seedInvoice(t, customer, lot, 10, "10", base)                // 100
	inv2 := env.seedInvoice(t, customer, lot, 5, "10", base.Add(time.Hour)) // 50
	inv3 := env.seedInvoice(t, customer, lot, 3, "10", base.Add(2*time.Hour)) // 30

	result, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("120"),
		IdempotencyKey: uuid.New(),
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if len(result.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(result.Allocations))
	}
	if result.Allocations[0].InvoiceID != inv1.ID || result.Allocations[1].InvoiceID != inv2.ID {
		t.Fatalf("allocations out of FIFO order: %v", result.Allocations)
	}
	assertDecEqual(t, dec("100"), result.Allocations[0].Amount, "first allocation")
	assertDecEqual(t, dec("20"), result.Allocations[1].Amount, "second allocation")
	assertDecEqual(t, dec("120"), result.TotalAllocated, "total allocated")
	assertDecEqual(t, decimal.Zero, result.Leftover, "leftover")

	assertDecEqual(t, decimal.Zero, env.invoiceRemaining(t, inv1.ID), "inv1 remaining")
	assertDecEqual(t, dec("30"), env.invoiceRemaining(t, inv2.ID), "inv2 remaining")
	assertDecEqual(t, dec("30"), env.invoiceRemaining(t, inv3.ID), "inv3 remaining")
	assertDecEqual(t, decimal.Zero, env.customerCredit(t, customer.ID), "credit balance")
}

func TestAllocatePaymentOverpaymentBecomesCredit(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Moussa Ba", "0")
	lot := env.seedLot(t, "oil 5L", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	inv1 := env.seedInvoice(t, customer, lot, 10, "10", base)
	inv2 := env.seedInvoice(t, customer, lot, 5, "10", base.Add(time.Hour))
	inv3 := env.seedInvoice(t, customer, lot, 3, "10", base.Add(2*time.Hour))

	result, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("200"),
		IdempotencyKey: uuid.New(),
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	assertDecEqual(t, dec("180"), result.TotalAllocated, "total allocated")
	assertDecEqual(t, dec("20"), result.Leftover, "leftover")
	for _, id := range []uuid.UUID{inv1.ID, inv2.ID, inv3.ID} {
		assertDecEqual(t, decimal.Zero, env.invoiceRemaining(t, id), "remaining")
	}
	assertDecEqual(t, dec("20"), env.customerCredit(t, customer.ID), "credit balance")

	// The ledger deposit records the full received amount, not the
	// allocated part.
	var txn model.LedgerTransaction
	if err := env.db.First(&txn, "id = ?", result.LedgerTransactionID).Error; err != nil {
		t.Fatalf("load ledger txn: %v", err)
	}
	if txn.Kind != model.LedgerDeposit {
		t.Fatalf("expected deposit, got %s", txn.Kind)
	}
	assertDecEqual(t, dec("200"), txn.Amount, "ledger amount")
	if txn.Participant != customer.Name {
		t.Fatalf("expected participant %q, got %q", customer.Name, txn.Participant)
	}
}

func TestAllocatePaymentNoOutstandingInvoices(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Awa Ndiaye", "0")

	result, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("75.50"),
		Broker:         model.BrokerOrangeMoney,
		IdempotencyKey: uuid.New(),
	})
	if err != nil {
		t.Fatalf("allocate with no invoices must succeed: %v", err)
	}

	if len(result.Allocations) != 0 {
		t.Fatalf("expected no allocations, got %d", len(result.Allocations))
	}
	assertDecEqual(t, decimal.Zero, result.TotalAllocated, "total allocated")
	assertDecEqual(t, dec("75.50"), result.Leftover, "leftover")
	assertDecEqual(t, dec("75.50"), env.customerCredit(t, customer.ID), "credit balance")

	if n := env.count(t, &model.LedgerTransaction{}, "organization_id = ?", env.tenant.OrganizationID); n != 1 {
		t.Fatalf("expected 1 ledger transaction, got %d", n)
	}
}

func TestAllocatePaymentSkipsProformaAndDeliveredState(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Omar Sall", "0")
	lot := env.seedLot(t, "sugar 1kg", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	proforma := env.seedInvoice(t, customer, lot, 10, "10", base)
	if err := env.db.Model(proforma).Update("is_proforma", true).Error; err != nil {
		t.Fatalf("mark proforma: %v", err)
	}
	billed := env.seedInvoice(t, customer, lot, 5, "10", base.Add(time.Hour))

	result, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("50"),
		IdempotencyKey: uuid.New(),
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if len(result.Allocations) != 1 || result.Allocations[0].InvoiceID != billed.ID {
		t.Fatalf("expected allocation only to the non-proforma invoice: %v", result.Allocations)
	}
	assertDecEqual(t, dec("100"), env.invoiceRemaining(t, proforma.ID), "proforma untouched")
}

func TestAllocatePaymentConservation(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Aminata Sy", "0")
	lot := env.seedLot(t, "flour 50kg", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	env.seedInvoice(t, customer, lot, 7, "13.37", base)
	env.seedInvoice(t, customer, lot, 3, "41.99", base.Add(time.Minute))

	amount := dec("111.11")
	result, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         amount,
		IdempotencyKey: uuid.New(),
	})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	sum := result.Leftover
	for _, a := range result.Allocations {
		if !a.Amount.IsPositive() {
			t.Fatalf("zero or negative allocation for invoice %s", a.InvoiceID)
		}
		sum = sum.Add(a.Amount)
	}
	assertDecEqual(t, amount, sum, "allocations plus leftover")
	assertDecEqual(t, amount.Sub(result.Leftover), result.TotalAllocated, "total allocated")
}

func TestAllocatePaymentIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Cheikh Fall", "0")
	lot := env.seedLot(t, "milk 1L", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	env.seedInvoice(t, customer, lot, 10, "10", base)

	key := uuid.New()
	req := AllocatePaymentRequest{Amount: dec("150"), IdempotencyKey: key}

	first, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, req)
	if err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	if first.AlreadyProcessed {
		t.Fatal("first call must not be marked as replayed")
	}

	second, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatal("replay must be marked AlreadyProcessed")
	}
	if second.BulkPaymentID != first.BulkPaymentID {
		t.Fatalf("replay returned a different bulk payment: %s vs %s", second.BulkPaymentID, first.BulkPaymentID)
	}
	assertDecEqual(t, first.TotalAllocated, second.TotalAllocated, "replayed total")
	assertDecEqual(t, first.Leftover, second.Leftover, "replayed leftover")

	// Nothing was written twice.
	if n := env.count(t, &model.Payment{}, "bulk_payment_id = ?", key); n != 1 {
		t.Fatalf("expected 1 payment row, got %d", n)
	}
	if n := env.count(t, &model.LedgerTransaction{}, "organization_id = ?", env.tenant.OrganizationID); n != 1 {
		t.Fatalf("expected 1 ledger transaction, got %d", n)
	}
	assertDecEqual(t, dec("50"), env.customerCredit(t, customer.ID), "credit not doubled")
}

func TestAllocatePaymentReplayPreservesAllocationOrder(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Mame Diarra", "0")
	lot := env.seedLot(t, "tea box", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	inv1 := env.seedInvoice(t, customer, lot, 10, "10", base)                  // 100
	inv2 := env.seedInvoice(t, customer, lot, 5, "10", base.Add(time.Hour))   // 50
	inv3 := env.seedInvoice(t, customer, lot, 3, "10", base.Add(2*time.Hour)) // 30

	req := AllocatePaymentRequest{Amount: dec("180"), IdempotencyKey: uuid.New()}
	first, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, req)
	if err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	want := []uuid.UUID{inv1.ID, inv2.ID, inv3.ID}
	if len(first.Allocations) != len(want) {
		t.Fatalf("expected %d allocations, got %d", len(want), len(first.Allocations))
	}

	second, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatal("replay must be marked AlreadyProcessed")
	}
	if len(second.Allocations) != len(first.Allocations) {
		t.Fatalf("replay returned %d allocations, original had %d", len(second.Allocations), len(first.Allocations))
	}
	for i := range first.Allocations {
		if first.Allocations[i].InvoiceID != want[i] {
			t.Fatalf("original allocation %d hit %s, want %s", i, first.Allocations[i].InvoiceID, want[i])
		}
		if second.Allocations[i].InvoiceID != first.Allocations[i].InvoiceID {
			t.Fatalf("replayed allocation %d hit %s, original hit %s", i, second.Allocations[i].InvoiceID, first.Allocations[i].InvoiceID)
		}
		assertDecEqual(t, first.Allocations[i].Amount, second.Allocations[i].Amount, "replayed allocation amount")
	}
}

func TestAllocatePaymentKeyReuseRejected(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Binta Kane", "0")

	key := uuid.New()
	if _, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("40"),
		IdempotencyKey: key,
	}); err != nil {
		t.Fatalf("first allocate: %v", err)
	}

	// Same key, different amount.
	_, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
		Amount:         dec("41"),
		IdempotencyKey: key,
	})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict for changed parameters, got %v", err)
	}

	// Same key, different organization.
	other := env.secondTenant(t)
	otherCustomer := model.Customer{OrganizationID: other.OrganizationID, Name: "Other Customer"}
	if err := env.db.Create(&otherCustomer).Error; err != nil {
		t.Fatalf("seed other customer: %v", err)
	}
	_, err = env.allocations.AllocatePayment(context.Background(), other, otherCustomer.ID, AllocatePaymentRequest{
		Amount:         dec("40"),
		IdempotencyKey: key,
	})
	if !apperror.IsKind(err, apperror.KindConflict) {
		t.Fatalf("expected conflict for cross-organization key reuse, got %v", err)
	}
}

func TestAllocatePaymentValidation(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Seydou Gueye", "0")

	cases := []struct {
		name string
		req  AllocatePaymentRequest
	}{
		{"zero amount", AllocatePaymentRequest{Amount: decimal.Zero, IdempotencyKey: uuid.New()}},
		{"negative amount", AllocatePaymentRequest{Amount: dec("-5"), IdempotencyKey: uuid.New()}},
		{"missing key", AllocatePaymentRequest{Amount: dec("5")}},
		{"bad broker", AllocatePaymentRequest{Amount: dec("5"), Broker: "paypal", IdempotencyKey: uuid.New()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, tc.req)
			if !apperror.IsKind(err, apperror.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	var appErr *apperror.Error
	_, err := env.allocations.AllocatePayment(context.Background(), env.tenant, uuid.New(), AllocatePaymentRequest{
		Amount:         dec("5"),
		IdempotencyKey: uuid.New(),
	})
	if !errors.As(err, &appErr) || appErr.Kind != apperror.KindNotFound {
		t.Fatalf("expected not found for unknown customer, got %v", err)
	}
}

func TestAllocatePaymentConcurrentSameCustomer(t *testing.T) {
	env := newTestEnv(t)
	customer := env.seedCustomer(t, "Ibrahima Toure", "0")
	lot := env.seedLot(t, "soap bar", 500)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := env.seedInvoice(t, customer, lot, 10, "10", base) // 100

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.allocations.AllocatePayment(context.Background(), env.tenant, customer.ID, AllocatePaymentRequest{
				Amount:         dec("40"),
				IdempotencyKey: uuid.New(),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}

	// 4 x 40 against 100 owed: the invoice is exactly paid and the other
	// 60 is credit, regardless of interleaving.
	assertDecEqual(t, decimal.Zero, env.invoiceRemaining(t, inv.ID), "invoice remaining")
	assertDecEqual(t, dec("60"), env.customerCredit(t, customer.ID), "credit balance")

	var payments []model.Payment
	if err := env.db.Where("invoice_id = ?", inv.ID).Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	paid := decimal.Zero
	for i := range payments {
		paid = paid.Add(payments[i].Amount)
	}
	assertDecEqual(t, dec("100"), paid, "never over-allocated")
}

package service

import (
	"context"
	"testing"

	"billing/pkg/apperror"

	"github.com/shopspring/decimal"
)

func TestCreateCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.customers.CreateCustomer(ctx, env.tenant, CreateCustomerRequest{
		Name:        "Astou Gning",
		PhoneNumber: "+221771234567",
		CreditLimit: dec("300"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertDecEqual(t, decimal.Zero, created.CreditBalance, "new customer starts without credit")
	assertDecEqual(t, dec("300"), created.CreditLimit, "credit limit")

	_, err = env.customers.CreateCustomer(ctx, env.tenant, CreateCustomerRequest{
		Name:        "Bad Limit",
		CreditLimit: dec("-1"),
	})
	if !apperror.IsKind(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListCustomersSearchAndTenancy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedCustomer(t, "Alioune Badara", "0")
	env.seedCustomer(t, "Coumba Gaye", "0")

	matches, total, err := env.customers.ListCustomers(ctx, env.tenant, 1, 20, "Coumba")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(matches) != 1 || matches[0].Name != "Coumba Gaye" {
		t.Fatalf("expected one match for Coumba, got %d", total)
	}

	other := env.secondTenant(t)
	_, otherTotal, err := env.customers.ListCustomers(ctx, other, 1, 20, "")
	if err != nil {
		t.Fatalf("list other org: %v", err)
	}
	if otherTotal != 0 {
		t.Fatalf("expected no customers in other org, got %d", otherTotal)
	}
}

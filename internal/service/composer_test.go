package service

import (
	"testing"
	"time"

	"github.com/chronobill/chronobill/internal/domain/plan"
	ierr "github.com/chronobill/chronobill/internal/errors"
	"github.com/chronobill/chronobill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceComposerSuite struct {
	suite.Suite
	composer InvoiceComposer
}

func TestInvoiceComposer(t *testing.T) {
	suite.Run(t, new(InvoiceComposerSuite))
}

func (s *InvoiceComposerSuite) SetupTest() {
	s.composer = NewInvoiceComposer()
}

func (s *InvoiceComposerSuite) newPlan(items ...plan.LineItem) *plan.Plan {
	return &plan.Plan{
		ID:         "plan_test",
		CustomerID: "cust_test",
		Name:       "Test Plan",
		Frequency:  types.BILLING_FREQUENCY_MONTHLY,
		Interval:   1,
		LineItems:  items,
	}
}

func (s *InvoiceComposerSuite) TestComposeSingleLineItem() {
	p := s.newPlan(plan.LineItem{
		Name:            "Seats",
		UnitPrice:       decimal.NewFromInt(100),
		Quantity:        decimal.NewFromInt(3),
		DiscountPercent: decimal.NewFromInt(10),
		TaxRatePercent:  decimal.NewFromInt(18),
	})

	cycleDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	generatedAt := time.Date(2024, 6, 1, 4, 30, 0, 0, time.UTC)

	inv, err := s.composer.Compose(p, "plan_cycle-abc", cycleDate, generatedAt)
	s.NoError(err)
	s.NotNil(inv)

	s.Equal("plan_test", inv.PlanID)
	s.Equal("cust_test", inv.CustomerID)
	s.Equal("plan_cycle-abc", inv.CycleKey)
	s.Equal(cycleDate, inv.CycleDate)
	s.Equal(generatedAt, inv.GeneratedAt)
	s.NotEmpty(inv.ID)
	s.NotEmpty(inv.InvoiceNumber)

	s.Len(inv.LineItems, 1)
	item := inv.LineItems[0]
	s.True(item.ItemTotal.Equal(decimal.NewFromInt(300)), "item total: %s", item.ItemTotal)
	s.True(item.DiscountAmount.Equal(decimal.NewFromInt(30)), "discount: %s", item.DiscountAmount)
	s.True(item.TaxAmount.Equal(decimal.NewFromFloat(48.60)), "tax: %s", item.TaxAmount)

	s.True(inv.Subtotal.Equal(decimal.NewFromInt(300)))
	s.True(inv.TotalDiscount.Equal(decimal.NewFromInt(30)))
	s.True(inv.TotalTax.Equal(decimal.NewFromFloat(48.60)))
	s.True(inv.GrandTotal.Equal(decimal.NewFromFloat(318.60)), "grand total: %s", inv.GrandTotal)
}

func (s *InvoiceComposerSuite) TestComposeMultipleLineItems() {
	p := s.newPlan(
		plan.LineItem{
			Name:      "Base fee",
			UnitPrice: decimal.NewFromFloat(49.99),
			Quantity:  decimal.NewFromInt(1),
		},
		plan.LineItem{
			Name:            "Seats",
			UnitPrice:       decimal.NewFromFloat(9.99),
			Quantity:        decimal.NewFromInt(10),
			DiscountPercent: decimal.NewFromInt(20),
			TaxRatePercent:  decimal.NewFromInt(10),
		},
	)

	inv, err := s.composer.Compose(p, "plan_cycle-def", time.Now().UTC(), time.Now().UTC())
	s.NoError(err)
	s.Len(inv.LineItems, 2)

	// 49.99 + 99.90
	s.True(inv.Subtotal.Equal(decimal.NewFromFloat(149.89)), "subtotal: %s", inv.Subtotal)
	// 20% of 99.90
	s.True(inv.TotalDiscount.Equal(decimal.NewFromFloat(19.98)), "discount: %s", inv.TotalDiscount)
	// 10% of (99.90 - 19.98)
	s.True(inv.TotalTax.Equal(decimal.NewFromFloat(7.99)), "tax: %s", inv.TotalTax)
	// 149.89 - 19.98 + 7.99
	s.True(inv.GrandTotal.Equal(decimal.NewFromFloat(137.90)), "grand total: %s", inv.GrandTotal)
}

func (s *InvoiceComposerSuite) TestComposeFractionalQuantity() {
	p := s.newPlan(plan.LineItem{
		Name:      "Usage hours",
		UnitPrice: decimal.NewFromFloat(0.07),
		Quantity:  decimal.NewFromFloat(12.5),
	})

	inv, err := s.composer.Compose(p, "plan_cycle-ghi", time.Now().UTC(), time.Now().UTC())
	s.NoError(err)

	// 0.07 * 12.5 = 0.875, rounds to 0.88
	s.True(inv.Subtotal.Equal(decimal.NewFromFloat(0.88)), "subtotal: %s", inv.Subtotal)
	s.True(inv.GrandTotal.Equal(decimal.NewFromFloat(0.88)))
}

func (s *InvoiceComposerSuite) TestComposeNoLineItems() {
	p := s.newPlan()

	inv, err := s.composer.Compose(p, "plan_cycle-jkl", time.Now().UTC(), time.Now().UTC())
	s.Error(err)
	s.Nil(inv)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceComposerSuite) TestComposeDoesNotMutatePlan() {
	p := s.newPlan(plan.LineItem{
		Name:      "Seats",
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  decimal.NewFromInt(1),
	})
	before := *p

	_, err := s.composer.Compose(p, "plan_cycle-mno", time.Now().UTC(), time.Now().UTC())
	s.NoError(err)

	s.Equal(before.TotalGenerated, p.TotalGenerated)
	s.Equal(before.NextInvoiceDate, p.NextInvoiceDate)
	s.Equal(before.LastGeneratedCycle, p.LastGeneratedCycle)
}

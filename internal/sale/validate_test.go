package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSale() SaleData {
	return SaleData{
		CompanyID:     "c-1",
		PaymentMethod: "cash",
		TotalAmount:   decimal.NewFromInt(1000),
		Items: []Item{
			{ProductID: "p-1", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1000)},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(validSale()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SaleData)
		message string
	}{
		{"missing company", func(s *SaleData) { s.CompanyID = "" }, "company_id"},
		{"missing payment method", func(s *SaleData) { s.PaymentMethod = "" }, "payment_method"},
		{"negative total", func(s *SaleData) { s.TotalAmount = decimal.NewFromInt(-1) }, "total_amount"},
		{"no items", func(s *SaleData) { s.Items = nil }, "at least one item"},
		{"missing product", func(s *SaleData) { s.Items[0].ProductID = "" }, "items[0]: product_id"},
		{"zero quantity", func(s *SaleData) { s.Items[0].Quantity = decimal.Zero }, "quantity"},
		{"negative price", func(s *SaleData) { s.Items[0].Price = decimal.NewFromInt(-5) }, "price"},
		{"negative cost", func(s *SaleData) { s.Items[0].CostPrice = decimal.NewFromInt(-5) }, "cost_price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSale()
			tt.mutate(&s)
			err := Validate(s)
			require.Error(t, err)
			assert.True(t, IsInvalidSale(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

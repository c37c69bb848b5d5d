package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kassir-pos/possync/internal/sale"
)

func TestOrder_TotalFromItemsAndDiscount(t *testing.T) {
	doc := `
company_id: c1
payment_method: card
discount:
  value: 10
  percent: true
items:
  - product_id: p1
    quantity: 3
    price: "335"
    cost_price: 200
`
	var o Order
	require.NoError(t, yaml.Unmarshal([]byte(doc), &o))

	data := o.SaleData()
	assert.Equal(t, "904", data.TotalAmount.String())
	require.NoError(t, sale.Validate(data))
}

func TestOrder_ExplicitTotalWins(t *testing.T) {
	total := decimal.NewFromInt(1)
	o := Order{
		TotalAmount: &total,
		Items: []sale.Item{{
			ProductID: "p1",
			Quantity:  decimal.NewFromInt(1),
			Price:     decimal.NewFromInt(50),
		}},
	}
	assert.Equal(t, "1", o.SaleData().TotalAmount.String())
}

func TestTotal_AmountDiscount(t *testing.T) {
	items := []sale.Item{{ProductID: "p1", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(100)}}
	assert.Equal(t, "150", Total(items, &Discount{Value: decimal.NewFromInt(50)}).String())
	assert.Equal(t, "200", Total(items, nil).String())
}

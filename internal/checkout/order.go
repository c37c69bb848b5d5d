package checkout

import (
	"time"

	"github.com/kassir-pos/possync/internal/sale"
	"github.com/shopspring/decimal"
)

// Discount is a cart-level discount.
type Discount struct {
	// Value is an amount, or a percentage when Percent is set.
	Value   decimal.Decimal `json:"value" yaml:"value"`
	Percent bool            `json:"percent" yaml:"percent"`
}

// Order is a sale as submitted by a client of the CLI or the HTTP API.
//
// TotalAmount may be omitted, in which case it is the cart total minus the
// discount. A given TotalAmount is taken as is.
type Order struct {
	CompanyID       string           `json:"company_id" yaml:"company_id"`
	StoreLocationID string           `json:"store_location_id" yaml:"store_location_id"`
	PaymentMethod   string           `json:"payment_method" yaml:"payment_method"`
	CustomerID      string           `json:"customer_id" yaml:"customer_id"`
	Comment         string           `json:"comment" yaml:"comment"`
	TotalAmount     *decimal.Decimal `json:"total_amount" yaml:"total_amount"`
	Discount        *Discount        `json:"discount" yaml:"discount"`
	Items           []sale.Item      `json:"items" yaml:"items"`
	OperationAt     time.Time        `json:"operation_at" yaml:"operation_at"`
}

// Total returns the cart total of items after discount.
func Total(items []sale.Item, d *Discount) decimal.Decimal {
	total := sale.CartTotal(items)
	if d == nil {
		return total
	}
	return sale.ApplyDiscount(total, d.Value, d.Percent)
}

// SaleData converts the order into the sale handed to Enqueue.
func (o Order) SaleData() sale.SaleData {
	total := Total(o.Items, o.Discount)
	if o.TotalAmount != nil {
		total = *o.TotalAmount
	}
	return sale.SaleData{
		CompanyID:       o.CompanyID,
		StoreLocationID: o.StoreLocationID,
		PaymentMethod:   o.PaymentMethod,
		CustomerID:      o.CustomerID,
		Comment:         o.Comment,
		TotalAmount:     total,
		Items:           o.Items,
		OperationAt:     o.OperationAt,
	}
}

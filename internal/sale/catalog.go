package sale

import "github.com/shopspring/decimal"

// Balance is the stock of one product at one store location.
type Balance struct {
	ProductID       string          `json:"product_id"`
	StoreLocationID string          `json:"store_location_id,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// Product is a cached catalog entry.
type Product struct {
	ID            string          `json:"id"`
	CompanyID     string          `json:"company_id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Barcode       string          `json:"barcode"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Type          string          `json:"type,omitempty"`
	InventoryMode string          `json:"inventory_mode,omitempty"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	Balances      []Balance       `json:"product_balances"`
}

// RecomputeStock sets StockQuantity to the sum of Balances.
// A product without balances keeps the quantity it was stored with.
func (p *Product) RecomputeStock() {
	if len(p.Balances) == 0 {
		return
	}
	total := decimal.Zero
	for _, b := range p.Balances {
		total = total.Add(b.Quantity)
	}
	p.StockQuantity = total
}

// PaymentMethod is a cached payment method of the company.
type PaymentMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

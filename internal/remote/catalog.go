package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/kassir-pos/possync/internal/sale"
)

// Products returns the active products of a company ordered by name.
// Balances and StockQuantity are left empty; see ProductBalances.
func (c *Client) Products(ctx context.Context, companyID string) ([]sale.Product, error) {
	q := url.Values{}
	q.Set("select", "id,company_id,name,sku,barcode,sale_price,purchase_price,type,inventory_mode")
	q.Set("company_id", "eq."+companyID)
	q.Set("active", "eq.true")
	q.Set("order", "name")

	products := []sale.Product{}
	if err := c.do(ctx, http.MethodGet, c.tableURL("products", q), nil, &products); err != nil {
		return nil, sale.NetworkError("fetch products", err)
	}
	return products, nil
}

// ProductBalances returns the stock balances held at a store location.
func (c *Client) ProductBalances(ctx context.Context, storeLocationID string) ([]sale.Balance, error) {
	q := url.Values{}
	q.Set("select", "product_id,store_location_id,quantity")
	q.Set("store_location_id", "eq."+storeLocationID)

	balances := []sale.Balance{}
	if err := c.do(ctx, http.MethodGet, c.tableURL("product_balances", q), nil, &balances); err != nil {
		return nil, sale.NetworkError("fetch product balances", err)
	}
	return balances, nil
}

// PaymentMethods returns the payment methods configured for a company.
func (c *Client) PaymentMethods(ctx context.Context, companyID string) ([]sale.PaymentMethod, error) {
	q := url.Values{}
	q.Set("select", "id,name")
	q.Set("company_id", "eq."+companyID)

	methods := []sale.PaymentMethod{}
	if err := c.do(ctx, http.MethodGet, c.tableURL("payment_methods", q), nil, &methods); err != nil {
		return nil, sale.NetworkError("fetch payment methods", err)
	}
	return methods, nil
}

package sale

// Validate checks that sale data can be turned into an intent.
// It returns an *Error with ErrCodeInvalidSale describing the first problem.
func Validate(data SaleData) error {
	if data.CompanyID == "" {
		return InvalidSale("company_id is required")
	}
	if data.PaymentMethod == "" {
		return InvalidSale("payment_method is required")
	}
	if data.TotalAmount.IsNegative() {
		return InvalidSale("total_amount must not be negative, got %s", data.TotalAmount)
	}
	if len(data.Items) == 0 {
		return InvalidSale("at least one item is required")
	}
	for i, it := range data.Items {
		if it.ProductID == "" {
			return InvalidSale("items[%d]: product_id is required", i)
		}
		if !it.Quantity.IsPositive() {
			return InvalidSale("items[%d]: quantity must be positive, got %s", i, it.Quantity)
		}
		if it.Price.IsNegative() {
			return InvalidSale("items[%d]: price must not be negative, got %s", i, it.Price)
		}
		if it.CostPrice.IsNegative() {
			return InvalidSale("items[%d]: cost_price must not be negative, got %s", i, it.CostPrice)
		}
	}
	return nil
}

package sale

import "github.com/shopspring/decimal"

// Amounts are kept in whole currency units. Fractional results of
// percentage discounts are rounded half away from zero.

var hundred = decimal.NewFromInt(100)

// CartTotal returns the sum of price * quantity over items.
func CartTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Discount returns the discount amount for value applied to amount.
// With percent set, value is a percentage (10 means 10%).
func Discount(amount, value decimal.Decimal, percent bool) decimal.Decimal {
	if percent {
		return amount.Mul(value).Div(hundred).Round(0)
	}
	return value
}

// ApplyDiscount returns amount minus its discount. The result is never
// negative.
func ApplyDiscount(amount, value decimal.Decimal, percent bool) decimal.Decimal {
	out := amount.Sub(Discount(amount, value, percent))
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

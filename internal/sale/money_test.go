package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCartTotal(t *testing.T) {
	items := []Item{
		{ProductID: "a", Quantity: d("2"), Price: d("350")},
		{ProductID: "b", Quantity: d("1"), Price: d("300")},
	}
	assert.True(t, CartTotal(items).Equal(d("1000")))
	assert.True(t, CartTotal(nil).Equal(decimal.Zero))
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		value   string
		percent bool
		want    string
	}{
		{"fixed", "1000", "150", false, "850"},
		{"percent", "1000", "10", true, "900"},
		{"percent rounds half up", "1005", "10", true, "904"},
		{"never negative", "100", "250", false, "0"},
		{"zero discount", "999", "0", true, "999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyDiscount(d(tt.amount), d(tt.value), tt.percent)
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestDiscount(t *testing.T) {
	assert.True(t, Discount(d("1005"), d("10"), true).Equal(d("101")))
	assert.True(t, Discount(d("1005"), d("10"), false).Equal(d("10")))
}

package services

import "github.com/shopspring/decimal"

// Pricing derives the charges of an order from its subtotal.
type Pricing struct {
	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64
}

// DefaultPricing charges 10% tax and a flat 50 for shipping unless the
// subtotal exceeds 500.
var DefaultPricing = Pricing{
	TaxRate:               0.10,
	FreeShippingThreshold: 500,
	ShippingFee:           50,
}

// Quote is the priced breakdown of an order.
type Quote struct {
	Subtotal     float64
	Tax          float64
	ShippingCost float64
	Total        float64
}

// Quote prices an order with the given subtotal. Shipping is free only when
// the unrounded subtotal is strictly above the threshold. Every returned
// amount is rounded to cents, half away from zero.
func (p Pricing) Quote(subtotal float64) Quote {
	raw := decimal.NewFromFloat(subtotal)
	sub := raw.Round(2)
	tax := sub.Mul(decimal.NewFromFloat(p.TaxRate)).Round(2)
	shipping := decimal.NewFromFloat(p.ShippingFee)
	if raw.GreaterThan(decimal.NewFromFloat(p.FreeShippingThreshold)) {
		shipping = decimal.Zero
	}
	return Quote{
		Subtotal:     sub.InexactFloat64(),
		Tax:          tax.InexactFloat64(),
		ShippingCost: shipping.InexactFloat64(),
		Total:        sub.Add(tax).Add(shipping).Round(2).InexactFloat64(),
	}
}

// lineTotal is price × quantity without float drift.
func lineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

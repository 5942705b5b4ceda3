package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/blendery/blendery-backend/pkg/config"
)

// Totals is the full price breakdown of an order. All amounts are integer
// cents and Total always equals Subtotal + Shipping + Tax - Discount.
type Totals struct {
	SubtotalCents int
	ShippingCents int
	TaxCents      int
	DiscountCents int
	TotalCents    int
}

// PricedLine is the minimal input for totals math.
type PricedLine struct {
	UnitPriceCents int
	Quantity       int
}

// ComputeTotals derives the order breakdown from priced lines. Discount and
// tax are computed on decimals and rounded half-up once, so the same inputs
// always produce the same cents. Tax applies to goods after discount;
// shipping is not taxed and is waived above the free-shipping threshold.
func ComputeTotals(lines []PricedLine, percentOff int, cfg config.CheckoutConfig) Totals {
	subtotal := 0
	for _, line := range lines {
		subtotal += line.UnitPriceCents * line.Quantity
	}

	discount := 0
	if percentOff > 0 {
		discount = int(decimal.NewFromInt(int64(subtotal)).
			Mul(decimal.NewFromInt(int64(percentOff))).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart())
		if discount > subtotal {
			discount = subtotal
		}
	}
	goods := subtotal - discount

	shipping := cfg.ShippingFlatCents
	if goods >= cfg.FreeShippingThresholdCents {
		shipping = 0
	}

	tax := int(decimal.NewFromInt(int64(goods)).
		Mul(decimal.NewFromInt(int64(cfg.TaxRateBasisPoints))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart())

	return Totals{
		SubtotalCents: subtotal,
		ShippingCents: shipping,
		TaxCents:      tax,
		DiscountCents: discount,
		TotalCents:    subtotal + shipping + tax - discount,
	}
}

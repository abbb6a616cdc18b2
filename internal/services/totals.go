package services

import (
	"math"

	"github.com/diewo77/bon-livraison/internal/models"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// LineAmounts is the breakdown of one line after discounts and VAT.
type LineAmounts struct {
	Net   float64 `json:"net"`
	Tax   float64 `json:"tax"`
	Gross float64 `json:"gross"`
}

// Totals are the invoice-level aggregates derived from the items.
type Totals struct {
	Subtotal      float64 `json:"subtotal"`
	TotalTva      float64 `json:"totalTva"`
	TotalTtc      float64 `json:"totalTtc"`
	TotalQuantity float64 `json:"totalQuantity"`
	NetToPay      float64 `json:"netToPay"`
}

type totalsConfig struct {
	globalDiscount float64
}

// TotalsOption tunes ComputeInvoiceTotals.
type TotalsOption func(*totalsConfig)

// WithGlobalDiscount applies an invoice-wide discount percentage on top of
// each line's own discount.
func WithGlobalDiscount(pct float64) TotalsOption {
	return func(c *totalsConfig) { c.globalDiscount = pct }
}

// finite maps NaN and ±Inf to 0 so a malformed line never poisons totals.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(finite(f))
}

// percent normalises a percentage to [0,100].
func percent(f float64) decimal.Decimal {
	f = finite(f)
	if f < 0 {
		f = 0
	}
	if f > 100 {
		f = 100
	}
	return decimal.NewFromFloat(f)
}

// rate normalises a VAT rate: finite and non-negative, no upper bound.
func rate(f float64) decimal.Decimal {
	f = finite(f)
	if f < 0 {
		f = 0
	}
	return decimal.NewFromFloat(f)
}

// round2 rounds half away from zero to 2 decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round2 rounds a float amount half-up to cents.
func Round2(f float64) float64 {
	return round2(dec(f)).InexactFloat64()
}

// ComputeLineAmount returns round2(quantity*unitPrice). Non-finite inputs
// count as 0.
func ComputeLineAmount(quantity, unitPrice float64) float64 {
	return round2(dec(quantity).Mul(dec(unitPrice))).InexactFloat64()
}

// ComputeLineAmountWithModifiers applies the line discount first, then VAT
// on the discounted net.
func ComputeLineAmountWithModifiers(quantity, unitPrice, discountPct, tvaRatePct float64) LineAmounts {
	net, tax := lineSplit(quantity, unitPrice, discountFactor(discountPct, 0), tvaRatePct, models.TvaModeExclusive)
	return LineAmounts{
		Net:   net.InexactFloat64(),
		Tax:   tax.InexactFloat64(),
		Gross: net.Add(tax).InexactFloat64(),
	}
}

// LineBreakdown returns the amounts of one item as they contribute to the
// invoice totals.
func LineBreakdown(item models.InvoiceItem, mode models.TvaMode, globalDiscount float64) LineAmounts {
	net, tax := lineSplit(item.Quantity, item.UnitPrice, discountFactor(item.Discount, globalDiscount), item.TvaRate, mode)
	return LineAmounts{
		Net:   net.InexactFloat64(),
		Tax:   tax.InexactFloat64(),
		Gross: net.Add(tax).InexactFloat64(),
	}
}

// discountFactor composes the line and global discounts multiplicatively.
func discountFactor(linePct, globalPct float64) decimal.Decimal {
	lf := one.Sub(percent(linePct).Div(hundred))
	gf := one.Sub(percent(globalPct).Div(hundred))
	return lf.Mul(gf)
}

// lineSplit returns the rounded net and tax of a line. In inclusive mode the
// discounted price is gross and the net is backed out of it.
func lineSplit(quantity, unitPrice float64, factor decimal.Decimal, tvaRatePct float64, mode models.TvaMode) (net, tax decimal.Decimal) {
	base := dec(quantity).Mul(dec(unitPrice)).Mul(factor)
	r := rate(tvaRatePct)
	if mode == models.TvaModeInclusive {
		gross := round2(base)
		net = round2(gross.Div(one.Add(r.Div(hundred))))
		return net, gross.Sub(net)
	}
	net = round2(base)
	tax = round2(net.Mul(r).Div(hundred))
	return net, tax
}

// ComputeInvoiceTotals sums the line nets and taxes. TotalTtc is always
// Subtotal+TotalTva and NetToPay is TotalTtc-advance, negative when overpaid.
func ComputeInvoiceTotals(items []models.InvoiceItem, advance float64, mode models.TvaMode, opts ...TotalsOption) Totals {
	var cfg totalsConfig
	for _, o := range opts {
		o(&cfg)
	}
	subtotal, tva, qty := decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		net, tax := lineSplit(it.Quantity, it.UnitPrice, discountFactor(it.Discount, cfg.globalDiscount), it.TvaRate, mode)
		subtotal = subtotal.Add(net)
		tva = tva.Add(tax)
		qty = qty.Add(dec(it.Quantity))
	}
	ttc := subtotal.Add(tva)
	return Totals{
		Subtotal:      subtotal.InexactFloat64(),
		TotalTva:      tva.InexactFloat64(),
		TotalTtc:      ttc.InexactFloat64(),
		TotalQuantity: qty.InexactFloat64(),
		NetToPay:      ttc.Sub(dec(advance)).InexactFloat64(),
	}
}

// Recalculate returns a copy of inv with every item amount and every total
// recomputed from the items. Totals already present on inv are ignored.
func Recalculate(inv models.Invoice) models.Invoice {
	out := inv.Clone()
	if out.TvaMode == "" {
		out.TvaMode = models.TvaModeExclusive
	}
	out.Advance = finite(out.Advance)
	out.GlobalDiscount = finite(out.GlobalDiscount)
	for i := range out.Items {
		it := &out.Items[i]
		it.Quantity = finite(it.Quantity)
		it.UnitPrice = finite(it.UnitPrice)
		it.TvaRate = finite(it.TvaRate)
		it.Discount = finite(it.Discount)
		it.Amount = ComputeLineAmount(it.Quantity, it.UnitPrice)
	}
	t := ComputeInvoiceTotals(out.Items, out.Advance, out.TvaMode, WithGlobalDiscount(out.GlobalDiscount))
	out.Subtotal = t.Subtotal
	out.TotalTva = t.TotalTva
	out.TotalTtc = t.TotalTtc
	out.TotalQuantity = t.TotalQuantity
	out.NetToPay = t.NetToPay
	return out
}

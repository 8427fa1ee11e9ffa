package pricing

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

// Line is the pricing view of a cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	Category  string
}

// Destination selects the shipping rule.
type Destination struct {
	Country   string
	Subregion string
}

// Quote is the aggregate result for one cart. AmountToCharge outside deposit
// mode is exactly DiscountedSubtotal + ShippingFee.
type Quote struct {
	Subtotal           decimal.Decimal
	TotalDiscount      decimal.Decimal
	DiscountedSubtotal decimal.Decimal
	ShippingFee        decimal.Decimal
	AmountToCharge     decimal.Decimal
	RemainingAmount    decimal.Decimal
	DepositMode        bool
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMinorUnits scales amount to minor units, rounding half away from zero,
// and raises the result to the gateway minimum charge. Amounts whose scaled
// value does not fit in an int64 are rejected.
func (r Rules) ToMinorUnits(amount decimal.Decimal) (int64, error) {
	scaled := amount.Mul(decimal.NewFromInt(r.MinorPerMajor)).Round(0)
	if scaled.GreaterThan(maxMinorUnits) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the payable limit").
			WithDetails(map[string]string{"amount": amount.String()})
	}
	minor := scaled.IntPart()
	if minor < r.MinimumCharge {
		return r.MinimumCharge, nil
	}
	return minor, nil
}

// PairDiscount is floor(quantity/2) times the per-pair rebate for eligible
// categories, independent of unit price.
func (r Rules) PairDiscount(line Line) decimal.Decimal {
	if !r.PairEligible(line.Category) || line.Quantity < 2 {
		return decimal.Zero
	}
	pairs := int64(line.Quantity / 2)
	return r.PerPairRebate.Mul(decimal.NewFromInt(pairs))
}

func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func (r Rules) TotalDiscount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(r.PairDiscount(line))
	}
	return total
}

func (r Rules) DiscountedSubtotal(lines []Line) decimal.Decimal {
	return decimal.Max(decimal.Zero, Subtotal(lines).Sub(r.TotalDiscount(lines)))
}

// ShippingFee applies the regional fee table, then waives it entirely once
// the discounted subtotal reaches the free-shipping threshold.
func (r Rules) ShippingFee(dest Destination, discountedSubtotal decimal.Decimal) decimal.Decimal {
	if discountedSubtotal.GreaterThanOrEqual(r.FreeShippingAt) {
		return decimal.Zero
	}
	if strings.TrimSpace(dest.Country) != r.RegionName {
		return r.DomesticShipping
	}
	if strings.TrimSpace(dest.Subregion) == r.SubregionName {
		return r.SubregionShipping
	}
	return r.RegionShipping
}

// SplitForDeposit returns the amount charged now and the balance owed later.
func SplitForDeposit(discountedSubtotal, shippingFee decimal.Decimal, deposit bool, depositAmount decimal.Decimal) (charge, remaining decimal.Decimal) {
	total := discountedSubtotal.Add(shippingFee)
	if !deposit {
		return total, decimal.Zero
	}
	return depositAmount, decimal.Max(decimal.Zero, total.Sub(depositAmount))
}

// DisplayUnitPrice spreads the line's pair rebate evenly across its units for
// gateway display, floored at the configured minimum unit price.
func (r Rules) DisplayUnitPrice(line Line) decimal.Decimal {
	qty := line.Quantity
	if qty < 1 {
		qty = 1
	}
	amortized := r.PairDiscount(line).Div(decimal.NewFromInt(int64(qty)))
	return decimal.Max(r.MinimumUnitPrice, line.UnitPrice.Sub(amortized))
}

// Validate rejects carts the engine cannot price. Negative values fail, and so
// does a cart with no positive quantity. Prices, line totals and the subtotal
// must stay within MaxAmount.
func (r Rules) Validate(lines []Line) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid or empty products array")
	}
	details := map[string]string{}
	purchasable := false
	for i, line := range lines {
		if line.UnitPrice.IsNegative() {
			details[fmt.Sprintf("products[%d].price", i)] = "must not be negative"
		}
		if line.Quantity < 0 {
			details[fmt.Sprintf("products[%d].quantity", i)] = "must not be negative"
		}
		if line.Quantity > 0 {
			purchasable = true
		}
		if r.exceedsMax(line.UnitPrice) {
			details[fmt.Sprintf("products[%d].price", i)] = "exceeds the maximum amount " + r.MaxAmount.String()
		} else if r.exceedsMax(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))) {
			details[fmt.Sprintf("products[%d].quantity", i)] = "line total exceeds the maximum amount " + r.MaxAmount.String()
		}
	}
	if len(details) == 0 && r.exceedsMax(Subtotal(lines)) {
		details["products"] = "cart total exceeds the maximum amount " + r.MaxAmount.String()
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product lines").WithDetails(details)
	}
	if !purchasable {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart has no purchasable quantity")
	}
	return nil
}

func (r Rules) exceedsMax(amount decimal.Decimal) bool {
	return r.MaxAmount.IsPositive() && amount.GreaterThan(r.MaxAmount)
}

// Quote validates lines and computes every checkout total.
func (r Rules) Quote(lines []Line, dest Destination, deposit bool) (Quote, error) {
	if err := r.Validate(lines); err != nil {
		return Quote{}, err
	}

	subtotal := Subtotal(lines)
	discount := r.TotalDiscount(lines)
	discounted := decimal.Max(decimal.Zero, subtotal.Sub(discount))
	shipping := r.ShippingFee(dest, discounted)
	charge, remaining := SplitForDeposit(discounted, shipping, deposit, r.DepositAmount)

	return Quote{
		Subtotal:           subtotal,
		TotalDiscount:      discount,
		DiscountedSubtotal: discounted,
		ShippingFee:        shipping,
		AmountToCharge:     charge,
		RemainingAmount:    remaining,
		DepositMode:        deposit,
	}, nil
}

package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

const (
	shaylaFrench = "الشيلات فرنسية"
	gulf         = "دول الخليج"
	uae          = "الإمارات"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestToMinorUnits(t *testing.T) {
	r := DefaultRules()
	cases := []struct {
		in   string
		want int64
	}{
		{"18", 18000},
		{"0.1", 100},
		{"0.05", 100},
		{"0", 100},
		{"1.2345", 1235},
		{"1.2344", 1234},
		{"4.9995", 5000},
	}
	for _, tc := range cases {
		got, err := r.ToMinorUnits(d(tc.in))
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestToMinorUnitsRejectsOverflow(t *testing.T) {
	r := DefaultRules()
	for _, in := range []string{"1e16", "1e17", "9223372036854775.808"} {
		got, err := r.ToMinorUnits(d(in))
		require.Error(t, err, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), in)
		assert.Zero(t, got, in)
	}

	got, err := r.ToMinorUnits(d("9223372036854775.807"))
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)
}

func TestPairDiscount(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.PairDiscount(Line{UnitPrice: d("5"), Quantity: 5, Category: shaylaFrench}).Equal(d("2")))
	assert.True(t, r.PairDiscount(Line{UnitPrice: d("99"), Quantity: 5, Category: shaylaFrench}).Equal(d("2")), "independent of unit price")
	assert.True(t, r.PairDiscount(Line{UnitPrice: d("5"), Quantity: 1, Category: shaylaFrench}).IsZero())
	assert.True(t, r.PairDiscount(Line{UnitPrice: d("5"), Quantity: 4, Category: "abaya"}).IsZero())
}

func TestShippingFee(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.ShippingFee(Destination{Country: "عمان"}, d("10")).Equal(d("2")))
	assert.True(t, r.ShippingFee(Destination{Country: gulf}, d("10")).Equal(d("5")))
	assert.True(t, r.ShippingFee(Destination{Country: gulf, Subregion: uae}, d("10")).Equal(d("4")))
	assert.True(t, r.ShippingFee(Destination{Country: "عمان", Subregion: uae}, d("10")).Equal(d("2")), "subregion only applies inside the region")

	for _, dest := range []Destination{{Country: "عمان"}, {Country: gulf}, {Country: gulf, Subregion: uae}} {
		assert.True(t, r.ShippingFee(dest, d("14")).IsZero(), "threshold is inclusive for %v", dest)
		assert.True(t, r.ShippingFee(dest, d("13.999")).IsPositive())
	}
}

func TestSplitForDeposit(t *testing.T) {
	charge, remaining := SplitForDeposit(d("20"), d("5"), true, d("10"))
	assert.True(t, charge.Equal(d("10")))
	assert.True(t, remaining.Equal(d("15")))

	charge, remaining = SplitForDeposit(d("4"), d("2"), true, d("10"))
	assert.True(t, charge.Equal(d("10")))
	assert.True(t, remaining.IsZero())

	charge, remaining = SplitForDeposit(d("20"), d("5"), false, d("10"))
	assert.True(t, charge.Equal(d("25")))
	assert.True(t, remaining.IsZero())
}

func TestDisplayUnitPrice(t *testing.T) {
	r := DefaultRules()
	assert.True(t, r.DisplayUnitPrice(Line{UnitPrice: d("5"), Quantity: 4, Category: shaylaFrench}).Equal(d("4.5")))
	assert.True(t, r.DisplayUnitPrice(Line{UnitPrice: d("0.5"), Quantity: 2, Category: shaylaFrench}).Equal(d("0.1")), "floored at minimum")
	assert.True(t, r.DisplayUnitPrice(Line{UnitPrice: d("3"), Quantity: 0}).Equal(d("3")))
}

func TestQuoteDomesticFreeShipping(t *testing.T) {
	r := DefaultRules()
	q, err := r.Quote([]Line{{UnitPrice: d("5"), Quantity: 4, Category: shaylaFrench}}, Destination{Country: "عمان"}, false)
	require.NoError(t, err)

	assert.True(t, q.TotalDiscount.Equal(d("2")))
	assert.True(t, q.Subtotal.Equal(d("20")))
	assert.True(t, q.DiscountedSubtotal.Equal(d("18")))
	assert.True(t, q.ShippingFee.IsZero())
	assert.True(t, q.AmountToCharge.Equal(d("18")))
	assert.True(t, q.RemainingAmount.IsZero())
}

func TestQuoteDepositMode(t *testing.T) {
	r := DefaultRules()
	lines := []Line{{UnitPrice: d("10"), Quantity: 2, Category: "abaya"}}
	q, err := r.Quote(lines, Destination{Country: gulf}, true)
	require.NoError(t, err)

	// 20 is above the free shipping threshold.
	assert.True(t, q.AmountToCharge.Equal(d("10")))
	assert.True(t, q.RemainingAmount.Equal(d("10")))

	lines = []Line{{UnitPrice: d("6.5"), Quantity: 2, Category: "abaya"}}
	q, err = r.Quote(lines, Destination{Country: gulf}, true)
	require.NoError(t, err)
	assert.True(t, q.ShippingFee.Equal(d("5")))
	assert.True(t, q.AmountToCharge.Equal(d("10")))
	assert.True(t, q.RemainingAmount.Equal(d("8")))
}

func TestQuoteTotalHasNoRoundingDrift(t *testing.T) {
	r := DefaultRules()
	lines := []Line{
		{UnitPrice: d("3.333"), Quantity: 3, Category: shaylaFrench},
		{UnitPrice: d("1.005"), Quantity: 1, Category: "pins"},
	}
	q, err := r.Quote(lines, Destination{Country: "عمان"}, false)
	require.NoError(t, err)
	assert.True(t, q.AmountToCharge.Equal(q.DiscountedSubtotal.Add(q.ShippingFee)))
	assert.True(t, q.AmountToCharge.Equal(d("12.004")))
	assert.False(t, q.AmountToCharge.IsNegative())
}

func TestQuoteRejectsInvalidCarts(t *testing.T) {
	r := DefaultRules()
	cases := map[string][]Line{
		"empty":          nil,
		"negative price": {{UnitPrice: d("-1"), Quantity: 1}},
		"negative qty":   {{UnitPrice: d("1"), Quantity: -1}},
		"all zero qty":   {{UnitPrice: d("1"), Quantity: 0}},
		"huge price":     {{UnitPrice: d("1e16"), Quantity: 1}},
	}
	for name, lines := range cases {
		_, err := r.Quote(lines, Destination{}, false)
		require.Error(t, err, name)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), name)
	}
}

func TestQuoteEnforcesMaxAmount(t *testing.T) {
	r := DefaultRules()
	cases := map[string]struct {
		lines []Line
		field string
	}{
		"unit price": {[]Line{{UnitPrice: d("100001"), Quantity: 1}}, "products[0].price"},
		"line total": {[]Line{{UnitPrice: d("60000"), Quantity: 2}}, "products[0].quantity"},
		"cart total": {[]Line{{UnitPrice: d("60000"), Quantity: 1}, {UnitPrice: d("60000"), Quantity: 1}}, "products"},
	}
	for name, tc := range cases {
		_, err := r.Quote(tc.lines, Destination{}, false)
		require.Error(t, err, name)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr, name)
		assert.Equal(t, pkgerrors.CodeValidation, appErr.Code(), name)
		assert.Contains(t, appErr.Details(), tc.field, name)
	}

	q, err := r.Quote([]Line{{UnitPrice: d("100000"), Quantity: 1}}, Destination{}, false)
	require.NoError(t, err, "the bound is inclusive")
	assert.True(t, q.AmountToCharge.Equal(d("100000")))

	r.MaxAmount = decimal.Zero
	_, err = r.Quote([]Line{{UnitPrice: d("100001"), Quantity: 1}}, Destination{}, false)
	assert.NoError(t, err, "zero disables the bound")
}

func TestRulesFromConfig(t *testing.T) {
	r := RulesFromConfig(config.PricingConfig{
		PairDiscount:       d("0.5"),
		PairCategories:     []string{" scarves ", ""},
		DomesticShipping:   d("1"),
		RegionName:         "GCC",
		RegionShipping:     d("3"),
		SubregionName:      "UAE",
		SubregionShipping:  d("2.5"),
		FreeShippingAt:     d("30"),
		DepositAmount:      d("5"),
		MinorUnitsPerMajor: 100,
		MinimumChargeMinor: 50,
		MinimumUnitPrice:   d("0.01"),
		MaxAmount:          d("500"),
	})

	assert.True(t, r.PairEligible("scarves"))
	assert.Len(t, r.PairCategories, 1)
	assert.True(t, r.ShippingFee(Destination{Country: "GCC", Subregion: "UAE"}, d("10")).Equal(d("2.5")))
	assert.True(t, r.PerPairRebate.Equal(d("0.5")))
	assert.True(t, r.PairDiscount(Line{UnitPrice: d("3"), Quantity: 4, Category: "scarves"}).Equal(d("1")))
	assert.True(t, r.MaxAmount.Equal(d("500")))

	minor, err := r.ToMinorUnits(d("12.5"))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), minor)
	minor, err = r.ToMinorUnits(d("0.1"))
	require.NoError(t, err)
	assert.Equal(t, int64(50), minor)
}

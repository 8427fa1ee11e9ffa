// Package pricing computes checkout totals. Every function is pure; amounts are
// in the major currency unit unless a name says otherwise.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/pkg/config"
)

// Rules holds the configured constants behind discounts, shipping, deposits
// and minor-unit conversion.
type Rules struct {
	PerPairRebate     decimal.Decimal
	PairCategories    map[string]struct{}
	DomesticShipping  decimal.Decimal
	RegionName        string
	RegionShipping    decimal.Decimal
	SubregionName     string
	SubregionShipping decimal.Decimal
	FreeShippingAt    decimal.Decimal
	DepositAmount     decimal.Decimal
	MinorPerMajor     int64
	MinimumCharge     int64
	MinimumUnitPrice  decimal.Decimal
	// MaxAmount bounds unit prices, line totals and the cart subtotal. Zero
	// disables the bound.
	MaxAmount         decimal.Decimal
}

// RulesFromConfig builds Rules from the environment-backed pricing section.
func RulesFromConfig(cfg config.PricingConfig) Rules {
	return Rules{
		PerPairRebate:     cfg.PairDiscount,
		PairCategories:    categorySet(cfg.PairCategories),
		DomesticShipping:  cfg.DomesticShipping,
		RegionName:        strings.TrimSpace(cfg.RegionName),
		RegionShipping:    cfg.RegionShipping,
		SubregionName:     strings.TrimSpace(cfg.SubregionName),
		SubregionShipping: cfg.SubregionShipping,
		FreeShippingAt:    cfg.FreeShippingAt,
		DepositAmount:     cfg.DepositAmount,
		MinorPerMajor:     cfg.MinorUnitsPerMajor,
		MinimumCharge:     cfg.MinimumChargeMinor,
		MinimumUnitPrice:  cfg.MinimumUnitPrice,
		MaxAmount:         cfg.MaxAmount,
	}
}

// DefaultRules mirrors the storefront's published pricing.
func DefaultRules() Rules {
	return Rules{
		PerPairRebate:     decimal.NewFromInt(1),
		PairCategories:    categorySet([]string{"الشيلات فرنسية", "الشيلات سادة"}),
		DomesticShipping:  decimal.NewFromInt(2),
		RegionName:        "دول الخليج",
		RegionShipping:    decimal.NewFromInt(5),
		SubregionName:     "الإمارات",
		SubregionShipping: decimal.NewFromInt(4),
		FreeShippingAt:    decimal.NewFromInt(14),
		DepositAmount:     decimal.NewFromInt(10),
		MinorPerMajor:     1000,
		MinimumCharge:     100,
		MinimumUnitPrice:  decimal.RequireFromString("0.1"),
		MaxAmount:         decimal.NewFromInt(100000),
	}
}

// PairEligible reports whether category earns the per-pair rebate.
func (r Rules) PairEligible(category string) bool {
	_, ok := r.PairCategories[strings.TrimSpace(category)]
	return ok
}

func categorySet(categories []string) map[string]struct{} {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

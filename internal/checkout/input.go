package checkout

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/internal/pricing"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// CartLine is one storefront cart row after decoding.
type CartLine struct {
	ProductID    string
	Quantity     int
	Name         string
	Price        decimal.Decimal
	Image        string
	Category     string
	SelectedSize string
	Measurements json.RawMessage
	GiftCard     *types.GiftCard
}

// SessionInput carries everything the storefront sends to open a payment
// session. Subregion is only consulted for the regional shipping rule.
type SessionInput struct {
	Products      []CartLine
	Email         string
	CustomerName  string
	CustomerPhone string
	Country       string
	Subregion     string
	Wilayat       string
	Description   string
	DepositMode   bool
	GiftCard      *types.GiftCard
}

// SessionResult is returned to the payer once a session exists.
type SessionResult struct {
	SessionID   string
	PaymentLink string
	ReferenceID string
	Quote       pricing.Quote
}

// ConfirmInput identifies the payment being confirmed. A positive Amount is
// the amount the caller observed as paid; otherwise the intent's charge is
// recorded.
type ConfirmInput struct {
	ReferenceID string
	Amount      *decimal.Decimal
}

func (in SessionInput) pricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(in.Products))
	for _, p := range in.Products {
		lines = append(lines, pricing.Line{
			UnitPrice: p.Price,
			Quantity:  p.Quantity,
			Category:  p.Category,
		})
	}
	return lines
}

func (in SessionInput) destination() pricing.Destination {
	return pricing.Destination{Country: in.Country, Subregion: in.Subregion}
}

func snapshotProducts(lines []CartLine) types.OrderProducts {
	out := make(types.OrderProducts, 0, len(lines))
	for _, p := range lines {
		out = append(out, types.OrderProduct{
			ProductID:    strings.TrimSpace(p.ProductID),
			Quantity:     p.Quantity,
			Name:         p.Name,
			Price:        p.Price,
			Image:        strings.TrimSpace(p.Image),
			Category:     strings.TrimSpace(p.Category),
			SelectedSize: strings.TrimSpace(p.SelectedSize),
			Measurements: p.Measurements,
			GiftCard:     types.NormalizeGiftCard(p.GiftCard),
		})
	}
	return out
}

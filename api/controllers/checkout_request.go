package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	checkoutsvc "github.com/angelmondragon/checkout-backend/internal/checkout"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// flexDecimal accepts a JSON number, a numeric string, or null.
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		f.Decimal = decimal.Zero
		return nil
	}
	text := strings.Trim(string(raw), `"`)
	if strings.TrimSpace(text) == "" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("invalid number %s", raw)
	}
	f.Decimal = d
	return nil
}

type cartProductPayload struct {
	ID           string           `json:"_id"`
	ProductID    string           `json:"productId"`
	Name         string           `json:"name"`
	Price        flexDecimal      `json:"price"`
	Quantity     types.Quantity   `json:"quantity"`
	Image        types.ImageRef   `json:"image"`
	Category     string           `json:"category"`
	SelectedSize types.FlexString `json:"selectedSize"`
	Measurements json.RawMessage  `json:"measurements"`
	GiftCard     *types.GiftCard  `json:"giftCard"`
}

type createSessionRequest struct {
	Products      []cartProductPayload `json:"products"`
	Email         string               `json:"email" validate:"omitempty,max=320"`
	CustomerName  string               `json:"customerName" validate:"max=200"`
	CustomerPhone types.FlexString     `json:"customerPhone" validate:"max=50"`
	Country       string               `json:"country" validate:"max=100"`
	Wilayat       string               `json:"wilayat" validate:"max=100"`
	Description   string               `json:"description" validate:"max=2000"`
	DepositMode   types.FlexBool       `json:"depositMode"`
	GiftCard      *types.GiftCard      `json:"giftCard"`
	GulfCountry   string               `json:"gulfCountry" validate:"max=100"`
}

func (req createSessionRequest) toInput() checkoutsvc.SessionInput {
	lines := make([]checkoutsvc.CartLine, 0, len(req.Products))
	for _, p := range req.Products {
		id := p.ID
		if id == "" {
			id = p.ProductID
		}
		lines = append(lines, checkoutsvc.CartLine{
			ProductID:    id,
			Quantity:     int(p.Quantity),
			Name:         p.Name,
			Price:        p.Price.Decimal,
			Image:        string(p.Image),
			Category:     p.Category,
			SelectedSize: string(p.SelectedSize),
			Measurements: p.Measurements,
			GiftCard:     p.GiftCard,
		})
	}
	return checkoutsvc.SessionInput{
		Products:      lines,
		Email:         req.Email,
		CustomerName:  req.CustomerName,
		CustomerPhone: string(req.CustomerPhone),
		Country:       req.Country,
		Subregion:     req.GulfCountry,
		Wilayat:       req.Wilayat,
		Description:   req.Description,
		DepositMode:   bool(req.DepositMode),
		GiftCard:      req.GiftCard,
	}
}

type createSessionResponse struct {
	ID          string `json:"id"`
	PaymentLink string `json:"paymentLink"`
}

type confirmPaymentRequest struct {
	ClientReferenceID string       `json:"client_reference_id"`
	Amount            *flexDecimal `json:"amount"`
}

func (req confirmPaymentRequest) toInput() checkoutsvc.ConfirmInput {
	input := checkoutsvc.ConfirmInput{ReferenceID: strings.TrimSpace(req.ClientReferenceID)}
	if req.Amount != nil {
		amount := req.Amount.Decimal
		input.Amount = &amount
	}
	return input
}

package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// OrderProductResponse is a purchased line as the storefront reads it.
type OrderProductResponse struct {
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	Name         string          `json:"name"`
	Price        float64         `json:"price"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category"`
	SelectedSize string          `json:"selectedSize,omitempty"`
	Measurements any             `json:"measurements,omitempty"`
	GiftCard     *types.GiftCard `json:"giftCard,omitempty"`
}

// OrderResponse is the JSON shape returned by checkout confirmation and the
// admin order endpoints.
type OrderResponse struct {
	ID              uuid.UUID              `json:"id"`
	OrderID         string                 `json:"orderId"`
	Products        []OrderProductResponse `json:"products"`
	Amount          float64                `json:"amount"`
	ShippingFee     float64                `json:"shippingFee"`
	CustomerName    string                 `json:"customerName"`
	CustomerPhone   string                 `json:"customerPhone"`
	Country         string                 `json:"country"`
	Wilayat         string                 `json:"wilayat"`
	Description     string                 `json:"description"`
	Email           string                 `json:"email"`
	Status          string                 `json:"status"`
	DepositMode     bool                   `json:"depositMode"`
	RemainingAmount float64                `json:"remainingAmount"`
	GiftCard        *types.GiftCard        `json:"giftCard,omitempty"`
	PaidAt          *time.Time             `json:"paidAt,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
}

// NewOrderResponse converts the stored order. Money leaves the service as JSON
// numbers with at most three decimals.
func NewOrderResponse(order *models.Order) *OrderResponse {
	if order == nil {
		return nil
	}
	products := make([]OrderProductResponse, 0, len(order.Products))
	for _, p := range order.Products {
		line := OrderProductResponse{
			ProductID:    p.ProductID,
			Quantity:     p.Quantity,
			Name:         p.Name,
			Price:        money(p.Price),
			Image:        p.Image,
			Category:     p.Category,
			SelectedSize: p.SelectedSize,
			GiftCard:     p.GiftCard,
		}
		if len(p.Measurements) > 0 {
			line.Measurements = p.Measurements
		}
		products = append(products, line)
	}

	return &OrderResponse{
		ID:              order.ID,
		OrderID:         order.ReferenceID,
		Products:        products,
		Amount:          money(order.Amount),
		ShippingFee:     money(order.ShippingFee),
		CustomerName:    order.CustomerName,
		CustomerPhone:   order.CustomerPhone,
		Country:         order.Country,
		Wilayat:         order.Wilayat,
		Description:     order.Description,
		Email:           order.Email,
		Status:          order.Status.String(),
		DepositMode:     order.DepositMode,
		RemainingAmount: money(order.RemainingAmount),
		GiftCard:        order.GiftCard,
		PaidAt:          order.PaidAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// NewOrderResponses converts a list of stored orders.
func NewOrderResponses(orders []models.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, *NewOrderResponse(&orders[i]))
	}
	return out
}

func money(d decimal.Decimal) float64 {
	return d.Round(3).InexactFloat64()
}

package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// OrderProduct is the priced snapshot of a cart line carried from the pending
// intent into the durable order.
type OrderProduct struct {
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
	Category     string          `json:"category,omitempty"`
	SelectedSize string          `json:"selectedSize,omitempty"`
	Measurements json.RawMessage `json:"measurements,omitempty"`
	GiftCard     *GiftCard       `json:"giftCard,omitempty"`
}

// OrderProducts stores the product snapshot list inside a JSONB column.
type OrderProducts []OrderProduct

// Clone returns a deep copy so callers never share backing arrays.
func (p OrderProducts) Clone() OrderProducts {
	if p == nil {
		return nil
	}
	out := make(OrderProducts, len(p))
	for i, item := range p {
		out[i] = item
		if item.Measurements != nil {
			out[i].Measurements = append(json.RawMessage(nil), item.Measurements...)
		}
		if item.GiftCard != nil {
			card := *item.GiftCard
			out[i].GiftCard = &card
		}
	}
	return out
}

// Value serializes the product list to JSON.
func (p OrderProducts) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes JSONB into the product list.
func (p *OrderProducts) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded OrderProducts
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*p = decoded
	return nil
}

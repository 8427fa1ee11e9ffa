package types

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// GiftCard is the optional gift annotation attached to an order or a line.
type GiftCard struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Phone string `json:"phone"`
	Note  string `json:"note"`
}

// NormalizeGiftCard trims every field and returns nil when nothing is left.
// Absent fields stay as empty strings on a card that survives.
func NormalizeGiftCard(card *GiftCard) *GiftCard {
	if card == nil {
		return nil
	}
	out := GiftCard{
		From:  strings.TrimSpace(card.From),
		To:    strings.TrimSpace(card.To),
		Phone: strings.TrimSpace(card.Phone),
		Note:  strings.TrimSpace(card.Note),
	}
	if out.From == "" && out.To == "" && out.Phone == "" && out.Note == "" {
		return nil
	}
	return &out
}

// Value serializes the gift card to JSON.
func (g *GiftCard) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan decodes JSONB into the gift card.
func (g *GiftCard) Scan(value interface{}) error {
	if value == nil {
		*g = GiftCard{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, g)
}

// Package pending holds priced checkout intents between session creation and
// payment confirmation.
package pending

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// ErrCapacity is returned by Put when the store holds its maximum number of
// live intents.
var ErrCapacity = errors.New("pending store at capacity")

// ErrExists is returned by Create when a live intent already holds the
// reference.
var ErrExists = errors.New("pending reference already in use")

// Intent is a priced, not-yet-paid checkout snapshot keyed by its reference.
type Intent struct {
	ReferenceID     string              `json:"referenceId"`
	Products        types.OrderProducts `json:"products"`
	AmountToCharge  decimal.Decimal     `json:"amountToCharge"`
	ShippingFee     decimal.Decimal     `json:"shippingFee"`
	Email           string              `json:"email"`
	CustomerName    string              `json:"customerName"`
	CustomerPhone   string              `json:"customerPhone"`
	Country         string              `json:"country"`
	Wilayat         string              `json:"wilayat"`
	Description     string              `json:"description"`
	Status          enums.OrderStatus   `json:"status"`
	DepositMode     bool                `json:"depositMode"`
	RemainingAmount decimal.Decimal     `json:"remainingAmount"`
	GiftCard        *types.GiftCard     `json:"giftCard,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (i Intent) Clone() Intent {
	out := i
	out.Products = i.Products.Clone()
	if i.GiftCard != nil {
		card := *i.GiftCard
		out.GiftCard = &card
	}
	return out
}

// Store is the keyed mapping from reference to intent. Put on an existing
// reference overwrites it, while Create refuses with ErrExists. Get returns
// nil without error when the reference is unknown or expired. Delete of an
// absent reference is a no-op.
type Store interface {
	Create(ctx context.Context, referenceID string, intent Intent) error
	Put(ctx context.Context, referenceID string, intent Intent) error
	Get(ctx context.Context, referenceID string) (*Intent, error)
	Delete(ctx context.Context, referenceID string) error
}

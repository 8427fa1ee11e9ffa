package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/enums"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

// Order is the durable record of a paid checkout. ReferenceID is the client
// reference issued at session creation and is unique across orders.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReferenceID     string              `gorm:"column:reference_id;type:text;not null;uniqueIndex:orders_reference_id_key"`
	Email           string              `gorm:"column:email;type:text;not null;default:'';index"`
	CustomerName    string              `gorm:"column:customer_name;type:text;not null;default:''"`
	CustomerPhone   string              `gorm:"column:customer_phone;type:text;not null;default:''"`
	Country         string              `gorm:"column:country;type:text;not null;default:''"`
	Wilayat         string              `gorm:"column:wilayat;type:text;not null;default:''"`
	Description     string              `gorm:"column:description;type:text;not null;default:''"`
	Products        types.OrderProducts `gorm:"column:products;type:jsonb;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,3);not null;default:0"`
	ShippingFee     decimal.Decimal     `gorm:"column:shipping_fee;type:numeric(12,3);not null;default:0"`
	DepositMode     bool                `gorm:"column:deposit_mode;not null;default:false"`
	RemainingAmount decimal.Decimal     `gorm:"column:remaining_amount;type:numeric(12,3);not null;default:0"`
	GiftCard        *types.GiftCard     `gorm:"column:gift_card;type:jsonb"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending';index"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// BeforeCreate assigns the primary key in Go so sqlite deployments do not
// depend on gen_random_uuid().
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsFinalized reports whether the reconciler has already promoted the order.
func (o *Order) IsFinalized() bool {
	if o == nil {
		return false
	}
	return o.Status == enums.OrderStatusCompleted || o.PaidAt != nil
}

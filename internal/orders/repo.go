package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/checkout-backend/internal/repo"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// upsertColumns are overwritten when an order for the reference already
// exists. id and created_at keep their original values.
var upsertColumns = []string{
	"email",
	"customer_name",
	"customer_phone",
	"country",
	"wilayat",
	"description",
	"products",
	"amount",
	"shipping_fee",
	"deposit_mode",
	"remaining_amount",
	"gift_card",
	"status",
	"paid_at",
	"updated_at",
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// UpsertByReference inserts the order or overwrites the row holding the same
// reference id in a single statement, then returns the stored row.
func (r *repository) UpsertByReference(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order == nil || strings.TrimSpace(order.ReferenceID) == "" {
		return nil, errors.New("order reference id is required")
	}
	order.UpdatedAt = time.Now().UTC()

	err := r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(order).Error
	if err != nil {
		return nil, err
	}

	stored, err := r.FindByReference(ctx, order.ReferenceID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

// FindByReference returns nil without error when no order carries the reference.
func (r *repository) FindByReference(ctx context.Context, referenceID string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Where("reference_id = ?", referenceID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

// ListCompleted returns finalized orders, newest first.
func (r *repository) ListCompleted(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB(ctx).
		Where("status = ?", enums.OrderStatusCompleted).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNoOrders
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	var updated models.Order
	err := r.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":     status,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes the order and returns the row as it was before deletion.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var deleted *models.Order
	err := r.InTx(ctx, func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Order{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
)

// ErrNoOrders is returned by list queries that matched nothing.
var ErrNoOrders = errors.New("no orders found")

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertByReference(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByReference(ctx context.Context, referenceID string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByEmail(ctx context.Context, email string) ([]models.Order, error)
	ListCompleted(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

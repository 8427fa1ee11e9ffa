package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

// Service exposes the administrative order operations.
type Service interface {
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListCompleted(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type service struct {
	repo Repository
}

// NewService wires the admin order service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Email is required")
	}
	orders, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNoOrders) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No orders found for this email")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to fetch orders by email")
	}
	return orders, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "Failed to fetch order")
	}
	return order, nil
}

func (s *service) ListCompleted(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListCompleted(ctx)
	if errors.Is(err, ErrNoOrders) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No orders found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to fetch all orders")
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	if strings.TrimSpace(status) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Status is required")
	}
	parsed, err := enums.ParseOrderStatus(status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	order, err := s.repo.UpdateStatus(ctx, id, parsed)
	if err != nil {
		return nil, mapLookupError(err, "Failed to update order status")
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "Failed to delete order")
	}
	return order, nil
}

func mapLookupError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

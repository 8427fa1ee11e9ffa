package thawaniwebhook

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/internal/checkout"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	EventCheckoutCompleted = "checkout.completed"
	paymentStatusPaid      = "paid"
)

// Event is the gateway's webhook envelope.
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Data      EventData `json:"data"`
}

type EventData struct {
	SessionID         string `json:"session_id"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
	TotalAmount       int64  `json:"total_amount"`
}

// DedupeKey identifies a delivery. Events without an id fall back to the
// event type and session.
func (e Event) DedupeKey() string {
	if id := strings.TrimSpace(e.ID); id != "" {
		return id
	}
	if e.Data.SessionID == "" {
		return ""
	}
	return e.EventType + ":" + e.Data.SessionID
}

type confirmer interface {
	Confirm(ctx context.Context, input checkout.ConfirmInput) (*models.Order, error)
}

type ServiceParams struct {
	Confirmer          confirmer
	MinorUnitsPerMajor int64
	Logger             *logger.Logger
}

type Service struct {
	confirmer  confirmer
	minorUnits decimal.Decimal
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Confirmer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "confirmer required")
	}
	if params.MinorUnitsPerMajor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "minor units per major must be positive")
	}
	return &Service{
		confirmer:  params.Confirmer,
		minorUnits: decimal.NewFromInt(params.MinorUnitsPerMajor),
		logg:       params.Logger,
	}, nil
}

// HandleEvent reconciles completed checkouts. Other event types and unknown
// references are acknowledged without error.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event is required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_type": event.EventType,
		"session_id": event.Data.SessionID,
	})

	if event.EventType != EventCheckoutCompleted {
		s.logg.Debug(ctx, "webhook.event_ignored")
		return nil
	}
	if status := strings.ToLower(strings.TrimSpace(event.Data.PaymentStatus)); status != "" && status != paymentStatusPaid {
		s.logg.Info(s.logg.WithField(ctx, "payment_status", status), "webhook.unpaid_ignored")
		return nil
	}

	ref := strings.TrimSpace(event.Data.ClientReferenceID)
	if ref == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "client_reference_id is required")
	}
	ctx = s.logg.WithReferenceID(ctx, ref)

	input := checkout.ConfirmInput{ReferenceID: ref}
	if event.Data.TotalAmount > 0 {
		amount := decimal.NewFromInt(event.Data.TotalAmount).Div(s.minorUnits)
		input.Amount = &amount
	}

	order, err := s.confirmer.Confirm(ctx, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "webhook.reference_unknown")
			return nil
		}
		return err
	}
	if order == nil {
		return errors.New("confirmation returned no order")
	}
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "webhook.order_confirmed")
	return nil
}

// Package checkout opens gateway payment sessions for priced carts and
// reconciles confirmed payments into durable orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-backend/internal/pending"
	"github.com/angelmondragon/checkout-backend/internal/pricing"
	"github.com/angelmondragon/checkout-backend/pkg/db/models"
	"github.com/angelmondragon/checkout-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/thawani"
	"github.com/angelmondragon/checkout-backend/pkg/types"
)

const maxReferenceAttempts = 5

const (
	stagePendingPut = "checkout.pending_put"
	stageGateway    = "checkout.gateway"
	stageRollback   = "checkout.rollback"
	stageLookup     = "confirm.lookup"
	stagePendingGet = "confirm.pending_get"
	stagePersist    = "confirm.persist"
	stageEvict      = "confirm.evict"
)

// Confirmation outcomes reported to Metrics.
const (
	OutcomeCreated  = "created"
	OutcomeReplayed = "replayed"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

type gateway interface {
	CreateSession(ctx context.Context, req thawani.SessionRequest) (*thawani.Session, error)
	PaymentURL(sessionID string) string
	SuccessURL(referenceID string) string
	CancelURL() string
}

type orderStore interface {
	FindByReference(ctx context.Context, referenceID string) (*models.Order, error)
	UpsertByReference(ctx context.Context, order *models.Order) (*models.Order, error)
}

// Metrics receives checkout counters. A nil Metrics disables reporting.
type Metrics interface {
	SessionCreated()
	SessionFailed(stage string)
	IntentRolledBack()
	Confirmation(outcome string)
}

// Service runs the checkout orchestrator and the confirmation reconciler.
type Service interface {
	CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error)
	Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error)
}

// Options carries the non-collaborator settings of the service.
type Options struct {
	Rules               pricing.Rules
	DepositLineName     string
	ShippingLineName    string
	FallbackProductName string
	Metrics             Metrics
	Now                 func() time.Time
}

type service struct {
	rules         pricing.Rules
	depositName   string
	shippingName  string
	fallbackName  string
	pending       pending.Store
	gateway       gateway
	orders        orderStore
	logg          *logger.Logger
	metrics       Metrics
	now           func() time.Time
	refs          *referenceGenerator
	confirmations *keyedMutex
}

// NewService wires the checkout service.
func NewService(opts Options, store pending.Store, gw gateway, orders orderStore, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, errors.New("pending store required")
	}
	if gw == nil {
		return nil, errors.New("payment gateway required")
	}
	if orders == nil {
		return nil, errors.New("order store required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := opts.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &service{
		rules:         opts.Rules,
		depositName:   defaultString(opts.DepositLineName, "دفعة مقدم"),
		shippingName:  defaultString(opts.ShippingLineName, "رسوم الشحن"),
		fallbackName:  defaultString(opts.FallbackProductName, "منتج"),
		pending:       store,
		gateway:       gw,
		orders:        orders,
		logg:          logg,
		metrics:       m,
		now:           now,
		refs:          newReferenceGenerator(now),
		confirmations: newKeyedMutex(),
	}, nil
}

// CreateSession prices the cart, records the pending intent, and opens the
// gateway session. The intent is evicted again if no session comes back.
func (s *service) CreateSession(ctx context.Context, input SessionInput) (*SessionResult, error) {
	quote, err := s.rules.Quote(input.pricingLines(), input.destination(), input.DepositMode)
	if err != nil {
		return nil, err
	}
	items, err := s.lineItems(input.Products, quote)
	if err != nil {
		return nil, err
	}

	intent, err := s.reserveIntent(ctx, input, quote)
	if err != nil {
		s.metrics.SessionFailed(stagePendingPut)
		s.logg.Error(s.logg.WithStage(ctx, stagePendingPut), "checkout.pending_put_failed", err)
		if errors.Is(err, pending.ErrCapacity) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout temporarily unavailable")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pending checkout")
	}
	ref := intent.ReferenceID
	ctx = s.logg.WithReferenceID(ctx, ref)

	req := thawani.SessionRequest{
		ClientReferenceID: ref,
		Mode:              thawani.ModePayment,
		Products:          items,
		SuccessURL:        s.gateway.SuccessURL(ref),
		CancelURL:         s.gateway.CancelURL(),
		Metadata:          sessionMetadata(intent),
	}

	session, err := s.gateway.CreateSession(ctx, req)
	if err == nil && (session == nil || strings.TrimSpace(session.ID) == "") {
		err = pkgerrors.New(pkgerrors.CodeGateway, "No session_id returned")
	}
	if err != nil {
		s.rollback(ctx, ref)
		s.metrics.SessionFailed(stageGateway)
		s.logg.Error(s.logg.WithStage(ctx, stageGateway), "checkout.gateway_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "Failed to create checkout session")
	}

	s.metrics.SessionCreated()
	s.logg.Info(s.logg.WithField(ctx, "session_id", session.ID), "checkout.session_created")

	return &SessionResult{
		SessionID:   session.ID,
		PaymentLink: s.gateway.PaymentURL(session.ID),
		ReferenceID: ref,
		Quote:       quote,
	}, nil
}

// reserveIntent records the intent under a fresh reference. A reference
// already held by another replica is skipped and the next one is tried.
func (s *service) reserveIntent(ctx context.Context, input SessionInput, quote pricing.Quote) (pending.Intent, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		ref := s.refs.next()
		intent := pending.Intent{
			ReferenceID:     ref,
			Products:        snapshotProducts(input.Products),
			AmountToCharge:  quote.AmountToCharge,
			ShippingFee:     quote.ShippingFee,
			Email:           strings.TrimSpace(input.Email),
			CustomerName:    strings.TrimSpace(input.CustomerName),
			CustomerPhone:   strings.TrimSpace(input.CustomerPhone),
			Country:         strings.TrimSpace(input.Country),
			Wilayat:         strings.TrimSpace(input.Wilayat),
			Description:     input.Description,
			Status:          enums.OrderStatusPending,
			DepositMode:     quote.DepositMode,
			RemainingAmount: quote.RemainingAmount,
			GiftCard:        types.NormalizeGiftCard(input.GiftCard),
			CreatedAt:       s.now().UTC(),
		}
		err := s.pending.Create(ctx, ref, intent)
		if errors.Is(err, pending.ErrExists) {
			s.logg.Warn(s.logg.WithReferenceID(ctx, ref), "checkout.reference_taken")
			continue
		}
		if err != nil {
			return pending.Intent{}, err
		}
		return intent, nil
	}
	return pending.Intent{}, fmt.Errorf("no free reference after %d attempts", maxReferenceAttempts)
}

func (s *service) rollback(ctx context.Context, ref string) {
	if err := s.pending.Delete(ctx, ref); err != nil {
		s.logg.Error(s.logg.WithStage(ctx, stageRollback), "checkout.rollback_failed", err)
		return
	}
	s.metrics.IntentRolledBack()
}

// lineItems builds the gateway rows. Deposit checkouts show a single deposit
// row; otherwise each purchasable line is shown at its discounted unit price
// followed by a shipping row when shipping is charged.
func (s *service) lineItems(lines []CartLine, quote pricing.Quote) ([]thawani.LineItem, error) {
	if quote.DepositMode {
		amount, err := s.rules.ToMinorUnits(quote.AmountToCharge)
		if err != nil {
			return nil, err
		}
		return []thawani.LineItem{{
			Name:       s.depositName,
			Quantity:   1,
			UnitAmount: amount,
		}}, nil
	}

	items := make([]thawani.LineItem, 0, len(lines)+1)
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		name := strings.TrimSpace(line.Name)
		if name == "" {
			name = s.fallbackName
		}
		unit := s.rules.DisplayUnitPrice(pricing.Line{
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
			Category:  line.Category,
		})
		amount, err := s.rules.ToMinorUnits(unit)
		if err != nil {
			return nil, err
		}
		items = append(items, thawani.LineItem{
			Name:       name,
			Quantity:   line.Quantity,
			UnitAmount: amount,
		})
	}
	if quote.ShippingFee.IsPositive() {
		amount, err := s.rules.ToMinorUnits(quote.ShippingFee)
		if err != nil {
			return nil, err
		}
		items = append(items, thawani.LineItem{
			Name:       s.shippingName,
			Quantity:   1,
			UnitAmount: amount,
		})
	}
	return items, nil
}

func sessionMetadata(intent pending.Intent) map[string]string {
	return map[string]string{
		"email":             intent.Email,
		"customer_name":     intent.CustomerName,
		"customer_phone":    intent.CustomerPhone,
		"country":           intent.Country,
		"wilayat":           intent.Wilayat,
		"description":       intent.Description,
		"shippingFee":       intent.ShippingFee.String(),
		"internal_order_id": intent.ReferenceID,
	}
}

// Confirm promotes the pending intent for a reference into a completed order.
// Calls for the same reference are serialized; once the order is finalized
// every further call returns it unchanged.
func (s *service) Confirm(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	ref := strings.TrimSpace(input.ReferenceID)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client_reference_id is required")
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	ctx = s.logg.WithReferenceID(ctx, ref)

	release := s.confirmations.Lock(ref)
	defer release()

	existing, err := s.orders.FindByReference(ctx, ref)
	if err != nil {
		s.metrics.Confirmation(OutcomeFailed)
		s.logg.Error(s.logg.WithStage(ctx, stageLookup), "confirm.lookup_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to confirm payment")
	}
	if existing.IsFinalized() {
		s.metrics.Confirmation(OutcomeReplayed)
		return existing, nil
	}

	intent, err := s.pending.Get(ctx, ref)
	if err != nil {
		s.metrics.Confirmation(OutcomeFailed)
		s.logg.Error(s.logg.WithStage(ctx, stagePendingGet), "confirm.pending_get_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to confirm payment")
	}
	if intent == nil {
		s.metrics.Confirmation(OutcomeNotFound)
		s.logg.Warn(s.logg.WithStage(ctx, stagePendingGet), "confirm.intent_not_found")
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order cache not found")
	}

	order := s.orderFromIntent(existing, intent, paidAmount(input.Amount, intent.AmountToCharge))

	stored, err := s.orders.UpsertByReference(ctx, order)
	if err != nil {
		s.metrics.Confirmation(OutcomeFailed)
		s.logg.Error(s.logg.WithStage(ctx, stagePersist), "confirm.persist_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to confirm payment")
	}

	if err := s.pending.Delete(ctx, ref); err != nil {
		s.logg.Error(s.logg.WithStage(ctx, stageEvict), "confirm.evict_failed", err)
	}

	s.metrics.Confirmation(OutcomeCreated)
	s.logg.Info(s.logg.WithField(ctx, "order_id", stored.ID.String()), "confirm.order_finalized")
	return stored, nil
}

func paidAmount(asserted *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if asserted != nil && asserted.IsPositive() {
		return *asserted
	}
	return fallback
}

// orderFromIntent overlays the intent on an existing unfinalized order, or
// starts a new one. Existing products are kept when the intent has none.
func (s *service) orderFromIntent(existing *models.Order, intent *pending.Intent, amount decimal.Decimal) *models.Order {
	order := &models.Order{ReferenceID: intent.ReferenceID}
	if existing != nil {
		copied := *existing
		order = &copied
	}

	if len(intent.Products) > 0 || existing == nil {
		order.Products = intent.Products.Clone()
	}
	if order.Products == nil {
		order.Products = types.OrderProducts{}
	}

	paidAt := s.now().UTC()
	order.Amount = amount
	order.ShippingFee = intent.ShippingFee
	order.CustomerName = intent.CustomerName
	order.CustomerPhone = intent.CustomerPhone
	order.Country = intent.Country
	order.Wilayat = intent.Wilayat
	order.Description = intent.Description
	order.Email = intent.Email
	order.DepositMode = intent.DepositMode
	order.RemainingAmount = intent.RemainingAmount
	order.GiftCard = types.NormalizeGiftCard(intent.GiftCard)
	order.Status = enums.OrderStatusCompleted
	order.PaidAt = &paidAt
	return order
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

type noopMetrics struct{}

func (noopMetrics) SessionCreated()      {}
func (noopMetrics) SessionFailed(string) {}
func (noopMetrics) IntentRolledBack()    {}
func (noopMetrics) Confirmation(string)  {}

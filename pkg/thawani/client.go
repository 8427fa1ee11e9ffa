// Package thawani is the client for the Thawani hosted checkout API.
package thawani

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	defaultTimeout             = 10 * time.Second
	defaultPayURL              = "https://checkout.thawani.om/pay"
	apiKeyHeader               = "thawani-api-key"
	responseBodyReadLimit      int64 = 2048
	breakerName                = "thawani-checkout"
	defaultBreakerMaxFailures  = 5
	defaultBreakerOpenDuration = 30 * time.Second

	// ModePayment is the only session mode checkout uses.
	ModePayment = "payment"
)

var (
	errBaseURLRequired   = errors.New("thawani base url is required")
	errSecretKeyRequired = errors.New("thawani secret key is required")
	errPublishableKey    = errors.New("thawani publishable key is required")
)

// Client creates checkout sessions and derives payer-facing URLs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	secretKey      string
	publishableKey string
	payURL         string
	successURL     string
	cancelURL      string
	webhookSecret  string
	breaker        *gobreaker.CircuitBreaker[*Session]
	logg           *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger reports circuit breaker transitions.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.GatewayConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	publishable := strings.TrimSpace(cfg.PublishableKey)
	if publishable == "" {
		return nil, errPublishableKey
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	payURL := strings.TrimRight(strings.TrimSpace(cfg.PayURL), "/")
	if payURL == "" {
		payURL = defaultPayURL
	}

	client := &Client{
		httpClient:     &http.Client{Timeout: timeout},
		baseURL:        baseURL,
		secretKey:      secret,
		publishableKey: publishable,
		payURL:         payURL,
		successURL:     strings.TrimSpace(cfg.SuccessURL),
		cancelURL:      strings.TrimSpace(cfg.CancelURL),
		webhookSecret:  cfg.WebhookSecret,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	client.breaker = gobreaker.NewCircuitBreaker[*Session](breakerSettings(cfg, client.logg))
	return client, nil
}

func breakerSettings(cfg config.GatewayConfig, logg *logger.Logger) gobreaker.Settings {
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	openFor := cfg.BreakerOpenTimeout
	if openFor <= 0 {
		openFor = defaultBreakerOpenDuration
	}
	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// A rejected payload is the caller's problem, not an outage.
			var rejected *RejectedError
			return err == nil || errors.As(err, &rejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "gateway.breaker.state_change")
		},
	}
}

// LineItem is a single priced row on the hosted payment page. UnitAmount is in
// minor units.
type LineItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

// SessionRequest is the body of a checkout session creation call.
type SessionRequest struct {
	ClientReferenceID string            `json:"client_reference_id"`
	Mode              string            `json:"mode"`
	Products          []LineItem        `json:"products"`
	SuccessURL        string            `json:"success_url"`
	CancelURL         string            `json:"cancel_url"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// Session is the subset of the gateway's session object checkout relies on.
type Session struct {
	ID                string `json:"session_id"`
	ClientReferenceID string `json:"client_reference_id"`
	PaymentStatus     string `json:"payment_status"`
	TotalAmount       int64  `json:"total_amount"`
}

// RejectedError is returned when the gateway answered but refused the request.
type RejectedError struct {
	StatusCode  int
	Description string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected session: status %d: %s", e.StatusCode, e.Description)
}

// CreateSession opens a hosted checkout session. Every failure, including a
// response without a session id, is reported as a CodeGateway error.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "thawani client not configured")
	}
	if strings.TrimSpace(req.ClientReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client reference id is required")
	}
	if len(req.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	if req.Mode == "" {
		req.Mode = ModePayment
	}

	session, err := c.breaker.Execute(func() (*Session, error) {
		return c.createSession(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment gateway temporarily unavailable")
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create checkout session")
	}
	return session, nil
}

func (c *Client) createSession(ctx context.Context, req SessionRequest) (*Session, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "marshal session request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout/session", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "build session request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(apiKeyHeader, c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "execute session request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		rejected := &RejectedError{StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(msg))}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, fmt.Errorf("status %d: %s", resp.StatusCode, rejected.Description), "session request failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, rejected, "session request rejected")
	}

	var apiResp struct {
		Success     bool    `json:"success"`
		Description string  `json:"description"`
		Data        Session `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode session response")
	}
	if strings.TrimSpace(apiResp.Data.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "No session_id returned")
	}
	return &apiResp.Data, nil
}

// PaymentURL returns the hosted payment page for sessionID.
func (c *Client) PaymentURL(sessionID string) string {
	return fmt.Sprintf("%s/%s?key=%s", c.payURL, url.PathEscape(sessionID), url.QueryEscape(c.publishableKey))
}

// SuccessURL is where the payer lands after paying; it carries the reference
// the storefront passes back to confirm-payment.
func (c *Client) SuccessURL(referenceID string) string {
	if c.successURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(c.successURL, "?") {
		sep = "&"
	}
	return c.successURL + sep + "client_reference_id=" + url.QueryEscape(referenceID)
}

func (c *Client) CancelURL() string {
	return c.cancelURL
}

// VerifyWebhook checks the notification signature: a hex HMAC-SHA256 of
// body + "-" + timestamp keyed by the webhook secret.
func (c *Client) VerifyWebhook(body []byte, timestamp, signature string) bool {
	if c == nil || c.webhookSecret == "" || timestamp == "" || signature == "" {
		return false
	}
	expected := SignWebhook(c.webhookSecret, body, timestamp)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// SignWebhook computes the signature the gateway attaches to notifications.
func SignWebhook(secret string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	mac.Write([]byte("-" + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

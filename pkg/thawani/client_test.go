package thawani

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
		BaseURL:            "https://uat.thawani.test/api/v1/",
		SecretKey:          "sk_test",
		PublishableKey:     "pk_test",
		PayURL:             "https://uat.thawani.test/pay",
		SuccessURL:         "https://shop.test/SuccessRedirect",
		CancelURL:          "https://shop.test/checkout",
		WebhookSecret:      "whsec",
		Timeout:            time.Second,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func sampleRequest() SessionRequest {
	return SessionRequest{
		ClientReferenceID: "1718000000000",
		Products:          []LineItem{{Name: "Shawl", Quantity: 2, UnitAmount: 4500}},
		SuccessURL:        "https://shop.test/SuccessRedirect?client_reference_id=1718000000000",
		CancelURL:         "https://shop.test/checkout",
		Metadata:          map[string]string{"email": "a@b.test"},
	}
}

func TestCreateSessionSendsRequest(t *testing.T) {
	var captured *http.Request
	var body map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		return jsonResponse(http.StatusOK, `{"success":true,"data":{"session_id":"sess_1","client_reference_id":"1718000000000","payment_status":"unpaid","total_amount":9000}}`), nil
	})

	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	session, err := client.CreateSession(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "sess_1", session.ID)
	assert.Equal(t, int64(9000), session.TotalAmount)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "https://uat.thawani.test/api/v1/checkout/session", captured.URL.String())
	assert.Equal(t, "sk_test", captured.Header.Get("thawani-api-key"))
	assert.Equal(t, ModePayment, body["mode"])
	assert.Equal(t, "1718000000000", body["client_reference_id"])

	products, ok := body["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	line := products[0].(map[string]any)
	assert.Equal(t, float64(4500), line["unit_amount"])
	assert.Equal(t, float64(2), line["quantity"])
}

func TestCreateSessionMissingSessionID(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":true,"data":{}}`), nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, err = client.CreateSession(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
}

func TestCreateSessionRejected(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadRequest, `{"success":false,"description":"invalid unit_amount"}`), nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, err = client.CreateSession(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Contains(t, rejected.Description, "invalid unit_amount")
}

func TestCreateSessionValidatesInput(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)

	req := sampleRequest()
	req.ClientReferenceID = " "
	_, err = client.CreateSession(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = sampleRequest()
	req.Products = nil
	_, err = client.CreateSession(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("connection reset")
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := client.CreateSession(context.Background(), sampleRequest())
		require.Error(t, err)
	}
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = client.CreateSession(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "open breaker must short-circuit")
}

func TestRejectionsDoNotTripBreaker(t *testing.T) {
	var calls int32
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(http.StatusUnprocessableEntity, `{"success":false}`), nil
	})
	client, err := NewClient(testConfig(), WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _ = client.CreateSession(context.Background(), sampleRequest())
	}
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestPaymentURL(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://uat.thawani.test/pay/sess_1?key=pk_test", client.PaymentURL("sess_1"))
}

func TestSuccessURL(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://shop.test/SuccessRedirect?client_reference_id=42", client.SuccessURL("42"))
	assert.Equal(t, "https://shop.test/checkout", client.CancelURL())
}

func TestNewClientRequiresKeys(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = ""
	_, err := NewClient(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.PublishableKey = ""
	_, err = NewClient(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.BaseURL = ""
	_, err = NewClient(cfg)
	assert.Error(t, err)
}

func TestVerifyWebhook(t *testing.T) {
	client, err := NewClient(testConfig())
	require.NoError(t, err)

	body := []byte(`{"event_type":"checkout.completed"}`)
	sig := SignWebhook("whsec", body, "1718000000")

	assert.True(t, client.VerifyWebhook(body, "1718000000", sig))
	assert.True(t, client.VerifyWebhook(body, "1718000000", strings.ToUpper(sig)))
	assert.False(t, client.VerifyWebhook(body, "1718000001", sig))
	assert.False(t, client.VerifyWebhook([]byte(`{}`), "1718000000", sig))
	assert.False(t, client.VerifyWebhook(body, "", sig))
}

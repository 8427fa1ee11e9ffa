package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/checkout-backend/api/responses"
	thawaniwebhook "github.com/angelmondragon/checkout-backend/internal/webhooks/thawani"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
)

const (
	signatureHeader = "thawani-signature"
	timestampHeader = "thawani-timestamp"
	maxPayloadBytes = 1 << 20
)

type ThawaniWebhookService interface {
	HandleEvent(ctx context.Context, event *thawaniwebhook.Event) error
}

type thawaniWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type signatureVerifier interface {
	VerifyWebhook(body []byte, timestamp, signature string) bool
}

// ThawaniWebhook verifies and reconciles gateway payment notifications.
// A nil guard disables redelivery dedupe; the reconciler is idempotent on its own.
func ThawaniWebhook(svc ThawaniWebhookService, verifier signatureVerifier, guard thawaniWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway client unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		timestamp := r.Header.Get(timestampHeader)
		if signature == "" || timestamp == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature missing"))
			return
		}
		if !verifier.VerifyWebhook(payload, timestamp, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature invalid"))
			return
		}

		var event thawaniwebhook.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		key := event.DedupeKey()
		if guard != nil && key != "" {
			alreadyProcessed, err := guard.CheckAndMark(ctx, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				logg.Info(logg.WithField(ctx, "event_key", key), "webhook.duplicate")
				responses.WriteSuccess(w, nil)
				return
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if guard != nil && key != "" {
				_ = guard.Delete(ctx, key)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

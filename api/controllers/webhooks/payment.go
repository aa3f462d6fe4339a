package webhooks

import (
	"context"
	"net/http"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/payments"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

// SettlementService is the slice of the payment orchestrator the webhook
// needs.
type SettlementService interface {
	HandleSettlementNotification(ctx context.Context, input payments.SettlementInput) (*payments.SettlementAck, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type settlementNotification struct {
	ExternalRef string `json:"external_ref" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,min=1"`
	Signature   string `json:"signature" validate:"required"`
}

// PaymentWebhook receives the gateway's authoritative settlement
// notification. Signature verification and amount reconciliation happen in
// the payment orchestrator, which is idempotent; the guard marker is
// cleared on failure so the gateway's retry is not treated as a duplicate.
func PaymentWebhook(svc SettlementService, guard webhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook guard unavailable"))
			return
		}

		var body settlementNotification
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, body.ExternalRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check webhook marker"))
			return
		}

		ack, err := svc.HandleSettlementNotification(ctx, payments.SettlementInput{
			ExternalRef: body.ExternalRef,
			Amount:      body.Amount,
			Signature:   body.Signature,
		})
		if err != nil {
			if !alreadyProcessed {
				_ = guard.Delete(ctx, body.ExternalRef)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil && !ack.AlreadySettled {
			logg.Info(logg.WithFields(ctx, map[string]any{"external_ref": ack.ExternalRef}), "payment.settled")
		}
		responses.WriteSuccess(w, ack)
	}
}

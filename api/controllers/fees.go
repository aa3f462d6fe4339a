package controllers

import (
	"net/http"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/fees"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

type addFeeRequest struct {
	FeeTypeID   string `json:"fee_type_id" validate:"required,uuid"`
	Amount      *int64 `json:"amount,omitempty" validate:"omitempty,min=1"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// AddFee records an extra charge against an in-use or completed order.
func AddFee(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fees service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addFeeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := fees.AddInput{
			OrderID:     orderID,
			Amount:      body.Amount,
			Description: body.Description,
			ActorUserID: userID,
			ActorRole:   role,
		}
		if input.FeeTypeID, err = parseUUIDField(body.FeeTypeID, "fee_type_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		fee, err := svc.Add(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, fee)
	}
}

// DeleteFee removes a fee recorded in error, before settlement.
func DeleteFee(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fees service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		feeID, err := validators.ParsePathUUID(r, "feeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), fees.DeleteInput{
			FeeID:       feeID,
			ActorUserID: userID,
			ActorRole:   role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// ListOrderFees returns the fees recorded for an order.
func ListOrderFees(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fees service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListFeeTypes returns the fee catalog.
func ListFeeTypes(svc fees.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fees service unavailable"))
			return
		}

		list, err := svc.ListFeeTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

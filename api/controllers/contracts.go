package controllers

import (
	"net/http"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/contracts"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

// OrderContract returns the contract issued at handover.
func OrderContract(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contracts service unavailable"))
			return
		}

		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.GetByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contract)
	}
}

type contractDocumentRequest struct {
	DocumentURL string `json:"document_url" validate:"required,url"`
}

// AttachContractDocument links the rendered document to a contract. The
// signed date and issuing staff are immutable.
func AttachContractDocument(svc contracts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "contracts service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contractID, err := validators.ParsePathUUID(r, "contractId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body contractDocumentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.UpdateDocumentURL(r.Context(), contracts.UpdateDocumentURLInput{
			ContractID:  contractID,
			DocumentURL: body.DocumentURL,
			ActorUserID: userID,
			ActorRole:   role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contract)
	}
}

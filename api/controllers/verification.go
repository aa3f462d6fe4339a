package controllers

import (
	"net/http"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/verification"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

type submitDocumentsRequest struct {
	Documents []documentRequest `json:"documents" validate:"required,min=1,max=5,dive"`
}

type documentRequest struct {
	Kind string `json:"kind" validate:"required,oneof=id_card drivers_license passport"`
	URL  string `json:"url" validate:"required,url"`
}

// SubmitDocuments receives a renter's identity documents for review.
func SubmitDocuments(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		renterID, err := mustRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body submitDocumentsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := verification.SubmitDocumentsInput{RenterID: renterID}
		for _, doc := range body.Documents {
			input.Documents = append(input.Documents, verification.DocumentInput{
				Kind: doc.Kind,
				URL:  doc.URL,
			})
		}

		docs, err := svc.SubmitDocuments(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, docs)
	}
}

type reviewDocumentRequest struct {
	Approve bool `json:"approve"`
}

// ReviewDocument records a staff decision on a pending identity document.
func ReviewDocument(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		documentID, err := validators.ParsePathUUID(r, "documentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body reviewDocumentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ReviewDocument(r.Context(), verification.ReviewDocumentInput{
			DocumentID:  documentID,
			Approve:     body.Approve,
			ActorUserID: userID,
			ActorRole:   role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// RenterProfile returns the authenticated renter's profile with documents.
func RenterProfile(svc verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		renterID, err := mustRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Profile(r.Context(), renterID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

package controllers

import (
	"net/http"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/availability"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

// ListAvailableVehicles returns rentable vehicles, optionally scoped to a
// station.
func ListAvailableVehicles(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		stationID, err := validators.ParseQueryUUID(r, "station_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicles, err := svc.ListAvailable(r.Context(), stationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vehicles)
	}
}

type vehicleConditionRequest struct {
	Condition string `json:"condition" validate:"required"`
}

// SetVehicleCondition records a staff condition update and recomputes the
// vehicle's availability.
func SetVehicleCondition(svc availability.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "availability service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vehicleID, err := validators.ParsePathUUID(r, "vehicleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body vehicleConditionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		condition, err := enums.ParseVehicleCondition(body.Condition)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition"))
			return
		}

		if err := svc.SetCondition(r.Context(), availability.SetConditionInput{
			VehicleID:   vehicleID,
			Condition:   condition,
			ActorUserID: userID,
			ActorRole:   role,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"condition": string(condition)})
	}
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/voltride/voltride-backend/api/responses"
	"github.com/voltride/voltride-backend/api/validators"
	"github.com/voltride/voltride-backend/internal/rentals"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
	"github.com/voltride/voltride-backend/pkg/logger"
)

type createRentalRequest struct {
	VehicleID       string    `json:"vehicle_id" validate:"required,uuid"`
	PickupStationID string    `json:"pickup_station_id" validate:"required,uuid"`
	ReturnStationID string    `json:"return_station_id" validate:"required,uuid"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required"`
}

// CreateRental books a vehicle for the authenticated renter.
func CreateRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renterID, err := mustRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createRentalRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rentals.CreateInput{
			RenterID:    renterID,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
			ActorUserID: userID,
			ActorRole:   role,
		}
		if input.VehicleID, err = parseUUIDField(body.VehicleID, "vehicle_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.PickupStationID, err = parseUUIDField(body.PickupStationID, "pickup_station_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ReturnStationID, err = parseUUIDField(body.ReturnStationID, "return_station_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListRentals returns the authenticated renter's own orders.
func ListRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renterID, err := requestRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.List(r.Context(), filters, renterID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// StaffListRentals returns orders across all renters, typically filtered by
// status for the approval queue.
func StaffListRentals(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if renterID, err := validators.ParseQueryUUID(r, "renter_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if renterID != nil {
			filters.RenterID = renterID
		}

		orders, err := svc.List(r.Context(), filters, nil, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// RentalDetail returns one order with its payments, fees and contract.
func RentalDetail(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
			return
		}

		_, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renterID, err := requestRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, renterID, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CancelRental lets a renter withdraw an order before pickup.
func CancelRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		renterID, err := mustRenterID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := rentals.CancelInput{
			OrderID:     orderID,
			RenterID:    renterID,
			ActorUserID: userID,
			ActorRole:   role,
		}
		if err := svc.Cancel(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.OrderStatusCancelled)})
	}
}

// ApproveRental confirms a booked order.
func ApproveRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, svcApprove, enums.OrderStatusApproved)
}

// RejectRental declines a booked order and frees the vehicle.
func RejectRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return decisionHandler(svc, logg, svcReject, enums.OrderStatusRejected)
}

type handoverRequest struct {
	BeforePhotoURL string `json:"before_photo_url" validate:"required,url"`
}

// HandoverRental records the pickup and issues the rental contract.
func HandoverRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
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

		var body handoverRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contract, err := svc.Handover(r.Context(), rentals.HandoverInput{
			OrderID:        orderID,
			BeforePhotoURL: body.BeforePhotoURL,
			ActorUserID:    userID,
			ActorRole:      role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

type completeRequest struct {
	AfterPhotoURL string `json:"after_photo_url" validate:"required,url"`
}

// CompleteRental records the return and settles the final balance.
func CompleteRental(svc rentals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
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

		var body completeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Complete(r.Context(), rentals.CompleteInput{
			OrderID:       orderID,
			AfterPhotoURL: body.AfterPhotoURL,
			ActorUserID:   userID,
			ActorRole:     role,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

type decisionFunc func(svc rentals.Service, r *http.Request, input rentals.DecisionInput) error

func svcApprove(svc rentals.Service, r *http.Request, input rentals.DecisionInput) error {
	return svc.Approve(r.Context(), input)
}

func svcReject(svc rentals.Service, r *http.Request, input rentals.DecisionInput) error {
	return svc.Reject(r.Context(), input)
}

func decisionHandler(svc rentals.Service, logg *logger.Logger, decide decisionFunc, outcome enums.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rentals service unavailable"))
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
		if logg != nil {
			r = r.WithContext(logg.WithOrderID(r.Context(), orderID.String()))
		}

		input := rentals.DecisionInput{
			OrderID:     orderID,
			ActorUserID: userID,
			ActorRole:   role,
		}
		if err := decide(svc, r, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(outcome)})
	}
}

func buildListFilters(r *http.Request) (rentals.ListFilters, error) {
	var filters rentals.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if vehicleID, err := validators.ParseQueryUUID(r, "vehicle_id"); err != nil {
		return filters, err
	} else if vehicleID != nil {
		filters.VehicleID = vehicleID
	}
	return filters, nil
}

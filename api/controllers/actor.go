package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/voltride/voltride-backend/api/middleware"
	"github.com/voltride/voltride-backend/pkg/enums"
	pkgerrors "github.com/voltride/voltride-backend/pkg/errors"
)

// requestActor resolves the authenticated user and role seeded by the auth
// middleware.
func requestActor(r *http.Request) (uuid.UUID, enums.ActorRole, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role := enums.ActorRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role")
	}
	return userID, role, nil
}

// requestRenterID returns the renter profile id carried by renter tokens,
// nil for staff tokens.
func requestRenterID(r *http.Request) (*uuid.UUID, error) {
	raw := middleware.RenterIDFromContext(r.Context())
	if raw == "" {
		return nil, nil
	}
	renterID, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid renter id")
	}
	return &renterID, nil
}

// mustRenterID is requestRenterID for renter-only endpoints.
func mustRenterID(r *http.Request) (uuid.UUID, error) {
	renterID, err := requestRenterID(r)
	if err != nil {
		return uuid.Nil, err
	}
	if renterID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "renter profile required")
	}
	return *renterID, nil
}

func parseUUIDField(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s", field))
	}
	return id, nil
}

package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/voltride/voltride-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	RenterID *uuid.UUID
	Role     enums.ActorRole
	JTI      string
}

// AccessTokenClaims represents the typed JWT issued to clients. RenterID is
// set only for renter-role users and points at the renter profile row.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	RenterID *uuid.UUID      `json:"renter_id,omitempty"`
	Role     enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

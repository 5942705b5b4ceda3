package cart

import (
	"strings"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

// Owner identifies who a cart belongs to: exactly one of an authenticated
// user or an anonymous guest session.
type Owner struct {
	UserID         *uuid.UUID
	GuestSessionID *string
}

// UserOwner builds an owner for an authenticated user.
func UserOwner(userID uuid.UUID) Owner {
	return Owner{UserID: &userID}
}

// GuestOwner builds an owner for a guest session.
func GuestOwner(sessionID string) Owner {
	return Owner{GuestSessionID: &sessionID}
}

// Kind reports which side of the owner union is set.
func (o Owner) Kind() enums.CartOwnerKind {
	if o.UserID != nil {
		return enums.CartOwnerUser
	}
	return enums.CartOwnerGuest
}

// Validate rejects owners that identify nobody or both parties at once.
func (o Owner) Validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasGuest := o.GuestSessionID != nil && strings.TrimSpace(*o.GuestSessionID) != ""
	if hasUser == hasGuest {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of user id or guest session required")
	}
	return nil
}

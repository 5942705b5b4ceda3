package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/api/middleware"
	"github.com/blendery/blendery-backend/internal/cart"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
)

// ownerFromRequest resolves the caller into a cart owner. A logged-in user
// wins over a guest session when the request carries both.
func ownerFromRequest(r *http.Request) (cart.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return cart.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id")
		}
		return cart.UserOwner(userID), nil
	}
	if session := middleware.GuestSessionFromContext(r.Context()); session != "" {
		return cart.GuestOwner(session), nil
	}
	return cart.Owner{}, pkgerrors.New(pkgerrors.CodeValidation, "caller identity required")
}

// userIDFromRequest requires a logged-in caller.
func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity required")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id")
	}
	return userID, nil
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/api/responses"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/logger"
)

const (
	userIDHeader       = "X-User-Id"
	guestSessionHeader = "X-Guest-Session"
)

// Identity reads the caller identity forwarded by the edge proxy. Logged-in
// traffic carries X-User-Id, anonymous traffic carries X-Guest-Session, and a
// login request may carry both so the guest cart can be merged.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if raw := strings.TrimSpace(r.Header.Get(userIDHeader)); raw != "" {
				userID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid user id header"))
					return
				}
				ctx = WithUserID(ctx, userID.String())
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID.String())
				}
			}

			if session := strings.TrimSpace(r.Header.Get(guestSessionHeader)); session != "" {
				ctx = WithGuestSession(ctx, session)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

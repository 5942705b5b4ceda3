package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/pagination"
)

// PaginationParams reads limit and cursor from the query string. An absent or
// malformed limit falls back to the default rather than failing the request.
func PaginationParams(r *http.Request) pagination.Params {
	params := pagination.Params{Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	params.Limit = pagination.NormalizeLimit(params.Limit)
	return params
}

// QueryString returns a trimmed query value or an empty string.
func QueryString(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// RequireQueryString returns a validation error when the key is absent.
func RequireQueryString(r *http.Request, key string) (string, error) {
	value := QueryString(r, key)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" query parameter required")
	}
	return value, nil
}

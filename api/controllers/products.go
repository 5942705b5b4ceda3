package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blendery/blendery-backend/api/responses"
	"github.com/blendery/blendery-backend/api/validators"
	"github.com/blendery/blendery-backend/internal/products"
	"github.com/blendery/blendery-backend/pkg/db/models"
	"github.com/blendery/blendery-backend/pkg/enums"
	pkgerrors "github.com/blendery/blendery-backend/pkg/errors"
	"github.com/blendery/blendery-backend/pkg/logger"
)

// ProductList serves the active catalog page by page.
func ProductList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		query := products.ListQuery{Pagination: validators.PaginationParams(r)}
		if raw := validators.QueryString(r, "category"); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product category"))
				return
			}
			query.Category = &category
		}

		result, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]productResponse, 0, len(result.Products))
		for _, product := range result.Products {
			items = append(items, newProductResponse(&product))
		}
		responses.WriteSuccess(w, productListResponse{
			Products:   items,
			NextCursor: result.NextCursor,
		})
	}
}

// ProductDetail serves one active listing.
func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}

		productID, err := uuid.Parse(chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id"))
			return
		}

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type productResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Category    string    `json:"category"`
	PriceCents  int       `json:"price_cents"`
	InStock     bool      `json:"in_stock"`
	Stock       int       `json:"stock"`
}

func newProductResponse(product *models.Product) productResponse {
	return productResponse{
		ProductID:   product.ID,
		Name:        product.Name,
		Description: product.Description,
		Category:    product.Category.String(),
		PriceCents:  product.PriceCents,
		InStock:     product.Stock > 0,
		Stock:       product.Stock,
	}
}

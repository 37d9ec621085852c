package http

import (
	"net/http"

	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(c *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

type CatalogResponseDTO struct {
	Products []domain.Product `json:"products"`
}

func (h *CatalogHandler) GetCatalog(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, CatalogResponseDTO{Products: h.catalog.Products()})
}

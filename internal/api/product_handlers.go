package api

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/internal/repository"
)

// CreateProductRequest is the payload for adding a catalog item
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price" validate:"required"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
}

// listProductsHandler lists catalog products
func (s *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := s.pagination(r)
	products, err := s.productRepo.List(r.Context(), limit, offset)

	if err != nil {
		s.logger.Error("Failed to list products", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: products})
}

// getProductHandler returns one product by ID
func (s *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	product, err := s.productRepo.GetByID(r.Context(), id)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}

		s.logger.Error("Failed to get product", "product_id", id, "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product})
}

// createProductHandler adds a product to the catalog
func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Price.Cmp(decimal.Zero) <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "Price must be positive")
		return
	}

	if req.DiscountPrice != nil && req.DiscountPrice.Cmp(req.Price) > 0 {
		s.respondWithError(w, http.StatusBadRequest, "Discount price cannot exceed the list price")
		return
	}

	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		DiscountPrice: req.DiscountPrice,
		StockQuantity: req.StockQuantity,
	}

	if err := s.productRepo.Create(r.Context(), product); err != nil {
		s.logger.Error("Failed to create product", "error", err)
		s.respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: product})
}

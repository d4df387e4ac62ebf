package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/nductrung-205/furniture-be/internal/models"
	"github.com/nductrung-205/furniture-be/internal/service"
	"github.com/nductrung-205/furniture-be/pkg/apperrors"
)

// validate checks request payloads before they reach the order engine.
var validate = validator.New()

type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// OrderItemRequest is one requested order line
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CreateOrderRequest is the payload for placing an order
type CreateOrderRequest struct {
	UserID          int64              `json:"user_id" validate:"required,gt=0"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string             `json:"payment_method" validate:"required"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	RecipientName   string             `json:"recipient_name" validate:"required"`
	RecipientPhone  string             `json:"recipient_phone" validate:"required"`
	Note            string             `json:"note"`
}

// UpdateStatusRequest is the payload for a fulfillment transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdatePaymentStatusRequest is the payload for a payment transition
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// healthCheckHandler handles the health check endpoint
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "1.0.0",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    health,
	})
}

// createOrderHandler places a new order
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest

	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.Items))

	for _, item := range req.Items {
		items = append(items, service.OrderItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := s.orderService.CreateOrder(r.Context(), service.CreateOrderInput{
		UserID:          req.UserID,
		Items:           items,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
		ShippingAddress: req.ShippingAddress,
		RecipientName:   req.RecipientName,
		RecipientPhone:  req.RecipientPhone,
		Note:            req.Note,
	})

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: order})
}

// getOrderHandler returns an order by ID
func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	order, err := s.orderService.GetOrder(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// getOrderByNumberHandler returns an order by its human-facing number
func (s *Server) getOrderByNumberHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	orderNumber := vars["orderNumber"]

	order, err := s.orderService.GetOrderByNumber(r.Context(), orderNumber)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// listOrdersHandler lists orders, optionally filtered by status
func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	if status := r.URL.Query().Get("status"); status != "" {
		orders, err := s.orderService.ListOrdersByStatus(r.Context(), models.OrderStatus(status))

		if err != nil {
			s.respondWithAppError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
		return
	}

	limit, offset := s.pagination(r)
	orders, err := s.orderService.ListOrders(r.Context(), limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
}

// listUserOrdersHandler lists all orders of one user
func (s *Server) listUserOrdersHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	orders, err := s.orderService.ListOrdersByUser(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: orders})
}

// updateOrderStatusHandler performs a fulfillment status transition
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	var req UpdateStatusRequest

	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	order, err := s.orderService.UpdateOrderStatus(r.Context(), id, models.OrderStatus(req.Status))

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// updatePaymentStatusHandler performs a payment status transition
func (s *Server) updatePaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest

	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	order, err := s.orderService.UpdatePaymentStatus(r.Context(), id, models.PaymentStatus(req.PaymentStatus))

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// cancelOrderHandler cancels an order and restores its stock
func (s *Server) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")

	if !ok {
		return
	}

	order, err := s.orderService.CancelOrder(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: order})
}

// decodeAndValidate binds the JSON body into dst and validates it, writing
// the error response itself on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			first := validationErrs[0]
			s.respondWithError(w, http.StatusBadRequest,
				"Validation failed on field '"+first.Field()+"' ("+first.Tag()+")")
			return false
		}

		s.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	return true
}

// pathID parses a numeric path variable, writing the error response on failure
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars[name], 10, 64)

	if err != nil || id <= 0 {
		s.respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}

	return id, true
}

// pagination parses limit/offset query parameters with sane defaults
func (s *Server) pagination(r *http.Request) (int, int) {
	limit := 20
	offset := 0

	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}

	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	return limit, offset
}

// respondWithAppError maps a service failure to its transport response
func (s *Server) respondWithAppError(w http.ResponseWriter, err error) {
	code := apperrors.StatusCode(err)

	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}

	s.respondWithError(w, code, err.Error())
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Andres4532/solhana-storefront/internal/service"
	"github.com/Andres4532/solhana-storefront/pkg/validator"
)

// CheckoutHandler handles HTTP requests for checkout and order endpoints.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// CheckoutRequest is the JSON request body for placing an order.
type CheckoutRequest struct {
	Name             string  `json:"name" validate:"required,min=1,max=200"`
	LastName         string  `json:"last_name" validate:"max=200"`
	Phone            string  `json:"phone" validate:"required,min=6,max=30"`
	Email            string  `json:"email" validate:"omitempty,email"`
	PaymentMethod    string  `json:"payment_method" validate:"required"`
	ShippingAddress  *string `json:"shipping_address,omitempty"`
	ShippingCity     *string `json:"shipping_city,omitempty"`
	Department       *string `json:"department,omitempty"`
	ShippingNotes    *string `json:"shipping_notes,omitempty"`
	PriorityShipping bool    `json:"priority_shipping"`
}

// Checkout handles POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeBadRequest(w, "no cart owner could be resolved")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	result, err := h.service.Checkout(r.Context(), owner, service.CheckoutInput{
		Name:             req.Name,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Email:            req.Email,
		PaymentMethod:    req.PaymentMethod,
		ShippingAddress:  req.ShippingAddress,
		ShippingCity:     req.ShippingCity,
		Department:       req.Department,
		ShippingNotes:    req.ShippingNotes,
		PriorityShipping: req.PriorityShipping,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: result})
}

// GetOrder handles GET /api/v1/orders/{orderID}
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeBadRequest(w, "orderID is required")
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: order})
}

package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"storebot/internal/domain"
	"storebot/internal/middleware"
	"storebot/internal/repository"
	"storebot/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminLoginRequest represents the admin login payload
type AdminLoginRequest struct {
	AdminID  int64  `json:"admin_id"`
	Password string `json:"password"`
}

// AdminLoginResponse represents the admin login response
type AdminLoginResponse struct {
	AccessToken string `json:"access_token"`
}

// UpdateStatusRequest represents the order status update payload
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AdminHandler handles the management side of the API: authentication,
// product dialogues and order processing.
type AdminHandler struct {
	auth   service.AuthService
	admin  *service.AdminService
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(auth service.AuthService, admin *service.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, admin: admin, logger: logger}
}

// RegisterRoutes registers all admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Post("/api/auth/admin/login", h.Login)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin(h.logger))

		r.Post("/products", h.StartAddProduct)
		r.Post("/products/{productID}/edit", h.StartEditProduct)
		r.Post("/dialog/events", h.DialogEvent)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{orderID}/items", h.OrderItems)
		r.Put("/orders/{orderID}/status", h.UpdateOrderStatus)
	})
}

// Login handles admin authentication
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.AdminLogin(req.AdminID, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid admin id or password")
			return
		}
		h.logger.Error("Admin login failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to login")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, AdminLoginResponse{AccessToken: token})
}

// StartAddProduct handles starting the add-product dialogue
func (h *AdminHandler) StartAddProduct(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prompt, err := h.admin.StartAddProduct(r.Context(), adminID)
	if err != nil {
		h.logger.Error("Failed to start add-product dialogue", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to start dialogue")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, prompt)
}

// StartEditProduct handles starting the edit dialogue for one product
func (h *AdminHandler) StartEditProduct(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := pathID(r, "productID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	prompt, err := h.admin.StartEditProduct(r.Context(), adminID, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to start edit dialogue", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to start dialogue")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, prompt)
}

// DialogEvent handles one input event of the admin's open dialogue
func (h *AdminHandler) DialogEvent(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var ev service.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.admin.Advance(r.Context(), adminID, ev)
	if err != nil {
		if errors.Is(err, service.ErrNoActiveDialog) {
			middleware.RespondWithError(w, http.StatusConflict, "no dialogue in progress")
			return
		}
		h.logger.Error("Admin dialogue event failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process event")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reply)
}

// ListOrders handles listing all orders
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.ListOrders(r.Context())
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// OrderItems handles listing the line items of one order
func (h *AdminHandler) OrderItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	items, err := h.admin.OrderItems(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to list order items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list order items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, items)
}

// UpdateOrderStatus handles moving an order to a new status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "orderID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.admin.UpdateOrderStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid order status")
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storebot/internal/middleware"
	"storebot/internal/repository"
	"storebot/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddToCartRequest represents the add-to-cart request payload
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// SetQuantityRequest represents the cart quantity update payload
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ChatHandler handles the storefront side of the API: catalog browsing,
// cart mutations and the checkout dialogue.
type ChatHandler struct {
	products repository.ProductRepository
	cart     *service.CartService
	checkout *service.CheckoutService
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(
	products repository.ProductRepository,
	cart *service.CartService,
	checkout *service.CheckoutService,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		products: products,
		cart:     cart,
		checkout: checkout,
		logger:   logger,
	}
}

// RegisterRoutes registers all storefront routes
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.ListCategories)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddToCart)
			r.Put("/cart/items/{productID}", h.SetCartQuantity)
			r.Delete("/cart/items/{productID}", h.RemoveFromCart)
			r.Delete("/cart", h.ClearCart)

			r.Post("/checkout", h.StartCheckout)
			r.Post("/checkout/events", h.CheckoutEvent)

			r.Get("/orders", h.ListOrders)
		})
	})
}

// ListCategories handles listing all product categories
func (h *ChatHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.Categories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// ListProducts handles listing browsable products, optionally by category
func (h *ChatHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
			return
		}

		products, err := h.products.ListActiveByCategory(r.Context(), categoryID)
		if err != nil {
			h.logger.Error("Failed to list products", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
			return
		}

		middleware.RespondWithJSON(w, http.StatusOK, products)
		return
	}

	products, err := h.products.ListActive(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetProduct handles fetching one product card
func (h *ChatHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.FindByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	if !product.Active {
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetCart handles the cart summary view
func (h *ChatHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	summary, err := h.cart.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// AddToCart handles adding a product to the cart
func (h *ChatHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.cart.Add(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to add to cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "added to cart"})
}

// SetCartQuantity handles replacing a cart row's quantity
func (h *ChatHandler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.cart.SetQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		h.logger.Error("Failed to update cart quantity", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart updated"})
}

// RemoveFromCart handles removing one product from the cart
func (h *ChatHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.cart.Remove(r.Context(), userID, productID); err != nil {
		h.logger.Error("Failed to remove from cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to remove from cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "removed from cart"})
}

// ClearCart handles emptying the cart
func (h *ChatHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.cart.Clear(r.Context(), userID); err != nil {
		h.logger.Error("Failed to clear cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

// StartCheckout handles starting the checkout dialogue
func (h *ChatHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	prompt, err := h.checkout.Start(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			middleware.RespondWithError(w, http.StatusConflict, "cart is empty")
			return
		}
		h.logger.Error("Failed to start checkout", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to start checkout")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, prompt)
}

// CheckoutEvent handles one input event of the checkout dialogue
func (h *ChatHandler) CheckoutEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var ev service.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.checkout.Advance(r.Context(), userID, ev)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveDialog):
			middleware.RespondWithError(w, http.StatusConflict, "no checkout in progress")
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithError(w, http.StatusConflict, "cart is empty")
		default:
			h.logger.Error("Checkout event failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process event")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, reply)
}

// ListOrders handles listing the user's past orders
func (h *ChatHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	orders, err := h.checkout.Orders(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

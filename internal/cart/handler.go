package cart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

// Carts opens the per-user server-side cart.
type Carts struct {
	persister func(userID string) Persister
}

func NewCarts(persister func(userID string) Persister) *Carts {
	return &Carts{persister: persister}
}

func NewRedisCarts(client redis.Cmdable) *Carts {
	return NewCarts(func(userID string) Persister {
		return NewRedisPersister(client, userID)
	})
}

func (c *Carts) Open(ctx context.Context, userID string) (*Store, error) {
	return NewStore(ctx, c.persister(userID))
}

func (c *Carts) ClearCart(ctx context.Context, userID string) error {
	s, err := c.Open(ctx, userID)
	if err != nil {
		return err
	}
	return s.Clear(ctx)
}

// ProductFinder resolves catalog items so prices come from the server, not
// from the request body. It returns nil, nil for unknown or inactive items.
type ProductFinder interface {
	FindProduct(ctx context.Context, t domain.ItemType, id string) (*domain.Product, error)
}

type Handler struct {
	carts    *Carts
	products ProductFinder
	rs       *httpx.Responder
	logger   *slog.Logger
}

func NewHandler(carts *Carts, products ProductFinder, logger *slog.Logger) *Handler {
	return &Handler{
		carts:    carts,
		products: products,
		rs:       httpx.NewResponder(logger),
		logger:   logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	h.rs.OK(w, store.Summary())
}

type addItemRequest struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	itemType, err := domain.ParseItemType(req.Type)
	if err != nil || req.ID == "" || req.Quantity < 0 {
		h.rs.Error(w, http.StatusBadRequest, "invalid cart item")
		return
	}

	product, err := h.products.FindProduct(r.Context(), itemType, req.ID)
	if err != nil {
		h.rs.Internal(w, "failed to find product", err, "item_id", req.ID)
		return
	}
	if product == nil {
		h.rs.Error(w, http.StatusNotFound, "product not found")
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	item := domain.CartItem{
		ID:            product.ID,
		Type:          itemType,
		Title:         product.Title,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
		Quantity:      req.Quantity,
		IsPhysical:    product.IsPhysical,
		CoverImageURL: product.CoverImageURL,
	}
	if err := store.Add(r.Context(), item); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.rs.OK(w, store.Summary())
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	itemType, err := domain.ParseItemType(r.PathValue("type"))
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, "invalid item type")
		return
	}

	var req updateQuantityRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := store.UpdateQuantity(r.Context(), r.PathValue("id"), itemType, req.Quantity); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.rs.OK(w, store.Summary())
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	itemType, err := domain.ParseItemType(r.PathValue("type"))
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, "invalid item type")
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := store.Remove(r.Context(), r.PathValue("id"), itemType); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.rs.OK(w, store.Summary())
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		h.writeStoreError(w, err)
		return
	}

	h.rs.OK(w, store.Summary())
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.rs.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	store, err := h.carts.Open(r.Context(), id.UserID)
	if err != nil {
		h.rs.Internal(w, "failed to open cart", err, "user_id", id.UserID)
		return nil, false
	}
	return store, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidItem):
		h.rs.Error(w, http.StatusBadRequest, "invalid cart item")
	case errors.Is(err, ErrItemNotFound):
		h.rs.Error(w, http.StatusNotFound, "item not in cart")
	default:
		h.rs.Internal(w, "failed to update cart", err)
	}
}

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type Store[T any] interface {
	List(ctx context.Context, q httpx.PageQuery, activeOnly bool) ([]T, int, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type Handler[T any] struct {
	store  Store[T]
	entity Entity[T]
	rs     *httpx.Responder
	logger *slog.Logger
}

func NewHandler[T any](store Store[T], entity Entity[T], logger *slog.Logger) *Handler[T] {
	return &Handler[T]{
		store:  store,
		entity: entity,
		rs:     httpx.NewResponder(logger),
		logger: logger,
	}
}

// AdminRoutes maps mux patterns under base (e.g. "/api/admin/ebooks") to
// the full CRUD handlers.
func (h *Handler[T]) AdminRoutes(base string) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"GET " + base:              h.HandleList,
		"POST " + base:             h.HandleCreate,
		"GET " + base + "/{id}":    h.HandleGet,
		"PUT " + base + "/{id}":    h.HandleUpdate,
		"DELETE " + base + "/{id}": h.HandleDelete,
	}
}

// PublicRoutes maps the read-only, active-only handlers under base.
func (h *Handler[T]) PublicRoutes(base string) map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"GET " + base:           h.HandlePublicList,
		"GET " + base + "/{id}": h.HandlePublicGet,
	}
}

func (h *Handler[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

func (h *Handler[T]) HandlePublicList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *Handler[T]) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	q, err := httpx.ParsePageQuery(r.URL.Query(), h.entity.Sortable, h.entity.DefaultSort)
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.store.List(r.Context(), q, activeOnly)
	if err != nil {
		h.rs.Internal(w, "failed to list "+h.entity.Table, err)
		return
	}

	h.logger.Info(h.entity.Table+" listed", "count", len(items), "total", total)
	h.rs.Page(w, items, q.Pagination(total))
}

func (h *Handler[T]) HandleGet(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	h.rs.OK(w, item)
}

// HandlePublicGet hides inactive records as if they did not exist.
func (h *Handler[T]) HandlePublicGet(w http.ResponseWriter, r *http.Request) {
	item, ok := h.load(w, r)
	if !ok {
		return
	}
	if h.entity.Active != nil && !h.entity.Active(item) {
		h.rs.Error(w, http.StatusNotFound, h.entity.Name+" not found")
		return
	}
	h.rs.OK(w, item)
}

func (h *Handler[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var item T
	if !h.rs.Decode(w, r, &item) {
		return
	}
	if err := h.entity.Validate(&item); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.store.Create(r.Context(), &item); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info(h.entity.Name + " created")
	h.rs.Created(w, item)
}

func (h *Handler[T]) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var item T
	if !h.rs.Decode(w, r, &item) {
		return
	}
	if err := h.entity.Validate(&item); err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := h.store.Update(r.Context(), id, &item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if updated == nil {
		h.rs.Error(w, http.StatusNotFound, h.entity.Name+" not found")
		return
	}

	h.logger.Info(h.entity.Name+" updated", "id", id)
	h.rs.OK(w, updated)
}

func (h *Handler[T]) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !deleted {
		h.rs.Error(w, http.StatusNotFound, h.entity.Name+" not found")
		return
	}

	h.logger.Info(h.entity.Name+" deleted", "id", id)
	h.rs.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: h.entity.Name + " deleted"})
}

func (h *Handler[T]) load(w http.ResponseWriter, r *http.Request) (*T, bool) {
	id := r.PathValue("id")
	if id == "" {
		h.rs.Error(w, http.StatusBadRequest, "missing id")
		return nil, false
	}

	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.rs.Internal(w, "failed to get "+h.entity.Name, err, "id", id)
		return nil, false
	}
	if item == nil {
		h.rs.Error(w, http.StatusNotFound, h.entity.Name+" not found")
		return nil, false
	}
	return item, true
}

func (h *Handler[T]) writeError(w http.ResponseWriter, err error) {
	if msg, ok := domain.IsValidation(err); ok {
		h.rs.Error(w, http.StatusBadRequest, msg)
		return
	}
	switch {
	case errors.Is(err, ErrConflict):
		h.rs.Error(w, http.StatusConflict, h.entity.Name+" already exists")
	case errors.Is(err, ErrInUse):
		h.rs.Error(w, http.StatusConflict, h.entity.Name+" is in use")
	default:
		h.rs.Internal(w, "failed to write "+h.entity.Name, err)
	}
}

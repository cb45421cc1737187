package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type Handler struct {
	service *Service
	rs      *httpx.Responder
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		rs:      httpx.NewResponder(logger),
		logger:  logger,
	}
}

// StatusCode maps service errors onto HTTP statuses.
func StatusCode(err error) int {
	if _, ok := domain.IsValidation(err); ok {
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrProductNotFound), errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrReasonRequired):
		return http.StatusBadRequest
	case errors.Is(err, ErrAlreadyOwned), errors.Is(err, ErrOrderOpen),
		errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrStaleOrder), errors.Is(err, ErrNotCompleted):
		return http.StatusConflict
	case coupons.IsRejection(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error, args ...any) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		h.rs.Internal(w, msg, err, args...)
		return
	}
	h.rs.Error(w, status, err.Error())
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		h.rs.Error(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	res, err := h.service.CreateOrder(r.Context(), caller, req)
	if err != nil {
		h.fail(w, "failed to create order", err, "user_id", caller.UserID, "item_id", req.ItemID)
		return
	}

	h.rs.Created(w, res)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		h.rs.Internal(w, "failed to list orders", err, "user_id", caller.UserID)
		return
	}

	h.logger.Info("orders listed", "user_id", caller.UserID, "count", len(orders))
	h.rs.OK(w, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	view, err := h.service.GetForUser(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "failed to get order", err, "order_id", id)
		return
	}

	h.rs.OK(w, view)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	o, err := h.service.CancelOwn(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "failed to cancel order", err, "order_id", id)
		return
	}

	h.rs.OK(w, o)
}

func (h *Handler) HandleInstructions(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	in, err := h.service.Instructions(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "failed to build payment instructions", err, "order_id", id)
		return
	}

	h.rs.OK(w, in)
}

func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.identity(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	pdf, err := h.service.Receipt(r.Context(), caller, id)
	if err != nil {
		h.fail(w, "failed to render receipt", err, "order_id", id)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+id+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		h.logger.Error("failed to write receipt", "error", err, "order_id", id)
	}
}

func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	q, err := httpx.ParsePageQuery(values, AdminSortable, "createdAt")
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var f AdminFilter
	if raw := values.Get("status"); raw != "" {
		st, err := domain.ParseOrderStatus(raw)
		if err != nil {
			h.rs.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = &st
	}
	if raw := values.Get("paymentStatus"); raw != "" {
		st, err := domain.ParsePaymentStatus(raw)
		if err != nil {
			h.rs.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		f.PaymentStatus = &st
	}
	if raw := values.Get("orderType"); raw != "" {
		t, err := domain.ParseOrderType(raw)
		if err != nil {
			h.rs.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		f.OrderType = &t
	}

	summaries, total, err := h.service.AdminList(r.Context(), f, q)
	if err != nil {
		h.rs.Internal(w, "failed to list orders", err)
		return
	}

	h.logger.Info("admin orders listed", "count", len(summaries), "total", total)
	h.rs.Page(w, summaries, q.Pagination(total))
}

func (h *Handler) HandleAdminGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.service.AdminDetail(r.Context(), id)
	if err != nil {
		h.fail(w, "failed to get order detail", err, "order_id", id)
		return
	}
	h.rs.OK(w, d)
}

type updateOrderRequest struct {
	Action          string `json:"action"`
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *Handler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req updateOrderRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	res, err := h.service.Transition(r.Context(), admin, TransitionRequest{
		OrderID:         id,
		Action:          Action(req.Action),
		RejectionReason: req.RejectionReason,
		Notes:           req.Notes,
	})
	if err != nil {
		h.fail(w, "failed to update order", err, "order_id", id, "action", req.Action)
		return
	}

	h.rs.OK(w, res)
}

type bulkRequest struct {
	OrderIDs []string `json:"orderIds"`
	Action   string   `json:"action"`
	Notes    string   `json:"notes"`
}

func (h *Handler) HandleBulk(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req bulkRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	action, err := ParseBulkAction(req.Action)
	if err != nil {
		h.fail(w, "invalid bulk action", err)
		return
	}

	res, err := h.service.Bulk(r.Context(), admin, req.OrderIDs, action, req.Notes)
	if err != nil {
		h.fail(w, "failed to run bulk action", err, "action", action)
		return
	}

	h.rs.JSON(w, http.StatusOK, httpx.Envelope{
		Success: true,
		Message: strconv.Itoa(res.Processed) + " processed, " + strconv.Itoa(res.Failed) + " failed",
		Data:    res,
	})
}

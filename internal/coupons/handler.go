package coupons

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type Handler struct {
	validator *Validator
	rs        *httpx.Responder
	logger    *slog.Logger
}

func NewHandler(validator *Validator, logger *slog.Logger) *Handler {
	return &Handler{
		validator: validator,
		rs:        httpx.NewResponder(logger),
		logger:    logger,
	}
}

type validateRequest struct {
	Code        string `json:"code"`
	UserID      string `json:"userId"`
	ItemType    string `json:"itemType"`
	ItemID      string `json:"itemId"`
	Subtotal    int64  `json:"subtotal"`
	ShippingFee int64  `json:"shippingFee"`
}

type validateResponse struct {
	Coupon   domain.CouponInfo `json:"coupon"`
	Discount int64             `json:"discount"`
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	id, _ := auth.FromContext(r.Context())
	if req.UserID == "" {
		req.UserID = id.UserID
	}
	if req.UserID != id.UserID && !id.IsAdmin() {
		h.rs.Error(w, http.StatusForbidden, "cannot validate coupons for another user")
		return
	}

	itemType, err := domain.ParseOrderType(req.ItemType)
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, "invalid item type")
		return
	}
	if req.Subtotal < 0 || req.ShippingFee < 0 {
		h.rs.Error(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}

	c, applied, err := h.validator.Validate(r.Context(), Request{
		Code:        req.Code,
		UserID:      req.UserID,
		ItemType:    itemType,
		ItemID:      req.ItemID,
		Subtotal:    req.Subtotal,
		ShippingFee: req.ShippingFee,
	})
	if err != nil {
		if IsRejection(err) {
			h.rs.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.rs.Internal(w, "failed to validate coupon", err, "code", req.Code)
		return
	}

	h.logger.Info("coupon validated", "code", c.Code, "user_id", req.UserID, "discount", applied.Discount)
	h.rs.OK(w, validateResponse{Coupon: c.Info(), Discount: applied.Discount})
}

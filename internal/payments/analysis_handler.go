package payments

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/orders"
)

type AnalysisHandler struct {
	analyzer *Analyzer
	rs       *httpx.Responder
	logger   *slog.Logger
}

func NewAnalysisHandler(analyzer *Analyzer, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		rs:       httpx.NewResponder(logger),
		logger:   logger,
	}
}

// nullable keeps "data": null in the body when nothing was analysed yet.
type nullable struct {
	Success bool                 `json:"success"`
	Data    *domain.SlipAnalysis `json:"data"`
}

func (h *AnalysisHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		h.rs.Error(w, http.StatusBadRequest, "orderId is required")
		return
	}

	a, err := h.analyzer.Latest(r.Context(), orderID)
	if err != nil {
		h.rs.Internal(w, "failed to load slip analysis", err, "order_id", orderID)
		return
	}

	h.rs.JSON(w, http.StatusOK, nullable{Success: true, Data: a})
}

type analyzeRequest struct {
	OrderID string `json:"orderId"`
}

func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}
	if req.OrderID == "" {
		h.rs.Error(w, http.StatusBadRequest, "orderId is required")
		return
	}

	a, err := h.analyzer.Analyze(r.Context(), req.OrderID)
	switch {
	case err == nil:
		h.rs.OK(w, a)
	case errors.Is(err, orders.ErrOrderNotFound):
		h.rs.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoSlip):
		h.rs.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrSlipUnreadable):
		h.rs.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrVerifierUnavailable):
		h.logger.Error("slip verification failed", "error", err, "order_id", req.OrderID)
		h.rs.Error(w, http.StatusBadGateway, ErrVerifierUnavailable.Error())
	default:
		h.rs.Internal(w, "failed to analyze slip", err, "order_id", req.OrderID)
	}
}

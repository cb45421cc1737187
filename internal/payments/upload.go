package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/orders"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

// SlipRecorder is the part of the order service a slip upload drives.
type SlipRecorder interface {
	PrepareSlipUpload(ctx context.Context, caller auth.Identity, orderID string) (*domain.Order, error)
	RecordSlip(ctx context.Context, o domain.Order, slipURL, thumbnailURL string) error
}

type SlipStorage interface {
	Save(ctx context.Context, orderID string, r io.Reader) (*StoredSlip, error)
	Open(url string) (io.ReadCloser, error)
	Remove(slip StoredSlip) error
}

type UploadHandler struct {
	orders  SlipRecorder
	storage SlipStorage
	metrics *telemetry.Metrics
	rs      *httpx.Responder
	logger  *slog.Logger
}

func NewUploadHandler(orders SlipRecorder, storage SlipStorage, metrics *telemetry.Metrics, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		orders:  orders,
		storage: storage,
		metrics: metrics,
		rs:      httpx.NewResponder(logger),
		logger:  logger,
	}
}

type uploadResponse struct {
	OrderID          string             `json:"orderId"`
	SlipURL          string             `json:"slipUrl"`
	SlipThumbnailURL string             `json:"slipThumbnailUrl"`
	Status           domain.OrderStatus `json:"status"`
}

// multipart overhead allowed on top of the slip itself
const formOverhead = 1 << 20

func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		h.rs.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	status, err := h.upload(w, r, caller)
	h.metrics.SlipUploaded(r.Context(), err)
	if err == nil {
		return
	}

	if status == http.StatusInternalServerError {
		h.rs.Internal(w, "failed to upload slip", err, "user_id", caller.UserID)
		return
	}
	h.rs.Error(w, status, err.Error())
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, caller auth.Identity) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxSlipSize+formOverhead)
	if err := r.ParseMultipartForm(MaxSlipSize + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusBadRequest, ErrSlipTooLarge
		}
		return http.StatusBadRequest, errors.New("invalid multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	orderID := r.FormValue("orderId")
	if orderID == "" {
		return http.StatusBadRequest, domain.Invalid("orderId is required")
	}

	file, header, err := r.FormFile("slip")
	if err != nil {
		return http.StatusBadRequest, ErrSlipRequired
	}
	defer func() { _ = file.Close() }()

	if err := ValidateSlip(header.Header.Get("Content-Type"), header.Size); err != nil {
		return http.StatusBadRequest, err
	}

	order, err := h.orders.PrepareSlipUpload(r.Context(), caller, orderID)
	if err != nil {
		return orders.StatusCode(err), err
	}

	stored, err := h.storage.Save(r.Context(), order.ID, file)
	if err != nil {
		if errors.Is(err, ErrSlipImage) {
			return http.StatusBadRequest, ErrSlipImage
		}
		return http.StatusInternalServerError, err
	}

	if err := h.orders.RecordSlip(r.Context(), *order, stored.URL, stored.ThumbnailURL); err != nil {
		if rmErr := h.storage.Remove(*stored); rmErr != nil {
			h.logger.Error("failed to remove orphaned slip", "error", rmErr, "order_id", order.ID)
		}
		return orders.StatusCode(err), err
	}

	h.logger.Info("slip stored", "order_id", order.ID, "user_id", caller.UserID, "size", header.Size)
	h.rs.OK(w, uploadResponse{
		OrderID:          order.ID,
		SlipURL:          stored.URL,
		SlipThumbnailURL: stored.ThumbnailURL,
		Status:           domain.OrderStatusPendingVerification,
	})
	return http.StatusOK, nil
}

package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"github.com/joao-fontenele/courseshop/internal/httpx"
)

// copiedHeaders are returned from the upstream response to the client.
var copiedHeaders = []string{"Content-Type", "Content-Disposition", "Cache-Control", "Retry-After"}

type Handler struct {
	shopProxy  *ServiceProxy
	adminProxy *ServiceProxy
	rs         *httpx.Responder
	logger     *slog.Logger
}

func NewHandler(shopProxy, adminProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		shopProxy:  shopProxy,
		adminProxy: adminProxy,
		rs:         httpx.NewResponder(logger),
		logger:     logger,
	}
}

func (h *Handler) HandleShop(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.shopProxy, r.URL.Path)
}

// HandleAdmin proxies the back office, which also serves uploaded slips.
func (h *Handler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.adminProxy, r.URL.Path)
}

// ServeHTTP routes /api/admin/ and /uploads/ to the admin service and the
// rest of the API to the shop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/admin" || strings.HasPrefix(r.URL.Path, "/api/admin/"),
		strings.HasPrefix(r.URL.Path, "/uploads/"):
		h.HandleAdmin(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		h.HandleShop(w, r)
	default:
		h.rs.Error(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.rs.Error(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for _, name := range copiedHeaders {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

// CORS allows browser clients from origins to call the API with bearer
// tokens. A single "*" allows any origin.
func CORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         600,
	})
}

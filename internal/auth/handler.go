package auth

import (
	"errors"
	"log/slog"
	"net/http"

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

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.Registration
	if !h.rs.Decode(w, r, &req) {
		return
	}

	u, err := h.service.Register(r.Context(), req)
	if err != nil {
		if msg, ok := domain.IsValidation(err); ok {
			h.rs.Error(w, http.StatusBadRequest, msg)
			return
		}
		if errors.Is(err, ErrEmailTaken) {
			h.rs.Error(w, http.StatusConflict, ErrEmailTaken.Error())
			return
		}
		h.rs.Internal(w, "failed to register user", err)
		return
	}

	h.rs.Created(w, u)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.rs.Error(w, http.StatusUnauthorized, ErrInvalidCredentials.Error())
			return
		}
		h.rs.Internal(w, "failed to log in", err)
		return
	}

	h.rs.OK(w, session)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := FromContext(r.Context())
	if err := h.service.Logout(r.Context(), id); err != nil {
		h.rs.Internal(w, "failed to log out", err, "user_id", id.UserID)
		return
	}

	h.logger.Info("user logged out", "user_id", id.UserID)
	h.rs.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "logged out"})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := FromContext(r.Context())
	u, err := h.service.Me(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.rs.Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		h.rs.Internal(w, "failed to load user", err, "user_id", id.UserID)
		return
	}

	h.rs.OK(w, u)
}

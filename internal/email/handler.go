package email

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/courseshop/internal/httpx"
)

// Message is an email accepted by the service.
type Message struct {
	ID      string    `json:"id"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sentAt"`
}

// Outbox keeps the most recent messages so they can be inspected in
// development without a real mail server.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	capacity int
}

func NewOutbox(capacity int) *Outbox {
	return &Outbox{capacity: capacity}
}

func (o *Outbox) Add(m Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, m)
	if over := len(o.messages) - o.capacity; over > 0 {
		o.messages = o.messages[over:]
	}
}

// Recent returns messages newest first, optionally filtered by recipient.
func (o *Outbox) Recent(to string) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, 0, len(o.messages))
	for i := len(o.messages) - 1; i >= 0; i-- {
		if to == "" || strings.EqualFold(o.messages[i].To, to) {
			out = append(out, o.messages[i])
		}
	}
	return out
}

type Handler struct {
	outbox *Outbox
	rs     *httpx.Responder
	logger *slog.Logger
}

func NewHandler(outbox *Outbox, logger *slog.Logger) *Handler {
	return &Handler{
		outbox: outbox,
		rs:     httpx.NewResponder(logger),
		logger: logger,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if !h.rs.Decode(w, r, &req) {
		return
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(req.To))
	if err != nil {
		h.rs.Error(w, http.StatusBadRequest, "invalid recipient address")
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		h.rs.Error(w, http.StatusBadRequest, "subject is required")
		return
	}

	msg := Message{
		ID:      uuid.NewString(),
		To:      addr.Address,
		Subject: req.Subject,
		Body:    req.Body,
		SentAt:  time.Now().UTC(),
	}
	h.outbox.Add(msg)

	h.logger.Info("email sent", "id", msg.ID, "to", msg.To, "subject", msg.Subject)

	h.rs.OK(w, sendResponse{Status: "sent", ID: msg.ID})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.rs.OK(w, h.outbox.Recent(r.URL.Query().Get("to")))
}

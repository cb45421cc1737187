package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/messaging"
)

// Email is the request body of the email service.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NotificationHandler turns order events into customer emails.
type NotificationHandler struct {
	emailServiceURL string
	shopURL         string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL, shopURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: emailServiceURL,
		shopURL:         shopURL,
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	h.logger.Info("processing order event", "order_id", event.OrderID, "type", event.Type, "user_id", event.UserID)

	if event.CustomerEmail == "" {
		h.logger.Warn("order event without customer email, skipping", "order_id", event.OrderID, "type", event.Type)
		return nil
	}

	email, ok := Compose(event, h.shopURL)
	if !ok {
		h.logger.Info("no notification for event", "order_id", event.OrderID, "type", event.Type)
		return nil
	}

	if err := h.sendEmail(ctx, email); err != nil {
		h.logger.Error("failed to send email", "error", err, "order_id", event.OrderID, "type", event.Type)
		return fmt.Errorf("send %s email: %w", event.Type, err)
	}

	h.logger.Info("notification sent", "order_id", event.OrderID, "type", event.Type)
	return nil
}

func baht(v int64) string {
	return decimal.NewFromInt(v).StringFixed(2) + " THB"
}

// Compose builds the customer email for an event. Free orders get no
// "order received" email since the completion email follows right away.
func Compose(e domain.OrderEvent, shopURL string) (Email, bool) {
	greeting := "Hello"
	if e.CustomerName != "" {
		greeting = "Hello " + e.CustomerName
	}
	orderURL := fmt.Sprintf("%s/orders/%s", shopURL, e.OrderID)

	var subject, body string
	switch e.Type {
	case domain.OrderEventCreated:
		if e.Status == domain.OrderStatusCompleted {
			return Email{}, false
		}
		subject = "Order received: " + e.ItemTitle
		body = fmt.Sprintf("%s,\n\nWe received your order for %s. Please transfer %s and upload your payment slip at %s.",
			greeting, e.ItemTitle, baht(e.Total), orderURL)
	case domain.OrderEventSlipUploaded:
		subject = "Payment slip received: " + e.ItemTitle
		body = fmt.Sprintf("%s,\n\nThanks, we received your payment slip for %s. We will let you know once it has been verified.",
			greeting, e.ItemTitle)
	case domain.OrderEventCompleted:
		access := "download it from your library"
		if e.OrderType == domain.OrderTypeCourse {
			access = "start learning from your courses page"
		}
		subject = "Order complete: " + e.ItemTitle
		body = fmt.Sprintf("%s,\n\nYour order for %s is complete. You can %s. Your receipt is available at %s/receipt.",
			greeting, e.ItemTitle, access, orderURL)
	case domain.OrderEventCancelled:
		subject = "Order cancelled: " + e.ItemTitle
		body = fmt.Sprintf("%s,\n\nYour order for %s was cancelled.", greeting, e.ItemTitle)
		if e.RejectionReason != "" {
			body += " Reason: " + e.RejectionReason + "."
		}
	default:
		return Email{}, false
	}

	return Email{To: e.CustomerEmail, Subject: subject, Body: body}, true
}

func (h *NotificationHandler) sendEmail(ctx context.Context, email Email) error {
	data, err := json.Marshal(email)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

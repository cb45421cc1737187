package email

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newMux(outbox *Outbox) *http.ServeMux {
	h := NewHandler(outbox, slog.New(slog.NewTextHandler(io.Discard, nil)))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /send", h.HandleSend)
	mux.HandleFunc("GET /messages", h.HandleList)
	return mux
}

func send(t *testing.T, mux http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/send", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleSend(t *testing.T) {
	outbox := NewOutbox(10)
	mux := newMux(outbox)

	w := send(t, mux, `{"to":"Somchai <somchai@example.com>","subject":"Order complete","body":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var env struct {
		Success bool         `json:"success"`
		Data    sendResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !env.Success || env.Data.Status != "sent" || env.Data.ID == "" {
		t.Errorf("unexpected response %+v", env)
	}

	got := outbox.Recent("SOMCHAI@example.com")
	if len(got) != 1 || got[0].To != "somchai@example.com" || got[0].ID != env.Data.ID {
		t.Errorf("unexpected outbox %+v", got)
	}

	for _, body := range []string{
		`{"to":"not-an-address","subject":"x"}`,
		`{"to":"a@example.com","subject":"  "}`,
		`{`,
	} {
		if w := send(t, mux, body); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestOutboxCapacity(t *testing.T) {
	o := NewOutbox(2)
	for _, s := range []string{"one", "two", "three"} {
		o.Add(Message{To: "a@example.com", Subject: s})
	}

	got := o.Recent("")
	if len(got) != 2 || got[0].Subject != "three" || got[1].Subject != "two" {
		t.Errorf("unexpected messages %+v", got)
	}
}

package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var (
	ErrVerifierUnavailable = errors.New("slip verification service unavailable")
	ErrSlipUnreadable      = errors.New("slip could not be verified")
)

// SlipData is the part of an EasySlip verification used by the checks.
type SlipData struct {
	TransRef string    `json:"transRef"`
	Date     time.Time `json:"date"`
	Amount   struct {
		Amount float64 `json:"amount"`
	} `json:"amount"`
	Sender   SlipParty `json:"sender"`
	Receiver SlipParty `json:"receiver"`
}

type SlipParty struct {
	Bank struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Short string `json:"short"`
	} `json:"bank"`
	Account struct {
		Name struct {
			TH string `json:"th"`
			EN string `json:"en"`
		} `json:"name"`
		Bank *struct {
			Type    string `json:"type"`
			Account string `json:"account"`
		} `json:"bank,omitempty"`
		Proxy *struct {
			Type    string `json:"type"`
			Account string `json:"account"`
		} `json:"proxy,omitempty"`
	} `json:"account"`
}

// AccountNumber is the (usually masked) bank account of the party.
func (p SlipParty) AccountNumber() string {
	if p.Account.Bank != nil {
		return p.Account.Bank.Account
	}
	return ""
}

type easySlipResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// EasySlip calls the EasySlip verify endpoint with a slip image.
type EasySlip struct {
	url    string
	apiKey string
	client *http.Client
}

func NewEasySlip(url, apiKey string, client *http.Client) *EasySlip {
	return &EasySlip{url: url, apiKey: apiKey, client: client}
}

// Verify uploads the image and returns the parsed data plus the raw data
// object as EasySlip sent it.
func (e *EasySlip) Verify(ctx context.Context, filename string, image io.Reader) (*SlipData, json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, nil, fmt.Errorf("read slip: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out easySlipResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("%w: decode response: %v", ErrVerifierUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, nil, fmt.Errorf("%w: status %d %s", ErrVerifierUnavailable, resp.StatusCode, out.Message)
	case resp.StatusCode != http.StatusOK || out.Status != http.StatusOK:
		return nil, nil, fmt.Errorf("%w: %s", ErrSlipUnreadable, out.Message)
	}

	var data SlipData
	if err := json.Unmarshal(out.Data, &data); err != nil {
		return nil, nil, fmt.Errorf("%w: decode slip data: %v", ErrVerifierUnavailable, err)
	}
	return &data, out.Data, nil
}

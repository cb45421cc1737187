package orders

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
)

// BankAccount is where customers send bank transfers.
type BankAccount struct {
	BankName      string
	AccountName   string
	AccountNumber string
}

type PaymentInstructions struct {
	OrderID       string             `json:"orderId"`
	Status        domain.OrderStatus `json:"status"`
	BankName      string             `json:"bankName"`
	AccountName   string             `json:"accountName"`
	AccountNumber string             `json:"accountNumber"`
	Amount        int64              `json:"amount"`
	Reference     string             `json:"reference"`
	QRCode        string             `json:"qrCode"`
}

const qrSize = 256

// Instructions returns the transfer details for an unpaid order, with a PNG
// QR code of the same details encoded as base64.
func (s *Service) Instructions(ctx context.Context, caller auth.Identity, id string) (*PaymentInstructions, error) {
	o, err := s.accessibleOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetPayment(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if err := CanUploadSlip(*o, p); err != nil {
		return nil, err
	}

	ref := PaymentRef(o.ID)
	if p.Ref != nil {
		ref = *p.Ref
	}

	in := &PaymentInstructions{
		OrderID:       o.ID,
		Status:        o.Status,
		BankName:      s.bank.BankName,
		AccountName:   s.bank.AccountName,
		AccountNumber: s.bank.AccountNumber,
		Amount:        p.Amount,
		Reference:     ref,
	}

	png, err := qrcode.Encode(in.qrContent(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	in.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	return in, nil
}

func (in *PaymentInstructions) qrContent() string {
	return fmt.Sprintf("BANK:%s;ACC:%s;NAME:%s;AMT:%s;REF:%s",
		in.BankName, in.AccountNumber, in.AccountName,
		decimal.NewFromInt(in.Amount).StringFixed(2), in.Reference)
}

package domain

import (
	"fmt"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodFree         PaymentMethod = "FREE"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(normalize(s)); m {
	case PaymentMethodBankTransfer, PaymentMethodFree:
		return m, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, func(raw string) error {
		pm, err := ParsePaymentMethod(raw)
		*m = pm
		return err
	})
}

type PaymentStatus string

const (
	PaymentStatusPending             PaymentStatus = "PENDING"
	PaymentStatusPendingVerification PaymentStatus = "PENDING_VERIFICATION"
	PaymentStatusCompleted           PaymentStatus = "COMPLETED"
	PaymentStatusRejected            PaymentStatus = "REJECTED"
	PaymentStatusFree                PaymentStatus = "FREE"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(normalize(s)); st {
	case PaymentStatusPending, PaymentStatusPendingVerification, PaymentStatusCompleted,
		PaymentStatusRejected, PaymentStatusFree:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}

func (s *PaymentStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, func(raw string) error {
		ps, err := ParsePaymentStatus(raw)
		*s = ps
		return err
	})
}

type Payment struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"orderId"`
	Method           PaymentMethod `json:"method"`
	Status           PaymentStatus `json:"status"`
	Amount           int64         `json:"amount"`
	SlipURL          *string       `json:"slipUrl,omitempty"`
	SlipThumbnailURL *string       `json:"slipThumbnailUrl,omitempty"`
	Ref              *string       `json:"ref,omitempty"`
	PaidAt           *time.Time    `json:"paidAt,omitempty"`
	UploadedAt       *time.Time    `json:"uploadedAt,omitempty"`
	VerifiedAt       *time.Time    `json:"verifiedAt,omitempty"`
	VerifiedBy       *string       `json:"verifiedBy,omitempty"`
	RejectionReason  *string       `json:"rejectionReason,omitempty"`
	Notes            *string       `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrForbidden         = errors.New("you do not have access to this order")
	ErrAlreadyOwned      = errors.New("you already own this item")
	ErrOrderOpen         = errors.New("you already have an open order for this item")
	ErrInvalidTransition = errors.New("order cannot be changed from its current status")
	ErrStaleOrder        = errors.New("order was changed by someone else, reload and try again")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrNotCompleted      = errors.New("order is not completed")
)

// Action names an admin operation on a single order.
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionReject  Action = "reject"
	ActionCancel  Action = "cancel"

	// ActionAbandon is the customer cancelling their own unpaid order.
	ActionAbandon Action = "abandon"
)

// BulkAction is one of the batch operations of the admin console.
type BulkAction string

const (
	BulkConfirmPayment BulkAction = "confirm_payment"
	BulkRejectPayment  BulkAction = "reject_payment"
	BulkCancelOrders   BulkAction = "cancel_orders"
)

func ParseBulkAction(s string) (BulkAction, error) {
	switch a := BulkAction(strings.ToLower(strings.TrimSpace(s))); a {
	case BulkConfirmPayment, BulkRejectPayment, BulkCancelOrders:
		return a, nil
	}
	return "", domain.Invalid(fmt.Sprintf("unknown bulk action %q", s))
}

// Action maps the batch operation onto its single-order form.
func (a BulkAction) Action() Action {
	switch a {
	case BulkConfirmPayment:
		return ActionConfirm
	case BulkRejectPayment:
		return ActionReject
	}
	return ActionCancel
}

func transitionError(o domain.Order, p *domain.Payment) error {
	if p == nil {
		return fmt.Errorf("%w (order %s)", ErrInvalidTransition, o.Status)
	}
	return fmt.Errorf("%w (order %s, payment %s)", ErrInvalidTransition, o.Status, p.Status)
}

// CanUploadSlip allows a slip only for an unpaid bank transfer.
func CanUploadSlip(o domain.Order, p *domain.Payment) error {
	if p == nil {
		return ErrPaymentNotFound
	}
	if o.Status != domain.OrderStatusPending ||
		p.Status != domain.PaymentStatusPending ||
		p.Method != domain.PaymentMethodBankTransfer {
		return transitionError(o, p)
	}
	return nil
}

// CanConfirm allows completion only after a slip was uploaded, never
// straight from PENDING.
func CanConfirm(o domain.Order, p *domain.Payment) error {
	if p == nil {
		return ErrPaymentNotFound
	}
	if o.Status != domain.OrderStatusPendingVerification ||
		p.Status != domain.PaymentStatusPendingVerification {
		return transitionError(o, p)
	}
	return nil
}

// CanReject needs a non-blank reason and a payment awaiting verification.
func CanReject(o domain.Order, p *domain.Payment, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return CanConfirm(o, p)
}

func CanCancel(o domain.Order) error {
	if o.Status.Terminal() {
		return transitionError(o, nil)
	}
	return nil
}

// CanCustomerCancel lets a customer abandon an order only before a slip is
// uploaded. After that the order waits for an admin.
func CanCustomerCancel(o domain.Order) error {
	if o.Status != domain.OrderStatusPending {
		return transitionError(o, nil)
	}
	return nil
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/pricing"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

type Repository interface {
	Create(ctx context.Context, n NewOrder) error
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetPayment(ctx context.Context, orderID string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	HasEntitlement(ctx context.Context, userID string, t domain.OrderType, itemID string) (bool, error)
	HasOpenOrder(ctx context.Context, userID string, t domain.OrderType, itemID string) (bool, error)
	MarkSlipUploaded(ctx context.Context, orderID, slipURL, thumbnailURL string, at time.Time) error
	Confirm(ctx context.Context, v Verification) (*domain.Enrollment, error)
	Reject(ctx context.Context, v Verification) error
	Cancel(ctx context.Context, from domain.OrderStatus, v Verification) error
	ListAdmin(ctx context.Context, f AdminFilter, q httpx.PageQuery) ([]domain.OrderSummary, int, error)
	Detail(ctx context.Context, id string) (*domain.OrderDetail, error)
	Customer(ctx context.Context, userID string) (*domain.CustomerInfo, error)
}

// ProductFinder returns the active ebook or course, or nil, nil.
type ProductFinder interface {
	FindProduct(ctx context.Context, t domain.ItemType, id string) (*domain.Product, error)
}

type CouponValidator interface {
	Validate(ctx context.Context, req coupons.Request) (*domain.Coupon, *pricing.AppliedCoupon, error)
}

type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Deps wires a Service. Carts and Events may be nil.
type Deps struct {
	Repo     Repository
	Products ProductFinder
	Coupons  CouponValidator
	Carts    CartClearer
	Events   EventPublisher
	Metrics  *telemetry.Metrics
	Bank     BankAccount
}

// Service owns every order and payment state change. Handlers only translate
// HTTP to these calls.
type Service struct {
	repo     Repository
	products ProductFinder
	coupons  CouponValidator
	carts    CartClearer
	events   EventPublisher
	metrics  *telemetry.Metrics
	bank     BankAccount
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(d Deps, logger *slog.Logger) *Service {
	return &Service{
		repo:     d.Repo,
		products: d.Products,
		coupons:  d.Coupons,
		carts:    d.Carts,
		events:   d.Events,
		metrics:  d.Metrics,
		bank:     d.Bank,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

type CreateRequest struct {
	UserID          string                  `json:"userId"`
	ItemType        domain.OrderType        `json:"itemType"`
	ItemID          string                  `json:"itemId"`
	CouponCode      string                  `json:"couponCode,omitempty"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress,omitempty"`
}

type CreateResult struct {
	OrderID string             `json:"orderId"`
	IsFree  bool               `json:"isFree"`
	Total   int64              `json:"total"`
	Status  domain.OrderStatus `json:"status"`
}

// CreateOrder prices the item on the server and stores the order. A zero
// total completes the order immediately with a FREE payment; it never passes
// through PENDING_VERIFICATION.
func (s *Service) CreateOrder(ctx context.Context, caller auth.Identity, req CreateRequest) (*CreateResult, error) {
	if req.UserID == "" {
		req.UserID = caller.UserID
	}
	if req.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if req.ItemType == "" || strings.TrimSpace(req.ItemID) == "" {
		return nil, domain.Invalid("itemType and itemId are required")
	}

	product, err := s.products.FindProduct(ctx, req.ItemType.ItemType(), req.ItemID)
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	owned, err := s.repo.HasEntitlement(ctx, req.UserID, product.Type, product.ID)
	if err != nil {
		return nil, fmt.Errorf("check entitlement: %w", err)
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	open, err := s.repo.HasOpenOrder(ctx, req.UserID, product.Type, product.ID)
	if err != nil {
		return nil, fmt.Errorf("check open orders: %w", err)
	}
	if open {
		return nil, ErrOrderOpen
	}

	var shippingFee int64
	shipping := req.ShippingAddress
	if product.IsPhysical {
		if shipping == nil {
			return nil, domain.Invalid("shipping address is required for physical items")
		}
		if missing := shipping.MissingFields(); len(missing) > 0 {
			return nil, domain.Invalid("shipping address is incomplete: " + strings.Join(missing, ", "))
		}
		shippingFee = product.ShippingFee
	} else {
		shipping = nil
	}

	subtotal := product.UnitPrice()

	var coupon *domain.Coupon
	var applied *pricing.AppliedCoupon
	if strings.TrimSpace(req.CouponCode) != "" {
		coupon, applied, err = s.coupons.Validate(ctx, coupons.Request{
			Code:        req.CouponCode,
			UserID:      req.UserID,
			ItemType:    product.Type,
			ItemID:      product.ID,
			Subtotal:    subtotal,
			ShippingFee: shippingFee,
		})
		if err != nil {
			return nil, err
		}
	}

	quote := pricing.Quote(subtotal, shippingFee, applied)
	now := s.now()

	order := &domain.Order{
		UserID:         req.UserID,
		OrderType:      product.Type,
		ItemID:         product.ID,
		ItemTitle:      product.Title,
		Status:         domain.OrderStatusPending,
		Subtotal:       quote.Subtotal,
		ShippingFee:    quote.ShippingFee,
		CouponDiscount: quote.CouponDiscount,
		Total:          quote.Total,
		CreatedAt:      now,
	}
	if coupon != nil {
		order.CouponID = &coupon.ID
		order.CouponCode = &coupon.Code
		order.CouponType = &coupon.Type
	}

	payment := &domain.Payment{
		Method: domain.PaymentMethodBankTransfer,
		Status: domain.PaymentStatusPending,
		Amount: quote.Total,
	}
	if quote.IsFree() {
		order.Status = domain.OrderStatusCompleted
		payment.Method = domain.PaymentMethodFree
		payment.Status = domain.PaymentStatusFree
		payment.PaidAt = &now
	}

	if err := s.repo.Create(ctx, NewOrder{Order: order, Payment: payment, Shipping: shipping}); err != nil {
		if errors.Is(err, coupons.ErrUsageLimitReached) {
			return nil, err
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.metrics.OrderCreated(ctx, string(order.OrderType), quote.IsFree())
	s.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", order.Total, "status", order.Status)

	if s.carts != nil {
		if err := s.carts.ClearCart(ctx, order.UserID); err != nil {
			s.logger.Error("failed to clear cart", "error", err, "user_id", order.UserID)
		}
	}

	s.publish(ctx, domain.OrderEventCreated, *order, "")
	if order.Status == domain.OrderStatusCompleted {
		s.publish(ctx, domain.OrderEventCompleted, *order, "")
	}

	return &CreateResult{
		OrderID: order.ID,
		IsFree:  quote.IsFree(),
		Total:   order.Total,
		Status:  order.Status,
	}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// OrderView is what a customer sees of one of their orders.
type OrderView struct {
	Order   domain.Order    `json:"order"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

func (s *Service) GetForUser(ctx context.Context, caller auth.Identity, id string) (*OrderView, error) {
	o, err := s.accessibleOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetPayment(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &OrderView{Order: *o, Payment: p}, nil
}

// accessibleOrder loads an order the caller owns. Admins can see every order.
func (s *Service) accessibleOrder(ctx context.Context, caller auth.Identity, id string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return o, nil
}

// PrepareSlipUpload checks that the caller owns the order and that it is
// waiting for a bank transfer slip. It runs before anything is stored.
func (s *Service) PrepareSlipUpload(ctx context.Context, caller auth.Identity, orderID string) (*domain.Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != caller.UserID {
		return nil, ErrForbidden
	}

	p, err := s.repo.GetPayment(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if err := CanUploadSlip(*o, p); err != nil {
		return nil, err
	}
	return o, nil
}

// RecordSlip moves the order and payment to PENDING_VERIFICATION.
func (s *Service) RecordSlip(ctx context.Context, o domain.Order, slipURL, thumbnailURL string) error {
	if err := s.repo.MarkSlipUploaded(ctx, o.ID, slipURL, thumbnailURL, s.now()); err != nil {
		return err
	}

	o.Status = domain.OrderStatusPendingVerification
	s.logger.Info("payment slip uploaded", "order_id", o.ID, "user_id", o.UserID)
	s.publish(ctx, domain.OrderEventSlipUploaded, o, "")
	return nil
}

// CancelOwn cancels an unpaid order on behalf of its owner so the item can be
// ordered again, for example with a coupon.
func (s *Service) CancelOwn(ctx context.Context, caller auth.Identity, id string) (result *domain.Order, err error) {
	defer func() { s.metrics.Transition(ctx, string(ActionAbandon), err) }()

	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	if err := CanCustomerCancel(*o); err != nil {
		return nil, err
	}

	v := Verification{OrderID: o.ID, Reason: "order cancelled by customer", At: s.now()}
	if err := s.repo.Cancel(ctx, domain.OrderStatusPending, v); err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = v.At
	s.logger.Info("order cancelled by customer", "order_id", o.ID, "user_id", o.UserID)
	s.publish(ctx, domain.OrderEventCancelled, *o, v.Reason)

	return o, nil
}

// TransitionRequest is one admin action on one order.
type TransitionRequest struct {
	OrderID         string
	Action          Action
	RejectionReason string
	Notes           string
}

type TransitionResult struct {
	Order      *domain.Order      `json:"order"`
	Enrollment *domain.Enrollment `json:"enrollment,omitempty"`
}

// Transition applies an admin action and refuses non-admin callers even
// behind RequireAdmin. The current state is checked first so
// the caller gets a precise error; the repository re-checks it in the UPDATE
// and reports ErrStaleOrder when another writer got there first.
func (s *Service) Transition(ctx context.Context, admin auth.Identity, req TransitionRequest) (result *TransitionResult, err error) {
	defer func() { s.metrics.Transition(ctx, string(req.Action), err) }()

	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}

	o, err := s.repo.Get(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	p, err := s.repo.GetPayment(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	v := Verification{
		OrderID: o.ID,
		AdminID: admin.UserID,
		Notes:   strings.TrimSpace(req.Notes),
		At:      s.now(),
	}

	var enrollment *domain.Enrollment
	var event domain.OrderEventType

	switch req.Action {
	case ActionConfirm:
		if err := CanConfirm(*o, p); err != nil {
			return nil, err
		}
		if enrollment, err = s.repo.Confirm(ctx, v); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatusCompleted
		event = domain.OrderEventCompleted
	case ActionReject:
		if err := CanReject(*o, p, req.RejectionReason); err != nil {
			return nil, err
		}
		v.Reason = strings.TrimSpace(req.RejectionReason)
		if err := s.repo.Reject(ctx, v); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatusCancelled
		event = domain.OrderEventCancelled
	case ActionCancel:
		if err := CanCancel(*o); err != nil {
			return nil, err
		}
		v.Reason = v.Notes
		if v.Reason == "" {
			v.Reason = "order cancelled by admin"
		}
		if err := s.repo.Cancel(ctx, o.Status, v); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatusCancelled
		event = domain.OrderEventCancelled
	default:
		return nil, domain.Invalid(fmt.Sprintf("unknown action %q", req.Action))
	}

	o.UpdatedAt = v.At
	s.logger.Info("order transitioned", "order_id", o.ID, "action", req.Action, "status", o.Status, "admin_id", admin.UserID)
	s.publish(ctx, event, *o, v.Reason)

	return &TransitionResult{Order: o, Enrollment: enrollment}, nil
}

type BulkItemResult struct {
	OrderID string `json:"orderId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BulkResult struct {
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Results   []BulkItemResult `json:"results"`
}

// Bulk runs the same action over many orders. Each order succeeds or fails
// on its own; one failure does not stop the rest. reject_payment uses the
// notes as the rejection reason.
func (s *Service) Bulk(ctx context.Context, admin auth.Identity, ids []string, action BulkAction, notes string) (*BulkResult, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	if len(ids) == 0 {
		return nil, domain.Invalid("orderIds is required")
	}
	if action == BulkRejectPayment && strings.TrimSpace(notes) == "" {
		return nil, ErrReasonRequired
	}

	res := &BulkResult{Results: make([]BulkItemResult, 0, len(ids))}
	for _, id := range ids {
		item := BulkItemResult{OrderID: id, Success: true}
		_, err := s.Transition(ctx, admin, TransitionRequest{
			OrderID:         id,
			Action:          action.Action(),
			RejectionReason: notes,
			Notes:           notes,
		})
		if err != nil {
			item.Success = false
			item.Error = PublicError(err)
			res.Failed++
			if item.Error == internalErrorMessage {
				s.logger.Error("bulk action failed", "error", err, "order_id", id, "action", action)
			}
		} else {
			res.Processed++
		}
		res.Results = append(res.Results, item)
	}

	s.logger.Info("bulk action finished", "action", action, "processed", res.Processed, "failed", res.Failed)
	return res, nil
}

func (s *Service) AdminList(ctx context.Context, f AdminFilter, q httpx.PageQuery) ([]domain.OrderSummary, int, error) {
	return s.repo.ListAdmin(ctx, f, q)
}

func (s *Service) AdminDetail(ctx context.Context, id string) (*domain.OrderDetail, error) {
	d, err := s.repo.Detail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load order detail: %w", err)
	}
	if d == nil {
		return nil, ErrOrderNotFound
	}
	return d, nil
}

func (s *Service) publish(ctx context.Context, t domain.OrderEventType, o domain.Order, reason string) {
	if s.events == nil {
		return
	}

	event := domain.NewOrderEvent(t, o)
	event.RejectionReason = reason

	customer, err := s.repo.Customer(ctx, o.UserID)
	if err != nil {
		s.logger.Error("failed to load customer for event", "error", err, "order_id", o.ID)
	}
	if customer != nil {
		event.CustomerEmail = customer.Email
		event.CustomerName = customer.Name
	}

	if err := s.events.Publish(ctx, o.ID, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "order_id", o.ID, "type", t)
	}
}

const internalErrorMessage = "internal server error"

// PublicError is the message a caller may see for err.
func PublicError(err error) string {
	if msg, ok := domain.IsValidation(err); ok {
		return msg
	}
	for _, known := range []error{
		ErrOrderNotFound, ErrPaymentNotFound, ErrProductNotFound, ErrForbidden,
		ErrAlreadyOwned, ErrOrderOpen, ErrInvalidTransition, ErrStaleOrder,
		ErrReasonRequired, ErrNotCompleted,
	} {
		if errors.Is(err, known) {
			return err.Error()
		}
	}
	if coupons.IsRejection(err) {
		return err.Error()
	}
	return internalErrorMessage
}

package orders

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
	"github.com/joao-fontenele/courseshop/internal/pricing"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

type memoryRepo struct {
	mu         sync.Mutex
	seq        int
	orders     map[string]*domain.Order
	payments   map[string]*domain.Payment
	shippings  map[string]domain.ShippingAddress
	entitled   map[string]string
	customers  map[string]domain.CustomerInfo
	couponUses map[string]int
	couponCap  map[string]int

	// beforeWrite runs at the start of every transition write, after the
	// service has read the current state.
	beforeWrite func(orderID string)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders:     map[string]*domain.Order{},
		payments:   map[string]*domain.Payment{},
		shippings:  map[string]domain.ShippingAddress{},
		entitled:   map[string]string{},
		customers:  map[string]domain.CustomerInfo{},
		couponUses: map[string]int{},
		couponCap:  map[string]int{},
	}
}

func entitlementKey(userID string, t domain.OrderType, itemID string) string {
	return userID + "|" + string(t) + "|" + itemID
}

func (m *memoryRepo) Create(_ context.Context, n NewOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.Order.CouponID != nil {
		id := *n.Order.CouponID
		if limit, ok := m.couponCap[id]; ok && m.couponUses[id] >= limit {
			return coupons.ErrUsageLimitReached
		}
		m.couponUses[id]++
	}

	m.seq++
	o := n.Order
	o.ID = fmt.Sprintf("order-%d", m.seq)
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.orders[o.ID] = &cp

	p := n.Payment
	p.ID = fmt.Sprintf("payment-%d", m.seq)
	p.OrderID = o.ID
	ref := PaymentRef(o.ID)
	p.Ref = &ref
	pc := *p
	m.payments[o.ID] = &pc

	if n.Shipping != nil {
		m.shippings[o.ID] = *n.Shipping
	}
	if o.Status == domain.OrderStatusCompleted {
		m.entitled[entitlementKey(o.UserID, o.OrderType, o.ItemID)] = o.ID
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (m *memoryRepo) GetPayment(_ context.Context, orderID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[orderID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) HasEntitlement(_ context.Context, userID string, t domain.OrderType, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entitled[entitlementKey(userID, t, itemID)]
	return ok, nil
}

func (m *memoryRepo) HasOpenOrder(_ context.Context, userID string, t domain.OrderType, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.UserID == userID && o.OrderType == t && o.ItemID == itemID && !o.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) hook(id string) {
	if m.beforeWrite != nil {
		m.beforeWrite(id)
	}
}

func (m *memoryRepo) MarkSlipUploaded(_ context.Context, orderID, slipURL, thumbnailURL string, at time.Time) error {
	m.hook(orderID)
	m.mu.Lock()
	defer m.mu.Unlock()

	o, p := m.orders[orderID], m.payments[orderID]
	if o == nil || p == nil || o.Status != domain.OrderStatusPending ||
		p.Status != domain.PaymentStatusPending || p.Method != domain.PaymentMethodBankTransfer {
		return ErrStaleOrder
	}
	o.Status = domain.OrderStatusPendingVerification
	o.UpdatedAt = at
	p.Status = domain.PaymentStatusPendingVerification
	p.SlipURL = &slipURL
	p.SlipThumbnailURL = &thumbnailURL
	p.UploadedAt = &at
	return nil
}

func (m *memoryRepo) verifiable(orderID string) (*domain.Order, *domain.Payment, error) {
	o, p := m.orders[orderID], m.payments[orderID]
	if o == nil || p == nil || o.Status != domain.OrderStatusPendingVerification ||
		p.Status != domain.PaymentStatusPendingVerification {
		return nil, nil, ErrStaleOrder
	}
	return o, p, nil
}

func (m *memoryRepo) Confirm(_ context.Context, v Verification) (*domain.Enrollment, error) {
	m.hook(v.OrderID)
	m.mu.Lock()
	defer m.mu.Unlock()

	o, p, err := m.verifiable(v.OrderID)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatusCompleted
	p.Status = domain.PaymentStatusCompleted
	p.VerifiedAt = &v.At
	p.VerifiedBy = &v.AdminID
	if p.PaidAt == nil {
		p.PaidAt = &v.At
	}
	m.entitled[entitlementKey(o.UserID, o.OrderType, o.ItemID)] = o.ID

	if o.OrderType != domain.OrderTypeCourse {
		return nil, nil
	}
	return &domain.Enrollment{
		ID:         "enrollment-" + o.ID,
		UserID:     o.UserID,
		CourseID:   o.ItemID,
		OrderID:    o.ID,
		EnrolledAt: v.At,
	}, nil
}

func (m *memoryRepo) Reject(_ context.Context, v Verification) error {
	m.hook(v.OrderID)
	m.mu.Lock()
	defer m.mu.Unlock()

	o, p, err := m.verifiable(v.OrderID)
	if err != nil {
		return err
	}
	o.Status = domain.OrderStatusCancelled
	p.Status = domain.PaymentStatusRejected
	p.RejectionReason = &v.Reason
	m.releaseCoupon(o)
	return nil
}

func (m *memoryRepo) releaseCoupon(o *domain.Order) {
	if o.CouponID != nil && m.couponUses[*o.CouponID] > 0 {
		m.couponUses[*o.CouponID]--
	}
}

func (m *memoryRepo) Cancel(_ context.Context, from domain.OrderStatus, v Verification) error {
	m.hook(v.OrderID)
	m.mu.Lock()
	defer m.mu.Unlock()

	o, p := m.orders[v.OrderID], m.payments[v.OrderID]
	if o == nil || o.Status != from {
		return ErrStaleOrder
	}
	o.Status = domain.OrderStatusCancelled
	if p != nil && (p.Status == domain.PaymentStatusPending || p.Status == domain.PaymentStatusPendingVerification) {
		p.Status = domain.PaymentStatusRejected
		p.RejectionReason = &v.Reason
		if v.AdminID != "" {
			p.VerifiedBy = &v.AdminID
		}
	}
	m.releaseCoupon(o)
	return nil
}

func (m *memoryRepo) ListAdmin(_ context.Context, f AdminFilter, q httpx.PageQuery) ([]domain.OrderSummary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.OrderSummary
	for id, o := range m.orders {
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		p := m.payments[id]
		if f.PaymentStatus != nil && p.Status != *f.PaymentStatus {
			continue
		}
		out = append(out, domain.OrderSummary{
			Order:         *o,
			CustomerName:  m.customers[o.UserID].Name,
			CustomerEmail: m.customers[o.UserID].Email,
			PaymentMethod: p.Method,
			PaymentStatus: p.Status,
			HasSlip:       p.SlipURL != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := min(q.Offset(), total)
	end := min(start+q.PageSize, total)
	return out[start:end], total, nil
}

func (m *memoryRepo) Detail(_ context.Context, id string) (*domain.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	p := *m.payments[id]
	d := &domain.OrderDetail{
		Order:   *o,
		User:    m.customers[o.UserID],
		Product: domain.ProductInfo{ID: o.ItemID, Type: o.OrderType, Title: o.ItemTitle},
		Payment: &p,
	}
	if o.CouponCode != nil {
		d.Coupon = &domain.CouponInfo{Code: *o.CouponCode, Type: *o.CouponType}
	}
	if s, ok := m.shippings[id]; ok {
		d.Shipping = &domain.Shipping{OrderID: id, ShippingAddress: s, Status: domain.ShippingStatusPending}
	}
	return d, nil
}

func (m *memoryRepo) Customer(_ context.Context, userID string) (*domain.CustomerInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[userID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryRepo) status(t *testing.T, id string) (domain.OrderStatus, domain.PaymentStatus) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	o, p := m.orders[id], m.payments[id]
	if o == nil || p == nil {
		t.Fatalf("order %s not stored", id)
	}
	return o.Status, p.Status
}

type memoryProducts map[string]domain.Product

func (m memoryProducts) FindProduct(_ context.Context, t domain.ItemType, id string) (*domain.Product, error) {
	p, ok := m[string(t)+"/"+id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

type memoryCoupons map[string]domain.Coupon

func (m memoryCoupons) Validate(_ context.Context, req coupons.Request) (*domain.Coupon, *pricing.AppliedCoupon, error) {
	c, ok := m[coupons.NormalizeCode(req.Code)]
	if !ok {
		return nil, nil, coupons.ErrCouponNotFound
	}
	return &c, &pricing.AppliedCoupon{
		Code:     c.Code,
		Name:     c.Name,
		Type:     c.Type,
		Value:    c.Value,
		Discount: pricing.Discount(c, req.Subtotal, req.ShippingFee),
	}, nil
}

type recordingCarts struct {
	mu      sync.Mutex
	cleared []string
}

func (c *recordingCarts) ClearCart(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared = append(c.cleared, userID)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (e *recordingEvents) Publish(_ context.Context, _ string, event any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event.(domain.OrderEvent))
	return nil
}

func (e *recordingEvents) types() []domain.OrderEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.OrderEventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	repo    *memoryRepo
	carts   *recordingCarts
	events  *recordingEvents
	service *Service
}

var (
	customer = auth.Identity{UserID: "user-1", Role: domain.RoleUser}
	stranger = auth.Identity{UserID: "user-2", Role: domain.RoleUser}
	admin    = auth.Identity{UserID: "admin-1", Role: domain.RoleAdmin}
)

func int64Ptr(v int64) *int64 { return &v }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	repo := newMemoryRepo()
	repo.customers[customer.UserID] = domain.CustomerInfo{ID: customer.UserID, Name: "Somchai", Email: "somchai@example.com"}

	products := memoryProducts{
		"course/go-101":  {ID: "go-101", Type: domain.OrderTypeCourse, Title: "Go 101", Price: 1500, DiscountPrice: int64Ptr(990), IsActive: true},
		"ebook/pdf-1":    {ID: "pdf-1", Type: domain.OrderTypeEbook, Title: "Concurrency Notes", Price: 500, IsActive: true},
		"ebook/print-1":  {ID: "print-1", Type: domain.OrderTypeEbook, Title: "Printed Guide", Price: 300, IsPhysical: true, ShippingFee: 50, IsActive: true},
		"course/free-01": {ID: "free-01", Type: domain.OrderTypeCourse, Title: "Intro", Price: 0, IsActive: true},
	}
	couponSet := memoryCoupons{
		"SAVE10":   {ID: "c-1", Code: "SAVE10", Name: "Ten off", Type: domain.CouponTypePercentage, Value: 10, IsActive: true},
		"SHIPFREE": {ID: "c-2", Code: "SHIPFREE", Name: "Free shipping", Type: domain.CouponTypeFreeShipping, IsActive: true},
		"ALL100":   {ID: "c-3", Code: "ALL100", Name: "On the house", Type: domain.CouponTypePercentage, Value: 100, IsActive: true},
	}

	f := &fixture{repo: repo, carts: &recordingCarts{}, events: &recordingEvents{}}
	f.service = NewService(Deps{
		Repo:     repo,
		Products: products,
		Coupons:  couponSet,
		Carts:    f.carts,
		Events:   f.events,
		Metrics:  metrics,
		Bank:     BankAccount{BankName: "KBank", AccountName: "Courseshop Co.", AccountNumber: "123-4-56789-0"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) create(t *testing.T, req CreateRequest) *CreateResult {
	t.Helper()
	res, err := f.service.CreateOrder(context.Background(), customer, req)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return res
}

func (f *fixture) uploadSlip(t *testing.T, orderID string) {
	t.Helper()
	ctx := context.Background()
	o, err := f.service.PrepareSlipUpload(ctx, customer, orderID)
	if err != nil {
		t.Fatalf("prepare slip upload: %v", err)
	}
	if err := f.service.RecordSlip(ctx, *o, "/uploads/slip.png", "/uploads/slip_thumb.png"); err != nil {
		t.Fatalf("record slip: %v", err)
	}
}

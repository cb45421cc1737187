package orders

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/httpx"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

var orderColumnNames = []string{
	"id", "user_id", "order_type", "item_id", "item_title", "status", "subtotal", "shipping_fee",
	"coupon_id", "coupon_code", "coupon_type", "coupon_discount", "total", "created_at", "updated_at",
}

func orderColumns(alias string) string {
	if alias == "" {
		return strings.Join(orderColumnNames, ", ")
	}
	cols := make([]string, len(orderColumnNames))
	for i, c := range orderColumnNames {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func orderDest(o *domain.Order) []any {
	return []any{
		&o.ID, &o.UserID, &o.OrderType, &o.ItemID, &o.ItemTitle, &o.Status, &o.Subtotal, &o.ShippingFee,
		&o.CouponID, &o.CouponCode, &o.CouponType, &o.CouponDiscount, &o.Total, &o.CreatedAt, &o.UpdatedAt,
	}
}

const paymentColumns = `id, order_id, method, status, amount, slip_url, slip_thumbnail_url, ref,
	paid_at, uploaded_at, verified_at, verified_by, rejection_reason, notes, created_at, updated_at`

func scanPayment(row rowScanner, p *domain.Payment) error {
	return row.Scan(
		&p.ID, &p.OrderID, &p.Method, &p.Status, &p.Amount, &p.SlipURL, &p.SlipThumbnailURL, &p.Ref,
		&p.PaidAt, &p.UploadedAt, &p.VerifiedAt, &p.VerifiedBy, &p.RejectionReason, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

// NewOrder is everything written when an order is placed.
type NewOrder struct {
	Order    *domain.Order
	Payment  *domain.Payment
	Shipping *domain.ShippingAddress
}

// Create writes the order, its payment and optional shipping in one
// transaction. A coupon's usage counter is bumped with a guarded update, and
// an order created as COMPLETED gets its entitlement in the same transaction.
func (r *OrderRepository) Create(ctx context.Context, n NewOrder) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	o, p := n.Order, n.Payment
	o.ID = uuid.New().String()
	o.UpdatedAt = o.CreatedAt

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, order_type, item_id, item_title, status, subtotal, shipping_fee,
		                    coupon_id, coupon_code, coupon_type, coupon_discount, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, o.ID, o.UserID, o.OrderType, o.ItemID, o.ItemTitle, o.Status, o.Subtotal, o.ShippingFee,
		o.CouponID, o.CouponCode, o.CouponType, o.CouponDiscount, o.Total, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if o.CouponID != nil {
		err := guardedExec(ctx, tx, coupons.ErrUsageLimitReached, `
			UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
			WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
		`, *o.CouponID)
		if err != nil {
			return err
		}
	}

	p.ID = uuid.New().String()
	p.OrderID = o.ID
	p.CreatedAt, p.UpdatedAt = o.CreatedAt, o.CreatedAt
	ref := PaymentRef(o.ID)
	p.Ref = &ref

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method, status, amount, ref, paid_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, p.ID, p.OrderID, p.Method, p.Status, p.Amount, p.Ref, p.PaidAt, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	if n.Shipping != nil {
		s := n.Shipping
		_, err = tx.ExecContext(ctx, `
			INSERT INTO shippings (order_id, recipient_name, recipient_phone, address, district, province, postal_code, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, o.ID, s.RecipientName, s.RecipientPhone, s.Address, s.District, s.Province, s.PostalCode, domain.ShippingStatusPending)
		if err != nil {
			return fmt.Errorf("insert shipping: %w", err)
		}
	}

	if o.Status == domain.OrderStatusCompleted {
		if _, err := grantEntitlement(ctx, tx, *o); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PaymentRef is the transfer reference shown to the customer.
func PaymentRef(orderID string) string {
	ref := strings.ToUpper(strings.ReplaceAll(orderID, "-", ""))
	if len(ref) > 10 {
		ref = ref[:10]
	}
	return "CS" + ref
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	o := &domain.Order{}
	err := r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns("")+`
		FROM orders
		WHERE id = $1
	`, id).Scan(orderDest(o)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) GetPayment(ctx context.Context, orderID string) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := scanPayment(r.db.QueryRowContext(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1
	`, orderID), p)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns("")+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(orderDest(&o)...); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

func (r *OrderRepository) HasEntitlement(ctx context.Context, userID string, t domain.OrderType, itemID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ebook_access WHERE user_id = $1 AND ebook_id = $2)`
	if t == domain.OrderTypeCourse {
		query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, itemID).Scan(&exists)
	return exists, err
}

// HasOpenOrder reports whether the user already has an unpaid or unverified
// order for the item.
func (r *OrderRepository) HasOpenOrder(ctx context.Context, userID string, t domain.OrderType, itemID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id = $1 AND order_type = $2 AND item_id = $3 AND status IN ($4, $5)
		)
	`, userID, t, itemID, domain.OrderStatusPending, domain.OrderStatusPendingVerification).Scan(&exists)
	return exists, err
}

// MarkSlipUploaded moves a PENDING order and its PENDING bank transfer to
// PENDING_VERIFICATION and records where the slip was stored.
func (r *OrderRepository) MarkSlipUploaded(ctx context.Context, orderID, slipURL, thumbnailURL string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE orders SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3
	`, orderID, domain.OrderStatusPendingVerification, domain.OrderStatusPending, at)
	if err != nil {
		return err
	}

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE payments
		SET status = $2, slip_url = $4, slip_thumbnail_url = $5, uploaded_at = $6, updated_at = $6
		WHERE order_id = $1 AND status = $3 AND method = $7
	`, orderID, domain.PaymentStatusPendingVerification, domain.PaymentStatusPending,
		slipURL, thumbnailURL, at, domain.PaymentMethodBankTransfer)
	if err != nil {
		return err
	}

	return tx.Commit()
}

type Verification struct {
	OrderID string
	AdminID string
	Notes   string
	Reason  string
	At      time.Time
}

// Confirm completes an order awaiting verification and grants the
// entitlement. It returns the enrollment for course orders.
func (r *OrderRepository) Confirm(ctx context.Context, v Verification) (*domain.Enrollment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE payments
		SET status = $2, paid_at = COALESCE(paid_at, $4), verified_at = $4, verified_by = $5,
		    notes = NULLIF($6, ''), updated_at = $4
		WHERE order_id = $1 AND status = $3
	`, v.OrderID, domain.PaymentStatusCompleted, domain.PaymentStatusPendingVerification, v.At, v.AdminID, v.Notes)
	if err != nil {
		return nil, err
	}

	o := &domain.Order{}
	err = tx.QueryRowContext(ctx, `
		UPDATE orders SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns(""),
		v.OrderID, domain.OrderStatusCompleted, domain.OrderStatusPendingVerification, v.At,
	).Scan(orderDest(o)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStaleOrder
		}
		return nil, err
	}

	enrollment, err := grantEntitlement(ctx, tx, *o)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Reject refuses the slip: payment REJECTED with the reason, order CANCELLED
// and the coupon use released.
func (r *OrderRepository) Reject(ctx context.Context, v Verification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE payments
		SET status = $2, rejection_reason = $4, verified_at = $5, verified_by = $6,
		    notes = NULLIF($7, ''), updated_at = $5
		WHERE order_id = $1 AND status = $3
	`, v.OrderID, domain.PaymentStatusRejected, domain.PaymentStatusPendingVerification,
		v.Reason, v.At, v.AdminID, v.Notes)
	if err != nil {
		return err
	}

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE orders SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3
	`, v.OrderID, domain.OrderStatusCancelled, domain.OrderStatusPendingVerification, v.At)
	if err != nil {
		return err
	}

	if err := releaseCoupon(ctx, tx, v.OrderID); err != nil {
		return err
	}

	return tx.Commit()
}

// Cancel moves an order from the given non-terminal status to CANCELLED,
// rejects any payment still open and releases its coupon use. AdminID is
// empty when the customer cancels.
func (r *OrderRepository) Cancel(ctx context.Context, from domain.OrderStatus, v Verification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	err = guardedExec(ctx, tx, ErrStaleOrder, `
		UPDATE orders SET status = $2, updated_at = $4
		WHERE id = $1 AND status = $3
	`, v.OrderID, domain.OrderStatusCancelled, from, v.At)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2, rejection_reason = $5, verified_at = $6, verified_by = NULLIF($7, ''),
		    notes = NULLIF($8, ''), updated_at = $6
		WHERE order_id = $1 AND status IN ($3, $4)
	`, v.OrderID, domain.PaymentStatusRejected, domain.PaymentStatusPending, domain.PaymentStatusPendingVerification,
		v.Reason, v.At, v.AdminID, v.Notes)
	if err != nil {
		return fmt.Errorf("reject open payment: %w", err)
	}

	if err := releaseCoupon(ctx, tx, v.OrderID); err != nil {
		return err
	}

	return tx.Commit()
}

// releaseCoupon gives back the use a cancelled order took from its coupon.
func releaseCoupon(ctx context.Context, tx *sql.Tx, orderID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE coupons SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE id = (SELECT coupon_id FROM orders WHERE id = $1)
	`, orderID)
	if err != nil {
		return fmt.Errorf("release coupon: %w", err)
	}
	return nil
}

func guardedExec(ctx context.Context, tx *sql.Tx, onMiss error, query string, args ...any) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return onMiss
	}
	return nil
}

func grantEntitlement(ctx context.Context, tx *sql.Tx, o domain.Order) (*domain.Enrollment, error) {
	if o.OrderType == domain.OrderTypeCourse {
		e := &domain.Enrollment{}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO enrollments (id, user_id, course_id, order_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, course_id) DO UPDATE SET order_id = enrollments.order_id
			RETURNING id, user_id, course_id, order_id, enrolled_at
		`, uuid.New().String(), o.UserID, o.ItemID, o.ID).Scan(&e.ID, &e.UserID, &e.CourseID, &e.OrderID, &e.EnrolledAt)
		if err != nil {
			return nil, fmt.Errorf("enroll user: %w", err)
		}
		return e, nil
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO ebook_access (id, user_id, ebook_id, order_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, ebook_id) DO NOTHING
	`, uuid.New().String(), o.UserID, o.ItemID, o.ID)
	if err != nil {
		return nil, fmt.Errorf("grant ebook access: %w", err)
	}
	return nil, nil
}

type AdminFilter struct {
	Status        *domain.OrderStatus
	PaymentStatus *domain.PaymentStatus
	OrderType     *domain.OrderType
}

var AdminSortable = map[string]string{
	"createdAt": "o.created_at",
	"updatedAt": "o.updated_at",
	"total":     "o.total",
	"status":    "o.status",
}

// ListAdmin returns one page of orders joined with customer and payment
// data, plus the total matching count.
func (r *OrderRepository) ListAdmin(ctx context.Context, f AdminFilter, q httpx.PageQuery) ([]domain.OrderSummary, int, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("o.status = $%d", *f.Status)
	}
	if f.PaymentStatus != nil {
		add("p.status = $%d", *f.PaymentStatus)
	}
	if f.OrderType != nil {
		add("o.order_type = $%d", *f.OrderType)
	}
	if q.Search != "" {
		add(`(o.id ILIKE $%[1]d ESCAPE '\' OR u.name ILIKE $%[1]d ESCAPE '\' OR u.email ILIKE $%[1]d ESCAPE '\' OR o.item_title ILIKE $%[1]d ESCAPE '\')`,
			q.SearchPattern())
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	from := `
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN payments p ON p.order_id = o.id
	`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.PageSize, q.Offset())
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s, u.name, u.email, p.method, p.status, p.slip_url IS NOT NULL
		%s
		%s
		ORDER BY %s, o.id
		LIMIT $%d OFFSET $%d
	`, orderColumns("o"), from, where, q.OrderBy(), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	summaries := []domain.OrderSummary{}
	for rows.Next() {
		var s domain.OrderSummary
		dest := append(orderDest(&s.Order), &s.CustomerName, &s.CustomerEmail, &s.PaymentMethod, &s.PaymentStatus, &s.HasSlip)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return summaries, total, nil
}

// Detail loads the order graph: customer, product, payment, coupon and
// shipping. It returns nil, nil for an unknown order.
func (r *OrderRepository) Detail(ctx context.Context, id string) (*domain.OrderDetail, error) {
	o, err := r.Get(ctx, id)
	if err != nil || o == nil {
		return nil, err
	}

	d := &domain.OrderDetail{Order: *o}

	err = r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone FROM users WHERE id = $1
	`, o.UserID).Scan(&d.User.ID, &d.User.Name, &d.User.Email, &d.User.Phone)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	d.Product = domain.ProductInfo{ID: o.ItemID, Type: o.OrderType, Title: o.ItemTitle}
	productQuery := `SELECT title, COALESCE(cover_image_url, ''), is_physical FROM ebooks WHERE id = $1`
	if o.OrderType == domain.OrderTypeCourse {
		productQuery = `SELECT title, COALESCE(cover_image_url, ''), FALSE FROM courses WHERE id = $1`
	}
	err = r.db.QueryRowContext(ctx, productQuery, o.ItemID).Scan(&d.Product.Title, &d.Product.CoverImageURL, &d.Product.IsPhysical)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("load product: %w", err)
	}

	if d.Payment, err = r.GetPayment(ctx, o.ID); err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	if o.CouponCode != nil {
		info := &domain.CouponInfo{Code: *o.CouponCode}
		if o.CouponType != nil {
			info.Type = *o.CouponType
		}
		if o.CouponID != nil {
			err := r.db.QueryRowContext(ctx, `
				SELECT name, value FROM coupons WHERE id = $1
			`, *o.CouponID).Scan(&info.Name, &info.Value)
			if err != nil && err != sql.ErrNoRows {
				return nil, fmt.Errorf("load coupon: %w", err)
			}
		}
		d.Coupon = info
	}

	s := &domain.Shipping{}
	err = r.db.QueryRowContext(ctx, `
		SELECT order_id, recipient_name, recipient_phone, address, district, province, postal_code, status, tracking_number
		FROM shippings
		WHERE order_id = $1
	`, o.ID).Scan(&s.OrderID, &s.RecipientName, &s.RecipientPhone, &s.Address, &s.District, &s.Province, &s.PostalCode, &s.Status, &s.TrackingNumber)
	switch {
	case err == nil:
		d.Shipping = s
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("load shipping: %w", err)
	}

	return d, nil
}

// Customer returns the contact details used for notifications.
func (r *OrderRepository) Customer(ctx context.Context, userID string) (*domain.CustomerInfo, error) {
	c := &domain.CustomerInfo{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone FROM users WHERE id = $1
	`, userID).Scan(&c.ID, &c.Name, &c.Email, &c.Phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

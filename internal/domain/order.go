package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending             OrderStatus = "PENDING"
	OrderStatusPendingVerification OrderStatus = "PENDING_VERIFICATION"
	OrderStatusCompleted           OrderStatus = "COMPLETED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(normalize(s)); st {
	case OrderStatusPending, OrderStatusPendingVerification, OrderStatusCompleted, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, func(raw string) error {
		st, err := ParseOrderStatus(raw)
		*s = st
		return err
	})
}

type OrderType string

const (
	OrderTypeEbook  OrderType = "EBOOK"
	OrderTypeCourse OrderType = "COURSE"
)

func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(normalize(s)); t {
	case OrderTypeEbook, OrderTypeCourse:
		return t, nil
	}
	return "", fmt.Errorf("unknown order type %q", s)
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, func(raw string) error {
		ot, err := ParseOrderType(raw)
		*t = ot
		return err
	})
}

// ItemType is the lower-case form used by carts.
func (t OrderType) ItemType() ItemType {
	if t == OrderTypeCourse {
		return ItemTypeCourse
	}
	return ItemTypeEbook
}

type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	OrderType      OrderType   `json:"orderType"`
	ItemID         string      `json:"itemId"`
	ItemTitle      string      `json:"itemTitle"`
	Status         OrderStatus `json:"status"`
	Subtotal       int64       `json:"subtotal"`
	ShippingFee    int64       `json:"shippingFee"`
	CouponID       *string     `json:"-"`
	CouponCode     *string     `json:"couponCode,omitempty"`
	CouponType     *CouponType `json:"couponType,omitempty"`
	CouponDiscount int64       `json:"couponDiscount"`
	Total          int64       `json:"total"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "PENDING"
	ShippingStatusShipped   ShippingStatus = "SHIPPED"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
)

type ShippingAddress struct {
	RecipientName  string `json:"recipientName"`
	RecipientPhone string `json:"recipientPhone"`
	Address        string `json:"address"`
	District       string `json:"district"`
	Province       string `json:"province"`
	PostalCode     string `json:"postalCode"`
}

// MissingFields lists the empty fields of the address by JSON name.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"recipientName", a.RecipientName},
		{"recipientPhone", a.RecipientPhone},
		{"address", a.Address},
		{"district", a.District},
		{"province", a.Province},
		{"postalCode", a.PostalCode},
	} {
		if isBlank(f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type Shipping struct {
	OrderID string `json:"orderId"`
	ShippingAddress
	Status         ShippingStatus `json:"status"`
	TrackingNumber *string        `json:"trackingNumber,omitempty"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	OrderID    string    `json:"orderId"`
	EnrolledAt time.Time `json:"enrolledAt"`
}

type EbookAccess struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EbookID   string    `json:"ebookId"`
	OrderID   string    `json:"orderId"`
	GrantedAt time.Time `json:"grantedAt"`
}

// OrderSummary is one row of the admin order list.
type OrderSummary struct {
	Order
	CustomerName  string        `json:"customerName"`
	CustomerEmail string        `json:"customerEmail"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	HasSlip       bool          `json:"hasSlip"`
}

type CustomerInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ProductInfo struct {
	ID            string    `json:"id"`
	Type          OrderType `json:"type"`
	Title         string    `json:"title"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	IsPhysical    bool      `json:"isPhysical"`
}

type CouponInfo struct {
	Code  string     `json:"code"`
	Name  string     `json:"name"`
	Type  CouponType `json:"type"`
	Value int64      `json:"value"`
}

// OrderDetail is the full order graph shown to admins.
type OrderDetail struct {
	Order    Order        `json:"order"`
	User     CustomerInfo `json:"user"`
	Product  ProductInfo  `json:"product"`
	Payment  *Payment     `json:"payment,omitempty"`
	Coupon   *CouponInfo  `json:"coupon,omitempty"`
	Shipping *Shipping    `json:"shipping,omitempty"`
}

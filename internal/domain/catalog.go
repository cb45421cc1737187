package domain

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Ebook struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	DiscountPrice *int64    `json:"discountPrice,omitempty"`
	IsPhysical    bool      `json:"isPhysical"`
	ShippingFee   int64     `json:"shippingFee"`
	CoverImageURL string    `json:"coverImageUrl"`
	FileURL       string    `json:"fileUrl"`
	CategoryID    *string   `json:"categoryId,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Course struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Instructor    string    `json:"instructor"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	DiscountPrice *int64    `json:"discountPrice,omitempty"`
	CoverImageURL string    `json:"coverImageUrl"`
	CategoryID    *string   `json:"categoryId,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Exam struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"durationMinutes"`
	PassingScore    int       `json:"passingScore"`
	CourseID        *string   `json:"courseId,omitempty"`
	CategoryID      *string   `json:"categoryId,omitempty"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Product is the purchasable view of an ebook or course.
type Product struct {
	ID            string
	Type          OrderType
	Title         string
	Price         int64
	DiscountPrice *int64
	IsPhysical    bool
	ShippingFee   int64
	CoverImageURL string
	IsActive      bool
}

// UnitPrice is the discounted price when one is set.
func (p Product) UnitPrice() int64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

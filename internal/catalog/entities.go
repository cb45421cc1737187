package catalog

import (
	"strings"

	"github.com/joao-fontenele/courseshop/internal/coupons"
	"github.com/joao-fontenele/courseshop/internal/domain"
)

var Categories = Entity[domain.Category]{
	Name:    "category",
	Table:   "categories",
	Columns: []string{"name", "description"},
	Scan: func(c *domain.Category) []any {
		return []any{&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt}
	},
	Values: func(c *domain.Category) []any {
		return []any{c.Name, c.Description}
	},
	Validate: func(c *domain.Category) error {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return domain.Invalid("name is required")
		}
		return nil
	},
	Searchable:  []string{"name", "description"},
	Sortable:    map[string]string{"name": "name", "createdAt": "created_at"},
	DefaultSort: "createdAt",
}

var Ebooks = Entity[domain.Ebook]{
	Name:  "ebook",
	Table: "ebooks",
	Columns: []string{
		"title", "author", "description", "price", "discount_price", "is_physical",
		"shipping_fee", "cover_image_url", "file_url", "category_id", "is_active",
	},
	Scan: func(e *domain.Ebook) []any {
		return []any{
			&e.ID, &e.Title, &e.Author, &e.Description, &e.Price, &e.DiscountPrice, &e.IsPhysical,
			&e.ShippingFee, &e.CoverImageURL, &e.FileURL, &e.CategoryID, &e.IsActive,
			&e.CreatedAt, &e.UpdatedAt,
		}
	},
	Values: func(e *domain.Ebook) []any {
		return []any{
			e.Title, e.Author, e.Description, e.Price, e.DiscountPrice, e.IsPhysical,
			e.ShippingFee, e.CoverImageURL, e.FileURL, e.CategoryID, e.IsActive,
		}
	},
	Validate: func(e *domain.Ebook) error {
		e.Title = strings.TrimSpace(e.Title)
		if e.Title == "" {
			return domain.Invalid("title is required")
		}
		if err := validatePrice(e.Price, e.DiscountPrice); err != nil {
			return err
		}
		if e.ShippingFee < 0 {
			return domain.Invalid("shipping fee must not be negative")
		}
		if !e.IsPhysical {
			e.ShippingFee = 0
		}
		return nil
	},
	Active:      func(e *domain.Ebook) bool { return e.IsActive },
	Searchable:  []string{"title", "author", "description"},
	Sortable:    map[string]string{"title": "title", "price": "price", "createdAt": "created_at"},
	DefaultSort: "createdAt",
}

var Courses = Entity[domain.Course]{
	Name:  "course",
	Table: "courses",
	Columns: []string{
		"title", "instructor", "description", "price", "discount_price",
		"cover_image_url", "category_id", "is_active",
	},
	Scan: func(c *domain.Course) []any {
		return []any{
			&c.ID, &c.Title, &c.Instructor, &c.Description, &c.Price, &c.DiscountPrice,
			&c.CoverImageURL, &c.CategoryID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		}
	},
	Values: func(c *domain.Course) []any {
		return []any{
			c.Title, c.Instructor, c.Description, c.Price, c.DiscountPrice,
			c.CoverImageURL, c.CategoryID, c.IsActive,
		}
	},
	Validate: func(c *domain.Course) error {
		c.Title = strings.TrimSpace(c.Title)
		if c.Title == "" {
			return domain.Invalid("title is required")
		}
		return validatePrice(c.Price, c.DiscountPrice)
	},
	Active:      func(c *domain.Course) bool { return c.IsActive },
	Searchable:  []string{"title", "instructor", "description"},
	Sortable:    map[string]string{"title": "title", "price": "price", "createdAt": "created_at"},
	DefaultSort: "createdAt",
}

var Exams = Entity[domain.Exam]{
	Name:  "exam",
	Table: "exams",
	Columns: []string{
		"title", "description", "duration_minutes", "passing_score", "course_id", "category_id", "is_active",
	},
	Scan: func(e *domain.Exam) []any {
		return []any{
			&e.ID, &e.Title, &e.Description, &e.DurationMinutes, &e.PassingScore,
			&e.CourseID, &e.CategoryID, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
		}
	},
	Values: func(e *domain.Exam) []any {
		return []any{e.Title, e.Description, e.DurationMinutes, e.PassingScore, e.CourseID, e.CategoryID, e.IsActive}
	},
	Validate: func(e *domain.Exam) error {
		e.Title = strings.TrimSpace(e.Title)
		switch {
		case e.Title == "":
			return domain.Invalid("title is required")
		case e.DurationMinutes <= 0:
			return domain.Invalid("duration must be positive")
		case e.PassingScore < 0 || e.PassingScore > 100:
			return domain.Invalid("passing score must be between 0 and 100")
		}
		return nil
	},
	Active:      func(e *domain.Exam) bool { return e.IsActive },
	Searchable:  []string{"title", "description"},
	Sortable:    map[string]string{"title": "title", "createdAt": "created_at"},
	DefaultSort: "createdAt",
}

var Coupons = Entity[domain.Coupon]{
	Name:  "coupon",
	Table: "coupons",
	Columns: []string{
		"code", "name", "type", "value", "min_purchase", "max_discount", "applicable_to",
		"usage_limit", "per_user_limit", "starts_at", "expires_at", "is_active",
	},
	ReadOnly: []string{"used_count"},
	Scan: func(c *domain.Coupon) []any {
		return []any{
			&c.ID, &c.Code, &c.Name, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.ApplicableTo,
			&c.UsageLimit, &c.PerUserLimit, &c.StartsAt, &c.ExpiresAt, &c.IsActive,
			&c.UsedCount, &c.CreatedAt, &c.UpdatedAt,
		}
	},
	Values: func(c *domain.Coupon) []any {
		return []any{
			c.Code, c.Name, c.Type, c.Value, c.MinPurchase, c.MaxDiscount, c.ApplicableTo,
			c.UsageLimit, c.PerUserLimit, c.StartsAt, c.ExpiresAt, c.IsActive,
		}
	},
	Validate:    validateCoupon,
	Searchable:  []string{"code", "name"},
	Sortable:    map[string]string{"code": "code", "createdAt": "created_at", "expiresAt": "expires_at"},
	DefaultSort: "createdAt",
}

func validatePrice(price int64, discount *int64) error {
	if price < 0 {
		return domain.Invalid("price must not be negative")
	}
	if discount != nil && (*discount < 0 || *discount > price) {
		return domain.Invalid("discount price must be between 0 and price")
	}
	return nil
}

func validateCoupon(c *domain.Coupon) error {
	c.Code = coupons.NormalizeCode(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	if c.ApplicableTo == "" {
		c.ApplicableTo = domain.CouponScopeAll
	}

	switch {
	case c.Code == "":
		return domain.Invalid("code is required")
	case c.Name == "":
		return domain.Invalid("name is required")
	case c.MinPurchase < 0:
		return domain.Invalid("minimum purchase must not be negative")
	case c.MaxDiscount != nil && *c.MaxDiscount <= 0:
		return domain.Invalid("max discount must be positive")
	case c.UsageLimit != nil && *c.UsageLimit <= 0:
		return domain.Invalid("usage limit must be positive")
	case c.PerUserLimit != nil && *c.PerUserLimit <= 0:
		return domain.Invalid("per-user limit must be positive")
	case c.StartsAt != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(*c.StartsAt):
		return domain.Invalid("expiry must be after start")
	}

	switch c.ApplicableTo {
	case domain.CouponScopeAll, domain.CouponScopeEbook, domain.CouponScopeCourse:
	default:
		return domain.Invalid("applicableTo must be ALL, EBOOK or COURSE")
	}

	switch c.Type {
	case domain.CouponTypePercentage:
		if c.Value <= 0 || c.Value > 100 {
			return domain.Invalid("percentage must be between 1 and 100")
		}
	case domain.CouponTypeFixedAmount:
		if c.Value <= 0 {
			return domain.Invalid("amount must be positive")
		}
	case domain.CouponTypeFreeShipping:
		c.Value = 0
	default:
		return domain.Invalid("unknown coupon type")
	}
	return nil
}

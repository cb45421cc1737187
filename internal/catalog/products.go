package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

// Products resolves purchasable ebooks and courses.
type Products struct {
	db *sql.DB
}

func NewProducts(db *sql.DB) *Products {
	return &Products{db: db}
}

// FindProduct returns the active ebook or course with the id, or nil, nil.
func (p *Products) FindProduct(ctx context.Context, t domain.ItemType, id string) (*domain.Product, error) {
	var query string
	switch t {
	case domain.ItemTypeEbook:
		query = `
			SELECT id, title, price, discount_price, is_physical, shipping_fee, cover_image_url, is_active
			FROM ebooks
			WHERE id = $1 AND is_active = TRUE
		`
	case domain.ItemTypeCourse:
		query = `
			SELECT id, title, price, discount_price, FALSE, 0, cover_image_url, is_active
			FROM courses
			WHERE id = $1 AND is_active = TRUE
		`
	default:
		return nil, fmt.Errorf("unknown item type %q", t)
	}

	prod := &domain.Product{Type: t.OrderType()}
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&prod.ID, &prod.Title, &prod.Price, &prod.DiscountPrice, &prod.IsPhysical,
		&prod.ShippingFee, &prod.CoverImageURL, &prod.IsActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return prod, nil
}

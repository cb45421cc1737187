package coupons

import (
	"context"
	"database/sql"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, name, type, value, min_purchase, max_discount, applicable_to,
		       usage_limit, per_user_limit, used_count, starts_at, expires_at, is_active,
		       created_at, updated_at
		FROM coupons
		WHERE code = $1
	`, NormalizeCode(code)).Scan(
		&c.ID, &c.Code, &c.Name, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.ApplicableTo,
		&c.UsageLimit, &c.PerUserLimit, &c.UsedCount, &c.StartsAt, &c.ExpiresAt, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// CountUserUses counts the user's orders with this coupon that were not
// cancelled.
func (r *Repository) CountUserUses(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE coupon_id = $1 AND user_id = $2 AND status <> 'CANCELLED'
	`, couponID, userID).Scan(&n)
	return n, err
}

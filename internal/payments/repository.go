package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/joao-fontenele/courseshop/internal/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Get(ctx context.Context, orderID string) (*domain.SlipAnalysis, error) {
	var a domain.SlipAnalysis
	var summary, validation []byte
	var raw []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT order_id, summary, validation, easyslip_result, analyzed_at
		FROM slip_analyses
		WHERE order_id = $1
	`, orderID).Scan(&a.OrderID, &summary, &validation, &raw, &a.AnalyzedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(summary, &a.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(validation, &a.Validation); err != nil {
		return nil, fmt.Errorf("decode validation: %w", err)
	}
	a.EasySlipResult = raw

	return &a, nil
}

// Save keeps only the latest analysis per order.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.SlipAnalysis) error {
	summary, err := json.Marshal(a.Summary)
	if err != nil {
		return err
	}
	validation, err := json.Marshal(a.Validation)
	if err != nil {
		return err
	}
	raw := []byte(a.EasySlipResult)
	if len(raw) == 0 {
		raw = []byte("null")
	}

	var transRef *string
	if a.Summary.TransRef != "" {
		transRef = &a.Summary.TransRef
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO slip_analyses (order_id, trans_ref, summary, validation, easyslip_result, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (order_id) DO UPDATE SET
			trans_ref = EXCLUDED.trans_ref,
			summary = EXCLUDED.summary,
			validation = EXCLUDED.validation,
			easyslip_result = EXCLUDED.easyslip_result,
			analyzed_at = EXCLUDED.analyzed_at
	`, a.OrderID, transRef, summary, validation, raw, a.AnalyzedAt)
	return err
}

// TransRefUsed reports whether another order's slip carried the same bank
// transaction reference.
func (r *AnalysisRepository) TransRefUsed(ctx context.Context, transRef, exceptOrderID string) (bool, error) {
	var used bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slip_analyses WHERE trans_ref = $1 AND order_id <> $2
		)
	`, transRef, exceptOrderID).Scan(&used)
	return used, err
}

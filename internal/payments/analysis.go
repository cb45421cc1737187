package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/courseshop/internal/domain"
	"github.com/joao-fontenele/courseshop/internal/orders"
	"github.com/joao-fontenele/courseshop/internal/telemetry"
)

type OrderReader interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	GetPayment(ctx context.Context, orderID string) (*domain.Payment, error)
}

type SlipVerifier interface {
	Verify(ctx context.Context, filename string, image io.Reader) (*SlipData, json.RawMessage, error)
}

type SlipOpener interface {
	Open(url string) (io.ReadCloser, error)
}

type AnalysisStore interface {
	Get(ctx context.Context, orderID string) (*domain.SlipAnalysis, error)
	Save(ctx context.Context, a *domain.SlipAnalysis) error
	TransRefUsed(ctx context.Context, transRef, exceptOrderID string) (bool, error)
}

// Analyzer runs a slip through EasySlip and checks the result against the
// order. The outcome is advisory: it is stored for the admin and never
// changes order or payment state.
type Analyzer struct {
	orders        OrderReader
	slips         SlipOpener
	verifier      SlipVerifier
	store         AnalysisStore
	accountNumber string
	metrics       *telemetry.Metrics
	now           func() time.Time
	logger        *slog.Logger
}

func NewAnalyzer(orders OrderReader, slips SlipOpener, verifier SlipVerifier, store AnalysisStore, accountNumber string, metrics *telemetry.Metrics, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		orders:        orders,
		slips:         slips,
		verifier:      verifier,
		store:         store,
		accountNumber: accountNumber,
		metrics:       metrics,
		now:           func() time.Time { return time.Now().UTC() },
		logger:        logger,
	}
}

// Latest returns the stored analysis, or nil when none was run yet.
func (a *Analyzer) Latest(ctx context.Context, orderID string) (*domain.SlipAnalysis, error) {
	return a.store.Get(ctx, orderID)
}

func (a *Analyzer) Analyze(ctx context.Context, orderID string) (analysis *domain.SlipAnalysis, err error) {
	defer func() { a.metrics.SlipAnalyzed(ctx, err) }()

	o, err := a.orders.Get(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, orders.ErrOrderNotFound
	}
	p, err := a.orders.GetPayment(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if p == nil || p.SlipURL == nil {
		return nil, ErrNoSlip
	}

	f, err := a.slips.Open(*p.SlipURL)
	if err != nil {
		return nil, fmt.Errorf("open slip: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, raw, err := a.verifier.Verify(ctx, path.Base(*p.SlipURL), f)
	if err != nil {
		return nil, err
	}

	refUsed := false
	if data.TransRef != "" {
		if refUsed, err = a.store.TransRefUsed(ctx, data.TransRef, orderID); err != nil {
			return nil, fmt.Errorf("check transaction reference: %w", err)
		}
	}

	summary, report := Evaluate(*o, *p, *data, a.accountNumber, refUsed)
	analysis = &domain.SlipAnalysis{
		OrderID:        orderID,
		Summary:        summary,
		Validation:     report,
		EasySlipResult: raw,
		AnalyzedAt:     a.now(),
	}

	if err := a.store.Save(ctx, analysis); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	a.logger.Info("slip analyzed", "order_id", orderID, "valid", report.IsValid, "score", summary.ValidationScore)
	return analysis, nil
}

// Evaluate compares what EasySlip read off the slip with the order: amount,
// transfer date, receiving account and reuse of the transaction reference.
func Evaluate(o domain.Order, p domain.Payment, data SlipData, accountNumber string, transRefUsed bool) (domain.SlipSummary, domain.SlipValidationReport) {
	var checks []domain.SlipValidation
	add := func(s domain.ValidationStatus, format string, args ...any) {
		checks = append(checks, domain.SlipValidation{Status: s, Message: fmt.Sprintf(format, args...)})
	}

	summary := domain.SlipSummary{TransRef: data.TransRef}

	expected := decimal.NewFromInt(p.Amount)
	if data.Amount.Amount > 0 {
		amount := data.Amount.Amount
		summary.DetectedAmount = &amount
		detected := decimal.NewFromFloat(amount)
		summary.AmountMatch = detected.Equal(expected)
		if summary.AmountMatch {
			add(domain.ValidationPass, "amount matches %s", expected.StringFixed(2))
		} else {
			add(domain.ValidationFail, "amount %s does not match expected %s", detected.StringFixed(2), expected.StringFixed(2))
		}
	} else {
		add(domain.ValidationFail, "amount could not be read from the slip")
	}

	if !data.Date.IsZero() {
		date := data.Date
		summary.DetectedDate = &date
		if date.Before(o.CreatedAt) {
			add(domain.ValidationFail, "transfer on %s was made before the order was created", date.Format(time.RFC3339))
		} else {
			add(domain.ValidationPass, "transfer date %s is after the order was created", date.Format(time.RFC3339))
		}
	} else {
		add(domain.ValidationWarning, "transfer date could not be read from the slip")
	}

	switch masked := data.Receiver.AccountNumber(); {
	case accountNumber == "":
		add(domain.ValidationWarning, "no receiving account is configured")
	case masked == "":
		add(domain.ValidationWarning, "receiving account could not be read from the slip")
	case !HasVisibleDigits(masked):
		add(domain.ValidationWarning, "receiving account %s is fully masked and cannot be compared", masked)
	case AccountMatches(masked, accountNumber):
		add(domain.ValidationPass, "receiving account %s matches", masked)
	default:
		add(domain.ValidationFail, "receiving account %s does not match the shop account", masked)
	}

	switch {
	case data.TransRef == "":
		add(domain.ValidationWarning, "transaction reference could not be read from the slip")
	case transRefUsed:
		add(domain.ValidationFail, "transaction reference %s was already used for another order", data.TransRef)
	default:
		add(domain.ValidationPass, "transaction reference %s has not been used before", data.TransRef)
	}

	report := domain.SlipValidationReport{IsValid: true, Validations: checks}
	passed := 0
	for _, c := range checks {
		switch c.Status {
		case domain.ValidationFail:
			report.IsValid = false
		case domain.ValidationPass:
			passed++
		}
	}
	summary.ValidationScore = fmt.Sprintf("%d/%d", passed, len(checks))

	return summary, report
}

// AccountMatches compares a masked account such as "xxx-x-x5678-x" with the
// full account number. Only the digits visible in the mask are compared,
// position by position from the right.
func AccountMatches(masked, account string) bool {
	m := []rune(strings.ToLower(digitsAndMask(masked)))
	a := []rune(digitsAndMask(account))
	if len(m) == 0 || len(a) == 0 {
		return false
	}

	visible := 0
	for i, j := len(m)-1, len(a)-1; i >= 0; i, j = i-1, j-1 {
		if m[i] == 'x' || m[i] == '*' {
			continue
		}
		if j < 0 || m[i] != a[j] {
			return false
		}
		visible++
	}
	return visible > 0
}

// HasVisibleDigits reports whether a masked account shows any digit at all.
func HasVisibleDigits(masked string) bool {
	return strings.ContainsAny(masked, "0123456789")
}

func digitsAndMask(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == 'x', r == 'X', r == '*':
			return r
		}
		return -1
	}, s)
}

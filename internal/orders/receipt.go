package orders

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/courseshop/internal/auth"
	"github.com/joao-fontenele/courseshop/internal/domain"
)

// Receipt renders a PDF receipt. Only completed orders have one.
func (s *Service) Receipt(ctx context.Context, caller auth.Identity, id string) ([]byte, error) {
	o, err := s.accessibleOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusCompleted {
		return nil, ErrNotCompleted
	}

	d, err := s.repo.Detail(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("load order detail: %w", err)
	}
	if d == nil {
		return nil, ErrOrderNotFound
	}

	return renderReceipt(d)
}

func money(v int64) string {
	return decimal.NewFromInt(v).StringFixed(2) + " THB"
}

func renderReceipt(d *domain.OrderDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+d.Order.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Receipt", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
	}

	line("Order", d.Order.ID)
	line("Date", d.Order.CreatedAt.Format("2006-01-02 15:04"))
	line("Customer", d.User.Name)
	line("Email", d.User.Email)
	if d.Payment != nil {
		line("Payment", string(d.Payment.Method))
		if d.Payment.PaidAt != nil {
			line("Paid at", d.Payment.PaidAt.Format("2006-01-02 15:04"))
		}
		if d.Payment.Ref != nil {
			line("Reference", *d.Payment.Ref)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(130, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	row := func(label string, amount int64) {
		pdf.CellFormat(130, 7, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, money(amount), "", 1, "R", false, 0, "")
	}

	row(fmt.Sprintf("%s (%s)", d.Product.Title, d.Order.OrderType), d.Order.Subtotal)
	if d.Order.ShippingFee > 0 {
		row("Shipping", d.Order.ShippingFee)
	}
	if d.Order.CouponDiscount > 0 {
		label := "Discount"
		if d.Coupon != nil {
			label = "Discount " + d.Coupon.Code
		}
		row(label, -d.Order.CouponDiscount)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(130, 9, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 9, money(d.Order.Total), "T", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

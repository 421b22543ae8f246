package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tanakrit-dev/backend-pos/internal/money"
	"github.com/tanakrit-dev/backend-pos/internal/store"
)

type receiptStore interface {
	GetTransactionByNumber(ctx context.Context, number string) (store.Transaction, error)
	GetReceiptTemplate(ctx context.Context) (store.ReceiptTemplate, error)
}

// Renderer produces receipts for committed transactions, as plain text for
// thermal printers and as PDF for email or reprint.
type Renderer struct {
	Store     receiptStore
	StoreName string
}

// template falls back to a bare receipt when none was ever configured.
func (r *Renderer) template(ctx context.Context) (store.ReceiptTemplate, error) {
	tpl, err := r.Store.GetReceiptTemplate(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ReceiptTemplate{}, nil
		}
		return store.ReceiptTemplate{}, err
	}
	return tpl, nil
}

// Text renders the receipt as fixed-width text.
func (r *Renderer) Text(ctx context.Context, number string) (string, error) {
	txn, err := r.Store.GetTransactionByNumber(ctx, number)
	if err != nil {
		return "", err
	}
	tpl, err := r.template(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	line := strings.Repeat("-", 32)
	if r.StoreName != "" {
		fmt.Fprintf(&b, "%s\n", r.StoreName)
	}
	if tpl.HeaderText != "" {
		fmt.Fprintf(&b, "%s\n", tpl.HeaderText)
	}
	if tpl.ShowTaxID && tpl.TaxID != "" {
		fmt.Fprintf(&b, "TAX ID %s\n", tpl.TaxID)
	}
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "No. %s\n", txn.Number)
	fmt.Fprintf(&b, "%s\n", txn.CreatedAt.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "%s\n", line)
	for _, item := range txn.Items {
		fmt.Fprintf(&b, "%-20s\n", item.Name)
		fmt.Fprintf(&b, "  %d x %s %14s\n", item.Quantity, money.Format(item.UnitPrice), money.Format(item.Subtotal))
		for _, m := range item.Modifiers {
			fmt.Fprintf(&b, "  + %s\n", m.Name)
		}
	}
	fmt.Fprintf(&b, "%s\n", line)
	fmt.Fprintf(&b, "%-16s %15s\n", "Subtotal", money.Format(txn.Subtotal))
	if txn.Discount > 0 {
		fmt.Fprintf(&b, "%-16s %15s\n", "Discount", "-"+money.Format(txn.Discount))
	}
	fmt.Fprintf(&b, "%-16s %15s\n", "VAT", money.Format(txn.Tax))
	fmt.Fprintf(&b, "%-16s %15s\n", "TOTAL", money.Format(txn.Total))
	fmt.Fprintf(&b, "%-16s %15s\n", strings.ToUpper(txn.PaymentMethod), money.Format(txn.AmountReceived))
	if txn.Change > 0 {
		fmt.Fprintf(&b, "%-16s %15s\n", "Change", money.Format(txn.Change))
	}
	if txn.RedeemedPoints > 0 || txn.EarnedPoints > 0 {
		fmt.Fprintf(&b, "%s\n", line)
		if txn.RedeemedPoints > 0 {
			fmt.Fprintf(&b, "Points redeemed: %d\n", txn.RedeemedPoints)
		}
		if txn.EarnedPoints > 0 {
			fmt.Fprintf(&b, "Points earned: %d\n", txn.EarnedPoints)
		}
	}
	if tpl.FooterText != "" {
		fmt.Fprintf(&b, "%s\n%s\n", line, tpl.FooterText)
	}
	return b.String(), nil
}

// PDF renders the receipt as an A4 PDF, with a PromptPay QR when the
// template enables it.
func (r *Renderer) PDF(ctx context.Context, number string) ([]byte, error) {
	txn, err := r.Store.GetTransactionByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	tpl, err := r.template(ctx)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	title := r.StoreName
	if title == "" {
		title = "Receipt"
	}
	pdf.Cell(0, 10, title)
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	if tpl.HeaderText != "" {
		pdf.Cell(0, 7, tpl.HeaderText)
		pdf.Ln(7)
	}
	if tpl.ShowTaxID && tpl.TaxID != "" {
		pdf.Cell(0, 7, fmt.Sprintf("Tax ID: %s", tpl.TaxID))
		pdf.Ln(7)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Receipt No: %s", txn.Number))
	pdf.Ln(7)
	pdf.Cell(0, 7, txn.CreatedAt.Format("02/01/2006 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, item := range txn.Items {
		name := item.Name
		for _, m := range item.Modifiers {
			name += " +" + m.Name
		}
		pdf.CellFormat(90, 7, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money.Format(item.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money.Format(item.Subtotal), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	writeTotal := func(label, amount string, bold bool) {
		if bold {
			pdf.SetFont("Arial", "B", 11)
		} else {
			pdf.SetFont("Arial", "", 11)
		}
		pdf.CellFormat(145, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, amount, "", 1, "R", false, 0, "")
	}
	writeTotal("Subtotal", money.Format(txn.Subtotal), false)
	if txn.Discount > 0 {
		writeTotal("Discount", "-"+money.Format(txn.Discount), false)
	}
	writeTotal("VAT", money.Format(txn.Tax), false)
	writeTotal("Total", money.Format(txn.Total), true)
	writeTotal(titleCase(txn.PaymentMethod), money.Format(txn.AmountReceived), false)
	if txn.Change > 0 {
		writeTotal("Change", money.Format(txn.Change), false)
	}

	if tpl.ShowQR && tpl.PromptPay != "" {
		payload := fmt.Sprintf("promptpay:%s?amount=%s", tpl.PromptPay, money.Format(txn.Total))
		qrPNG, err := qrcode.Encode(payload, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("promptpay", opts, bytes.NewReader(qrPNG))
		pdf.ImageOptions("promptpay", 85, pdf.GetY()+5, 40, 40, false, opts, 0, "")
	}

	if tpl.FooterText != "" {
		pdf.SetY(-30)
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, tpl.FooterText, "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ReceiptTemplate controls receipt header/footer text and display flags.
type ReceiptTemplate struct {
	HeaderText string `json:"headerText"`
	FooterText string `json:"footerText"`
	ShowTaxID  bool   `json:"showTaxId"`
	ShowQR     bool   `json:"showQr"`
	TaxID      string `json:"taxId,omitempty"`
	PromptPay  string `json:"promptPay,omitempty"`
}

// GetReceiptTemplate loads the single receipt template row. ErrNotFound means
// no template was ever configured; callers fall back to a bare receipt.
func (s *Store) GetReceiptTemplate(ctx context.Context) (ReceiptTemplate, error) {
	var tpl ReceiptTemplate
	err := s.Pool.QueryRow(ctx, `
		SELECT COALESCE(header_text, ''), COALESCE(footer_text, ''),
			show_tax_id, show_qr, COALESCE(tax_id, ''), COALESCE(promptpay, '')
		FROM receipt_templates
		ORDER BY id
		LIMIT 1
	`).Scan(&tpl.HeaderText, &tpl.FooterText, &tpl.ShowTaxID, &tpl.ShowQR,
		&tpl.TaxID, &tpl.PromptPay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReceiptTemplate{}, ErrNotFound
		}
		return ReceiptTemplate{}, err
	}
	return tpl, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tanakrit-dev/backend-pos/internal/cart"
	"github.com/tanakrit-dev/backend-pos/internal/money"
)

// TransactionItem is a line captured at commit time, decoupled from any later
// catalog price change.
type TransactionItem struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice money.Money     `json:"unitPrice"`
	Subtotal  money.Money     `json:"subtotal"`
	Modifiers []cart.Modifier `json:"modifiers,omitempty"`
}

// Transaction is an immutable committed sale.
type Transaction struct {
	ID             int64             `json:"id"`
	Number         string            `json:"transactionNumber"`
	CustomerID     *int64            `json:"customerId,omitempty"`
	Subtotal       money.Money       `json:"subtotal"`
	Discount       money.Money       `json:"discount"`
	Tax            money.Money       `json:"tax"`
	Total          money.Money       `json:"total"`
	PaymentMethod  string            `json:"paymentMethod"`
	AmountReceived money.Money       `json:"amountReceived"`
	Change         money.Money       `json:"change"`
	RedeemedPoints int64             `json:"redeemedPoints"`
	EarnedPoints   int64             `json:"earnedPoints"`
	Items          []TransactionItem `json:"items"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// CommitSale persists the transaction, its items and the customer's loyalty
// point movement in one database transaction. Nothing is written on error.
func (s *Store) CommitSale(ctx context.Context, txn Transaction) (Transaction, error) {
	dbtx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback(ctx)
	}()

	err = dbtx.QueryRow(ctx, `
		INSERT INTO transactions (number, customer_id, subtotal, discount, tax, total,
			payment_method, amount_received, change, redeemed_points, earned_points, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, txn.Number, txn.CustomerID, txn.Subtotal, txn.Discount, txn.Tax, txn.Total,
		txn.PaymentMethod, txn.AmountReceived, txn.Change, txn.RedeemedPoints,
		txn.EarnedPoints, txn.CreatedAt).Scan(&txn.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Transaction{}, fmt.Errorf("transaction number %s: %w", txn.Number, ErrDuplicate)
		}
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	for _, item := range txn.Items {
		modifiers, err := json.Marshal(item.Modifiers)
		if err != nil {
			return Transaction{}, fmt.Errorf("encode modifiers: %w", err)
		}
		if _, err := dbtx.Exec(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, name, quantity,
				unit_price, subtotal, modifiers)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, txn.ID, item.ProductID, item.Name, item.Quantity, item.UnitPrice,
			item.Subtotal, modifiers); err != nil {
			return Transaction{}, fmt.Errorf("insert item: %w", err)
		}
	}

	if txn.CustomerID != nil && (txn.RedeemedPoints > 0 || txn.EarnedPoints > 0) {
		tag, err := dbtx.Exec(ctx, `
			UPDATE customers
			SET loyalty_points = loyalty_points - $2 + $3
			WHERE id = $1 AND loyalty_points >= $2
		`, *txn.CustomerID, txn.RedeemedPoints, txn.EarnedPoints)
		if err != nil {
			return Transaction{}, fmt.Errorf("update loyalty points: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return Transaction{}, fmt.Errorf("customer %d has insufficient points", *txn.CustomerID)
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return Transaction{}, fmt.Errorf("commit sale: %w", err)
	}
	return txn, nil
}

// GetTransactionByNumber loads a committed sale with its items.
func (s *Store) GetTransactionByNumber(ctx context.Context, number string) (Transaction, error) {
	var txn Transaction
	err := s.Pool.QueryRow(ctx, `
		SELECT id, number, customer_id, subtotal, discount, tax, total, payment_method,
			amount_received, change, redeemed_points, earned_points, created_at
		FROM transactions
		WHERE number = $1
	`, number).Scan(&txn.ID, &txn.Number, &txn.CustomerID, &txn.Subtotal, &txn.Discount,
		&txn.Tax, &txn.Total, &txn.PaymentMethod, &txn.AmountReceived, &txn.Change,
		&txn.RedeemedPoints, &txn.EarnedPoints, &txn.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, name, quantity, unit_price, subtotal, modifiers
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY id
	`, txn.ID)
	if err != nil {
		return Transaction{}, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item    TransactionItem
			encoded []byte
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.Subtotal, &encoded); err != nil {
			return Transaction{}, err
		}
		if len(encoded) > 0 {
			if err := json.Unmarshal(encoded, &item.Modifiers); err != nil {
				return Transaction{}, fmt.Errorf("decode modifiers: %w", err)
			}
		}
		txn.Items = append(txn.Items, item)
	}
	return txn, rows.Err()
}

// PaymentBreakdown is one payment method's slice of a daily summary.
type PaymentBreakdown struct {
	Method       string      `json:"method"`
	Transactions int64       `json:"transactions"`
	Total        money.Money `json:"total"`
}

// DailySummary aggregates committed sales for one calendar day.
type DailySummary struct {
	Date         string             `json:"date"`
	Transactions int64              `json:"transactions"`
	Gross        money.Money        `json:"gross"`
	Discount     money.Money        `json:"discount"`
	Tax          money.Money        `json:"tax"`
	Net          money.Money        `json:"net"`
	ByPayment    []PaymentBreakdown `json:"byPayment"`
}

// DailySales aggregates transactions for the day containing the provided
// instant, in that instant's location.
func (s *Store) DailySales(ctx context.Context, day time.Time) (DailySummary, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	summary := DailySummary{Date: start.Format("2006-01-02")}
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(subtotal), 0), COALESCE(SUM(discount), 0),
			COALESCE(SUM(tax), 0), COALESCE(SUM(total), 0)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`, start, end).Scan(&summary.Transactions, &summary.Gross, &summary.Discount,
		&summary.Tax, &summary.Net)
	if err != nil {
		return DailySummary{}, fmt.Errorf("daily totals: %w", err)
	}

	rows, err := s.Pool.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, start, end)
	if err != nil {
		return DailySummary{}, fmt.Errorf("daily breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pb PaymentBreakdown
		if err := rows.Scan(&pb.Method, &pb.Transactions, &pb.Total); err != nil {
			return DailySummary{}, err
		}
		summary.ByPayment = append(summary.ByPayment, pb)
	}
	return summary, rows.Err()
}

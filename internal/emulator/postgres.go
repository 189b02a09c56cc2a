package emulator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexbotov/alqaseh/internal/database"
	"github.com/alexbotov/alqaseh/pkg/alqaseh"
	"github.com/lib/pq"
)

const paymentColumns = `payment_id, transaction_id, order_id, amount, currency, description, redirect_url,
	COALESCE(webhook_url, ''), COALESCE(email, ''), COALESCE(country, ''), transaction_type, status,
	COALESCE(rrn, ''), COALESCE(rc, ''), COALESCE(approval, ''), COALESCE(card_mask, ''), COALESCE(details, ''),
	custom_data, created_at, updated_at`

// PostgresStore persists payments in PostgreSQL
type PostgresStore struct {
	db  *database.DB
	now func() time.Time
}

// NewPostgresStore creates a store over a migrated database
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner) (*Payment, error) {
	var p Payment
	var customData []byte
	err := row.Scan(
		&p.PaymentID, &p.TransactionID, &p.OrderID, &p.Amount, &p.Currency, &p.Description, &p.RedirectURL,
		&p.WebhookURL, &p.Email, &p.Country, &p.TransactionType, &p.Status,
		&p.RRN, &p.RC, &p.Approval, &p.CardMask, &p.Details,
		&customData, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if len(customData) > 0 {
		if err := json.Unmarshal(customData, &p.CustomData); err != nil {
			return nil, fmt.Errorf("failed to decode custom data: %w", err)
		}
	}
	return &p, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *PostgresStore) Create(ctx context.Context, p *Payment) error {
	var customData []byte
	if p.CustomData != nil {
		b, err := json.Marshal(p.CustomData)
		if err != nil {
			return fmt.Errorf("failed to encode custom data: %w", err)
		}
		customData = b
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (payment_id, transaction_id, order_id, amount, currency, description, redirect_url,
			webhook_url, email, country, transaction_type, status, rrn, rc, approval, card_mask, details,
			custom_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`, p.PaymentID, p.TransactionID, p.OrderID, p.Amount, p.Currency, p.Description, p.RedirectURL,
		nullable(p.WebhookURL), nullable(p.Email), nullable(p.Country), p.TransactionType, p.Status,
		nullable(p.RRN), nullable(p.RC), nullable(p.Approval), nullable(p.CardMask), nullable(p.Details),
		customData, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, paymentID string) (*Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID)
	return scanPayment(row)
}

func (s *PostgresStore) GetByTransaction(ctx context.Context, transactionID string) (*Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID)
	return scanPayment(row)
}

func (s *PostgresStore) Transition(ctx context.Context, paymentID string, from []alqaseh.PaymentStatus, fn func(*Payment)) (*Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPayment(tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1 FOR UPDATE`, paymentID))
	if err != nil {
		return nil, err
	}
	if !allowed(p.Status, from) {
		return p, ErrInvalidTransition
	}

	fn(p)
	p.UpdatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, rrn = $2, rc = $3, approval = $4, card_mask = $5, details = $6, updated_at = $7
		WHERE payment_id = $8
	`, p.Status, nullable(p.RRN), nullable(p.RC), nullable(p.Approval), nullable(p.CardMask),
		nullable(p.Details), p.UpdatedAt, p.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Payment, int, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Amount != nil {
		add("amount = $%d", *f.Amount)
	}
	if f.Approval != "" {
		add("approval = $%d", f.Approval)
	}
	if f.Currency != "" {
		add("UPPER(currency) = UPPER($%d)", f.Currency)
	}
	if f.OrderID != "" {
		add("order_id = $%d", f.OrderID)
	}
	if f.PaymentID != "" {
		add("payment_id = $%d", f.PaymentID)
	}
	if f.RC != "" {
		add("rc = $%d", f.RC)
	}
	if f.RRN != "" {
		add("rrn = $%d", f.RRN)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.TransactionType != "" {
		add("transaction_type = $%d", f.TransactionType)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	direction := "DESC"
	if f.OrderBy == alqaseh.SortAsc {
		direction = "ASC"
	}
	query := `SELECT ` + paymentColumns + ` FROM payments` + where +
		fmt.Sprintf(" ORDER BY %s %s OFFSET %d", f.sortField(), direction, f.Offset)
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

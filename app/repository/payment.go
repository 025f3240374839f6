package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, transaction_id, amount, item_name, payer_phone, memo,
	status, source, metadata_json, processed_at, raw_response, created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Upsert inserts or updates the attempt keyed by transaction id in one
// statement. The conflict arm refuses to move a terminal status anywhere,
// so a duplicate webhook delivery or an out-of-order manual check can run
// the same upsert again without effect on the state machine.
func (r *PaymentRepository) Upsert(ctx context.Context, payment *entity.PaymentAttempt) error {
	metadataJSON, err := serializeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			transaction_id, amount, item_name, payer_phone, memo,
			status, source, metadata_json, raw_response, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO UPDATE SET
			status = CASE
				WHEN payments.status IN ('completed', 'failed') THEN payments.status
				ELSE excluded.status
			END,
			source = CASE
				WHEN payments.status IN ('completed', 'failed') THEN payments.source
				ELSE excluded.source
			END,
			raw_response = CASE
				WHEN excluded.raw_response != '' THEN excluded.raw_response
				ELSE payments.raw_response
			END,
			updated_at = excluded.updated_at
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.TransactionID,
		payment.Amount,
		payment.ItemName,
		payment.PayerPhone,
		payment.Memo,
		payment.Status,
		payment.Source,
		metadataJSON,
		payment.RawResponse,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if id, err := result.LastInsertId(); err == nil && payment.ID == 0 {
		payment.ID = uint64(id)
	}
	return nil
}

func (r *PaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = ?`

	payment := &entity.PaymentAttempt{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, transactionID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

// MarkProcessed atomically claims the side-effect dispatch for one
// transaction. The WHERE clause is the whole mutual-exclusion story: the
// first caller flips processed_at and gets true, everyone else gets false.
func (r *PaymentRepository) MarkProcessed(ctx context.Context, transactionID string, now time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET processed_at = ?, updated_at = ?
		WHERE transaction_id = ? AND processed_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, now, now, transactionID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *PaymentRepository) ListPending(ctx context.Context, limit int32) ([]*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.queryPayments(ctx, query, limit)
}

func (r *PaymentRepository) ListUnprocessedCompleted(ctx context.Context, limit int32) ([]*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'completed' AND processed_at IS NULL
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.queryPayments(ctx, query, limit)
}

func (r *PaymentRepository) List(ctx context.Context, status string, limit, offset int32) ([]*entity.PaymentAttempt, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments`
	args := make([]interface{}, 0, 3)

	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return r.queryPayments(ctx, query, args...)
}

// DeleteAll is the administrative reset path; nothing else removes rows.
func (r *PaymentRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM payments`)
	return err
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...interface{}) ([]*entity.PaymentAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.PaymentAttempt, 0)
	for rows.Next() {
		item := &entity.PaymentAttempt{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.PaymentAttempt) error {
	var metadataJSON string
	var processedAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.TransactionID,
		&payment.Amount,
		&payment.ItemName,
		&payment.PayerPhone,
		&payment.Memo,
		&payment.Status,
		&payment.Source,
		&metadataJSON,
		&processedAt,
		&payment.RawResponse,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.ProcessedAt = timePtrFromNull(processedAt)

	metadata, err := parseMetadata(metadataJSON)
	if err != nil {
		return err
	}
	payment.Metadata = metadata

	return nil
}

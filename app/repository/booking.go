package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
)

type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateWithAudience persists the audience row and its booking in one
// transaction so a crash cannot leave a booking without its attendee.
func (r *BookingRepository) CreateWithAudience(ctx context.Context, audience *entity.Audience, booking *entity.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	audience.CreatedAt = now
	audience.UpdatedAt = now

	result, err := tx.ExecContext(ctx, `
		INSERT INTO audience_info (name, phone, bus_service, bus_details, privacy_agreement, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		audience.Name,
		audience.Phone,
		audience.BusService,
		nullableStringValue(audience.BusDetails),
		audience.PrivacyAgreement,
		audience.CreatedAt,
		audience.UpdatedAt,
	)
	if err != nil {
		return err
	}
	audienceID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	audience.ID = uint64(audienceID)

	booking.AudienceID = audience.ID
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.BookingStatus == "" {
		booking.BookingStatus = entity.BookingStatusConfirmed
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO booking_info (
			audience_id, prop_id, prop_name, payment_amount, transaction_id,
			booking_status, processed, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		booking.AudienceID,
		booking.PropID,
		booking.PropName,
		booking.PaymentAmount,
		nullableStringValue(booking.TransactionID),
		booking.BookingStatus,
		booking.Processed,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return err
	}
	bookingID, err := result.LastInsertId()
	if err != nil {
		return err
	}
	booking.ID = uint64(bookingID)

	return tx.Commit()
}

type BookingQuery struct {
	Phone string
	Name  string
}

type BookingWithAudience struct {
	AudienceID    uint64  `json:"audience_id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	BusService    bool    `json:"bus_service"`
	BusDetails    *string `json:"bus_details,omitempty"`
	PropName      string  `json:"prop_name"`
	BookingStatus string  `json:"booking_status"`
	BookingDate   string  `json:"booking_date"`
}

func (r *BookingRepository) Find(ctx context.Context, q BookingQuery) ([]*BookingWithAudience, error) {
	query := `
		SELECT ai.id, ai.name, ai.phone, ai.bus_service, ai.bus_details,
			bi.prop_name, bi.booking_status, bi.created_at
		FROM audience_info ai
		JOIN booking_info bi ON bi.audience_id = ai.id
	`

	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if strings.TrimSpace(q.Phone) != "" {
		conditions = append(conditions, "ai.phone = ?")
		args = append(args, strings.TrimSpace(q.Phone))
	}
	if strings.TrimSpace(q.Name) != "" {
		conditions = append(conditions, "ai.name = ?")
		args = append(args, strings.TrimSpace(q.Name))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY bi.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*BookingWithAudience, 0)
	for rows.Next() {
		item := &BookingWithAudience{}
		var busDetails sql.NullString
		var bookingDate time.Time
		if err := rows.Scan(
			&item.AudienceID,
			&item.Name,
			&item.Phone,
			&item.BusService,
			&busDetails,
			&item.PropName,
			&item.BookingStatus,
			&bookingDate,
		); err != nil {
			return nil, err
		}
		item.BusDetails = stringPtrFromNull(busDetails)
		item.BookingDate = bookingDate.UTC().Format(time.RFC3339)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *BookingRepository) FindByTransactionID(ctx context.Context, transactionID string) (*entity.Booking, error) {
	query := `
		SELECT id, audience_id, prop_id, prop_name, payment_amount, transaction_id,
			booking_status, processed, created_at, updated_at
		FROM booking_info
		WHERE transaction_id = ?
		LIMIT 1
	`

	booking := &entity.Booking{}
	var txnID sql.NullString
	err := r.db.QueryRowContext(ctx, query, transactionID).Scan(
		&booking.ID,
		&booking.AudienceID,
		&booking.PropID,
		&booking.PropName,
		&booking.PaymentAmount,
		&txnID,
		&booking.BookingStatus,
		&booking.Processed,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	booking.TransactionID = stringPtrFromNull(txnID)

	return booking, nil
}

// Reset wipes booking and audience rows; used by the admin reset endpoint.
func (r *BookingRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM booking_info`,
		`DELETE FROM audience_info`,
		`DELETE FROM sqlite_sequence WHERE name IN ('audience_info', 'booking_info')`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

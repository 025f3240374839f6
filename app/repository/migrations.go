package repository

import "database/sql"

func RunMigrations(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL UNIQUE,
			amount INTEGER NOT NULL,
			item_name TEXT NOT NULL,
			payer_phone TEXT NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			source TEXT NOT NULL DEFAULT 'api_call',
			metadata_json TEXT NOT NULL DEFAULT '{}',
			processed_at DATETIME,
			raw_response TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_payments_status ON payments(status);`,

		`CREATE TABLE IF NOT EXISTS audience_info (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			phone TEXT NOT NULL,
			bus_service INTEGER NOT NULL DEFAULT 0,
			bus_details TEXT,
			privacy_agreement INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS booking_info (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			audience_id INTEGER NOT NULL REFERENCES audience_info(id),
			prop_id INTEGER NOT NULL,
			prop_name TEXT NOT NULL,
			payment_amount INTEGER NOT NULL,
			transaction_id TEXT,
			booking_status TEXT NOT NULL DEFAULT 'confirmed',
			processed INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_booking_transaction ON booking_info(transaction_id);`,

		`CREATE TABLE IF NOT EXISTS payment_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transaction_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			old_status TEXT,
			new_status TEXT NOT NULL,
			payload_json TEXT,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_payment_events_txn ON payment_events(transaction_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

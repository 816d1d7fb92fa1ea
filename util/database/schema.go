package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Bootstrap creates the schema when missing. Counter invariants are also
// enforced at the database as a last line of defense; the ledger is still
// the only writer of textbook counters.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		first_name    TEXT NOT NULL,
		last_name     TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		username      TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL DEFAULT 'clerk',
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id           BIGSERIAL PRIMARY KEY,
		admission_no TEXT NOT NULL UNIQUE,
		first_name   TEXT NOT NULL,
		last_name    TEXT NOT NULL DEFAULT '',
		class_name   TEXT NOT NULL DEFAULT '',
		section      TEXT NOT NULL DEFAULT '',
		branch_id    BIGINT NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS textbooks (
		id            BIGSERIAL PRIMARY KEY,
		branch_id     BIGINT NOT NULL,
		academic_year TEXT NOT NULL,
		book_code     TEXT NOT NULL,
		title         TEXT NOT NULL,
		subject       TEXT NOT NULL DEFAULT '',
		publisher     TEXT NOT NULL DEFAULT '',
		unit_price    NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_qty     BIGINT NOT NULL DEFAULT 0,
		available_qty BIGINT NOT NULL DEFAULT 0,
		UNIQUE (branch_id, academic_year, book_code),
		CHECK (available_qty >= 0),
		CHECK (available_qty <= total_qty)
	)`,
	`CREATE TABLE IF NOT EXISTS indents (
		id              BIGSERIAL PRIMARY KEY,
		student_id      BIGINT NOT NULL,
		student_name    TEXT NOT NULL,
		admission_no    TEXT NOT NULL,
		class_name      TEXT NOT NULL DEFAULT '',
		branch_id       BIGINT NOT NULL,
		academic_year   TEXT NOT NULL,
		total_amount    NUMERIC(12,2) NOT NULL DEFAULT 0,
		paid_amount     NUMERIC(12,2) NOT NULL DEFAULT 0,
		balance_amount  NUMERIC(12,2) NOT NULL DEFAULT 0,
		payment_method  TEXT NOT NULL DEFAULT 'CASH',
		payment_status  TEXT NOT NULL DEFAULT 'PENDING',
		status          TEXT NOT NULL DEFAULT 'PENDING',
		issue_date      TIMESTAMPTZ,
		expected_return TIMESTAMPTZ,
		remarks         TEXT NOT NULL DEFAULT '',
		cancel_reason   TEXT NOT NULL DEFAULT '',
		cancelled_at    TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS indent_items (
		id              BIGSERIAL PRIMARY KEY,
		indent_id       BIGINT NOT NULL REFERENCES indents(id),
		textbook_id     BIGINT NOT NULL REFERENCES textbooks(id),
		book_code       TEXT NOT NULL,
		title           TEXT NOT NULL,
		unit_price      NUMERIC(12,2) NOT NULL,
		quantity        BIGINT NOT NULL,
		returned_qty    BIGINT NOT NULL DEFAULT 0,
		written_off_qty BIGINT NOT NULL DEFAULT 0,
		condition       TEXT NOT NULL DEFAULT 'GOOD',
		CHECK (quantity > 0),
		CHECK (returned_qty >= 0),
		CHECK (returned_qty <= quantity)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_indents_student ON indents (student_id)`,
	`CREATE INDEX IF NOT EXISTS idx_indent_items_indent ON indent_items (indent_id)`,
}

func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrapping schema: %w", err)
		}
	}
	return nil
}

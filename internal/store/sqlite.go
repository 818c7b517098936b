package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"limitswap/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	wallet_name      TEXT NOT NULL,
	wallet_address   TEXT NOT NULL,
	direction        TEXT NOT NULL,
	amount           REAL NOT NULL,
	trigger_price    REAL NOT NULL,
	price_at_creation REAL NOT NULL,
	expected_output  REAL NOT NULL,
	status           TEXT NOT NULL,
	linked_order_id  INTEGER NOT NULL DEFAULT 0,
	profit_target    REAL NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	executed_at      TEXT NOT NULL DEFAULT '',
	cancelled_at     TEXT NOT NULL DEFAULT '',
	execution_price  REAL NOT NULL DEFAULT 0,
	actual_output    REAL NOT NULL DEFAULT 0,
	tx_ref           TEXT NOT NULL DEFAULT '',
	route            TEXT NOT NULL DEFAULT '',
	cancel_reason    TEXT NOT NULL DEFAULT '',
	last_error       TEXT NOT NULL DEFAULT '',
	last_attempt_at  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
`

const orderColumns = `id, wallet_name, wallet_address, direction, amount,
	trigger_price, price_at_creation, expected_output, status, linked_order_id,
	profit_target, created_at, executed_at, cancelled_at, execution_price,
	actual_output, tx_ref, route, cancel_reason, last_error, last_attempt_at`

// SQLiteStore implements Store backed by a SQLite database. AUTOINCREMENT
// keeps ids strictly increasing even after deletion or rollback.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Single writer; the engine serializes mutations anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts the order and sets o.ID from the assigned rowid.
func (s *SQLiteStore) Create(ctx context.Context, o *domain.Order) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO orders (
		wallet_name, wallet_address, direction, amount, trigger_price,
		price_at_creation, expected_output, status, linked_order_id,
		profit_target, created_at, executed_at, cancelled_at, execution_price,
		actual_output, tx_ref, route, cancel_reason, last_error, last_attempt_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.WalletName, o.WalletAddress, string(o.Direction), o.Amount,
		o.TriggerPrice, o.PriceAtCreation, o.ExpectedOutput, string(o.Status),
		o.LinkedOrderID, o.ProfitTarget, encodeTime(o.CreatedAt),
		encodeTime(o.ExecutedAt), encodeTime(o.CancelledAt), o.ExecutionPrice,
		o.ActualOutput, o.TxRef, o.RouteUsed, o.CancelReason, o.LastError,
		encodeTime(o.LastAttemptAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	o.ID = id
	return nil
}

// Get retrieves a single order by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// List returns all orders sorted by id.
func (s *SQLiteStore) List(ctx context.Context) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListByStatus returns all orders in the given status sorted by id.
func (s *SQLiteStore) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY id`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// Mutate runs fn inside a database transaction.
func (s *SQLiteStore) Mutate(ctx context.Context, fn func(Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txn := &sqliteTxn{ctx: ctx, tx: tx}
	if err := fn(txn); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// sqliteTxn adapts a sql.Tx to the Txn interface.
type sqliteTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqliteTxn) Get(id int64) (*domain.Order, error) {
	row := t.tx.QueryRowContext(t.ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func (t *sqliteTxn) Put(o *domain.Order) error {
	_, err := t.tx.ExecContext(t.ctx, `UPDATE orders SET
		wallet_name = ?, wallet_address = ?, direction = ?, amount = ?,
		trigger_price = ?, price_at_creation = ?, expected_output = ?,
		status = ?, linked_order_id = ?, profit_target = ?, created_at = ?,
		executed_at = ?, cancelled_at = ?, execution_price = ?,
		actual_output = ?, tx_ref = ?, route = ?, cancel_reason = ?,
		last_error = ?, last_attempt_at = ?
	WHERE id = ?`,
		o.WalletName, o.WalletAddress, string(o.Direction), o.Amount,
		o.TriggerPrice, o.PriceAtCreation, o.ExpectedOutput, string(o.Status),
		o.LinkedOrderID, o.ProfitTarget, encodeTime(o.CreatedAt),
		encodeTime(o.ExecutedAt), encodeTime(o.CancelledAt), o.ExecutionPrice,
		o.ActualOutput, o.TxRef, o.RouteUsed, o.CancelReason, o.LastError,
		encodeTime(o.LastAttemptAt), o.ID)
	return err
}

func (t *sqliteTxn) All() ([]*domain.Order, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ---------------------------------------------------------------------------
// Row scanning
// ---------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var direction, status string
	var createdAt, executedAt, cancelledAt, lastAttemptAt string

	err := row.Scan(&o.ID, &o.WalletName, &o.WalletAddress, &direction,
		&o.Amount, &o.TriggerPrice, &o.PriceAtCreation, &o.ExpectedOutput,
		&status, &o.LinkedOrderID, &o.ProfitTarget, &createdAt, &executedAt,
		&cancelledAt, &o.ExecutionPrice, &o.ActualOutput, &o.TxRef,
		&o.RouteUsed, &o.CancelReason, &o.LastError, &lastAttemptAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	o.Direction = domain.Direction(direction)
	o.Status = domain.Status(status)
	if o.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if o.ExecutedAt, err = decodeTime(executedAt); err != nil {
		return nil, err
	}
	if o.CancelledAt, err = decodeTime(cancelledAt); err != nil {
		return nil, err
	}
	if o.LastAttemptAt, err = decodeTime(lastAttemptAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*domain.Order, error) {
	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// encodeTime renders t as RFC3339Nano, or "" for the zero time.
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

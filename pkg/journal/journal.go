// Package journal persists the trading session's order and execution history
// to SQLite for post-session reconciliation.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    client_id INTEGER NOT NULL,
    server_version INTEGER NOT NULL,
    accounts TEXT,
    started_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    order_id INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    exchange TEXT,
    action TEXT NOT NULL,
    order_type TEXT NOT NULL,
    quantity REAL NOT NULL,
    limit_price REAL,
    status TEXT NOT NULL DEFAULT 'submitted',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(session_id) REFERENCES sessions(id)
);

CREATE TABLE IF NOT EXISTS executions (
    execution_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    order_id INTEGER NOT NULL,
    symbol TEXT,
    side TEXT NOT NULL,
    shares REAL NOT NULL,
    price REAL NOT NULL,
    commission REAL,
    executed_at TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id);
CREATE INDEX IF NOT EXISTS idx_executions_order ON executions(order_id);
`

// Journal wraps the SQL handle. A nil *Journal is valid and records nothing,
// so callers never branch on whether journaling is configured.
type Journal struct {
	db        *sql.DB
	sessionID string
}

// Open creates or opens the journal database at path and starts a new
// session row. Returns nil (journaling disabled) when path is empty.
func Open(path string, clientID, serverVersion int, accounts string) (*Journal, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	j := &Journal{db: db, sessionID: uuid.NewString()}
	if _, err := db.Exec(
		`INSERT INTO sessions (id, client_id, server_version, accounts) VALUES (?, ?, ?, ?)`,
		j.sessionID, clientID, serverVersion, accounts,
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("record session: %w", err)
	}
	return j, nil
}

// SessionID returns the id of the current session row.
func (j *Journal) SessionID() string {
	if j == nil {
		return ""
	}
	return j.sessionID
}

// RecordOrder journals an order submission.
func (j *Journal) RecordOrder(orderID int, symbol, exchange, action, orderType string, quantity, limitPrice float64) error {
	if j == nil {
		return nil
	}
	_, err := j.db.Exec(`
		INSERT INTO orders (session_id, order_id, symbol, exchange, action, order_type, quantity, limit_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.sessionID, orderID, symbol, exchange, action, orderType, quantity, limitPrice)
	if err != nil {
		return fmt.Errorf("record order: %w", err)
	}
	return nil
}

// UpdateOrderStatus updates the latest known status of a journaled order.
func (j *Journal) UpdateOrderStatus(orderID int, status string) error {
	if j == nil {
		return nil
	}
	_, err := j.db.Exec(`
		UPDATE orders SET status = ? WHERE session_id = ? AND order_id = ?
	`, status, j.sessionID, orderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// RecordExecution journals a fill. Replays of the same execution id are
// idempotent.
func (j *Journal) RecordExecution(executionID string, orderID int, symbol, side string, shares, price float64, executedAt string) error {
	if j == nil {
		return nil
	}
	if executionID == "" {
		return errors.New("execution id is empty")
	}
	_, err := j.db.Exec(`
		INSERT INTO executions (execution_id, session_id, order_id, symbol, side, shares, price, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO NOTHING
	`, executionID, j.sessionID, orderID, symbol, side, shares, price, executedAt)
	if err != nil {
		return fmt.Errorf("record execution: %w", err)
	}
	return nil
}

// RecordCommission attaches a commission amount to a journaled execution.
func (j *Journal) RecordCommission(executionID string, commission float64) error {
	if j == nil {
		return nil
	}
	_, err := j.db.Exec(`
		UPDATE executions SET commission = ? WHERE execution_id = ?
	`, commission, executionID)
	if err != nil {
		return fmt.Errorf("record commission: %w", err)
	}
	return nil
}

// OrderRow is one journaled order.
type OrderRow struct {
	OrderID    int
	Symbol     string
	Action     string
	OrderType  string
	Quantity   float64
	LimitPrice float64
	Status     string
}

// SessionOrders returns the orders journaled for the current session, newest
// first.
func (j *Journal) SessionOrders() ([]OrderRow, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(`
		SELECT order_id, symbol, action, order_type, quantity, COALESCE(limit_price, 0), status
		FROM orders
		WHERE session_id = ?
		ORDER BY created_at DESC, id DESC
	`, j.sessionID)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var r OrderRow
		if err := rows.Scan(&r.OrderID, &r.Symbol, &r.Action, &r.OrderType, &r.Quantity, &r.LimitPrice, &r.Status); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExecutionRow is one journaled fill.
type ExecutionRow struct {
	ExecutionID string
	OrderID     int
	Symbol      string
	Side        string
	Shares      float64
	Price       float64
	Commission  float64
}

// OrderExecutions returns the fills journaled for one order.
func (j *Journal) OrderExecutions(orderID int) ([]ExecutionRow, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(`
		SELECT execution_id, order_id, COALESCE(symbol, ''), side, shares, price, COALESCE(commission, 0)
		FROM executions
		WHERE session_id = ? AND order_id = ?
		ORDER BY created_at
	`, j.sessionID, orderID)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionRow
	for rows.Next() {
		var r ExecutionRow
		if err := rows.Scan(&r.ExecutionID, &r.OrderID, &r.Symbol, &r.Side, &r.Shares, &r.Price, &r.Commission); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying DB handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

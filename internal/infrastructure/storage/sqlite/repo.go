package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS order_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  batch_id INTEGER NOT NULL,
  symbol TEXT NOT NULL,
  action TEXT NOT NULL,
  success INTEGER NOT NULL,
  order_id INTEGER,
  executed_price REAL,
  executed_amount REAL,
  margin_used REAL,
  leverage INTEGER,
  error TEXT,
  stop_loss_order_id INTEGER,
  take_profit_order_id INTEGER,
  ts_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_symbol ON order_results(symbol);
CREATE INDEX IF NOT EXISTS idx_results_batch ON order_results(batch_id);
CREATE INDEX IF NOT EXISTS idx_results_ts ON order_results(ts_ms);
`)
	return err
}

func (r *Repo) SaveOrderResult(ctx context.Context, batchID int64, result model.OrderResult) error {
	success := 0
	if result.Success {
		success = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_results(
			batch_id, symbol, action, success, order_id,
			executed_price, executed_amount, margin_used, leverage, error,
			stop_loss_order_id, take_profit_order_id, ts_ms, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, batchID, result.Symbol, string(result.Action), success, result.OrderID,
		result.ExecutedPrice, result.ExecutedAmount, result.MarginUsed, result.Leverage, result.Error,
		result.StopLossOrderID, result.TakeProfitOrderID, result.Ts, result.Ts)
	return err
}

func (r *Repo) ListRecentResults(ctx context.Context, limit int) ([]model.OrderResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, action, success, order_id, executed_price, executed_amount,
		       margin_used, leverage, error, stop_loss_order_id, take_profit_order_id, ts_ms
		FROM order_results ORDER BY ts_ms DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.OrderResult
	for rows.Next() {
		var res model.OrderResult
		var action string
		var success int
		if err := rows.Scan(&res.Symbol, &action, &success, &res.OrderID,
			&res.ExecutedPrice, &res.ExecutedAmount, &res.MarginUsed, &res.Leverage,
			&res.Error, &res.StopLossOrderID, &res.TakeProfitOrderID, &res.Ts); err != nil {
			return nil, err
		}
		res.Action = model.Action(action)
		res.Success = success == 1
		results = append(results, res)
	}
	return results, rows.Err()
}

var _ port.Repository = (*Repo)(nil)

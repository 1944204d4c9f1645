package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  id BIGSERIAL PRIMARY KEY,
  batch_id BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  action TEXT NOT NULL,
  success BOOLEAN NOT NULL,
  order_id BIGINT,
  executed_price DOUBLE PRECISION,
  executed_amount DOUBLE PRECISION,
  margin_used DOUBLE PRECISION,
  leverage INT,
  error TEXT,
  stop_loss_order_id BIGINT,
  take_profit_order_id BIGINT,
  ts_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_symbol ON order_results(symbol);
CREATE INDEX IF NOT EXISTS idx_results_ts ON order_results(ts_ms);
`)
	return err
}

func (r *Repo) SaveOrderResult(ctx context.Context, batchID int64, result model.OrderResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_results(
			batch_id, symbol, action, success, order_id,
			executed_price, executed_amount, margin_used, leverage, error,
			stop_loss_order_id, take_profit_order_id, ts_ms)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, batchID, result.Symbol, string(result.Action), result.Success, result.OrderID,
		result.ExecutedPrice, result.ExecutedAmount, result.MarginUsed, result.Leverage, result.Error,
		result.StopLossOrderID, result.TakeProfitOrderID, result.Ts)
	return err
}

func (r *Repo) ListRecentResults(ctx context.Context, limit int) ([]model.OrderResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, action, success, order_id, executed_price, executed_amount,
		       margin_used, leverage, error, stop_loss_order_id, take_profit_order_id, ts_ms
		FROM order_results ORDER BY ts_ms DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.OrderResult
	for rows.Next() {
		var res model.OrderResult
		var action string
		if err := rows.Scan(&res.Symbol, &action, &res.Success, &res.OrderID,
			&res.ExecutedPrice, &res.ExecutedAmount, &res.MarginUsed, &res.Leverage,
			&res.Error, &res.StopLossOrderID, &res.TakeProfitOrderID, &res.Ts); err != nil {
			return nil, err
		}
		res.Action = model.Action(action)
		results = append(results, res)
	}
	return results, rows.Err()
}

var _ port.Repository = (*Repo)(nil)

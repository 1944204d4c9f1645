package port

import (
	"context"

	"perpexec/internal/domain/model"
)

// DecisionSource 外部决策源：每个周期提供一批有序交易意图。
// 对执行引擎完全不透明，空批次表示本周期无决策。
type DecisionSource interface {
	Next(ctx context.Context) ([]model.TradeIntent, error)
}

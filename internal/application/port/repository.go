package port

import (
	"context"

	"perpexec/internal/domain/model"
)

// Repository 执行结果审计存储
type Repository interface {
	// SaveOrderResult 保存单条意图的终态结果
	SaveOrderResult(ctx context.Context, batchID int64, result model.OrderResult) error

	// ListRecentResults 按时间倒序返回最近的结果
	ListRecentResults(ctx context.Context, limit int) ([]model.OrderResult, error)

	// Connection management
	Close() error
}

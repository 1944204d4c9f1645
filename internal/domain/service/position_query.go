package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// PositionSource 单个持仓查询端点
type PositionSource interface {
	Name() string
	Fetch(ctx context.Context) ([]model.PositionSnapshot, error)
}

// PositionQuery 按固定顺序轮换候选端点的持仓查询。
// 单端点不重试：失败即切换下一个；全部失败时返回聚合错误。
type PositionQuery struct {
	sources []PositionSource
}

// NewPositionQuery 创建查询器
func NewPositionQuery(sources ...PositionSource) *PositionQuery {
	return &PositionQuery{sources: sources}
}

// Fetch 返回当前全部非零持仓
func (q *PositionQuery) Fetch(ctx context.Context) ([]model.PositionSnapshot, error) {
	if len(q.sources) == 0 {
		return nil, errors.New("position query: no sources configured")
	}

	var errs []error
	for _, src := range q.sources {
		snaps, err := src.Fetch(ctx)
		if err == nil {
			return snaps, nil
		}
		log.Warn().Str("source", src.Name()).Err(err).Msg("position endpoint failed, rotating")
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return nil, fmt.Errorf("all position endpoints failed: %w", errors.Join(errs...))
}

// FindPosition 在快照中查找指定符号的持仓
func FindPosition(snaps []model.PositionSnapshot, symbol string) (model.PositionSnapshot, bool) {
	for _, p := range snaps {
		if p.Symbol == symbol && p.Contracts > 0 {
			return p, true
		}
	}
	return model.PositionSnapshot{}, false
}

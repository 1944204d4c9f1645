package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// ModeProber 查询账户当前持仓模式
type ModeProber interface {
	GetPositionMode(ctx context.Context) (model.PositionMode, error)
}

// ModeResolver 持仓模式缓存：Unresolved / Resolved 两态。
// 只有交易所回报模式不匹配时才失效，不按时间过期。
// 互斥锁横跨整次解析，并发调用方合并为一次在途网络查询。
type ModeResolver struct {
	mu       sync.Mutex
	prober   ModeProber
	resolved bool
	mode     model.PositionMode
}

// NewModeResolver 创建解析器
func NewModeResolver(prober ModeProber) *ModeResolver {
	return &ModeResolver{prober: prober}
}

// Mode 返回缓存的持仓模式，未解析时发起一次交易所查询
func (m *ModeResolver) Mode(ctx context.Context) (model.PositionMode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.resolved {
		return m.mode, nil
	}

	mode, err := m.prober.GetPositionMode(ctx)
	if err != nil {
		return model.ModeOneWay, err
	}

	m.mode = mode
	m.resolved = true
	log.Info().Str("mode", mode.String()).Msg("position mode resolved")
	return mode, nil
}

// OnMismatchError 交易所回报 positionSide 不匹配时失效缓存
func (m *ModeResolver) OnMismatchError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		log.Warn().Str("cached", m.mode.String()).Msg("position mode cache invalidated")
	}
	m.resolved = false
}

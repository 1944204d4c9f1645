package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// OrderPlacer 下单客户端接口，infrastructure 层的 Binance 客户端实现
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.OrderAck, error)
}

// SubmitSpec 一次提交的意图级描述，模式相关参数由提交器按当前持仓模式生成
type SubmitSpec struct {
	Symbol string
	Rule   model.InstrumentRule

	// Long 目标敞口方向（开多/平多 = true）
	Long bool
	// Reduce 是否为平仓/减仓
	Reduce bool

	Type     model.OrderType
	Quantity float64
	Price    float64 // LIMIT 单价格
}

// OrderSubmitter 带错误分类重试的订单提交器。
// 固定 3 次预算，线性退避（attempt × baseDelay）。
// 注意：客户端超时后的重试没有幂等键保护，服务端已成交的请求
// 可能产生重复订单，属已知风险。
type OrderSubmitter struct {
	placer    OrderPlacer
	modes     *ModeResolver
	attempts  int
	baseDelay time.Duration
	sleep     func(time.Duration) // 测试中替换
}

// NewOrderSubmitter 创建提交器
func NewOrderSubmitter(placer OrderPlacer, modes *ModeResolver, baseDelay time.Duration) *OrderSubmitter {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &OrderSubmitter{
		placer:    placer,
		modes:     modes,
		attempts:  3,
		baseDelay: baseDelay,
		sleep:     time.Sleep,
	}
}

// buildRequest 按持仓模式生成下单参数：
// 双向模式每单都带 positionSide；单向模式省略 positionSide，
// 平仓/减仓改用 reduceOnly。
func buildRequest(spec SubmitSpec, mode model.PositionMode) model.OrderRequest {
	side := model.SideBuy
	if spec.Long == spec.Reduce {
		side = model.SideSell
	}

	req := model.OrderRequest{
		Symbol:   spec.Symbol,
		Side:     side,
		Type:     spec.Type,
		Quantity: spec.Quantity,
		Price:    spec.Price,
	}
	if req.Type == model.TypeLimit {
		req.TimeInForce = "GTC"
	}

	if mode == model.ModeDualSide {
		if spec.Long {
			req.PositionSide = model.PositionSideLong
		} else {
			req.PositionSide = model.PositionSideShort
		}
	} else if spec.Reduce {
		req.ReduceOnly = true
	}
	return req
}

// Submit 提交订单，按错误类别在预算内修复重试。
// 预算耗尽返回最后一次错误，由上层记入该意图的结果，不再向外传播。
func (s *OrderSubmitter) Submit(ctx context.Context, spec SubmitSpec) (*model.OrderAck, error) {
	var lastErr error

	for attempt := 1; attempt <= s.attempts; attempt++ {
		mode, err := s.modes.Mode(ctx)
		if err != nil {
			lastErr = err
			s.sleep(time.Duration(attempt) * s.baseDelay)
			continue
		}

		req := buildRequest(spec, mode)
		ack, err := s.placer.PlaceOrder(ctx, req)
		if err == nil {
			log.Info().
				Str("symbol", spec.Symbol).
				Str("side", string(req.Side)).
				Str("type", string(req.Type)).
				Float64("quantity", req.Quantity).
				Int64("orderID", ack.OrderID).
				Int("attempt", attempt).
				Msg("order submitted")
			return ack, nil
		}
		lastErr = err

		switch Classify(err) {
		case RepairPositionMode:
			// 服务端持仓模式与缓存不一致：失效缓存，下一轮按新模式重建参数，
			// 该分支不追加退避
			log.Warn().Str("symbol", spec.Symbol).Int("attempt", attempt).
				Err(err).Msg("position side mismatch, re-resolving mode")
			s.modes.OnMismatchError()

		case RepairPrecision:
			spec.Quantity = AddMinStep(QuantizeAmount(spec.Quantity, spec.Rule), spec.Rule)
			log.Warn().Str("symbol", spec.Symbol).Int("attempt", attempt).
				Float64("quantity", spec.Quantity).
				Err(err).Msg("precision rejected, bumped one step")
			s.sleep(time.Duration(attempt) * s.baseDelay)

		default:
			log.Warn().Str("symbol", spec.Symbol).Int("attempt", attempt).
				Err(err).Msg("order attempt failed")
			s.sleep(time.Duration(attempt) * s.baseDelay)
		}
	}

	return nil, lastErr
}

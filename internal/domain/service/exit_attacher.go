package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// ExitRequest 止损/止盈挂单请求，百分比相对入场价
type ExitRequest struct {
	Symbol     string
	Rule       model.InstrumentRule
	Long       bool
	EntryPrice float64

	StopLossPercent   float64
	TakeProfitPercent float64
}

// ExitAttacher 成交后的保护单挂载器。
// 首次尝试前等待固定沉降延迟，让刚成交的持仓在交易所侧可见；
// 之后最多 3 次、递增延迟。失败只上报，绝不回滚已成交的入场单。
type ExitAttacher struct {
	placer      OrderPlacer
	modes       *ModeResolver
	settleDelay time.Duration
	retryDelay  time.Duration
	attempts    int
	sleep       func(time.Duration)
}

// NewExitAttacher 创建挂载器
func NewExitAttacher(placer OrderPlacer, modes *ModeResolver, settleDelay, retryDelay time.Duration) *ExitAttacher {
	if settleDelay < 0 {
		settleDelay = 0
	}
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	return &ExitAttacher{
		placer:      placer,
		modes:       modes,
		settleDelay: settleDelay,
		retryDelay:  retryDelay,
		attempts:    3,
		sleep:       time.Sleep,
	}
}

// exitPrices 计算触发价并对齐价格网格
func exitPrices(req ExitRequest) (stopLoss, takeProfit float64) {
	if req.StopLossPercent > 0 {
		pct := req.StopLossPercent / 100
		if req.Long {
			stopLoss = QuantizePrice(req.EntryPrice*(1-pct), req.Rule)
		} else {
			stopLoss = QuantizePrice(req.EntryPrice*(1+pct), req.Rule)
		}
	}
	if req.TakeProfitPercent > 0 {
		pct := req.TakeProfitPercent / 100
		if req.Long {
			takeProfit = QuantizePrice(req.EntryPrice*(1+pct), req.Rule)
		} else {
			takeProfit = QuantizePrice(req.EntryPrice*(1-pct), req.Rule)
		}
	}
	return stopLoss, takeProfit
}

// exitOrder 生成市价全平保护单参数
func exitOrder(req ExitRequest, mode model.PositionMode, typ model.OrderType, stopPrice float64) model.OrderRequest {
	side := model.SideSell
	if !req.Long {
		side = model.SideBuy
	}
	out := model.OrderRequest{
		Symbol:        req.Symbol,
		Side:          side,
		Type:          typ,
		StopPrice:     stopPrice,
		ClosePosition: true,
	}
	if mode == model.ModeDualSide {
		if req.Long {
			out.PositionSide = model.PositionSideLong
		} else {
			out.PositionSide = model.PositionSideShort
		}
	}
	return out
}

// Attach 挂载止损/止盈单
func (a *ExitAttacher) Attach(ctx context.Context, req ExitRequest) model.ExitResult {
	stopLoss, takeProfit := exitPrices(req)
	if stopLoss <= 0 && takeProfit <= 0 {
		return model.ExitResult{Success: true}
	}

	a.sleep(a.settleDelay)

	var result model.ExitResult
	var lastErr error

	for attempt := 1; attempt <= a.attempts; attempt++ {
		mode, err := a.modes.Mode(ctx)
		if err != nil {
			lastErr = err
			a.sleep(time.Duration(attempt) * a.retryDelay)
			continue
		}

		if stopLoss > 0 && result.StopLossOrderID == 0 {
			ack, err := a.placer.PlaceOrder(ctx, exitOrder(req, mode, model.TypeStopMarket, stopLoss))
			if err != nil {
				lastErr = fmt.Errorf("stop loss: %w", err)
			} else {
				result.StopLossOrderID = ack.OrderID
				log.Info().Str("symbol", req.Symbol).Float64("stopPrice", stopLoss).
					Int64("orderID", ack.OrderID).Msg("stop loss attached")
			}
		}
		if takeProfit > 0 && result.TakeProfitOrderID == 0 {
			ack, err := a.placer.PlaceOrder(ctx, exitOrder(req, mode, model.TypeTakeProfit, takeProfit))
			if err != nil {
				lastErr = fmt.Errorf("take profit: %w", err)
			} else {
				result.TakeProfitOrderID = ack.OrderID
				log.Info().Str("symbol", req.Symbol).Float64("stopPrice", takeProfit).
					Int64("orderID", ack.OrderID).Msg("take profit attached")
			}
		}

		slDone := stopLoss <= 0 || result.StopLossOrderID != 0
		tpDone := takeProfit <= 0 || result.TakeProfitOrderID != 0
		if slDone && tpDone {
			result.Success = true
			return result
		}

		a.sleep(time.Duration(attempt) * a.retryDelay)
	}

	result.Success = false
	if lastErr != nil {
		result.Error = lastErr.Error()
	}
	log.Warn().Str("symbol", req.Symbol).Str("error", result.Error).
		Msg("exit attachment incomplete, entry order stands")
	return result
}

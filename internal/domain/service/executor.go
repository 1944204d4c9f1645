package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// PriceSource 标记价格查询
type PriceSource interface {
	MarkPrice(ctx context.Context, symbol string) (float64, error)
}

// LeverageSetter 设置符号杠杆
type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Executor 批次编排器：把一批交易意图按输入顺序串行执行。
// 账本与持仓模式缓存是批内共享可变状态，并行执行会破坏其正确性。
type Executor struct {
	rules     *model.RuleTable
	modes     *ModeResolver
	submitter *OrderSubmitter
	positions *PositionQuery
	exits     *ExitAttacher
	prices    PriceSource
	levers    LeverageSetter

	defaultLeverage int
}

// ExecutorDeps 编排器依赖
type ExecutorDeps struct {
	Rules           *model.RuleTable
	Modes           *ModeResolver
	Submitter       *OrderSubmitter
	Positions       *PositionQuery
	Exits           *ExitAttacher
	Prices          PriceSource
	Levers          LeverageSetter
	DefaultLeverage int
}

// NewExecutor 创建编排器
func NewExecutor(deps ExecutorDeps) *Executor {
	if deps.DefaultLeverage < 1 {
		deps.DefaultLeverage = 1
	}
	return &Executor{
		rules:           deps.Rules,
		modes:           deps.Modes,
		submitter:       deps.Submitter,
		positions:       deps.Positions,
		exits:           deps.Exits,
		prices:          deps.Prices,
		levers:          deps.Levers,
		defaultLeverage: deps.DefaultLeverage,
	}
}

// ExecuteBatch 串行执行一批意图。单条意图的失败记入其结果后继续下一条。
func (e *Executor) ExecuteBatch(ctx context.Context, intents []model.TradeIntent, ledger *MarginLedger) []model.OrderResult {
	results := make([]model.OrderResult, 0, len(intents))
	for _, intent := range intents {
		r := e.executeIntent(ctx, intent, ledger)
		r.Ts = time.Now().UnixMilli()
		if r.Success {
			log.Info().Str("symbol", r.Symbol).Str("action", string(r.Action)).
				Int64("orderID", r.OrderID).Float64("price", r.ExecutedPrice).
				Float64("amount", r.ExecutedAmount).Msg("intent executed")
		} else {
			log.Warn().Str("symbol", r.Symbol).Str("action", string(r.Action)).
				Str("error", r.Error).Msg("intent failed")
		}
		results = append(results, r)
	}
	return results
}

func (e *Executor) executeIntent(ctx context.Context, intent model.TradeIntent, ledger *MarginLedger) model.OrderResult {
	result := model.OrderResult{Symbol: intent.Symbol, Action: intent.Action}

	rule, err := e.validate(intent)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	switch intent.Action {
	case model.ActionOpenLong, model.ActionOpenShort:
		return e.executeOpen(ctx, intent, rule, ledger)
	case model.ActionClose:
		return e.executeClose(ctx, intent, rule)
	case model.ActionHold:
		return e.executeHold(ctx, intent, rule)
	}

	result.Error = fmt.Sprintf("%v: unknown action %q", ErrValidation, intent.Action)
	return result
}

// validate 网络调用前的意图校验
func (e *Executor) validate(intent model.TradeIntent) (model.InstrumentRule, error) {
	if intent.Symbol == "" {
		return model.InstrumentRule{}, fmt.Errorf("%w: empty symbol", ErrValidation)
	}
	rule, ok := e.rules.Lookup(intent.Symbol)
	if !ok {
		return model.InstrumentRule{}, fmt.Errorf("%w: no instrument rule for %s", ErrValidation, intent.Symbol)
	}
	if intent.Action.IsOpen() && intent.Amount <= 0 {
		return model.InstrumentRule{}, fmt.Errorf("%w: open requires positive amount, got %v", ErrValidation, intent.Amount)
	}
	if intent.Leverage < 0 || intent.ClosePercent < 0 || intent.ClosePercent > 100 {
		return model.InstrumentRule{}, fmt.Errorf("%w: leverage=%d close_percent=%v", ErrValidation, intent.Leverage, intent.ClosePercent)
	}
	return rule, nil
}

func (e *Executor) executeOpen(ctx context.Context, intent model.TradeIntent, rule model.InstrumentRule, ledger *MarginLedger) model.OrderResult {
	result := model.OrderResult{Symbol: intent.Symbol, Action: intent.Action}

	leverage := intent.Leverage
	if leverage == 0 {
		leverage = e.defaultLeverage
	}

	price := intent.Price
	if price <= 0 {
		p, err := e.prices.MarkPrice(ctx, intent.Symbol)
		if err != nil {
			result.Error = fmt.Sprintf("mark price: %v", err)
			return result
		}
		price = p
	}

	amount, leverage, err := e.sizeOpenOrder(intent.Amount, price, leverage, rule)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	// 杠杆设置失败不致命：交易所保留上次设置
	if err := e.levers.SetLeverage(ctx, intent.Symbol, leverage); err != nil {
		log.Warn().Str("symbol", intent.Symbol).Int("leverage", leverage).
			Err(err).Msg("set leverage failed, keeping previous")
	}

	required, err := ledger.Admit(amount, price, leverage)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	orderType := model.TypeMarket
	if intent.Price > 0 {
		orderType = model.TypeLimit
	}
	ack, err := e.submitter.Submit(ctx, SubmitSpec{
		Symbol:   intent.Symbol,
		Rule:     rule,
		Long:     intent.Action == model.ActionOpenLong,
		Reduce:   false,
		Type:     orderType,
		Quantity: amount,
		Price:    QuantizePrice(intent.Price, rule),
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	ledger.Commit(required)

	result.Success = true
	result.OrderID = ack.OrderID
	result.ExecutedPrice = ack.FilledPrice()
	result.ExecutedAmount = ack.FilledQty()
	result.MarginUsed = required
	result.Leverage = leverage
	if result.ExecutedPrice <= 0 {
		result.ExecutedPrice = price
	}
	if result.ExecutedAmount <= 0 {
		result.ExecutedAmount = amount
	}

	if intent.StopLossPercent > 0 || intent.TakeProfitPercent > 0 {
		exit := e.exits.Attach(ctx, ExitRequest{
			Symbol:            intent.Symbol,
			Rule:              rule,
			Long:              intent.Action == model.ActionOpenLong,
			EntryPrice:        result.ExecutedPrice,
			StopLossPercent:   intent.StopLossPercent,
			TakeProfitPercent: intent.TakeProfitPercent,
		})
		result.StopLossOrderID = exit.StopLossOrderID
		result.TakeProfitOrderID = exit.TakeProfitOrderID
	}
	return result
}

// sizeOpenOrder 确定开仓数量与杠杆：
// 量化 → 低于 minNotional 时升量 → 请求量低于最小单位时走小额升档（抬杠杆）。
func (e *Executor) sizeOpenOrder(raw, price float64, leverage int, rule model.InstrumentRule) (float64, int, error) {
	if raw < rule.MinStep() {
		prop, err := ProposeSmallAmountEscalation(raw, price, leverage, rule)
		if err != nil {
			return 0, 0, err
		}
		log.Info().Str("symbol", rule.Symbol).
			Float64("requested", raw).Float64("amount", prop.Amount).
			Float64("multiplier", prop.Multiplier).Int("leverage", prop.Leverage).
			Msg("small amount escalated")
		return prop.Amount, prop.Leverage, nil
	}

	amount := QuantizeAmount(raw, rule)
	if !MinNotionalOK(amount, price, rule) {
		required, err := RequiredAmountForMinNotional(price, rule)
		if err != nil {
			return 0, 0, err
		}
		log.Info().Str("symbol", rule.Symbol).
			Float64("quantized", amount).Float64("amount", required).
			Msg("amount escalated to min notional")
		amount = required
	}
	return amount, leverage, nil
}

func (e *Executor) executeClose(ctx context.Context, intent model.TradeIntent, rule model.InstrumentRule) model.OrderResult {
	result := model.OrderResult{Symbol: intent.Symbol, Action: intent.Action}

	snaps, err := e.positions.Fetch(ctx)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	pos, ok := FindPosition(snaps, rule.Symbol)
	if !ok {
		result.Error = fmt.Sprintf("%v: %s", ErrPositionNotFound, rule.Symbol)
		return result
	}

	closeAmt := intent.Amount
	if closeAmt <= 0 {
		pct := intent.ClosePercent
		if pct <= 0 {
			pct = 100
		}
		closeAmt = pos.Contracts * pct / 100
	}
	if closeAmt > pos.Contracts {
		closeAmt = pos.Contracts
	}

	amount := QuantizeAmount(closeAmt, rule)
	// 持仓本身小于最小单位时整仓平掉，网格下限对平仓不设限
	if amount > pos.Contracts {
		amount = pos.Contracts
	}

	orderType := model.TypeMarket
	if intent.Price > 0 {
		orderType = model.TypeLimit
	}
	ack, err := e.submitter.Submit(ctx, SubmitSpec{
		Symbol:   rule.Symbol,
		Rule:     rule,
		Long:     pos.Side == model.PositionSideLong,
		Reduce:   true,
		Type:     orderType,
		Quantity: amount,
		Price:    QuantizePrice(intent.Price, rule),
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.OrderID = ack.OrderID
	result.ExecutedPrice = ack.FilledPrice()
	result.ExecutedAmount = ack.FilledQty()
	if result.ExecutedAmount <= 0 {
		result.ExecutedAmount = amount
	}
	return result
}

// executeHold 不下单；带止损/止盈字段时为既有持仓调整保护单
func (e *Executor) executeHold(ctx context.Context, intent model.TradeIntent, rule model.InstrumentRule) model.OrderResult {
	result := model.OrderResult{Symbol: intent.Symbol, Action: intent.Action, Success: true}

	if intent.StopLossPercent <= 0 && intent.TakeProfitPercent <= 0 {
		return result
	}

	snaps, err := e.positions.Fetch(ctx)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result
	}
	pos, ok := FindPosition(snaps, rule.Symbol)
	if !ok {
		// 无持仓的 HOLD 没有可调整的保护单
		return result
	}

	exit := e.exits.Attach(ctx, ExitRequest{
		Symbol:            rule.Symbol,
		Rule:              rule,
		Long:              pos.Side == model.PositionSideLong,
		EntryPrice:        pos.EntryPrice,
		StopLossPercent:   intent.StopLossPercent,
		TakeProfitPercent: intent.TakeProfitPercent,
	})
	result.StopLossOrderID = exit.StopLossOrderID
	result.TakeProfitOrderID = exit.TakeProfitOrderID
	if !exit.Success {
		result.Error = exit.Error
	}
	return result
}

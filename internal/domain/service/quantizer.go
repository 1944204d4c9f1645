package service

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"perpexec/internal/domain/model"
)

// QuantizeAmount 将原始数量向下取整到合约的数量网格。
// 原始数量为正但取整结果为 0 时，回填一个最小单位，避免把正请求静默归零。
func QuantizeAmount(raw float64, rule model.InstrumentRule) float64 {
	if raw <= 0 {
		return 0
	}
	q := decimal.NewFromFloat(raw).Truncate(int32(rule.QuantityDecimals))
	if q.IsZero() {
		return rule.MinStep()
	}
	f, _ := q.Float64()
	return f
}

// QuantizePrice 将价格向下取整到合约的价格网格
func QuantizePrice(raw float64, rule model.InstrumentRule) float64 {
	if raw <= 0 {
		return 0
	}
	f, _ := decimal.NewFromFloat(raw).Truncate(int32(rule.PriceDecimals)).Float64()
	return f
}

// MinNotionalOK 检查 数量 × 价格 是否满足最小名义价值
func MinNotionalOK(amount, price float64, rule model.InstrumentRule) bool {
	return amount*price >= rule.MinNotional
}

// RequiredAmountForMinNotional 给定价格下满足 minNotional 的最小可交易数量。
// 先取整 minNotional/price；截断导致的欠缺用一个最小单位补齐并复核，
// 仍不足则返回 ErrUnachievableMin（规则表配置异常）。
func RequiredAmountForMinNotional(price float64, rule model.InstrumentRule) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("required amount: price must be positive, got %v", price)
	}
	amt := QuantizeAmount(rule.MinNotional/price, rule)
	if MinNotionalOK(amt, price, rule) {
		return amt, nil
	}
	step := decimal.NewFromFloat(rule.MinStep())
	bumped, _ := decimal.NewFromFloat(amt).Add(step).Float64()
	if MinNotionalOK(bumped, price, rule) {
		return bumped, nil
	}
	return 0, fmt.Errorf("%w: symbol=%s price=%v", ErrUnachievableMin, rule.Symbol, price)
}

// AddMinStep 数量加一个最小单位（精度被拒后的修复）
func AddMinStep(amount float64, rule model.InstrumentRule) float64 {
	out, _ := decimal.NewFromFloat(amount).
		Add(decimal.NewFromFloat(rule.MinStep())).Float64()
	return out
}

// EscalationProposal 小额升档结果：用最小可成交数量替换请求数量，
// 同时按倍数抬高杠杆，使占用保证金贴近原始意图。
type EscalationProposal struct {
	Amount     float64
	Leverage   int
	Multiplier float64
}

// 升档硬上限
const (
	maxEscalationMultiplier = 20.0
	maxEscalatedLeverage    = 30
)

// ProposeSmallAmountEscalation 请求数量低于最小可交易单位时的升档算法。
// multiplier = 最小可成交数量 / 原始请求数量；杠杆 = min(原杠杆 × multiplier, 30)。
// multiplier 超过 20 则拒绝。杠杆改变的是保证金占用而非数量网格，
// 这是在不放大名义敞口超出网格单位的前提下唯一可用的调节手段。
func ProposeSmallAmountEscalation(rawAmount, price float64, leverage int, rule model.InstrumentRule) (EscalationProposal, error) {
	if rawAmount <= 0 || price <= 0 {
		return EscalationProposal{}, fmt.Errorf("%w: amount=%v price=%v", ErrValidation, rawAmount, price)
	}
	required, err := RequiredAmountForMinNotional(price, rule)
	if err != nil {
		return EscalationProposal{}, err
	}
	if required < rule.MinStep() {
		required = rule.MinStep()
	}

	multiplier := required / rawAmount
	if multiplier > maxEscalationMultiplier {
		return EscalationProposal{}, fmt.Errorf(
			"%w: requested %v %s needs %.1fx escalation (max %.0fx)",
			ErrQuantizationFloor, rawAmount, rule.Symbol, multiplier, maxEscalationMultiplier)
	}

	proposed := int(math.Ceil(float64(leverage) * multiplier))
	if proposed > maxEscalatedLeverage {
		proposed = maxEscalatedLeverage
	}
	if proposed < leverage {
		proposed = leverage
	}

	return EscalationProposal{
		Amount:     required,
		Leverage:   proposed,
		Multiplier: multiplier,
	}, nil
}

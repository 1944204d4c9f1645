package model

import (
	"fmt"
	"math"
	"strings"
)

// InstrumentRule 单个合约的静态交易规则
type InstrumentRule struct {
	Symbol           string
	QuantityDecimals int     // 数量小数位（步长 = 10^-QuantityDecimals）
	PriceDecimals    int     // 价格小数位
	MinNotional      float64 // 最小名义价值 (数量 × 价格)
}

// MinStep 返回该合约的最小可交易单位
func (r InstrumentRule) MinStep() float64 {
	return math.Pow(10, -float64(r.QuantityDecimals))
}

// RuleTable 按符号索引的合约规则表，加载后只读
type RuleTable struct {
	rules map[string]InstrumentRule
}

// NewRuleTable 创建规则表
func NewRuleTable(rules []InstrumentRule) (*RuleTable, error) {
	m := make(map[string]InstrumentRule, len(rules))
	for _, r := range rules {
		sym := strings.ToUpper(strings.TrimSpace(r.Symbol))
		if sym == "" {
			return nil, fmt.Errorf("instrument rule with empty symbol")
		}
		if r.QuantityDecimals < 0 || r.PriceDecimals < 0 {
			return nil, fmt.Errorf("instrument %s: negative decimals", sym)
		}
		if r.MinNotional < 0 {
			return nil, fmt.Errorf("instrument %s: negative min_notional", sym)
		}
		r.Symbol = sym
		m[sym] = r
	}
	return &RuleTable{rules: m}, nil
}

// Lookup 查找符号规则
func (t *RuleTable) Lookup(symbol string) (InstrumentRule, bool) {
	r, ok := t.rules[strings.ToUpper(strings.TrimSpace(symbol))]
	return r, ok
}

// Symbols 返回已配置的全部符号
func (t *RuleTable) Symbols() []string {
	out := make([]string, 0, len(t.rules))
	for s := range t.rules {
		out = append(out, s)
	}
	return out
}

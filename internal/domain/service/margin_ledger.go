package service

import (
	"fmt"
	"sync"
)

// MarginLedger 单个批次内的可用保证金账本。
// 每次编排运行新建一份，运行结束即丢弃；余额单调不增。
type MarginLedger struct {
	mu        sync.Mutex
	initial   float64
	remaining float64
}

// NewMarginLedger 创建账本
func NewMarginLedger(cash float64) *MarginLedger {
	if cash < 0 {
		cash = 0
	}
	return &MarginLedger{initial: cash, remaining: cash}
}

// RequiredMargin 所需保证金 = 数量 × 价格 / 杠杆
func RequiredMargin(amount, price float64, leverage int) float64 {
	if leverage < 1 {
		leverage = 1
	}
	return amount * price / float64(leverage)
}

// Admit 校验一条意图的保证金需求，不扣减余额。
// 不足时返回 ErrMarginInsufficient。
func (l *MarginLedger) Admit(amount, price float64, leverage int) (float64, error) {
	required := RequiredMargin(amount, price, leverage)

	l.mu.Lock()
	defer l.mu.Unlock()
	if required > l.remaining {
		return 0, fmt.Errorf("%w: need %.2f, have %.2f",
			ErrMarginInsufficient, required, l.remaining)
	}
	return required, nil
}

// Commit 在成交确认后扣减保证金。只对已 Admit 的金额调用。
func (l *MarginLedger) Commit(required float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining -= required
	if l.remaining < 0 {
		l.remaining = 0
	}
}

// Remaining 当前余额
func (l *MarginLedger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining
}

// Committed 本批次已占用的保证金
func (l *MarginLedger) Committed() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initial - l.remaining
}

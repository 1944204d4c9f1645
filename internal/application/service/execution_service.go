package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"perpexec/internal/application/port"
	"perpexec/internal/domain/model"
	"perpexec/internal/domain/service"
)

// BalanceSource 查询当前可用保证金（USDT）
type BalanceSource interface {
	AvailableBalance(ctx context.Context) (float64, error)
}

// ExecutionService 批次执行服务：从决策源取意图，划拨本批保证金预算，
// 交给编排器串行执行，并把每条结果落库。
type ExecutionService struct {
	decisions port.DecisionSource
	balances  BalanceSource
	executor  *service.Executor
	repo      port.Repository

	marginPct float64 // 单批可用保证金占账户余额的百分比
}

func NewExecutionService(decisions port.DecisionSource, balances BalanceSource,
	executor *service.Executor, repo port.Repository, marginPct float64) *ExecutionService {
	if marginPct <= 0 || marginPct > 100 {
		marginPct = 100
	}
	return &ExecutionService{
		decisions: decisions,
		balances:  balances,
		executor:  executor,
		repo:      repo,
		marginPct: marginPct,
	}
}

// RunBatch 执行一个批次。空批次不是错误。
func (s *ExecutionService) RunBatch(ctx context.Context) ([]model.OrderResult, error) {
	intents, err := s.decisions.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch intents: %w", err)
	}
	if len(intents) == 0 {
		log.Debug().Msg("no intents, skipping batch")
		return nil, nil
	}

	balance, err := s.balances.AvailableBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("query balance: %w", err)
	}
	budget := balance * s.marginPct / 100

	batchID := time.Now().UnixMilli()
	log.Info().Int64("batchID", batchID).Int("intents", len(intents)).
		Float64("balance", balance).Float64("budget", budget).Msg("batch started")

	ledger := service.NewMarginLedger(budget)
	results := s.executor.ExecuteBatch(ctx, intents, ledger)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		if err := s.repo.SaveOrderResult(ctx, batchID, r); err != nil {
			log.Error().Err(err).Str("symbol", r.Symbol).Msg("save order result failed")
		}
	}

	log.Info().Int64("batchID", batchID).
		Int("total", len(results)).Int("succeeded", succeeded).
		Float64("marginUsed", ledger.Committed()).
		Msg("batch finished")
	return results, nil
}

// RunLoop 按固定间隔执行批次，直到 ctx 取消
func (s *ExecutionService) RunLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunBatch(ctx); err != nil {
			log.Error().Err(err).Msg("batch failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

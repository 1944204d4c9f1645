package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"perpexec/internal/application/port"
	appservice "perpexec/internal/application/service"
	"perpexec/internal/domain/service"
	"perpexec/internal/infrastructure/config"
	"perpexec/internal/infrastructure/decision"
	"perpexec/internal/infrastructure/exchange/binance"
	compositerepo "perpexec/internal/infrastructure/storage/composite"
	postgresrepo "perpexec/internal/infrastructure/storage/postgres"
	redisrepo "perpexec/internal/infrastructure/storage/redis"
	sqliterepo "perpexec/internal/infrastructure/storage/sqlite"
)

// Container 包含所有应用依赖
type Container struct {
	cfg *config.Config

	futures   *binance.FuturesClient
	feed      *binance.MarkPriceFeed
	repo      port.Repository
	execution *appservice.ExecutionService

	closeOnce   sync.Once
	closerChain []func() error
}

// New 创建新的容器实例
func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}

	if err := c.init(); err != nil {
		// 清理已初始化的资源
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) init() error {
	rules, err := c.cfg.RuleTable()
	if err != nil {
		return fmt.Errorf("instrument rules: %w", err)
	}

	api := binance.NewAPIClient(
		c.cfg.Binance.APIKey,
		c.cfg.Binance.APISecret,
		c.cfg.Binance.BaseURL,
		c.cfg.Binance.RecvWindow,
		time.Duration(c.cfg.Binance.TimeoutSec)*time.Second,
	)
	c.futures = binance.NewFuturesClient(api)

	c.feed = binance.NewMarkPriceFeed(c.cfg.Binance.WsURL, c.futures)

	modes := service.NewModeResolver(c.futures)
	submitter := service.NewOrderSubmitter(c.futures, modes,
		time.Duration(c.cfg.Execution.RetryBaseDelayMs)*time.Millisecond)
	positions := service.NewPositionQuery(
		binance.NewPositionRiskV3Source(c.futures),
		binance.NewPositionRiskV2Source(c.futures),
		binance.NewAccountPositionSource(c.futures),
	)
	exits := service.NewExitAttacher(c.futures, modes,
		time.Duration(c.cfg.Execution.ExitSettleDelaySec)*time.Second,
		time.Duration(c.cfg.Execution.ExitRetryDelaySec)*time.Second)

	executor := service.NewExecutor(service.ExecutorDeps{
		Rules:           rules,
		Modes:           modes,
		Submitter:       submitter,
		Positions:       positions,
		Exits:           exits,
		Prices:          c.feed,
		Levers:          c.futures,
		DefaultLeverage: c.cfg.Execution.DefaultLeverage,
	})

	if err := c.initStorage(); err != nil {
		return err
	}

	decisions := decision.NewFileSource(c.cfg.Decision.IntentsFile)
	c.execution = appservice.NewExecutionService(decisions, c.futures,
		executor, c.repo, c.cfg.Execution.MaxBatchMarginPct)
	return nil
}

// initStorage 初始化存储层（SQLite 必选，Postgres / Redis 按配置叠加）
func (c *Container) initStorage() error {
	repos := make([]port.Repository, 0, 3)

	sq, err := sqliterepo.New(c.cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("sqlite init failed: %w", err)
	}
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return sq.Close()
	})
	log.Info().Str("path", c.cfg.Storage.SQLitePath).Msg("sqlite initialized")
	repos = append(repos, sq)

	if dsn := c.cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := postgresrepo.New(dsn)
		if err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
		c.closerChain = append(c.closerChain, func() error {
			log.Info().Msg("closing postgres connection")
			return pg.Close()
		})
		log.Info().Msg("postgres initialized")
		repos = append(repos, pg)
	}

	if addr := c.cfg.Storage.RedisAddr; addr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: addr})

		// 测试连接
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}

		rr := redisrepo.New(rdb, c.cfg.Storage.RedisPrefix)
		c.closerChain = append(c.closerChain, func() error {
			log.Info().Msg("closing redis connection")
			return rr.Close()
		})
		log.Info().Str("addr", addr).Msg("redis initialized")
		repos = append(repos, rr)
	}

	if len(repos) == 1 {
		c.repo = repos[0]
	} else {
		c.repo = compositerepo.New(repos...)
	}
	return nil
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// ExecutionService 获取批次执行服务
func (c *Container) ExecutionService() *appservice.ExecutionService {
	return c.execution
}

// MarkPriceFeed 获取标记价格源
func (c *Container) MarkPriceFeed() *binance.MarkPriceFeed {
	return c.feed
}

// Repository 获取结果仓储
func (c *Container) Repository() port.Repository {
	return c.repo
}

// Close 关闭所有资源（按后进先出顺序）
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}

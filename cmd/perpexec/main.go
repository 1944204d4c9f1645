package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"perpexec/internal/infrastructure/config"
	"perpexec/internal/infrastructure/container"
	"perpexec/internal/infrastructure/logger"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	once := flag.Bool("once", false, "run a single batch and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("container init failed")
	}
	defer c.Close()

	// 标记价格流后台运行；断流时执行路径自动回退 REST
	go func() {
		if err := c.MarkPriceFeed().Run(ctx, cfg.Symbols()); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("mark price feed exited")
		}
	}()

	log.Info().
		Str("config", *configPath).
		Int("instruments", len(cfg.Instruments)).
		Int("batch_interval_sec", cfg.Execution.BatchIntervalSec).
		Msg("perpexec started")

	svc := c.ExecutionService()
	if *once {
		if _, err := svc.RunBatch(ctx); err != nil {
			log.Error().Err(err).Msg("batch failed")
		}
		return
	}
	svc.RunLoop(ctx, time.Duration(cfg.Execution.BatchIntervalSec)*time.Second)
}

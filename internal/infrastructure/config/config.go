package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"perpexec/internal/domain/model"
)

type Config struct {
	Binance struct {
		APIKey     string `toml:"api_key"`
		APISecret  string `toml:"api_secret"`
		BaseURL    string `toml:"base_url"`
		WsURL      string `toml:"ws_url"`
		RecvWindow int    `toml:"recv_window"`
		TimeoutSec int    `toml:"timeout_sec"`
	} `toml:"binance"`

	Execution struct {
		DefaultLeverage    int     `toml:"default_leverage"`
		RetryBaseDelayMs   int     `toml:"retry_base_delay_ms"`
		ExitSettleDelaySec int     `toml:"exit_settle_delay_sec"`
		ExitRetryDelaySec  int     `toml:"exit_retry_delay_sec"`
		BatchIntervalSec   int     `toml:"batch_interval_sec"`
		MaxBatchMarginPct  float64 `toml:"max_batch_margin_pct"`
	} `toml:"execution"`

	Decision struct {
		IntentsFile string `toml:"intents_file"`
	} `toml:"decision"`

	Storage struct {
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
		RedisAddr   string `toml:"redis_addr"`
		RedisPrefix string `toml:"redis_prefix"`
	} `toml:"storage"`

	Instruments []Instrument `toml:"instrument"`
}

type Instrument struct {
	Symbol           string  `toml:"symbol"`
	QuantityDecimals int     `toml:"quantity_decimals"`
	PriceDecimals    int     `toml:"price_decimals"`
	MinNotional      float64 `toml:"min_notional"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://fapi.binance.com"
	}
	if cfg.Binance.WsURL == "" {
		cfg.Binance.WsURL = "wss://fstream.binance.com"
	}
	if cfg.Binance.RecvWindow <= 0 {
		cfg.Binance.RecvWindow = 5000
	}
	if cfg.Binance.TimeoutSec <= 0 {
		cfg.Binance.TimeoutSec = 20
	}
	if cfg.Execution.DefaultLeverage <= 0 {
		cfg.Execution.DefaultLeverage = 5
	}
	if cfg.Execution.RetryBaseDelayMs <= 0 {
		cfg.Execution.RetryBaseDelayMs = 1000
	}
	if cfg.Execution.ExitSettleDelaySec <= 0 {
		cfg.Execution.ExitSettleDelaySec = 5
	}
	if cfg.Execution.ExitRetryDelaySec <= 0 {
		cfg.Execution.ExitRetryDelaySec = 2
	}
	if cfg.Execution.BatchIntervalSec <= 0 {
		cfg.Execution.BatchIntervalSec = 180
	}
	if cfg.Execution.MaxBatchMarginPct <= 0 || cfg.Execution.MaxBatchMarginPct > 100 {
		cfg.Execution.MaxBatchMarginPct = 100
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/perpexec.db"
	}
	if cfg.Storage.RedisPrefix == "" {
		cfg.Storage.RedisPrefix = "perpexec"
	}
	if cfg.Decision.IntentsFile == "" {
		cfg.Decision.IntentsFile = "data/intents.json"
	}
}

func validate(cfg *Config) error {
	// 凭证缺失是不可恢复的配置故障，在任何批次开始前快速失败
	if strings.TrimSpace(cfg.Binance.APIKey) == "" || strings.TrimSpace(cfg.Binance.APISecret) == "" {
		return errors.New("binance.api_key / binance.api_secret required")
	}
	if len(cfg.Instruments) == 0 {
		return errors.New("at least one [[instrument]] required")
	}
	seen := map[string]struct{}{}
	for i, inst := range cfg.Instruments {
		sym := strings.ToUpper(strings.TrimSpace(inst.Symbol))
		if sym == "" {
			return fmt.Errorf("instrument[%d]: empty symbol", i)
		}
		if _, ok := seen[sym]; ok {
			return fmt.Errorf("instrument %s duplicated", sym)
		}
		seen[sym] = struct{}{}
		if inst.QuantityDecimals < 0 || inst.QuantityDecimals > 8 {
			return fmt.Errorf("instrument %s: quantity_decimals out of range", sym)
		}
		if inst.PriceDecimals < 0 || inst.PriceDecimals > 8 {
			return fmt.Errorf("instrument %s: price_decimals out of range", sym)
		}
		if inst.MinNotional < 0 {
			return fmt.Errorf("instrument %s: negative min_notional", sym)
		}
		cfg.Instruments[i].Symbol = sym
	}
	return nil
}

// RuleTable 将配置的合约规则转为域模型规则表
func (c *Config) RuleTable() (*model.RuleTable, error) {
	rules := make([]model.InstrumentRule, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		rules = append(rules, model.InstrumentRule{
			Symbol:           inst.Symbol,
			QuantityDecimals: inst.QuantityDecimals,
			PriceDecimals:    inst.PriceDecimals,
			MinNotional:      inst.MinNotional,
		})
	}
	return model.NewRuleTable(rules)
}

// Symbols 返回配置的全部符号
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Instruments))
	for _, inst := range c.Instruments {
		out = append(out, inst.Symbol)
	}
	return out
}

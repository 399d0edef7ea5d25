package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type RefreshConfig struct {
	PeriodSec       int `yaml:"period_sec"`
	OrderBatchLimit int `yaml:"order_batch_limit"`
}

func (c RefreshConfig) Period() time.Duration {
	return time.Duration(c.PeriodSec) * time.Second
}

type FeedsConfig struct {
	StatusIntervalSec      int    `yaml:"status_interval_sec"`
	OrderIntervalSec       int    `yaml:"order_interval_sec"`
	PriceIntervalSec       int    `yaml:"price_interval_sec"`
	LeaderboardIntervalSec int    `yaml:"leaderboard_interval_sec"`
	SentinelName           string `yaml:"sentinel_name"`
	SentinelPauseSec       int    `yaml:"sentinel_pause_sec"`
	OrderBufferSize        int    `yaml:"order_buffer_size"`
	StockBoardSize         int    `yaml:"stock_board_size"`
	InvestorBoardSize      int    `yaml:"investor_board_size"`
}

func (c FeedsConfig) StatusInterval() time.Duration {
	return time.Duration(c.StatusIntervalSec) * time.Second
}

func (c FeedsConfig) OrderInterval() time.Duration {
	return time.Duration(c.OrderIntervalSec) * time.Second
}

func (c FeedsConfig) PriceInterval() time.Duration {
	return time.Duration(c.PriceIntervalSec) * time.Second
}

func (c FeedsConfig) LeaderboardInterval() time.Duration {
	return time.Duration(c.LeaderboardIntervalSec) * time.Second
}

func (c FeedsConfig) SentinelPause() time.Duration {
	return time.Duration(c.SentinelPauseSec) * time.Second
}

type StatusConfig struct {
	URL            string `yaml:"url"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
}

func (c StatusConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

type PerturbConfig struct {
	IntervalSec     int     `yaml:"interval_sec"`
	Sigma           float64 `yaml:"sigma"`
	FloorSymbol     string  `yaml:"floor_symbol"`
	WritesPerMinute int     `yaml:"writes_per_minute"`
}

func (c PerturbConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

type SearchConfig struct {
	URL string `yaml:"url"`
}

type DatasetConfig struct {
	StocksFile string `yaml:"stocks_file"`
	MaxStocks  int    `yaml:"max_stocks"`
}

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Server   ServerConfig  `yaml:"server"`
	Refresh  RefreshConfig `yaml:"refresh"`
	Feeds    FeedsConfig   `yaml:"feeds"`
	Status   StatusConfig  `yaml:"status"`
	Perturb  PerturbConfig `yaml:"perturb"`
	Search   SearchConfig  `yaml:"search"`
	Dataset  DatasetConfig `yaml:"dataset"`
}

const (
	_portDefault              = "8080"
	_refreshPeriodSecDefault  = 5
	_orderBatchLimitDefault   = 50
	_statusIntervalDefault    = 1
	_orderIntervalDefault     = 2
	_priceIntervalDefault     = 5
	_boardIntervalDefault     = 5
	_sentinelNameDefault      = "Couchbase Demo Phone"
	_sentinelPauseSecDefault  = 2
	_orderBufferSizeDefault   = 50
	_stockBoardSizeDefault    = 10
	_investorBoardSizeDefault = 5
	_statusPollMSDefault      = 500
	_perturbIntervalDefault   = 8
	_perturbSigmaDefault      = 0.025
	_floorSymbolDefault       = "CBSE"
	_writesPerMinuteDefault   = 600
	_stocksFileDefault        = "stocks.json"
	_maxStocksDefault         = 200
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: can't read config file", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: can't parse config file", err)
	}

	if err := cfg.Setup(); err != nil {
		return nil, fmt.Errorf("%w: invalid config", err)
	}

	return &cfg, nil
}

func (c *Config) Setup() error {
	if c.Server.Port == "" {
		c.Server.Port = _portDefault
	}
	if c.Refresh.PeriodSec <= 0 {
		c.Refresh.PeriodSec = _refreshPeriodSecDefault
	}
	if c.Refresh.OrderBatchLimit <= 0 {
		c.Refresh.OrderBatchLimit = _orderBatchLimitDefault
	}
	if c.Feeds.StatusIntervalSec <= 0 {
		c.Feeds.StatusIntervalSec = _statusIntervalDefault
	}
	if c.Feeds.OrderIntervalSec <= 0 {
		c.Feeds.OrderIntervalSec = _orderIntervalDefault
	}
	if c.Feeds.PriceIntervalSec <= 0 {
		c.Feeds.PriceIntervalSec = _priceIntervalDefault
	}
	if c.Feeds.LeaderboardIntervalSec <= 0 {
		c.Feeds.LeaderboardIntervalSec = _boardIntervalDefault
	}
	if c.Feeds.SentinelName == "" {
		c.Feeds.SentinelName = _sentinelNameDefault
	}
	if c.Feeds.SentinelPauseSec <= 0 {
		c.Feeds.SentinelPauseSec = _sentinelPauseSecDefault
	}
	if c.Feeds.OrderBufferSize <= 0 {
		c.Feeds.OrderBufferSize = _orderBufferSizeDefault
	}
	if c.Feeds.StockBoardSize <= 0 {
		c.Feeds.StockBoardSize = _stockBoardSizeDefault
	}
	if c.Feeds.InvestorBoardSize <= 0 {
		c.Feeds.InvestorBoardSize = _investorBoardSizeDefault
	}
	if c.Status.PollIntervalMS <= 0 {
		c.Status.PollIntervalMS = _statusPollMSDefault
	}
	if c.Status.URL != "" {
		if _, err := url.Parse(c.Status.URL); err != nil {
			return fmt.Errorf("%w: invalid status url", err)
		}
	}
	if c.Perturb.IntervalSec <= 0 {
		c.Perturb.IntervalSec = _perturbIntervalDefault
	}
	if c.Perturb.Sigma <= 0 {
		c.Perturb.Sigma = _perturbSigmaDefault
	}
	if c.Perturb.FloorSymbol == "" {
		c.Perturb.FloorSymbol = _floorSymbolDefault
	}
	if c.Perturb.WritesPerMinute <= 0 {
		c.Perturb.WritesPerMinute = _writesPerMinuteDefault
	}
	if c.Search.URL != "" {
		if _, err := url.Parse(c.Search.URL); err != nil {
			return fmt.Errorf("%w: invalid search url", err)
		}
	}
	if c.Dataset.StocksFile == "" {
		c.Dataset.StocksFile = _stocksFileDefault
	}
	if c.Dataset.MaxStocks <= 0 {
		c.Dataset.MaxStocks = _maxStocksDefault
	}

	return nil
}

package config

import (
	"time"

	"github.com/gaze-network/batchsale/internal/postgres"
	"github.com/gaze-network/batchsale/modules/sale/archive"
	"github.com/gaze-network/batchsale/pkg/backoff"
	"github.com/gaze-network/batchsale/pkg/btcpay"
	"github.com/gaze-network/batchsale/pkg/rgbnode"
)

type Config struct {
	Database    string          `mapstructure:"database"` // Database to store sale data. `postgres` | `memory`
	Postgres    postgres.Config `mapstructure:"postgres"`
	TotalSupply uint64          `mapstructure:"total_supply"`
	InvoiceTTL  time.Duration   `mapstructure:"invoice_ttl"`
	APIHandlers []string        `mapstructure:"api_handlers"` // e.g. `http`
	BTCPay      btcpay.Config   `mapstructure:"btcpay"`
	RGBNode     rgbnode.Config  `mapstructure:"rgb_node"`
	Monitor     backoff.Policy  `mapstructure:"monitor"`
	Consign     backoff.Policy  `mapstructure:"consign"`
	Stats       StatsConfig     `mapstructure:"stats"`
	Archive     archive.Config  `mapstructure:"archive"`
}

type StatsConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	MaxStale    time.Duration `mapstructure:"max_stale"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

package config

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common"
	saleconfig "github.com/gaze-network/batchsale/modules/sale/config"
	"github.com/gaze-network/batchsale/pkg/logger"
	"github.com/gaze-network/batchsale/pkg/logger/slogx"
	"github.com/gaze-network/batchsale/pkg/middleware/requestlogger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	isInit bool
	mu     sync.Mutex
	config = defaultConfig()
)

type Config struct {
	Logger        logger.Config    `mapstructure:"logger"`
	Network       common.Network   `mapstructure:"network"`
	HTTPServer    HTTPServerConfig `mapstructure:"http_server"`
	EnableModules []string         `mapstructure:"enable_modules"`
	APIOnly       bool             `mapstructure:"api_only"`
	Modules       Modules          `mapstructure:"modules"`
}

type Modules struct {
	Sale saleconfig.Config `mapstructure:"sale"`
}

type HTTPServerConfig struct {
	Port   int                  `mapstructure:"port"`
	Logger requestlogger.Config `mapstructure:"logger"`
}

func defaultConfig() *Config {
	return &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServerConfig{
			Port: 8080,
		},
		EnableModules: []string{"sale"},
		Modules: Modules{
			Sale: saleconfig.Config{
				Database:    "postgres",
				InvoiceTTL:  15 * time.Minute,
				APIHandlers: []string{"http"},
			},
		},
	}
}

// Parse parses the configuration from environment variables and the config
// file. An empty configFile looks for ./config.yaml.
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slogx.String("package", "config"))

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}

// Load returns the parsed configuration, parsing it first if needed.
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if !isInit {
		return parse()
	}
	return *config
}

// BindPFlag binds a specific key to a pflag (as used by cobra).
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slogx.String("package", "config"), slogx.Error(err))
	}
}

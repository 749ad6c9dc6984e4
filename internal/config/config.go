// Package config loads and validates the engine configuration.
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	RPCList        []string `mapstructure:"rpc_list"`
	WebSocketURL   string   `mapstructure:"websocket_url"`
	Commitment     string   `mapstructure:"commitment"`
	MaxRetries     int      `mapstructure:"max_retries"`
	BackoffBaseMs  int      `mapstructure:"backoff_base_ms"`
	BackoffCapMs   int      `mapstructure:"backoff_cap_ms"`
	BlockhashTTLMs int      `mapstructure:"blockhash_ttl_ms"`
	ConfirmMs      int      `mapstructure:"confirm_timeout_ms"`
	PollIntervalMs int      `mapstructure:"poll_interval_ms"`
	Priority       string   `mapstructure:"priority"`
	PriorityFee    uint64   `mapstructure:"priority_fee_micro_lamports"`
	SkipSimulation bool     `mapstructure:"skip_simulation"`
	ProgramID      string   `mapstructure:"program_id"`
	WalletKey      string   `mapstructure:"wallet_key"`
	LogFile        string   `mapstructure:"log_file"`
	DebugLogging   bool     `mapstructure:"debug_logging"`
}

const (
	DefaultMaxRetries     = 3
	DefaultBackoffBaseMs  = 500
	DefaultBackoffCapMs   = 10_000
	DefaultBlockhashTTLMs = 30_000
	DefaultConfirmMs      = 90_000
	DefaultPollMs         = 500
	DefaultCommitment     = "confirmed"
	DefaultPriority       = "medium"
)

// Load reads the config file at path, applies defaults and environment
// overrides (TXKIT_ prefix), and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TXKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := map[string]interface{}{
		"commitment":         DefaultCommitment,
		"max_retries":        DefaultMaxRetries,
		"backoff_base_ms":    DefaultBackoffBaseMs,
		"backoff_cap_ms":     DefaultBackoffCapMs,
		"blockhash_ttl_ms":   DefaultBlockhashTTLMs,
		"confirm_timeout_ms": DefaultConfirmMs,
		"poll_interval_ms":   DefaultPollMs,
		"priority":           DefaultPriority,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, Validate(&cfg)
}

// Validate checks the structural constraints of a config.
func Validate(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := checkScheme(rpcURL, "http", "https"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL != "" {
		if err := checkScheme(cfg.WebSocketURL, "ws", "wss"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	switch cfg.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return errors.New("commitment must be processed, confirmed or finalized")
	}
	switch cfg.Priority {
	case "low", "medium", "high", "extreme":
	default:
		return errors.New("priority must be low, medium, high or extreme")
	}
	if cfg.MaxRetries <= 0 {
		return errors.New("invalid max_retries")
	}
	if cfg.BackoffBaseMs <= 0 || cfg.BackoffCapMs < cfg.BackoffBaseMs {
		return errors.New("invalid backoff settings")
	}
	if cfg.BlockhashTTLMs < 20_000 || cfg.BlockhashTTLMs > 45_000 {
		return errors.New("blockhash_ttl_ms must be within 20000..45000")
	}
	if cfg.ConfirmMs < 60_000 || cfg.ConfirmMs > 120_000 {
		return errors.New("confirm_timeout_ms must be within 60000..120000")
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	return nil
}

func (c *Config) BlockhashTTL() time.Duration   { return time.Duration(c.BlockhashTTLMs) * time.Millisecond }
func (c *Config) BackoffBase() time.Duration    { return time.Duration(c.BackoffBaseMs) * time.Millisecond }
func (c *Config) BackoffCap() time.Duration     { return time.Duration(c.BackoffCapMs) * time.Millisecond }
func (c *Config) ConfirmCeiling() time.Duration { return time.Duration(c.ConfirmMs) * time.Millisecond }
func (c *Config) PollInterval() time.Duration   { return time.Duration(c.PollIntervalMs) * time.Millisecond }

func checkScheme(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return errors.New("unexpected URL scheme")
}

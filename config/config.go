package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/artdesignbySF/MadameSatoshi/logging"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	LNbits      LNbitsConfig     `mapstructure:"lnbits"`
	Game        GameConfig       `mapstructure:"game"`
	Withdrawal  WithdrawalConfig `mapstructure:"withdrawal"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	Logging     logging.Config   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// LNbitsConfig holds the LNbits endpoint and wallet keys.
// InvoiceKey receives stakes and deposits on the operator's main wallet,
// AdminKey funds outgoing transfers from it, PayoutAdminKey owns the
// LNURL-withdraw links, ProfitAdminKey receives the per-play profit share.
type LNbitsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	InvoiceKey     string        `mapstructure:"invoice_key"`
	AdminKey       string        `mapstructure:"admin_key"`
	PayoutAdminKey string        `mapstructure:"payout_admin_key"`
	ProfitAdminKey string        `mapstructure:"profit_admin_key"`
	CheckTimeout   time.Duration `mapstructure:"check_timeout"`
	InvoiceTimeout time.Duration `mapstructure:"invoice_timeout"`
	PaymentTimeout time.Duration `mapstructure:"payment_timeout"`
}

// GameConfig holds the play economics
type GameConfig struct {
	StakeSats        int64   `mapstructure:"stake_sats"`
	ContributionRate float64 `mapstructure:"contribution_rate"`
	MinJackpotSeed   int64   `mapstructure:"min_jackpot_seed"`
	ProfitShareSats  int64   `mapstructure:"profit_share_sats"`
	InvoiceMemo      string  `mapstructure:"invoice_memo"`
}

// ContributionSats returns the per-play jackpot contribution,
// floor(stake * rate).
func (g GameConfig) ContributionSats() int64 {
	return decimal.NewFromInt(g.StakeSats).
		Mul(decimal.NewFromFloat(g.ContributionRate)).
		Floor().
		IntPart()
}

// WithdrawalConfig holds LNURL-withdraw settings
type WithdrawalConfig struct {
	LinkTitle  string  `mapstructure:"link_title"`
	FeeRate    float64 `mapstructure:"fee_rate"`
	FeeMinSats int64   `mapstructure:"fee_min_sats"`
}

// FeeSats returns the funding surplus for a withdrawal of the given
// amount, max(FeeMinSats, ceil(amount * FeeRate)). The surplus covers
// routing fees so the claim nets the intended amount.
func (w WithdrawalConfig) FeeSats(amount int64) int64 {
	fee := decimal.NewFromInt(amount).
		Mul(decimal.NewFromFloat(w.FeeRate)).
		Ceil().
		IntPart()
	if fee < w.FeeMinSats {
		return w.FeeMinSats
	}
	return fee
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// KafkaConfig holds Kafka configuration. Brokers may be empty, in which
// case audit events are not published.
type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MADAMESATOSHI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// LoadByEnv loads configuration based on environment using Viper
func LoadByEnv(configDir string) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := viper.GetString("ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	v.SetConfigName(fmt.Sprintf("config-%s", env))
	v.SetConfigType("yaml")

	v.SetEnvPrefix("MADAMESATOSHI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// Validate checks that every LNbits credential needed for play,
// withdrawal funding and profit transfers is present.
func (c *Config) Validate() error {
	if c.LNbits.BaseURL == "" {
		return fmt.Errorf("lnbits.base_url is required")
	}
	if c.LNbits.InvoiceKey == "" {
		return fmt.Errorf("lnbits.invoice_key is required")
	}
	if c.LNbits.AdminKey == "" {
		return fmt.Errorf("lnbits.admin_key is required (withdrawal funding fails without it)")
	}
	if c.LNbits.PayoutAdminKey == "" {
		return fmt.Errorf("lnbits.payout_admin_key is required (LNURL withdraw fails without it)")
	}
	return nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.LNbits.CheckTimeout == 0 {
		c.LNbits.CheckTimeout = 10 * time.Second
	}
	if c.LNbits.InvoiceTimeout == 0 {
		c.LNbits.InvoiceTimeout = 15 * time.Second
	}
	if c.LNbits.PaymentTimeout == 0 {
		// May traverse external payment rails, keep it generous.
		c.LNbits.PaymentTimeout = 45 * time.Second
	}
	if c.Game.StakeSats == 0 {
		c.Game.StakeSats = 21
	}
	if c.Game.ContributionRate == 0 {
		c.Game.ContributionRate = 0.8
	}
	if c.Game.MinJackpotSeed == 0 {
		c.Game.MinJackpotSeed = 500
	}
	if c.Game.ProfitShareSats == 0 {
		c.Game.ProfitShareSats = 4
	}
	if c.Game.InvoiceMemo == "" {
		c.Game.InvoiceMemo = "Madame Satoshi Reading"
	}
	if c.Withdrawal.LinkTitle == "" {
		c.Withdrawal.LinkTitle = "Madame Satoshi Winnings"
	}
	if c.Withdrawal.FeeRate == 0 {
		c.Withdrawal.FeeRate = 0.02
	}
	if c.Withdrawal.FeeMinSats == 0 {
		c.Withdrawal.FeeMinSats = 2
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "madamesatoshi"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Kafka.AuditTopic == "" {
		c.Kafka.AuditTopic = "madamesatoshi.audit"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

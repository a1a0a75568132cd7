package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payments PaymentsConfig `yaml:"payments"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	HoldTTLSeconds       int `yaml:"hold_ttl_seconds"`
	UnitsCacheTTLSeconds int `yaml:"units_cache_ttl_seconds"`
}

type PaymentsConfig struct {
	DefaultProvider   string         `yaml:"default_provider"`
	Currency          string         `yaml:"currency"`
	PendingTTLMinutes int            `yaml:"pending_ttl_minutes"`
	AlphaPay          ProviderConfig `yaml:"alphapay"`
	BetaPay           ProviderConfig `yaml:"betapay"`
}

type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	KeyID          string `yaml:"key_id"`
	KeySecret      string `yaml:"key_secret"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type WorkerConfig struct {
	PaymentSweepMinutes int `yaml:"payment_sweep_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return &cfg, nil
}

// applyEnvOverrides lets provider credentials come from the environment so
// secrets never need to live in the YAML file.
func (c *Config) applyEnvOverrides() {
	override(&c.Payments.AlphaPay.KeyID, "ALPHAPAY_KEY_ID")
	override(&c.Payments.AlphaPay.KeySecret, "ALPHAPAY_KEY_SECRET")
	override(&c.Payments.AlphaPay.WebhookSecret, "ALPHAPAY_WEBHOOK_SECRET")
	override(&c.Payments.BetaPay.KeyID, "BETAPAY_KEY_ID")
	override(&c.Payments.BetaPay.KeySecret, "BETAPAY_KEY_SECRET")
	override(&c.Payments.BetaPay.WebhookSecret, "BETAPAY_WEBHOOK_SECRET")
	override(&c.Database.Password, "DATABASE_PASSWORD")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

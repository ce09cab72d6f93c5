package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Billing  BillingConfig  `mapstructure:"billing"`
	LogDebug bool           `mapstructure:"log_debug"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	// Driver selects the persistence backend: "postgres" or "memory".
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Database)
}

type RabbitMQConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Exchange string `mapstructure:"exchange"`
}

type KafkaConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BrokerList string `mapstructure:"broker_list"`
	Topic      string `mapstructure:"topic"`
}

type WebhookConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	BaseBackoff    time.Duration `mapstructure:"base_backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	Workers        int           `mapstructure:"workers"`
	QueueSize      int           `mapstructure:"queue_size"`
}

type BillingConfig struct {
	TaxRate float64 `mapstructure:"tax_rate"`
}

func setDefaults() {
	viper.SetDefault("http.port", 3000)
	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.vhost", "/")
	viper.SetDefault("rabbitmq.exchange", "channel_acks")
	viper.SetDefault("kafka.broker_list", "localhost:9092")
	viper.SetDefault("kafka.topic", "dinewire.activity")
	viper.SetDefault("webhook.max_attempts", 5)
	viper.SetDefault("webhook.base_backoff", time.Second)
	viper.SetDefault("webhook.attempt_timeout", 10*time.Second)
	viper.SetDefault("webhook.workers", 8)
	viper.SetDefault("webhook.queue_size", 256)
	viper.SetDefault("billing.tax_rate", 0.10)
}

// Load reads the config file (when given), applies environment overrides and
// unmarshals into Config.
func Load(cfgFile string) (*Config, error) {
	setDefaults()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("dinewire")
	}
	viper.SetEnvPrefix("DINEWIRE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := viper.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Webhook.MaxAttempts <= 0 {
		cfg.Webhook.MaxAttempts = 5
	}
	if cfg.Webhook.Workers <= 0 {
		cfg.Webhook.Workers = 8
	}
	return &cfg, nil
}

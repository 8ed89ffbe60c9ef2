package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lidofinance/govtx/client/types"
)

const EnvPrefix = "GOVTX"

// Flag names double as viper keys and, upper-cased with the GOVTX_ prefix, as env variables
const (
	FlagConfig              = "config"
	FlagUserName            = "username"
	FlagLogLevel            = "log_level"
	FlagListenAddr          = "listen_addr"
	FlagStateDBDSN          = "state_dbdsn"
	FlagStoreDBDSN          = "key_store_dbdsn"
	FlagNetwork             = "network"
	FlagGatewayURL          = "gateway_url"
	FlagPollingPeriod       = "polling_period"
	FlagRateURL             = "rate_url"
	FlagRateCoinID          = "rate_coin_id"
	FlagRateTTL             = "rate_ttl"
	FlagRateMaxStale        = "rate_max_stale"
	FlagRateMinInterval     = "rate_min_interval"
	FlagDescriptorTTL       = "descriptor_ttl"
	FlagJournal             = "journal"
	FlagStorageDBDSN        = "storage_dbdsn"
	FlagStorageTopic        = "storage_topic"
	FlagKafkaTrustStorePath = "kafka_truststore_path"
	FlagKafkaProducerCreds  = "producer_credentials"
	FlagKafkaConsumerCreds  = "consumer_credentials"
	FlagKafkaTimeout        = "kafka_timeout"
)

const (
	JournalFile  = "file"
	JournalKafka = "kafka"
	JournalNone  = "none"
)

type HttpApiConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

type ChainConfig struct {
	Network       string        `mapstructure:"network"`
	GatewayURL    string        `mapstructure:"gateway_url"`
	PollingPeriod time.Duration `mapstructure:"polling_period"`
}

type RateConfig struct {
	URL string `mapstructure:"rate_url"`
	// CoinID defaults to the network name, e.g. "kusama"
	CoinID      string        `mapstructure:"rate_coin_id"`
	TTL         time.Duration `mapstructure:"rate_ttl"`
	MaxStale    time.Duration `mapstructure:"rate_max_stale"`
	MinInterval time.Duration `mapstructure:"rate_min_interval"`
}

type JournalConfig struct {
	Type string `mapstructure:"journal"`
	// DBDSN is the journal file path or the kafka broker endpoint
	DBDSN               string        `mapstructure:"storage_dbdsn"`
	Topic               string        `mapstructure:"storage_topic"`
	TrustStorePath      string        `mapstructure:"kafka_truststore_path"`
	ProducerCredentials string        `mapstructure:"producer_credentials"` // username:password
	ConsumerCredentials string        `mapstructure:"consumer_credentials"` // username:password
	Timeout             time.Duration `mapstructure:"kafka_timeout"`
}

type Config struct {
	Username      string        `mapstructure:"username"`
	LogLevel      string        `mapstructure:"log_level"`
	StateDBDSN    string        `mapstructure:"state_dbdsn"`
	KeyStoreDBDSN string        `mapstructure:"key_store_dbdsn"`
	DescriptorTTL time.Duration `mapstructure:"descriptor_ttl"`

	HttpApiConfig `mapstructure:",squash"`
	ChainConfig   `mapstructure:",squash"`
	RateConfig    `mapstructure:",squash"`
	JournalConfig `mapstructure:",squash"`
}

var defaults = map[string]interface{}{
	FlagUserName:            "govtx",
	FlagLogLevel:            "info",
	FlagListenAddr:          "localhost:8080",
	FlagStateDBDSN:          "./govtx_state",
	FlagStoreDBDSN:          "./govtx_key_store",
	FlagNetwork:             types.Kusama.Name,
	FlagGatewayURL:          "http://localhost:9944",
	FlagPollingPeriod:       2 * time.Second,
	FlagRateURL:             "https://api.coingecko.com/api/v3",
	FlagRateCoinID:          "",
	FlagRateTTL:             time.Minute,
	FlagRateMaxStale:        15 * time.Minute,
	FlagRateMinInterval:     10 * time.Second,
	FlagDescriptorTTL:       6 * time.Second,
	FlagJournal:             JournalFile,
	FlagStorageDBDSN:        "./govtx_journal",
	FlagStorageTopic:        "govtx_events",
	FlagKafkaTrustStorePath: "",
	FlagKafkaProducerCreds:  "",
	FlagKafkaConsumerCreds:  "",
	FlagKafkaTimeout:        10 * time.Second,
}

var usages = map[string]string{
	FlagUserName:            "Username, the key store entry to sign with",
	FlagLogLevel:            "Log level: debug, info, warn or error",
	FlagListenAddr:          "Listen Address",
	FlagStateDBDSN:          "State DBDSN",
	FlagStoreDBDSN:          "Key Store DBDSN",
	FlagNetwork:             "Network: kusama or polkadot",
	FlagGatewayURL:          "Chain gateway URL",
	FlagPollingPeriod:       "Transaction status polling period",
	FlagRateURL:             "Currency rate API URL",
	FlagRateCoinID:          "Currency rate coin id, defaults to the network name",
	FlagRateTTL:             "Currency rate cache TTL",
	FlagRateMaxStale:        "Serve a cached rate this long when the rate API fails",
	FlagRateMinInterval:     "Minimal interval between rate API requests",
	FlagDescriptorTTL:       "Built transaction cache TTL",
	FlagJournal:             "Event journal: file, kafka or none",
	FlagStorageDBDSN:        "Journal file path or Kafka broker endpoint",
	FlagStorageTopic:        "Storage Topic (Kafka)",
	FlagKafkaTrustStorePath: "Path to kafka truststore",
	FlagKafkaProducerCreds:  "Producer credentials for Kafka: username:password",
	FlagKafkaConsumerCreds:  "Consumer credentials for Kafka: username:password",
	FlagKafkaTimeout:        "Kafka I/O timeout",
}

func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// RegisterFlags adds the config flags to a command flag set
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagConfig, "", "Path to a config file")
	for key, value := range defaults {
		switch value := value.(type) {
		case time.Duration:
			flags.Duration(key, value, usages[key])
		case string:
			flags.String(key, value, usages[key])
		}
	}
}

// Load reads the config from defaults, an optional config file, GOVTX_*
// environment variables and the command flags, in increasing priority.
func Load(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if file := v.GetString(FlagConfig); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.CoinID == "" {
		cfg.CoinID = strings.ToLower(cfg.ChainConfig.Network)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if _, err := c.Network(); err != nil {
		return err
	}
	switch c.JournalConfig.Type {
	case JournalFile, JournalNone:
	case JournalKafka:
		if c.Topic == "" {
			return errors.New("kafka journal requires a topic")
		}
	default:
		return fmt.Errorf("unknown journal type %q", c.JournalConfig.Type)
	}
	if c.GatewayURL == "" {
		return errors.New("gateway url is required")
	}
	return nil
}

// Network returns the preset of the configured network
func (c *Config) Network() (types.Network, error) {
	return types.NetworkByName(c.ChainConfig.Network)
}

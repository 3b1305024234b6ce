// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/pos.yaml"

// Config 是所有 POS 进程共用的配置。
// 加载顺序：默认值 -> YAML 文件 -> 环境变量。
type Config struct {
	App      AppConfig      `yaml:"app"`
	Store    StoreConfig    `yaml:"store"`
	Checkout CheckoutConfig `yaml:"checkout"`
	Report   ReportConfig   `yaml:"report"`
	Infra    InfraConfig    `yaml:"infra"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// StoreConfig 门店级设置。
type StoreConfig struct {
	TaxRate  float64 `yaml:"tax_rate"` // 百分比，价格为含税价
	Currency string  `yaml:"currency"`
	// PromotionPolicy 决定请求未显式指定 auto_promotion 时的行为：manual 或 auto
	PromotionPolicy string `yaml:"promotion_policy"`
	LowStockDefault int    `yaml:"low_stock_default"`
	// Timezone 是 IANA 时区名，营业日和报表按它切分
	Timezone string `yaml:"timezone"`
}

// Location 返回门店时区，时区名无效时退回 UTC。
func (s StoreConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CheckoutConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	CommitTimeout time.Duration `yaml:"commit_timeout"`
	// Serializer: none | local | zookeeper
	Serializer string `yaml:"serializer"`
}

type ReportConfig struct {
	LiveTTL     time.Duration `yaml:"live_ttl"` // 实时汇总 key 的过期时间
	TopProducts int           `yaml:"top_products"`
}

type InfraConfig struct {
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Nacos     NacosConfig     `yaml:"nacos"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addrs []string `yaml:"addrs"`
}

type KafkaConfig struct {
	Brokers   []string `yaml:"brokers"`
	SaleTopic string   `yaml:"sale_topic"`
	GroupID   string   `yaml:"group_id"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"server_addrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

var (
	currentConfig *Config
	configMu      sync.RWMutex
)

// DefaultConfig 返回一份可以直接在本机运行的配置。
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{Port: 8080, LogLevel: "info"},
		Store: StoreConfig{
			TaxRate:         7,
			Currency:        "THB",
			PromotionPolicy: "manual",
			LowStockDefault: 5,
			Timezone:        "UTC",
		},
		Checkout: CheckoutConfig{
			MaxRetries:    3,
			RetryBackoff:  50 * time.Millisecond,
			CommitTimeout: 10 * time.Second,
			Serializer:    "none",
		},
		Report: ReportConfig{LiveTTL: 48 * time.Hour, TopProducts: 10},
		Infra: InfraConfig{
			MySQL: MySQLConfig{DSN: "pos:pos@tcp(localhost:3306)/pos?charset=utf8mb4&parseTime=True&loc=UTC"},
			Redis: RedisConfig{Addrs: []string{"localhost:6379"}},
			Kafka: KafkaConfig{
				Brokers:   []string{"localhost:9092"},
				SaleTopic: "pos.sale-completed",
				GroupID:   "report-projector",
			},
			Zookeeper: ZookeeperConfig{
				Servers:        []string{"localhost:2181"},
				SessionTimeout: 5 * time.Second,
			},
			Nacos: NacosConfig{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
		},
	}
}

// Init 从 POS_CONFIG（默认 configs/pos.yaml）加载配置并设置为当前配置。
// 文件不存在时只使用默认值和环境变量。
func Init() (*Config, error) {
	cfg, err := Load(getEnv("POS_CONFIG", defaultConfigPath))
	if err != nil {
		return nil, err
	}
	SetCurrentConfig(cfg)
	return cfg, nil
}

// Load 读取指定路径的配置文件，叠加环境变量，并校验结果。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Infra.MySQL.DSN = getEnv("MYSQL_DSN", cfg.Infra.MySQL.DSN)
	cfg.Infra.Redis.Addrs = getEnvList("REDIS_ADDRS", cfg.Infra.Redis.Addrs)
	cfg.Infra.Kafka.Brokers = getEnvList("KAFKA_BROKERS", cfg.Infra.Kafka.Brokers)
	cfg.Infra.Kafka.SaleTopic = getEnv("KAFKA_SALE_TOPIC", cfg.Infra.Kafka.SaleTopic)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Zookeeper.Servers = getEnvList("ZOOKEEPER_SERVERS", cfg.Infra.Zookeeper.Servers)
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.Checkout.Serializer = getEnv("CHECKOUT_SERIALIZER", cfg.Checkout.Serializer)
	cfg.Store.Timezone = getEnv("STORE_TIMEZONE", cfg.Store.Timezone)

	if port, err := strconv.Atoi(getEnv("HTTP_PORT", "")); err == nil {
		cfg.App.Port = port
	}
}

// Validate 检查配置中不能由默认值兜底的错误。
func (c *Config) Validate() error {
	if c.Store.TaxRate < 0 || c.Store.TaxRate >= 100 {
		return fmt.Errorf("store.tax_rate must be in [0,100), got %v", c.Store.TaxRate)
	}
	switch c.Store.PromotionPolicy {
	case "manual", "auto":
	default:
		return fmt.Errorf("store.promotion_policy must be manual or auto, got %q", c.Store.PromotionPolicy)
	}
	switch c.Checkout.Serializer {
	case "none", "local", "zookeeper":
	default:
		return fmt.Errorf("checkout.serializer must be none, local or zookeeper, got %q", c.Checkout.Serializer)
	}
	if c.Checkout.MaxRetries < 0 {
		return fmt.Errorf("checkout.max_retries must not be negative")
	}
	if c.Checkout.CommitTimeout <= 0 {
		return fmt.Errorf("checkout.commit_timeout must be positive")
	}
	if c.Store.Timezone != "" {
		if _, err := time.LoadLocation(c.Store.Timezone); err != nil {
			return errors.Wrapf(err, "store.timezone %q", c.Store.Timezone)
		}
	}
	if c.Report.LiveTTL < time.Hour {
		return fmt.Errorf("report.live_ttl must be at least 1h, got %s", c.Report.LiveTTL)
	}
	if c.Report.TopProducts <= 0 {
		return fmt.Errorf("report.top_products must be positive")
	}
	return nil
}

// GetCurrentConfig 返回当前生效的配置；尚未 Init 时返回默认配置。
func GetCurrentConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	if currentConfig == nil {
		return DefaultConfig()
	}
	return currentConfig
}

func SetCurrentConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	currentConfig = cfg
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

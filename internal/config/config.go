package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tm-acme-shop/acme-shop-commerce-orders/internal/logging"
)

type Config struct {
	Server              ServerConfig
	Database            DatabaseConfig
	Redis               RedisConfig
	Kafka               KafkaConfig
	NotificationService ServiceConfig
	Logging             logging.Config
	Pricing             PricingConfig
	Features            FeatureFlags
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
	CartTTL  time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	PaymentsTopic string
	ConsumerGroup string
}

type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// PricingConfig overrides the synthetic charge-line vocabulary.
// Empty lists fall back to the built-in names.
type PricingConfig struct {
	GSTLineNames      []string
	DeliveryLineNames []string
	Currency          string
}

type FeatureFlags struct {
	EnableOrderCaching    bool
	EnableOrderEvents     bool
	EnableNotifications   bool
	EnablePaymentConsumer bool
	UseInMemoryStore      bool
}

// envBindings maps config keys to the environment variables the service
// has always read.
var envBindings = map[string]string{
	"server.port":                      "SERVER_PORT",
	"server.read_timeout":              "SERVER_READ_TIMEOUT",
	"server.write_timeout":             "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout":          "SERVER_SHUTDOWN_TIMEOUT",
	"database.host":                    "DB_HOST",
	"database.port":                    "DB_PORT",
	"database.user":                    "DB_USER",
	"database.password":                "DB_PASSWORD",
	"database.name":                    "DB_NAME",
	"database.sslmode":                 "DB_SSLMODE",
	"database.max_open_conns":          "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":          "DB_MAX_IDLE_CONNS",
	"database.max_lifetime":            "DB_MAX_LIFETIME",
	"redis.host":                       "REDIS_HOST",
	"redis.port":                       "REDIS_PORT",
	"redis.password":                   "REDIS_PASSWORD",
	"redis.db":                         "REDIS_DB",
	"redis.ttl":                        "REDIS_TTL",
	"redis.cart_ttl":                   "REDIS_CART_TTL",
	"kafka.brokers":                    "KAFKA_BROKERS",
	"kafka.orders_topic":               "KAFKA_ORDERS_TOPIC",
	"kafka.payments_topic":             "KAFKA_PAYMENTS_TOPIC",
	"kafka.consumer_group":             "KAFKA_CONSUMER_GROUP",
	"notification.base_url":            "NOTIFICATION_SERVICE_URL",
	"notification.timeout":             "NOTIFICATION_SERVICE_TIMEOUT",
	"notification.api_key":             "NOTIFICATION_SERVICE_API_KEY",
	"logging.level":                    "LOG_LEVEL",
	"logging.format":                   "LOG_FORMAT",
	"logging.file":                     "LOG_FILE_ENABLED",
	"logging.file_path":                "LOG_FILE_PATH",
	"pricing.gst_line_names":           "PRICING_GST_LINE_NAMES",
	"pricing.delivery_line_names":      "PRICING_DELIVERY_LINE_NAMES",
	"pricing.currency":                 "PRICING_CURRENCY",
	"features.enable_order_caching":    "FEATURE_ORDER_CACHING",
	"features.enable_order_events":     "FEATURE_ORDER_EVENTS",
	"features.enable_notifications":    "FEATURE_NOTIFICATIONS",
	"features.enable_payment_consumer": "FEATURE_PAYMENT_CONSUMER",
	"features.use_in_memory_store":     "FEATURE_IN_MEMORY_STORE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8082)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "acme")
	v.SetDefault("database.password", "acme")
	v.SetDefault("database.name", "acme_orders")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_lifetime", "5m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "5m")
	v.SetDefault("redis.cart_ttl", "720h")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.orders_topic", "orders")
	v.SetDefault("kafka.payments_topic", "payments")
	v.SetDefault("kafka.consumer_group", "orders-service")

	v.SetDefault("notification.base_url", "http://localhost:8085")
	v.SetDefault("notification.timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", logging.DefaultConfig().FilePath)

	v.SetDefault("pricing.currency", "INR")

	v.SetDefault("features.enable_order_caching", true)
	v.SetDefault("features.enable_order_events", true)
	v.SetDefault("features.enable_notifications", true)
	v.SetDefault("features.enable_payment_consumer", true)
	v.SetDefault("features.use_in_memory_store", false)
}

// Load reads configuration from defaults, an optional file named by
// ORDERS_CONFIG, and the environment, in increasing precedence.
func Load() *Config {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if path := os.Getenv("ORDERS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logging.Infof("Config file %s not loaded: %v", path, err)
		}
	}

	logDefaults := logging.DefaultConfig()

	return &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ReadTimeout:     getDuration(v, "server.read_timeout"),
			WriteTimeout:    getDuration(v, "server.write_timeout"),
			ShutdownTimeout: getDuration(v, "server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("database.host"),
			Port:         v.GetInt("database.port"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			Name:         v.GetString("database.name"),
			SSLMode:      v.GetString("database.sslmode"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
			MaxIdleConns: v.GetInt("database.max_idle_conns"),
			MaxLifetime:  getDuration(v, "database.max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      getDuration(v, "redis.ttl"),
			CartTTL:  getDuration(v, "redis.cart_ttl"),
		},
		Kafka: KafkaConfig{
			Brokers:       getList(v, "kafka.brokers"),
			OrdersTopic:   v.GetString("kafka.orders_topic"),
			PaymentsTopic: v.GetString("kafka.payments_topic"),
			ConsumerGroup: v.GetString("kafka.consumer_group"),
		},
		NotificationService: ServiceConfig{
			BaseURL: v.GetString("notification.base_url"),
			Timeout: getDuration(v, "notification.timeout"),
			APIKey:  v.GetString("notification.api_key"),
		},
		Logging: logging.Config{
			Level:      v.GetString("logging.level"),
			Format:     v.GetString("logging.format"),
			File:       v.GetBool("logging.file"),
			FilePath:   v.GetString("logging.file_path"),
			MaxSize:    logDefaults.MaxSize,
			MaxBackups: logDefaults.MaxBackups,
			MaxAge:     logDefaults.MaxAge,
		},
		Pricing: PricingConfig{
			GSTLineNames:      getList(v, "pricing.gst_line_names"),
			DeliveryLineNames: getList(v, "pricing.delivery_line_names"),
			Currency:          v.GetString("pricing.currency"),
		},
		Features: FeatureFlags{
			EnableOrderCaching:    v.GetBool("features.enable_order_caching"),
			EnableOrderEvents:     v.GetBool("features.enable_order_events"),
			EnableNotifications:   v.GetBool("features.enable_notifications"),
			EnablePaymentConsumer: v.GetBool("features.enable_payment_consumer"),
			UseInMemoryStore:      v.GetBool("features.use_in_memory_store"),
		},
	}
}

// getDuration accepts Go duration strings and, as the service always has,
// bare integers meaning seconds.
func getDuration(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return v.GetDuration(key)
}

// getList reads comma separated values from env or a real list from a file.
func getList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

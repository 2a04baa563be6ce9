package config

import (
	"time"

	pkgconfig "github.com/campusmarket/marketplace/pkg/config"
	"github.com/campusmarket/marketplace/pkg/jwt"
	"github.com/campusmarket/marketplace/pkg/pubsub"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Auth         jwt.KeyConfig
	Listing      ListingConfig
	Notification NotificationConfig
	Mail         MailConfig
	Log          LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`

	// MigrateUsers creates the users table, which is normally owned elsewhere.
	MigrateUsers bool `mapstructure:"migrate_users"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Prefix     string        `mapstructure:"prefix"`
	TTL        time.Duration `mapstructure:"ttl"`
	ListingTTL time.Duration `mapstructure:"listing_ttl"`
}

type ListingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotificationConfig controls the new-message email path.
// Driver "inline" runs an in-process worker pool; "kafka" and "redis"
// hand events to pkg/pubsub for a consumer to deliver.
type NotificationConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Driver          string        `mapstructure:"driver"`
	Workers         int           `mapstructure:"workers"`
	QueueSize       int           `mapstructure:"queue_size"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ConsumerEnabled bool          `mapstructure:"consumer_enabled"`
	Channel         string        `mapstructure:"channel"`
	PubSub          pubsub.Config `mapstructure:"pubsub"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`

	// TLS is one of opportunistic, mandatory or none.
	TLS     string        `mapstructure:"tls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"server.host":             "0.0.0.0",
	"server.port":             8085,
	"server.shutdown_timeout": 30 * time.Second,

	"database.driver":            "postgres",
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.dbname":            "campus_marketplace",
	"database.sslmode":           "disable",
	"database.file_path":         "./data/messaging.db",
	"database.max_idle_conns":    10,
	"database.max_open_conns":    100,
	"database.conn_max_lifetime": 60,
	"database.log_level":         "warn",
	"database.migrate_users":     false,

	"redis.enabled":     true,
	"redis.address":     "localhost:6379",
	"redis.db":          0,
	"cache.prefix":      "messaging",
	"cache.ttl":         10 * time.Minute,
	"cache.listing_ttl": 5 * time.Minute,

	"auth.issuer": "",
	"auth.leeway": 30 * time.Second,

	"listing.base_url": "http://localhost:8100/api",
	"listing.timeout":  5 * time.Second,

	"notification.enabled":                        true,
	"notification.driver":                         "inline",
	"notification.workers":                        4,
	"notification.queue_size":                     256,
	"notification.timeout":                        15 * time.Second,
	"notification.consumer_enabled":               true,
	"notification.channel":                        pubsub.ChannelChatNotifications,
	"notification.pubsub.redis.address":           "localhost:6379",
	"notification.pubsub.redis.pool_size":         10,
	"notification.pubsub.redis.read_timeout":      3 * time.Second,
	"notification.pubsub.redis.write_timeout":     3 * time.Second,
	"notification.pubsub.kafka.brokers":           "localhost:9092",
	"notification.pubsub.kafka.group_id":          "messaging-notifier",
	"notification.pubsub.kafka.partitions":        4,
	"notification.pubsub.kafka.auto_offset_reset": "earliest",
	"notification.pubsub.kafka.delivery_timeout":  10 * time.Second,

	"mail.port":    587,
	"mail.from":    "noreply@campusmarketplace.com",
	"mail.tls":     "opportunistic",
	"mail.timeout": 15 * time.Second,

	"log.level":  "info",
	"log.format": "json",
}

var envBindings = map[string]string{
	"server.port":                        "PORT",
	"database.driver":                    "DB_DRIVER",
	"database.host":                      "DB_HOST",
	"database.port":                      "DB_PORT",
	"database.user":                      "DB_USER",
	"database.password":                  "DB_PASSWORD",
	"database.dbname":                    "DB_NAME",
	"database.sslmode":                   "DB_SSLMODE",
	"database.file_path":                 "DB_FILE_PATH",
	"database.max_idle_conns":            "DB_MAX_IDLE_CONNS",
	"database.max_open_conns":            "DB_MAX_OPEN_CONNS",
	"database.conn_max_lifetime":         "DB_CONN_MAX_LIFETIME",
	"database.migrate_users":             "DB_MIGRATE_USERS",
	"redis.enabled":                      "REDIS_ENABLED",
	"redis.address":                      "REDIS_ADDR",
	"redis.password":                     "REDIS_PASSWORD",
	"redis.db":                           "REDIS_DB",
	"auth.jwt_secret":                    "JWT_SECRET",
	"auth.jwt_public_key":                "JWT_PUBLIC_KEY",
	"auth.issuer":                        "JWT_ISSUER",
	"listing.base_url":                   "LISTING_API_URL",
	"notification.enabled":               "NOTIFICATION_ENABLED",
	"notification.driver":                "NOTIFICATION_DRIVER",
	"notification.consumer_enabled":      "NOTIFICATION_CONSUMER_ENABLED",
	"notification.pubsub.kafka.brokers":  "KAFKA_BROKERS",
	"notification.pubsub.redis.address":  "REDIS_ADDR",
	"notification.pubsub.redis.password": "REDIS_PASSWORD",
	"mail.host":                          "SMTP_HOST",
	"mail.port":                          "SMTP_PORT",
	"mail.username":                      "SMTP_USERNAME",
	"mail.password":                      "SMTP_PASSWORD",
	"mail.from":                          "MAIL_FROM",
	"mail.tls":                           "SMTP_TLS",
	"log.level":                          "LOG_LEVEL",
	"log.format":                         "LOG_FORMAT",
}

// Load merges ./config/config.yaml, the environment and the defaults above.
func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	pkgconfig.SetDefaults(v, defaults)
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, err
	}

	return pkgconfig.Decode[Config](v)
}

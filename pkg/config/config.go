package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Storage    StorageConfig
	Processing ProcessingConfig
	Kafka      KafkaConfig
	Outbox     OutboxRelayConfig
	Auth       AuthConfig
	Logging    LoggingConfig
	Dedup      DedupConfig
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type StorageConfig struct {
	Bucket                string        `mapstructure:"bucket"`
	VideosFolder          string        `mapstructure:"videos_folder"`
	SignedURLTTL          time.Duration `mapstructure:"signed_url_ttl"`
	CallTimeout           time.Duration `mapstructure:"call_timeout"`
	SigningServiceAccount string        `mapstructure:"signing_service_account"`
}

type ProcessingConfig struct {
	OverlayWindow time.Duration `mapstructure:"overlay_window"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	MarkPath      string        `mapstructure:"mark_path"`
	MarkOpacity   float64       `mapstructure:"mark_opacity"`
	MarkMargin    int           `mapstructure:"mark_margin"`
	DBTimeout     time.Duration `mapstructure:"db_timeout"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	ClientID   string   `mapstructure:"client_id"`
	EventTopic string   `mapstructure:"event_topic"`
	DLQTopic   string   `mapstructure:"dlq_topic"`
}

type OutboxRelayConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type AuthConfig struct {
	PushSecret string `mapstructure:"push_secret"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type DedupConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/video-processor/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("VIDEOPROC")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "15s")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.database", "medisupply")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("storage.bucket", "medisupply-bucket")
	viper.SetDefault("storage.videos_folder", "sales-plan")
	viper.SetDefault("storage.signed_url_ttl", "168h")
	viper.SetDefault("storage.call_timeout", "2m")
	viper.SetDefault("processing.overlay_window", "3s")
	viper.SetDefault("processing.max_concurrent", 2)
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.mark_path", "resources/logo.png")
	viper.SetDefault("processing.mark_opacity", 0.85)
	viper.SetDefault("processing.mark_margin", 24)
	viper.SetDefault("processing.db_timeout", "10s")
	viper.SetDefault("kafka.client_id", "video-processor")
	viper.SetDefault("kafka.event_topic", "medisupply.video.events")
	viper.SetDefault("kafka.dlq_topic", "medisupply.video.events.dlq")
	viper.SetDefault("outbox.poll_interval", "5s")
	viper.SetDefault("outbox.batch_size", 100)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("dedup.ttl", "24h")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the hub.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	Server     ServerConfig    `mapstructure:"SERVER"`
	CORS       CORSConfig      `mapstructure:"CORS"`
	Database   DatabaseConfig  `mapstructure:"DATABASE"`
	Auth       AuthConfig      `mapstructure:"AUTH"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
	Messages   MessagesConfig  `mapstructure:"MESSAGES"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	Kafka      KafkaConfig     `mapstructure:"KAFKA"`
	Log        LogConfig       `mapstructure:"LOG"`
}

// ServerConfig holds configuration for the HTTP server that serves both the REST API and /ws.
type ServerConfig struct {
	Host            string        `mapstructure:"HOST"`
	Port            string        `mapstructure:"PORT"`
	WebSocketPath   string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout     time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `mapstructure:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `mapstructure:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes  int           `mapstructure:"MAX_HEADER_BYTES"`
}

// CORSConfig 保存跨域配置。
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// DatabaseConfig holds configuration for the database.
// TYPE is "postgres" or "sqlite"; SQLITE_PATH is only read for sqlite.
type DatabaseConfig struct {
	Type        string `mapstructure:"TYPE"`
	Host        string `mapstructure:"HOST"`
	Port        int    `mapstructure:"PORT"`
	User        string `mapstructure:"USER"`
	Password    string `mapstructure:"PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	SSLMode     string `mapstructure:"SSL_MODE"`
	SQLitePath  string `mapstructure:"SQLITE_PATH"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`
}

// AuthConfig holds configuration for authentication (JWT).
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
	JWTIssuer    string        `mapstructure:"JWT_ISSUER"`
}

// WebSocketConfig holds configuration for live sessions.
// PONG_WAIT_SECONDS and PING_PERIOD_SECONDS default to 0, which disables the idle timeout.
type WebSocketConfig struct {
	WriteWaitSeconds     int     `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds      int     `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds    int     `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes  int     `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
	SendBufferSize       int     `mapstructure:"SEND_BUFFER_SIZE"`
	InboundRatePerSecond float64 `mapstructure:"INBOUND_RATE_PER_SECOND"`
	InboundBurst         int     `mapstructure:"INBOUND_BURST"`
}

// WriteWait returns the per-frame write deadline.
func (c WebSocketConfig) WriteWait() time.Duration {
	return time.Duration(c.WriteWaitSeconds) * time.Second
}

// PongWait returns the read deadline window, zero when disabled.
func (c WebSocketConfig) PongWait() time.Duration {
	return time.Duration(c.PongWaitSeconds) * time.Second
}

// PingPeriod returns the keepalive interval, zero when disabled.
func (c WebSocketConfig) PingPeriod() time.Duration {
	return time.Duration(c.PingPeriodSeconds) * time.Second
}

// MessagesConfig 控制消息历史分页。
type MessagesConfig struct {
	DefaultPageSize int `mapstructure:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `mapstructure:"MAX_PAGE_SIZE"`
}

// RedisConfig holds configuration for Redis, used for the token blacklist.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Enabled         bool          `mapstructure:"ENABLED"`
	Brokers         []string      `mapstructure:"BROKERS"`
	ClientID        string        `mapstructure:"CLIENT_ID"`
	Protocol        string        `mapstructure:"PROTOCOL"`
	MessagesTopic   string        `mapstructure:"MESSAGES_TOPIC"`    // message.created records
	LiveEventsTopic string        `mapstructure:"LIVE_EVENTS_TOPIC"` // events pushed to connected users by other services
	ConsumerGroup   string        `mapstructure:"CONSUMER_GROUP"`
	DeliveryTimeout time.Duration `mapstructure:"DELIVERY_TIMEOUT"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `mapstructure:"LEVEL"`
	Format     string `mapstructure:"FORMAT"` // json | console
	File       string `mapstructure:"FILE"`
	MaxSizeMB  int    `mapstructure:"MAX_SIZE_MB"`
	MaxBackups int    `mapstructure:"MAX_BACKUPS"`
	MaxAgeDays int    `mapstructure:"MAX_AGE_DAYS"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "gamecall")
	v.SetDefault("APP_VERSION", "0.1.0")

	// Server Defaults
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "3000")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER.SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	// CORS Defaults: any origin, like the original deployment
	v.SetDefault("CORS.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("CORS.ALLOW_CREDENTIALS", false)
	v.SetDefault("CORS.MAX_AGE", 300)

	// Database Defaults
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "gamecall")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.SQLITE_PATH", "gamecall.db")
	v.SetDefault("DATABASE.LOG_LEVEL", "warn")
	v.SetDefault("DATABASE.AUTO_MIGRATE", true)

	// Auth Defaults
	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_EXPIRY", 7*24*time.Hour)
	v.SetDefault("AUTH.JWT_ISSUER", "gamecall")

	// WebSocket Defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 0)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 0)
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 64*1024) // SDP offers are a few KB
	v.SetDefault("WEBSOCKET.SEND_BUFFER_SIZE", 256)
	v.SetDefault("WEBSOCKET.INBOUND_RATE_PER_SECOND", 0)
	v.SetDefault("WEBSOCKET.INBOUND_BURST", 50)

	v.SetDefault("MESSAGES.DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("MESSAGES.MAX_PAGE_SIZE", 200)

	// Redis Defaults
	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// Kafka Defaults
	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "gamecall-hub")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.MESSAGES_TOPIC", "gamecall-messages")
	v.SetDefault("KAFKA.LIVE_EVENTS_TOPIC", "gamecall-live-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "gamecall-hub-group")
	v.SetDefault("KAFKA.DELIVERY_TIMEOUT", 5*time.Second)

	// Log Defaults
	v.SetDefault("LOG.LEVEL", "info")
	v.SetDefault("LOG.FORMAT", "json")
	v.SetDefault("LOG.FILE", "")
	v.SetDefault("LOG.MAX_SIZE_MB", 100)
	v.SetDefault("LOG.MAX_BACKUPS", 5)
	v.SetDefault("LOG.MAX_AGE_DAYS", 30)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// SERVER_PORT overrides Server.Port, DATABASE_SQLITE_PATH overrides Database.SQLitePath.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// 没有配置文件时使用默认值
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	PayU       PayUConfig
	Scan       ScanConfig
	Tickets    TicketsConfig
	Email      EmailConfig
	Migrations MigrationsConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// TrustProxyHeaders honours X-Forwarded-Proto/Host when deriving the
	// payment return URL. Only enable behind a proxy that sets them.
	TrustProxyHeaders bool
}

type DatabaseConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type RedisConfig struct {
	Enabled        bool
	Addr           string
	CaptureLockTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	GroupID string
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderCreated  string
	OrderStatus   string
	TicketsIssued string
}

// All returns every topic the services produce to or consume from.
func (t TopicConfig) All() []string {
	return []string{t.OrderCreated, t.OrderStatus, t.TicketsIssued}
}

type PayUConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PosID        string
	SecondKey    string
	Timeout      time.Duration
}

type ScanConfig struct {
	Key string
}

type TicketsConfig struct {
	PublicBaseURL string
	FontPath      string
	EventTitle    string
	AtomicIssue   bool
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	From         string
}

type MigrationsConfig struct {
	Auto bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", 30*time.Second),
			IdleTimeout:  60 * time.Second,

			TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		},
		Database: DatabaseConfig{
			DSN:          getEnv("POSTGRES_DSN", ""),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:        getEnvBool("REDIS_ENABLED", true),
			Addr:           getEnv("REDIS_ADDR", "localhost:6379"),
			CaptureLockTTL: getEnvDuration("CAPTURE_LOCK_TTL_SECONDS", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Brokers: getEnvList("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getEnv("KAFKA_GROUP_ID", "ticketshop-mailer"),
			Topics: TopicConfig{
				OrderCreated:  getEnv("KAFKA_TOPIC_ORDER_CREATED", "ticketshop.order.created"),
				OrderStatus:   getEnv("KAFKA_TOPIC_ORDER_STATUS", "ticketshop.order.status"),
				TicketsIssued: getEnv("KAFKA_TOPIC_TICKETS_ISSUED", "ticketshop.tickets.issued"),
			},
		},
		PayU: PayUConfig{
			BaseURL:      strings.TrimRight(getEnv("PAYU_BASE_URL", "https://secure.snd.payu.com"), "/"),
			ClientID:     getEnv("PAYU_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYU_CLIENT_SECRET", ""),
			PosID:        getEnv("PAYU_POS_ID", ""),
			SecondKey:    getEnv("PAYU_SECOND_KEY", ""),
			Timeout:      getEnvDuration("PAYU_TIMEOUT_SECONDS", 15*time.Second),
		},
		Scan: ScanConfig{
			Key: getEnv("SCAN_KEY", ""),
		},
		Tickets: TicketsConfig{
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
			FontPath:      getEnv("TICKET_FONT_PATH", "./fonts/DejaVuSans.ttf"),
			EventTitle:    getEnv("EVENT_TITLE", "Bilet"),
			AtomicIssue:   getEnvBool("TICKETS_ATOMIC_ISSUE", false),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "bilety@example.com"),
		},
		Migrations: MigrationsConfig{
			Auto: getEnvBool("MIGRATIONS_AUTO", true),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration reads a whole number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, defaultValue), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

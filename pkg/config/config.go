package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DraftStoreRedis  = "redis"
	DraftStoreMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Kafka      KafkaConfig
	Tracing    TracingConfig
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
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	Namespace string
}

// JWTConfig holds the shared secret used to verify access tokens minted by the identity service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig defines the reference timezone, the slot catalog and draft sessions.
type SchedulingConfig struct {
	ReferenceTimezone string
	ReferenceLabel    string
	CatalogFirstStart string
	CatalogLastEnd    string
	SlotDuration      time.Duration
	CatalogDays       []string
	DraftTTL          time.Duration
	DraftStore        string
}

// KafkaConfig configures batch lifecycle event publication. Empty brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	TopicPrefix  string
	WriteTimeout time.Duration
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	SampleRatio  float64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: v.GetString("REDIS_NAMESPACE"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	draftStore := strings.ToLower(strings.TrimSpace(v.GetString("BATCH_DRAFT_STORE")))
	if draftStore != DraftStoreMemory {
		draftStore = DraftStoreRedis
	}
	cfg.Scheduling = SchedulingConfig{
		ReferenceTimezone: v.GetString("SCHEDULING_REFERENCE_TZ"),
		ReferenceLabel:    v.GetString("SCHEDULING_REFERENCE_LABEL"),
		CatalogFirstStart: v.GetString("SLOT_CATALOG_FIRST_START"),
		CatalogLastEnd:    v.GetString("SLOT_CATALOG_LAST_END"),
		SlotDuration:      parseDuration(v.GetString("SLOT_CATALOG_DURATION"), time.Hour),
		CatalogDays:       splitAndTrim(v.GetString("SLOT_CATALOG_DAYS")),
		DraftTTL:          parseDuration(v.GetString("BATCH_DRAFT_TTL"), 2*time.Hour),
		DraftStore:        draftStore,
	}

	cfg.Kafka = KafkaConfig{
		Brokers:      splitAndTrim(v.GetString("KAFKA_BROKERS")),
		TopicPrefix:  v.GetString("KAFKA_TOPIC_PREFIX"),
		WriteTimeout: parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 5*time.Second),
	}

	ratio := v.GetFloat64("OTEL_SAMPLING_RATIO")
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}
	cfg.Tracing = TracingConfig{
		Enabled:      v.GetBool("OTEL_ENABLED"),
		ServiceName:  v.GetString("OTEL_SERVICE_NAME"),
		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRatio:  ratio,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "batch_scheduler")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "batch-slot")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULING_REFERENCE_TZ", "Asia/Kolkata")
	v.SetDefault("SCHEDULING_REFERENCE_LABEL", "IST")
	v.SetDefault("SLOT_CATALOG_FIRST_START", "07:00")
	v.SetDefault("SLOT_CATALOG_LAST_END", "22:00")
	v.SetDefault("SLOT_CATALOG_DURATION", "1h")
	v.SetDefault("SLOT_CATALOG_DAYS", "MONDAY,TUESDAY,WEDNESDAY,THURSDAY,FRIDAY,SATURDAY,SUNDAY")
	v.SetDefault("BATCH_DRAFT_TTL", "2h")
	v.SetDefault("BATCH_DRAFT_STORE", DraftStoreRedis)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC_PREFIX", "scheduling")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "5s")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "batch-slot-api")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SAMPLING_RATIO", 1.0)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

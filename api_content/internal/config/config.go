package config

import (
	"time"

	"tastesync/pkg/auth"
	"tastesync/pkg/config"
	"tastesync/pkg/database"
	"tastesync/pkg/kafka"
	"tastesync/pkg/llm"
	"tastesync/pkg/mem0"
	"tastesync/pkg/redis"
	"tastesync/pkg/search"
)

// Config is the content service's environment configuration.
type Config struct {
	Port        string
	Database    database.Config
	LLM         llm.Config
	Search      search.Config
	Mem0        mem0.Config
	Kafka       kafka.Config
	Redis       redis.Config
	Clerk       auth.ClerkConfig
	CORSOrigins []string

	InitialCredits   int64
	MaxBodyBytes     int64
	GenerateRateHour int
	UsageTopic       string
	UsageFlush       time.Duration
	MigrateOnStart   bool
}

// Load reads the service configuration. DATABASE_URL and CLERK_JWT_KEY are
// required.
func Load() Config {
	db := database.LoadConfig()
	db.URL = config.RequireEnv("DATABASE_URL")

	return Config{
		Port:     config.GetEnv("PORT", "3001"),
		Database: db,
		LLM:      llm.LoadConfig(),
		Search:   search.LoadConfig(),
		Mem0:     mem0.LoadConfig(),
		Kafka:    kafka.LoadConfig(),
		Redis:    redis.LoadConfig(),
		Clerk: auth.ClerkConfig{
			PublicKeyPEM:      config.RequireEnv("CLERK_JWT_KEY"),
			Issuer:            config.GetEnv("CLERK_ISSUER", ""),
			AuthorizedParties: config.GetEnvList("CLERK_AUTHORIZED_PARTIES"),
			Leeway:            config.GetEnvDuration("CLERK_LEEWAY", 5*time.Second),
		},
		CORSOrigins: config.GetEnvList("CORS_ORIGINS"),

		InitialCredits:   config.GetEnvInt64("INITIAL_CREDITS", 10000),
		MaxBodyBytes:     config.GetEnvInt64("MAX_BODY_BYTES", 1<<20),
		GenerateRateHour: config.GetEnvInt("GENERATE_RATE_LIMIT_PER_HOUR", 0),
		UsageTopic:       config.GetEnv("USAGE_KAFKA_TOPIC", "tastesync.usage_summaries"),
		UsageFlush:       config.GetEnvDuration("USAGE_FLUSH_INTERVAL", time.Minute),
		MigrateOnStart:   config.GetEnvBool("MIGRATE_ON_START", false),
	}
}

// ModelLabel names the configured model for usage rows.
func (c Config) ModelLabel() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	if c.LLM.Provider == "" || c.LLM.Provider == "together" {
		return llm.DefaultTogetherModel
	}
	return c.LLM.Provider
}

// RequiredSettings feeds the configuration health check, which only reports
// which keys are empty.
func (c Config) RequiredSettings() map[string]string {
	return map[string]string{
		"DATABASE_URL":  c.Database.URL,
		"CLERK_JWT_KEY": c.Clerk.PublicKeyPEM,
		"LLM_PROVIDER":  c.LLM.Provider,
	}
}

package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"tastesync/pkg/config"
)

const defaultDialTimeout = 5 * time.Second

// Mode selects the Redis deployment topology.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeSentinel Mode = "sentinel"
	ModeCluster  Mode = "cluster"
)

// Config configures a topology-agnostic Redis connection.
type Config struct {
	Mode         Mode
	Addrs        []string // single: 1 addr, sentinel: sentinel addrs, cluster: seed nodes
	MasterName   string   // sentinel only
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadConfig reads REDIS_MODE, REDIS_ADDRS, REDIS_MASTER_NAME, REDIS_USERNAME,
// REDIS_PASSWORD and REDIS_DB. No addresses means Redis is disabled.
func LoadConfig() Config {
	return Config{
		Mode:       Mode(config.GetEnv("REDIS_MODE", string(ModeSingle))),
		Addrs:      config.GetEnvList("REDIS_ADDRS"),
		MasterName: config.GetEnv("REDIS_MASTER_NAME", ""),
		Username:   config.GetEnv("REDIS_USERNAME", ""),
		Password:   config.GetEnv("REDIS_PASSWORD", ""),
		DB:         config.GetEnvInt("REDIS_DB", 0),
	}
}

// Enabled reports whether an address is configured.
func (c Config) Enabled() bool { return len(c.Addrs) > 0 }

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultDialTimeout
	}
	return d
}

// NewUniversalClient creates a Redis client for single-node, Sentinel or
// Cluster topologies and pings it once.
func NewUniversalClient(ctx context.Context, cfg Config) (goredis.UniversalClient, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("at least one redis address is required")
	}
	if cfg.Mode == ModeSentinel && cfg.MasterName == "" {
		return nil, fmt.Errorf("sentinel mode requires a master name")
	}

	masterName := cfg.MasterName
	if cfg.Mode != ModeSentinel {
		masterName = ""
	}

	opts := &goredis.UniversalOptions{
		Addrs:        cfg.Addrs,
		MasterName:   masterName,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  orDefault(cfg.DialTimeout),
		ReadTimeout:  orDefault(cfg.ReadTimeout),
		WriteTimeout: orDefault(cfg.WriteTimeout),
	}

	client := goredis.NewUniversalClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

package domain

import "time"

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backends are wired
	Tier Tier `json:"tier"`

	// Engine settings
	Engine EngineConfig `json:"engine"`

	// Periodic recompute
	Sweep SweepConfig `json:"sweep"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
	MaxBodyBytes int64  `json:"maxBodyBytes"`
}

// EngineConfig holds scoring engine settings.
type EngineConfig struct {
	// Workers bounds per-item scoring concurrency.
	Workers int `json:"workers"`

	// AsyncWorker enables the bus-driven recompute worker.
	AsyncWorker bool `json:"asyncWorker"`
}

// SweepConfig controls scheduled risk sweeps.
type SweepConfig struct {
	Enabled bool `json:"enabled"`

	// Spec is a robfig/cron spec, e.g. "@every 15m" or "0 */2 * * *".
	Spec string `json:"spec"`

	// TenantIDs limits the sweep; empty means every stored tenant.
	TenantIDs []string `json:"tenantIds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity is the single-node tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro uses PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			MaxBodyBytes: 32 << 20,
		},
		Tier: TierCommunity,
		Engine: EngineConfig{
			Workers:     8,
			AsyncWorker: true,
		},
		Sweep: SweepConfig{
			Enabled: false,
			Spec:    "@every 15m",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
			ResultTTL:    5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Engine.Workers = 32
	cfg.Sweep.Enabled = true
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "heron",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		ResultTTL:      15 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/numeric"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Cache     CacheConfig     `json:"cache"`
	RabbitMQ  RabbitMQConfig  `json:"rabbitmq"`
	Auth      AuthConfig      `json:"auth"`
	Scheduler SchedulerConfig `json:"scheduler"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logger    LoggerConfig    `json:"logger"`
	Analytics AnalyticsConfig `json:"analytics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	Environment    string `json:"environment"`
	ReadTimeout    int    `json:"read_timeout"`
	WriteTimeout   int    `json:"write_timeout"`
	MaxHeaderBytes int    `json:"max_header_bytes"`
	AllowedOrigins string `json:"allowed_origins"`
}

// DatabaseConfig represents MongoDB configuration
type DatabaseConfig struct {
	URI            string `json:"uri"`
	Database       string `json:"database"`
	MaxPoolSize    int    `json:"max_pool_size"`
	MinPoolSize    int    `json:"min_pool_size"`
	MaxIdleTime    int    `json:"max_idle_time"`
	ConnectTimeout int    `json:"connect_timeout"`
	SocketTimeout  int    `json:"socket_timeout"`
}

// CacheConfig represents Redis and in-process cache configuration
type CacheConfig struct {
	Enabled            bool          `json:"enabled"`
	Host               string        `json:"host"`
	Port               int           `json:"port"`
	Password           string        `json:"password"`
	DB                 int           `json:"db"`
	MaxRetries         int           `json:"max_retries"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	PoolTimeout        time.Duration `json:"pool_timeout"`

	// TTL settings
	ReportTTL    time.Duration `json:"report_ttl"`
	AnalyticsTTL time.Duration `json:"analytics_ttl"`
	LocalTTL     time.Duration `json:"local_ttl"`

	// In-process cache sizing
	LocalMaxSize       int64  `json:"local_max_size"`
	LocalItemsToPrune  uint32 `json:"local_items_to_prune"`
}

// RabbitMQConfig represents RabbitMQ configuration
type RabbitMQConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	VHost    string `json:"vhost"`

	// Exchange and queues
	EventsExchange     string `json:"events_exchange"`
	RecalcQueue        string `json:"recalc_queue"`
	RecalcRoutingKey   string `json:"recalc_routing_key"`

	// Consumer settings
	ConsumerTag   string `json:"consumer_tag"`
	PrefetchCount int    `json:"prefetch_count"`

	// Connection settings
	Heartbeat            time.Duration `json:"heartbeat"`
	MaxReconnectAttempts int           `json:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `json:"reconnect_delay"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret   string `json:"jwt_secret"`
	RequireAuth bool   `json:"require_auth"`
}

// SchedulerConfig represents background job scheduling configuration
type SchedulerConfig struct {
	Enabled            bool          `json:"enabled"`
	DriftCheckInterval string        `json:"drift_check_interval"` // Cron expression
	VaRRefreshInterval string        `json:"var_refresh_interval"` // Cron expression
	CleanupInterval    string        `json:"cleanup_interval"`     // Cron expression
	SnapshotRetention  time.Duration `json:"snapshot_retention"`
	TimeZone           string        `json:"timezone"`
	JobTimeout         time.Duration `json:"job_timeout"`
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	Enabled         bool          `json:"enabled"`
	RequestsPerMin  int           `json:"requests_per_minute"`
	BurstSize       int           `json:"burst_size"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// LoggerConfig represents logging configuration
type LoggerConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	Filename   string `json:"filename"`
	MaxSize    int    `json:"max_size"`
	MaxAge     int    `json:"max_age"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// AnalyticsConfig represents calculation defaults
type AnalyticsConfig struct {
	Backend            string        `json:"backend"`
	RiskFreeRate       float64       `json:"risk_free_rate"`
	VaRConfidence      float64       `json:"var_confidence"`
	VaRLookbackDays    int           `json:"var_lookback_days"`
	VaRTimeHorizon     int           `json:"var_time_horizon"`
	MonteCarloSims     int           `json:"monte_carlo_simulations"`
	MonteCarloSeed     int64         `json:"monte_carlo_seed"`
	RebalanceTolerance float64       `json:"rebalance_tolerance"`
	MaxTrades          int           `json:"max_trades"`
	CalculationTimeout time.Duration `json:"calculation_timeout"`
	ScenarioFile       string        `json:"scenario_file"`
	BenchmarkSymbol    string        `json:"benchmark_symbol"`
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if exists
	godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8085),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			MaxHeaderBytes: getEnvInt("SERVER_MAX_HEADER_BYTES", 1048576),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},

		Database: DatabaseConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "financehub_analytics"),
			MaxPoolSize:    getEnvInt("MONGODB_MAX_POOL_SIZE", 100),
			MinPoolSize:    getEnvInt("MONGODB_MIN_POOL_SIZE", 5),
			MaxIdleTime:    getEnvInt("MONGODB_MAX_IDLE_TIME", 300),
			ConnectTimeout: getEnvInt("MONGODB_CONNECT_TIMEOUT", 10),
			SocketTimeout:  getEnvInt("MONGODB_SOCKET_TIMEOUT", 30),
		},

		Cache: CacheConfig{
			Enabled:            getEnvBool("CACHE_ENABLED", true),
			Host:               getEnv("REDIS_HOST", "localhost"),
			Port:               getEnvInt("REDIS_PORT", 6379),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvInt("REDIS_DB", 0),
			MaxRetries:         getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:           getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConnections: getEnvInt("REDIS_MIN_IDLE_CONNECTIONS", 5),
			DialTimeout:        getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:        getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:       getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:        getEnvDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
			ReportTTL:          getEnvDuration("CACHE_REPORT_TTL", 24*time.Hour),
			AnalyticsTTL:       getEnvDuration("CACHE_ANALYTICS_TTL", 15*time.Minute),
			LocalTTL:           getEnvDuration("CACHE_LOCAL_TTL", time.Minute),
			LocalMaxSize:       int64(getEnvInt("CACHE_LOCAL_MAX_SIZE", 5000)),
			LocalItemsToPrune:  uint32(getEnvInt("CACHE_LOCAL_ITEMS_TO_PRUNE", 500)),
		},

		RabbitMQ: RabbitMQConfig{
			Enabled:              getEnvBool("RABBITMQ_ENABLED", true),
			URL:                  getEnv("RABBITMQ_URL", ""),
			Host:                 getEnv("RABBITMQ_HOST", "localhost"),
			Port:                 getEnvInt("RABBITMQ_PORT", 5672),
			Username:             getEnv("RABBITMQ_USERNAME", "guest"),
			Password:             getEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:                getEnv("RABBITMQ_VHOST", "/"),
			EventsExchange:       getEnv("RABBITMQ_EVENTS_EXCHANGE", "analytics.events"),
			RecalcQueue:          getEnv("RABBITMQ_RECALC_QUEUE", "analytics.recalculate"),
			RecalcRoutingKey:     getEnv("RABBITMQ_RECALC_ROUTING_KEY", "portfolio.recalculate"),
			ConsumerTag:          getEnv("RABBITMQ_CONSUMER_TAG", "analytics-service"),
			PrefetchCount:        getEnvInt("RABBITMQ_PREFETCH_COUNT", 10),
			Heartbeat:            getEnvDuration("RABBITMQ_HEARTBEAT", 30*time.Second),
			MaxReconnectAttempts: getEnvInt("RABBITMQ_MAX_RECONNECT_ATTEMPTS", 5),
			ReconnectDelay:       getEnvDuration("RABBITMQ_RECONNECT_DELAY", 5*time.Second),
		},

		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "default-secret-key"),
			RequireAuth: getEnvBool("REQUIRE_AUTH", true),
		},

		Scheduler: SchedulerConfig{
			Enabled:            getEnvBool("SCHEDULER_ENABLED", true),
			DriftCheckInterval: getEnv("SCHEDULER_DRIFT_CHECK_INTERVAL", "*/15 * * * *"), // Every 15 minutes
			VaRRefreshInterval: getEnv("SCHEDULER_VAR_REFRESH_INTERVAL", "0 1 * * *"),    // Daily at 1 AM
			CleanupInterval:    getEnv("SCHEDULER_CLEANUP_INTERVAL", "30 2 * * 0"),       // Sundays at 2:30 AM
			SnapshotRetention:  getEnvDuration("SCHEDULER_SNAPSHOT_RETENTION", 365*24*time.Hour),
			TimeZone:           getEnv("SCHEDULER_TIMEZONE", "UTC"),
			JobTimeout:         getEnvDuration("SCHEDULER_JOB_TIMEOUT", 30*time.Minute),
		},

		RateLimit: RateLimitConfig{
			Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin:  getEnvInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			BurstSize:       getEnvInt("RATE_LIMIT_BURST_SIZE", 20),
			CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 10*time.Minute),
		},

		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", "stdout"),
			Filename:   getEnv("LOG_FILENAME", ""),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 28),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},

		Analytics: AnalyticsConfig{
			Backend:            getEnv("ANALYTICS_BACKEND", numeric.BackendFull),
			RiskFreeRate:       getEnvFloat("ANALYTICS_RISK_FREE_RATE", 0.05),
			VaRConfidence:      getEnvFloat("ANALYTICS_VAR_CONFIDENCE", 0.95),
			VaRLookbackDays:    getEnvInt("ANALYTICS_VAR_LOOKBACK_DAYS", numeric.TradingDays),
			VaRTimeHorizon:     getEnvInt("ANALYTICS_VAR_TIME_HORIZON", 1),
			MonteCarloSims:     getEnvInt("ANALYTICS_MONTE_CARLO_SIMULATIONS", 10000),
			MonteCarloSeed:     int64(getEnvInt("ANALYTICS_MONTE_CARLO_SEED", 42)),
			RebalanceTolerance: getEnvFloat("ANALYTICS_REBALANCE_TOLERANCE", 0.05),
			MaxTrades:          getEnvInt("ANALYTICS_MAX_TRADES", 10),
			CalculationTimeout: getEnvDuration("ANALYTICS_CALCULATION_TIMEOUT", 30*time.Second),
			ScenarioFile:       getEnv("ANALYTICS_SCENARIO_FILE", ""),
			BenchmarkSymbol:    getEnv("ANALYTICS_BENCHMARK_SYMBOL", "SPY"),
		},
	}

	return config
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database URI is required")
	}

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "default-secret-key" {
		logrus.Warn("Using default JWT secret key, this is not recommended for production")
	}

	if _, err := numeric.NewBackend(c.Analytics.Backend); err != nil {
		return err
	}

	confidence, err := numeric.NormalizeConfidence(c.Analytics.VaRConfidence)
	if err != nil {
		return fmt.Errorf("invalid ANALYTICS_VAR_CONFIDENCE: %w", err)
	}
	c.Analytics.VaRConfidence = confidence

	if c.Analytics.MonteCarloSims <= 0 {
		return fmt.Errorf("monte carlo simulations must be positive, got %d", c.Analytics.MonteCarloSims)
	}
	if c.Analytics.VaRLookbackDays < 2 {
		return fmt.Errorf("VaR lookback must be at least 2 days, got %d", c.Analytics.VaRLookbackDays)
	}
	if c.Analytics.VaRTimeHorizon < 1 {
		return fmt.Errorf("VaR time horizon must be at least 1 day, got %d", c.Analytics.VaRTimeHorizon)
	}
	if c.Analytics.RebalanceTolerance <= 0 || c.Analytics.RebalanceTolerance >= 1 {
		return fmt.Errorf("rebalance tolerance must be a fraction in (0,1), got %v", c.Analytics.RebalanceTolerance)
	}

	return nil
}

// RabbitMQURL returns the configured URL or builds one from its parts
func (c RabbitMQConfig) RabbitMQURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.Username, c.Password, c.Host, c.Port, c.VHost)
}

// RedisAddr returns host:port for the Redis client
func (c CacheConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, secrets)
// - default: Values common across all environments (timeouts, pool sizes, retry ceilings)
// -----------------------------------------------------------------------------

type Config struct {
	Server          ServerConfig
	DB              DBConfig
	Redis           RedisConfig
	CORS            CORSConfig
	Log             LogConfig
	JWT             JWTConfig
	Crypto          CryptoConfig
	Worker          WorkerConfig
	Dispatcher      DispatcherConfig
	ProviderWebhook ProviderWebhookConfig
	Campaign        CampaignConfig
	Tracing         TracingConfig
}

type ServerConfig struct {
	Port         string `envconfig:"PORT" required:"true"`
	MaxBodyBytes int64  `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"America/Sao_Paulo"`
	MaxConns int32  `envconfig:"DB_MAX_CONNS" default:"20"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"false"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"America/Sao_Paulo"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"-10800"` // -3*60*60
}

// JWTConfig signs operator tokens. Operators are the only callers allowed to
// force immediate scheduling or invalidate the template cache.
type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"1h"`
}

type CryptoConfig struct {
	// base64 encoded 32 byte key used to seal tenant webhook secrets at rest
	SecretKey string `envconfig:"CRYPTO_SECRET_KEY" required:"true"`
}

type WorkerConfig struct {
	Concurrency       int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	PollInterval      time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"1s"`
	VisibilityTimeout time.Duration `envconfig:"WORKER_VISIBILITY_TIMEOUT" default:"2m"`
	MaxTries          int           `envconfig:"WORKER_MAX_TRIES" default:"3"`
	RetryBaseDelay    time.Duration `envconfig:"WORKER_RETRY_BASE_DELAY" default:"30s"`
	RetryMaxDelay     time.Duration `envconfig:"WORKER_RETRY_MAX_DELAY" default:"15m"`
}

type DispatcherConfig struct {
	BaseURL string        `envconfig:"EMAIL_API_BASE_URL" default:"https://api.resend.com"`
	APIKey  string        `envconfig:"EMAIL_API_KEY" required:"true"`
	Timeout time.Duration `envconfig:"EMAIL_API_TIMEOUT" default:"10s"`
}

type ProviderWebhookConfig struct {
	Secret          string        `envconfig:"PROVIDER_WEBHOOK_SECRET" required:"true"`
	Tolerance       time.Duration `envconfig:"PROVIDER_WEBHOOK_TOLERANCE" default:"5m"`
	ParkDelay       time.Duration `envconfig:"PROVIDER_CALLBACK_PARK_DELAY" default:"5s"`
	ParkMaxTries    int           `envconfig:"PROVIDER_CALLBACK_PARK_MAX_TRIES" default:"10"`
	SweepInterval   time.Duration `envconfig:"PROVIDER_CALLBACK_SWEEP_INTERVAL" default:"2s"`
	SweepBatchLimit int64         `envconfig:"PROVIDER_CALLBACK_SWEEP_BATCH" default:"100"`
}

type CampaignConfig struct {
	// optional YAML document overriding the built-in campaign table
	RegistryPath string `envconfig:"CAMPAIGN_REGISTRY_PATH" default:""`
}

type TracingConfig struct {
	Enabled     bool   `envconfig:"OTEL_ENABLED" default:"false"`
	Endpoint    string `envconfig:"OTEL_ENDPOINT" default:""`
	ServiceName string `envconfig:"OTEL_SERVICE_NAME" default:"sales-recovery"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8889", // Test port
			MaxBodyBytes: 1 << 20,
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433", // Test DB port
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
			MaxConns: 5,
		},
		Redis: RedisConfig{
			Addr: "localhost:16379",
		},
		Log: LogConfig{
			Level:          "error", // Error level only for tests
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		JWT: JWTConfig{
			Secret:   "test-operator-secret",
			Duration: time.Hour,
		},
		Crypto: CryptoConfig{
			// 32 zero bytes, tests only
			SecretKey: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=",
		},
		Worker: WorkerConfig{
			Concurrency:       2,
			PollInterval:      50 * time.Millisecond,
			VisibilityTimeout: time.Minute,
			MaxTries:          3,
			RetryBaseDelay:    10 * time.Millisecond,
			RetryMaxDelay:     50 * time.Millisecond,
		},
		Dispatcher: DispatcherConfig{
			BaseURL: "http://localhost:18080",
			APIKey:  "test-api-key",
			Timeout: 2 * time.Second,
		},
		ProviderWebhook: ProviderWebhookConfig{
			Secret:          "whsec_dGVzdC1wcm92aWRlci1zZWNyZXQ=",
			Tolerance:       5 * time.Minute,
			ParkDelay:       10 * time.Millisecond,
			ParkMaxTries:    3,
			SweepInterval:   20 * time.Millisecond,
			SweepBatchLimit: 10,
		},
	}
}

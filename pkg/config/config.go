package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	Drafts        DraftsConfig
	Sweeper       SweeperConfig
}

// Load reads the environment into a Config, derives the database DSN when
// only its parts are set, and reports every invalid setting together.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = defaultSQLiteDSN
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs error
	if c.DB.DSN == "" {
		dsn, missing := c.DB.composeDSN()
		if len(missing) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s is unset and %s missing", EnvDBDSN, strings.Join(missing, ", ")))
		}
		c.DB.DSN = dsn
	}
	if c.JWT.ExpirationMinutes <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.JWT.RefreshTokenTTLMinutes > 0 && c.JWT.RefreshTokenTTLMinutes <= c.JWT.ExpirationMinutes {
		errs = multierr.Append(errs, fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins))
	}
	if c.Sweeper.Interval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive", EnvSweeperInterval))
	}
	if c.Drafts.LockRetries < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s cannot be negative", EnvDraftLockRetries))
	}
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"FLEETSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"FLEETSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FLEETSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FLEETSHOP_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"FLEETSHOP_LOG_FORMAT"`

	CORSAllowedOrigins []string `envconfig:"FLEETSHOP_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FLEETSHOP_DB_DSN"`
	Driver string `envconfig:"FLEETSHOP_DB_DRIVER" default:"postgres"`

	// Discrete settings, used only when DSN is empty.
	Host     string `envconfig:"FLEETSHOP_DB_HOST"`
	Port     int    `envconfig:"FLEETSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"FLEETSHOP_DB_USER"`
	Password string `envconfig:"FLEETSHOP_DB_PASSWORD"`
	Name     string `envconfig:"FLEETSHOP_DB_NAME"`
	SSLMode  string `envconfig:"FLEETSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"FLEETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"FLEETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"FLEETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"FLEETSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"FLEETSHOP_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FLEETSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FLEETSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"FLEETSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"FLEETSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FLEETSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FLEETSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FLEETSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FLEETSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FLEETSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FLEETSHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FLEETSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FLEETSHOP_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FLEETSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FLEETSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FLEETSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FLEETSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FLEETSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FLEETSHOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FLEETSHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FLEETSHOP_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FLEETSHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool `envconfig:"FLEETSHOP_USE_SQLITE" default:"false"`
	AutoMigrate     bool `envconfig:"FLEETSHOP_AUTO_MIGRATE" default:"false"`
	UseMemoryDrafts bool `envconfig:"FLEETSHOP_USE_MEMORY_DRAFTS" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FLEETSHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FLEETSHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FLEETSHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"FLEETSHOP_GCS_BUCKET_NAME"`
	DownloadURLExpiry time.Duration `envconfig:"FLEETSHOP_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
	MaxUploadMB       int           `envconfig:"FLEETSHOP_MAX_UPLOAD_MB" default:"20"`
}

// MaxUploadBytes converts the configured limit into bytes.
func (g GCSConfig) MaxUploadBytes() int64 {
	if g.MaxUploadMB <= 0 {
		return 0
	}
	return int64(g.MaxUploadMB) << 20
}

type PubSubConfig struct {
	InventoryTopic string `envconfig:"FLEETSHOP_PUBSUB_INVENTORY_TOPIC"`
}

type DraftsConfig struct {
	SessionTTL    time.Duration `envconfig:"FLEETSHOP_DRAFT_SESSION_TTL" default:"12h"`
	LockTTL       time.Duration `envconfig:"FLEETSHOP_DRAFT_LOCK_TTL" default:"30s"`
	LockRetries   int           `envconfig:"FLEETSHOP_DRAFT_LOCK_RETRIES" default:"20"`
	LockRetryWait time.Duration `envconfig:"FLEETSHOP_DRAFT_LOCK_RETRY_WAIT" default:"100ms"`
}

type SweeperConfig struct {
	Interval    time.Duration `envconfig:"FLEETSHOP_SWEEPER_INTERVAL" default:"1h"`
	JobTimeout  time.Duration `envconfig:"FLEETSHOP_SWEEPER_JOB_TIMEOUT" default:"5m"`
	LockTTL     time.Duration `envconfig:"FLEETSHOP_SWEEPER_LOCK_TTL" default:"30m"`
	MetricsAddr string        `envconfig:"FLEETSHOP_SWEEPER_METRICS_ADDR"`
}

// composeDSN builds a postgres URL from the discrete connection settings and
// names the required ones that are missing.
func (d DBConfig) composeDSN() (string, []string) {
	var missing []string
	for env, v := range map[string]string{EnvDBHost: d.Host, EnvDBUser: d.User, EnvDBName: d.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", missing
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.User(d.User),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String(), nil
}

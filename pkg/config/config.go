package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "pizzaria"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "PIZZARIA_DB_DSN"
	EnvDBHost = "PIZZARIA_DB_HOST"
	EnvDBUser = "PIZZARIA_DB_USER"
	EnvDBName = "PIZZARIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Admin         AdminConfig
	AuthRateLimit AuthRateLimitConfig
	Orders        OrdersConfig
	CashFlow      CashFlowConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(cfg.DatabaseRequired()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseRequired reports whether the process needs a database at all: the
// HTTP ledger mode runs without one unless startup migrations are requested.
func (c *Config) DatabaseRequired() bool {
	return c.CashFlow.UseDatabaseLedger || c.DB.RunMigrations
}

type AppConfig struct {
	Env          string `envconfig:"PIZZARIA_APP_ENV" default:"development"`
	Port         string `envconfig:"PIZZARIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"PIZZARIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PIZZARIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PIZZARIA_DB_DSN"`
	Driver string `envconfig:"PIZZARIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIZZARIA_DB_HOST"`
	LegacyPort     int    `envconfig:"PIZZARIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIZZARIA_DB_USER"`
	LegacyPassword string `envconfig:"PIZZARIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIZZARIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIZZARIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIZZARIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIZZARIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIZZARIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIZZARIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	RunMigrations bool `envconfig:"PIZZARIA_DB_RUN_MIGRATIONS" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PIZZARIA_REDIS_URL"`
	Address      string        `envconfig:"PIZZARIA_REDIS_ADDR"`
	Password     string        `envconfig:"PIZZARIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIZZARIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIZZARIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIZZARIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIZZARIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIZZARIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIZZARIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis target is configured at all; the cache and
// login rate limit degrade to disabled when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"PIZZARIA_JWT_SECRET"`
	Issuer            string `envconfig:"PIZZARIA_JWT_ISSUER" default:"pizzaria-admin"`
	ExpirationMinutes int    `envconfig:"PIZZARIA_JWT_EXPIRATION_MINUTES" default:"480"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PIZZARIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PIZZARIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PIZZARIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PIZZARIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PIZZARIA_ARGON_KEY_LEN" default:"32"`
}

// AdminConfig carries the dashboard operator credential. A single operator
// account is enough for a pizzeria counter; the hash is Argon2id encoded.
type AdminConfig struct {
	Username     string `envconfig:"PIZZARIA_ADMIN_USERNAME" default:"admin"`
	PasswordHash string `envconfig:"PIZZARIA_ADMIN_PASSWORD_HASH"`
}

type AuthRateLimitConfig struct {
	LoginWindow  time.Duration `envconfig:"PIZZARIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit int           `envconfig:"PIZZARIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"10"`
}

// OrdersConfig points the order repository and command service at the orders
// backend. When QueueEndpoint is set, order creation routes there and the
// created order is treated as queued.
type OrdersConfig struct {
	Endpoint        string        `envconfig:"PIZZARIA_ORDERS_ENDPOINT" default:"/api/orders"`
	QueueEndpoint   string        `envconfig:"PIZZARIA_ORDERS_QUEUE_ENDPOINT"`
	CommandEndpoint string        `envconfig:"PIZZARIA_ORDERS_COMMAND_ENDPOINT"`
	RequestTimeout  time.Duration `envconfig:"PIZZARIA_ORDERS_REQUEST_TIMEOUT" default:"10s"`
}

type CashFlowConfig struct {
	Endpoint             string        `envconfig:"PIZZARIA_CASH_FLOW_ENDPOINT" default:"/api/cash-flow"`
	DefaultPaymentMethod string        `envconfig:"PIZZARIA_CASH_FLOW_DEFAULT_METHOD" default:"cash"`
	RequestTimeout       time.Duration `envconfig:"PIZZARIA_CASH_FLOW_REQUEST_TIMEOUT" default:"10s"`
	SummaryCacheTTL      time.Duration `envconfig:"PIZZARIA_CASH_FLOW_SUMMARY_CACHE_TTL" default:"30s"`
	UseDatabaseLedger    bool          `envconfig:"PIZZARIA_CASH_FLOW_USE_DB_LEDGER" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PIZZARIA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	CashEventsTopic string        `envconfig:"PIZZARIA_PUBSUB_CASH_EVENTS_TOPIC"`
	PublishTimeout  time.Duration `envconfig:"PIZZARIA_PUBSUB_PUBLISH_TIMEOUT" default:"10s"`
}

// Enabled reports whether cash entry events should be published.
func (p PubSubConfig) Enabled() bool {
	return p.CashEventsTopic != ""
}

func (db *DBConfig) resolveDSN(required bool) error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) == len(legacyDBEnvVars) && !required {
		// No database target configured, and nothing needs one.
		return nil
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

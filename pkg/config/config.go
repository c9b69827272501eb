package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	ERP          ERPConfig
	Checkout     CheckoutConfig
	Journals     JournalsConfig
	Discounts    DiscountsConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.ERP.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FIELDPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"FIELDPOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"FIELDPOS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIELDPOS_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the register front-ends allowed to call the API.
	CORSOrigins []string `envconfig:"FIELDPOS_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ERPConfig points the RPC gateway at the remote ERP.
type ERPConfig struct {
	URL             string        `envconfig:"FIELDPOS_ERP_URL" required:"true"`
	CallPath        string        `envconfig:"FIELDPOS_ERP_CALL_PATH" default:"/web/dataset/call_kw"`
	ProtocolVersion string        `envconfig:"FIELDPOS_ERP_PROTOCOL_VERSION" default:"2.0"`
	APIKey          string        `envconfig:"FIELDPOS_ERP_API_KEY"`
	CallTimeout     time.Duration `envconfig:"FIELDPOS_ERP_CALL_TIMEOUT" default:"30s"`
	CompanyID       int64         `envconfig:"FIELDPOS_ERP_COMPANY_ID" default:"0"`
}

// Endpoint returns the absolute RPC endpoint.
func (e ERPConfig) Endpoint() string {
	base := strings.TrimRight(strings.TrimSpace(e.URL), "/")
	path := strings.TrimSpace(e.CallPath)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (e ERPConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(e.URL))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvERPURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvERPURL)
	}
	return nil
}

type CheckoutConfig struct {
	RunTimeout time.Duration `envconfig:"FIELDPOS_CHECKOUT_RUN_TIMEOUT" default:"2m"`
}

// JournalSelectorConfig describes how a payment mode finds its journal.
type JournalSelectorConfig struct {
	ID           int64
	Type         string
	NameContains string
}

type JournalsConfig struct {
	CashID           int64  `envconfig:"FIELDPOS_JOURNAL_CASH_ID" default:"0"`
	CashType         string `envconfig:"FIELDPOS_JOURNAL_CASH_TYPE" default:"cash"`
	CashNameContains string `envconfig:"FIELDPOS_JOURNAL_CASH_NAME" default:"cash"`
	CardID           int64  `envconfig:"FIELDPOS_JOURNAL_CARD_ID" default:"0"`
	CardType         string `envconfig:"FIELDPOS_JOURNAL_CARD_TYPE" default:"bank"`
	CardNameContains string `envconfig:"FIELDPOS_JOURNAL_CARD_NAME" default:"card"`
}

// Cash returns the selector for cash tenders.
func (j JournalsConfig) Cash() JournalSelectorConfig {
	return JournalSelectorConfig{ID: j.CashID, Type: j.CashType, NameContains: j.CashNameContains}
}

// Card returns the selector for card tenders.
func (j JournalsConfig) Card() JournalSelectorConfig {
	return JournalSelectorConfig{ID: j.CardID, Type: j.CardType, NameContains: j.CardNameContains}
}

type DiscountsConfig struct {
	RemoteModel string `envconfig:"FIELDPOS_DISCOUNT_REMOTE_MODEL" default:"pos.discount.preset"`
}

type DBConfig struct {
	DSN    string `envconfig:"FIELDPOS_DB_DSN"`
	Driver string `envconfig:"FIELDPOS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"FIELDPOS_DB_HOST"`
	Port     int    `envconfig:"FIELDPOS_DB_PORT" default:"5432"`
	User     string `envconfig:"FIELDPOS_DB_USER"`
	Password string `envconfig:"FIELDPOS_DB_PASSWORD"`
	Name     string `envconfig:"FIELDPOS_DB_NAME"`
	SSLMode  string `envconfig:"FIELDPOS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIELDPOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"FIELDPOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"FIELDPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIELDPOS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIELDPOS_REDIS_URL"`
	Address      string        `envconfig:"FIELDPOS_REDIS_ADDR"`
	Password     string        `envconfig:"FIELDPOS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIELDPOS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIELDPOS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIELDPOS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIELDPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIELDPOS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIELDPOS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FIELDPOS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FIELDPOS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"FIELDPOS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"FIELDPOS_PUBSUB_NOTIFICATION_TOPIC"`
}

// Enabled reports whether notifications should be published to Pub/Sub.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.NotificationTopic) != ""
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.Driver = DriverSQLite
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

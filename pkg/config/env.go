package config

// EnvPrefix is handed to envconfig; every field carries an explicit key so the prefix only
// matters for fields without one.
const EnvPrefix = "FIELDPOS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:fieldpos.db?cache=shared"
)

const (
	EnvAppEnv         = "FIELDPOS_APP_ENV"
	EnvPort           = "FIELDPOS_APP_PORT"
	EnvERPURL         = "FIELDPOS_ERP_URL"
	EnvDBDSN          = "FIELDPOS_DB_DSN"
	EnvDBHost         = "FIELDPOS_DB_HOST"
	EnvDBUser         = "FIELDPOS_DB_USER"
	EnvDBName         = "FIELDPOS_DB_NAME"
	EnvRedisURL       = "FIELDPOS_REDIS_URL"
	EnvUseSQLite      = "FIELDPOS_USE_SQLITE"
	EnvJournalCashID  = "FIELDPOS_JOURNAL_CASH_ID"
	EnvERPCallTimeout = "FIELDPOS_ERP_CALL_TIMEOUT"
	EnvCORSOrigins    = "FIELDPOS_CORS_ORIGINS"
)

var dbEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

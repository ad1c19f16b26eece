package config

const EnvPrefix = "JGEC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverFirestore = "firestore"
	StoreDriverPostgres  = "postgres"
	StoreDriverSQLite    = "sqlite"
)

const (
	EnvAppEnv         = "JGEC_APP_ENV"
	EnvPort           = "JGEC_APP_PORT"
	EnvTimezone       = "JGEC_TIMEZONE"
	EnvStoreDriver    = "JGEC_STORE_DRIVER"
	EnvDBDSN          = "JGEC_DB_DSN"
	EnvDBHost         = "JGEC_DB_HOST"
	EnvDBUser         = "JGEC_DB_USER"
	EnvDBName         = "JGEC_DB_NAME"
	EnvRedisURL       = "JGEC_REDIS_URL"
	EnvJWTSecret      = "JGEC_JWT_SECRET"
	EnvFirebaseID     = "JGEC_FIREBASE_PROJECT_ID"
	EnvFirebaseAPIKey = "JGEC_FIREBASE_WEB_API_KEY"
	EnvFirebaseBucket = "JGEC_FIREBASE_STORAGE_BUCKET"
	EnvAdminEmails    = "JGEC_ADMIN_EMAILS"
	EnvSuperAdmins    = "JGEC_SUPER_ADMIN_EMAILS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

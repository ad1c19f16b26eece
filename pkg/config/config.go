package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Store         StoreConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Firebase      FirebaseConfig
	Auth          AuthConfig
	AuthRateLimit AuthRateLimitConfig
	Maintenance   MaintenanceConfig
	Upload        UploadConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Store.validate(); err != nil {
		return nil, err
	}
	if cfg.Store.UsesSQL() {
		if err := cfg.DB.ensureDSN(cfg.Store.Driver); err != nil {
			return nil, err
		}
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", EnvTimezone, err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"JGEC_APP_ENV" required:"true"`
	Port         string   `envconfig:"JGEC_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"JGEC_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"JGEC_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"JGEC_LOG_FORMAT" default:"json"`
	Timezone     string   `envconfig:"JGEC_TIMEZONE" default:"Asia/Kolkata"`
	CORSOrigins  []string `envconfig:"JGEC_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Location resolves the timezone used to interpret wall-clock settings values.
func (a AppConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

type StoreConfig struct {
	Driver string `envconfig:"JGEC_STORE_DRIVER" default:"firestore"`
}

func (s StoreConfig) UsesSQL() bool {
	return s.Driver == StoreDriverPostgres || s.Driver == StoreDriverSQLite
}

func (s *StoreConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StoreDriverFirestore, StoreDriverPostgres, StoreDriverSQLite:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s, %s", EnvStoreDriver, StoreDriverFirestore, StoreDriverPostgres, StoreDriverSQLite)
}

type DBConfig struct {
	DSN string `envconfig:"JGEC_DB_DSN"`

	LegacyHost     string `envconfig:"JGEC_DB_HOST"`
	LegacyPort     int    `envconfig:"JGEC_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JGEC_DB_USER"`
	LegacyPassword string `envconfig:"JGEC_DB_PASSWORD"`
	LegacyName     string `envconfig:"JGEC_DB_NAME"`
	LegacySSLMode  string `envconfig:"JGEC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JGEC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JGEC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JGEC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JGEC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JGEC_REDIS_URL" required:"true"`
	Address      string        `envconfig:"JGEC_REDIS_ADDR"`
	Password     string        `envconfig:"JGEC_REDIS_PASSWORD"`
	DB           int           `envconfig:"JGEC_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JGEC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JGEC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JGEC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JGEC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JGEC_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"JGEC_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"JGEC_JWT_ISSUER" default:"jgechelper"`
	ExpirationMinutes int    `envconfig:"JGEC_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"JGEC_SESSION_TTL_MINUTES" default:"10080"`
}

// SessionTTL returns how long a server-side session outlives its access token.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FirebaseConfig struct {
	ProjectID       string `envconfig:"JGEC_FIREBASE_PROJECT_ID" required:"true"`
	CredentialsFile string `envconfig:"JGEC_FIREBASE_CREDENTIALS_FILE"`
	CredentialsJSON string `envconfig:"JGEC_FIREBASE_CREDENTIALS_JSON"`
	WebAPIKey       string `envconfig:"JGEC_FIREBASE_WEB_API_KEY" required:"true"`
	StorageBucket   string `envconfig:"JGEC_FIREBASE_STORAGE_BUCKET" required:"true"`
	// RequestURI is sent to the identity toolkit when exchanging Google credentials.
	RequestURI string `envconfig:"JGEC_FIREBASE_REQUEST_URI" default:"http://localhost"`
}

type AuthConfig struct {
	AdminEmails      []string `envconfig:"JGEC_ADMIN_EMAILS"`
	SuperAdminEmails []string `envconfig:"JGEC_SUPER_ADMIN_EMAILS"`
	LoginRoute       string   `envconfig:"JGEC_LOGIN_ROUTE" default:"/login"`
	BannedRedirect   string   `envconfig:"JGEC_BANNED_REDIRECT" default:"/?banned=true"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"JGEC_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"JGEC_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"JGEC_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"JGEC_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"JGEC_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"JGEC_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	ResetWindow        time.Duration `envconfig:"JGEC_AUTH_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetEmailLimit    int           `envconfig:"JGEC_AUTH_RATE_LIMIT_RESET_EMAIL_LIMIT" default:"3"`
	ResetIPLimit       int           `envconfig:"JGEC_AUTH_RATE_LIMIT_RESET_IP_LIMIT" default:"10"`
}

type MaintenanceConfig struct {
	DefaultContactEmail string        `envconfig:"JGEC_MAINTENANCE_CONTACT_EMAIL" default:"admin@jgec.ac.in"`
	LoadTimeout         time.Duration `envconfig:"JGEC_MAINTENANCE_LOAD_TIMEOUT" default:"5s"`
	ResyncInterval      time.Duration `envconfig:"JGEC_MAINTENANCE_RESYNC_INTERVAL" default:"30s"`
	Channel             string        `envconfig:"JGEC_MAINTENANCE_CHANNEL" default:"settings.general"`
	ArrivalCookie       string        `envconfig:"JGEC_ARRIVAL_COOKIE" default:"arrival_time"`
	ArrivalCookieTTL    time.Duration `envconfig:"JGEC_ARRIVAL_COOKIE_TTL" default:"8760h"`
}

type UploadConfig struct {
	MaxUploadMB int    `envconfig:"JGEC_MAX_UPLOAD_MB" default:"25"`
	DefaultDir  string `envconfig:"JGEC_UPLOAD_DEFAULT_DIR" default:"uploads"`
}

// MaxBytes converts the configured upload limit to bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) << 20
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"JGEC_AUTO_MIGRATE" default:"false"`
	StatsCacheTTLS int  `envconfig:"JGEC_STATS_CACHE_TTL_SECONDS" default:"30"`
}

func (db *DBConfig) ensureDSN(driver string) error {
	if db.DSN != "" {
		return nil
	}
	if driver == StoreDriverSQLite {
		db.DSN = "file:jgechelper.db?cache=shared"
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

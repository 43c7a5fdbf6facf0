package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App               AppConfig
	DB                DBConfig
	Redis             RedisConfig
	JWT               JWTConfig
	Password          PasswordConfig
	AuthRateLimit     AuthRateLimitConfig
	Invitations       InvitationsConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	FeatureFlags      FeatureFlagsConfig
	GCP               GCPConfig
	PubSub            PubSubConfig
	RoleFeed          RoleFeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MINIMART_APP_ENV" required:"true"`
	Port         string `envconfig:"MINIMART_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"MINIMART_APP_BASE_URL" default:"http://localhost:5173"`
	LogLevel     string `envconfig:"MINIMART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MINIMART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MINIMART_DB_DSN"`
	Driver string `envconfig:"MINIMART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MINIMART_DB_HOST"`
	LegacyPort     int    `envconfig:"MINIMART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MINIMART_DB_USER"`
	LegacyPassword string `envconfig:"MINIMART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MINIMART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MINIMART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MINIMART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MINIMART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MINIMART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MINIMART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MINIMART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MINIMART_REDIS_ADDR"`
	Password     string        `envconfig:"MINIMART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MINIMART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MINIMART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MINIMART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MINIMART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MINIMART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MINIMART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MINIMART_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MINIMART_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MINIMART_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MINIMART_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MINIMART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MINIMART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MINIMART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MINIMART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MINIMART_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	InviteWindow    time.Duration `envconfig:"MINIMART_AUTH_RATE_LIMIT_INVITE_WINDOW" default:"5m"`
	InviteIPLimit   int           `envconfig:"MINIMART_AUTH_RATE_LIMIT_INVITE_IP_LIMIT" default:"20"`
}

type InvitationsConfig struct {
	TTL time.Duration `envconfig:"MINIMART_INVITATION_TTL" default:"168h"`
}

type PasswordResetConfig struct {
	TokenTTL time.Duration `envconfig:"MINIMART_PASSWORD_RESET_TTL" default:"1h"`
}

type EmailVerificationConfig struct {
	TokenTTL time.Duration `envconfig:"MINIMART_EMAIL_VERIFICATION_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MINIMART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MINIMART_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MINIMART_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	StaffTopic        string        `envconfig:"MINIMART_PUBSUB_STAFF_TOPIC" default:"minimart-staff-events"`
	StaffSubscription string        `envconfig:"MINIMART_PUBSUB_STAFF_SUBSCRIPTION"`
	ProcessedTTL      time.Duration `envconfig:"MINIMART_PUBSUB_PROCESSED_TTL" default:"24h"`
}

type RoleFeedConfig struct {
	Channel string `envconfig:"MINIMART_ROLEFEED_CHANNEL" default:"minimart:role_changes"`
}

func (db *DBConfig) ensureDSN() error {
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

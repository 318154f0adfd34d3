package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/database"
	"github.com/lexdraft/lexdraft/backend/go-services/internal/rbac"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds application configuration
type Config struct {
	Server     ServerConfig
	Store      StoreConfig
	MongoDB    MongoDBConfig
	SQL        SQLConfig
	Redis      RedisConfig
	Keycloak   KeycloakConfig
	JWT        JWTConfig
	MinIO      MinIOConfig
	RateLimit  RateLimitConfig
	Versioning VersioningConfig
	RBAC       RBACConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CORSOrigins is empty to allow any origin.
	CORSOrigins []string
}

// Production reports whether development-only routes must stay off.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, "production")
}

func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// StoreConfig selects where data lives. Versions may use any backend;
// documents, templates and users use memory or mongo.
type StoreConfig struct {
	Versions string
	Data     string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type SQLConfig struct {
	DSN     string
	Timeout time.Duration
}

// Driver is the database/sql driver implied by the DSN.
func (s SQLConfig) Driver() string { return database.DriverFromDSN(s.DSN) }

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	RoleCacheTTL time.Duration
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type KeycloakConfig struct {
	URL                string
	Realm              string
	ClientID           string
	ClientSecret       string
	AllowInsecureToken bool
}

// Issuer is the OIDC issuer URL of the configured realm, or URL itself when
// no realm is set.
func (k KeycloakConfig) Issuer() string {
	if k.Realm == "" {
		return k.URL
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

func (m MinIOConfig) Enabled() bool { return m.Endpoint != "" }

type RateLimitConfig struct {
	Enabled  bool
	UseRedis bool
	RPS      float64
	Burst    int
	Window   time.Duration
}

type VersioningConfig struct {
	RecordUnchanged bool
	ConflictRetries uint64
}

type RBACConfig struct {
	DefaultRole rbac.Role
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)

	v.SetDefault("STORE_VERSIONS", BackendMemory)
	v.SetDefault("STORE_DATA", BackendMemory)
	v.SetDefault("MONGODB_DATABASE", "lexdraft")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("SQL_TIMEOUT", 10)

	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_ROLE_CACHE_TTL", 300)

	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)

	v.SetDefault("MINIO_BUCKET", "document-versions")
	v.SetDefault("MINIO_REGION", "us-east-1")

	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_RPS", 10.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	v.SetDefault("VERSION_RECORD_UNCHANGED", true)
	v.SetDefault("VERSION_CONFLICT_RETRIES", 5)

	v.SetDefault("RBAC_DEFAULT_ROLE", string(rbac.RoleViewer))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads configuration from environment variables and an optional
// .env file, then validates it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	seconds := func(key string) time.Duration { return time.Duration(v.GetInt(key)) * time.Second }

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			LogLevel:     v.GetString("LOG_LEVEL"),
			ReadTimeout:  seconds("SERVER_READ_TIMEOUT"),
			WriteTimeout: seconds("SERVER_WRITE_TIMEOUT"),
			CORSOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Store: StoreConfig{
			Versions: strings.ToLower(v.GetString("STORE_VERSIONS")),
			Data:     strings.ToLower(v.GetString("STORE_DATA")),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  seconds("MONGODB_TIMEOUT"),
		},
		SQL: SQLConfig{
			DSN:     v.GetString("SQL_DSN"),
			Timeout: seconds("SQL_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:         v.GetString("REDIS_HOST"),
			Port:         v.GetString("REDIS_PORT"),
			Password:     v.GetString("REDIS_PASSWORD"),
			DB:           v.GetInt("REDIS_DB"),
			RoleCacheTTL: seconds("REDIS_ROLE_CACHE_TTL"),
		},
		Keycloak: KeycloakConfig{
			URL:                v.GetString("KEYCLOAK_URL"),
			Realm:              v.GetString("KEYCLOAK_REALM"),
			ClientID:           v.GetString("KEYCLOAK_CLIENT_ID"),
			ClientSecret:       v.GetString("KEYCLOAK_CLIENT_SECRET"),
			AllowInsecureToken: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			Region:    v.GetString("MINIO_REGION"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis: v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:      v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:    v.GetInt("RATE_LIMIT_BURST"),
			Window:   seconds("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Versioning: VersioningConfig{
			RecordUnchanged: v.GetBool("VERSION_RECORD_UNCHANGED"),
			ConflictRetries: uint64(v.GetInt("VERSION_CONFLICT_RETRIES")),
		},
		RBAC: RBACConfig{
			DefaultRole: rbac.Role(strings.ToLower(v.GetString("RBAC_DEFAULT_ROLE"))),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every setting the selected backends need but lack.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Versions {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("STORE_VERSIONS=mongo requires MONGODB_URI"))
		}
	case BackendPostgres, BackendSQLite:
		if c.SQL.DSN == "" {
			errs = append(errs, fmt.Errorf("STORE_VERSIONS=%s requires SQL_DSN", c.Store.Versions))
		} else if c.SQL.Driver() != c.Store.Versions {
			errs = append(errs, fmt.Errorf("SQL_DSN is a %s DSN but STORE_VERSIONS=%s", c.SQL.Driver(), c.Store.Versions))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_VERSIONS %q", c.Store.Versions))
	}
	switch c.Store.Data {
	case BackendMemory:
	case BackendMongo:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("STORE_DATA=mongo requires MONGODB_URI"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DATA %q", c.Store.Data))
	}
	if c.RateLimit.Enabled && c.RateLimit.UseRedis && !c.Redis.Enabled() {
		errs = append(errs, errors.New("RATE_LIMIT_USE_REDIS requires REDIS_HOST"))
	}
	if c.MinIO.Enabled() && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		errs = append(errs, errors.New("MINIO_ENDPOINT requires MINIO_ACCESS_KEY and MINIO_SECRET_KEY"))
	}
	if !c.RBAC.DefaultRole.Valid() {
		errs = append(errs, fmt.Errorf("unknown RBAC_DEFAULT_ROLE %q", c.RBAC.DefaultRole))
	}
	if c.Keycloak.URL == "" && c.JWT.Secret == "" && !c.Keycloak.AllowInsecureToken {
		errs = append(errs, errors.New("no token verifier: set KEYCLOAK_URL, JWT_SECRET or ALLOW_INSECURE_TOKEN"))
	}
	return errors.Join(errs...)
}

// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Upload    UploadConfig    `koanf:"upload"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
	GenerateKeys      bool          `koanf:"generate_keys"`
}

type RateLimitConfig struct {
	Requests       int           `koanf:"requests"`
	Window         time.Duration `koanf:"window"`
	Burst          int           `koanf:"burst"`
	UploadRequests int           `koanf:"upload_requests"`
	UploadBurst    int           `koanf:"upload_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// UploadConfig controls the artifact store and upload limits.
type UploadConfig struct {
	Dir          string `koanf:"dir"`
	MaxFileSize  int64  `koanf:"max_file_size"`
	MaxFormBytes int64  `koanf:"max_form_bytes"`
}

const envProduction = "production"

var (
	loaded  *Config
	loadErr error
	once    sync.Once
)

// Load layers defaults, the optional YAML file and the environment, in that
// order. The result is cached for the life of the process.
func Load(configPath string) (*Config, error) {
	once.Do(func() {
		loaded, loadErr = load(configPath)
	})
	return loaded, loadErr
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for section, values := range defaults {
		for key, value := range values {
			if err := k.Set(section+"."+key, value); err != nil {
				return nil, fmt.Errorf("default %s.%s: %w", section, key, err)
			}
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", fromEnv), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return c, nil
}

var defaults = map[string]map[string]any{
	"app": {
		"name":        "SheetSense",
		"version":     "1.0.0",
		"environment": "development",
	},
	"server": {
		"host":             "0.0.0.0",
		"port":             8080,
		"read_timeout":     "30s",
		"write_timeout":    "60s",
		"idle_timeout":     "120s",
		"shutdown_timeout": "15s",
	},
	"database": {
		"max_open_conns":     20,
		"max_idle_conns":     5,
		"conn_max_lifetime":  "1h",
		"conn_max_idle_time": "15m",
	},
	"redis": {
		"pool_size":      10,
		"min_idle_conns": 2,
	},
	"jwt": {
		"access_token_expire": "24h",
		"issuer":              "sheetsense",
		"audience":            "sheetsense-api",
		"private_key_path":    "keys/private.pem",
		"public_key_path":     "keys/public.pem",
		"generate_keys":       false,
	},
	"rate_limit": {
		"requests":        100,
		"window":          "1m",
		"burst":           20,
		"upload_requests": 20,
		"upload_burst":    5,
	},
	"cors": {
		"allowed_origins":   []string{"http://localhost:5173"},
		"allowed_methods":   []string{"GET", "POST", "DELETE", "OPTIONS"},
		"allowed_headers":   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		"allow_credentials": true,
		"max_age":           300,
	},
	"log": {
		"level":  "info",
		"format": "json",
	},
	"otel": {
		"enabled":      false,
		"insecure":     true,
		"sample_rate":  0.1,
		"service_name": "sheetsense",
	},
	"upload": {
		"dir":            "uploads",
		"max_file_size":  10 << 20,
		"max_form_bytes": 11 << 20,
	},
}

// envKeys maps the supported environment variables onto config paths.
// Anything else in the environment is ignored.
var envKeys = map[string]string{
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_GENERATE_KEYS":           "jwt.generate_keys",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_UPLOAD_REQUESTS":  "rate_limit.upload_requests",
	"RATE_LIMIT_UPLOAD_BURST":     "rate_limit.upload_burst",
	"CORS_ALLOWED_ORIGINS":        "cors.allowed_origins",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"UPLOAD_DIR":                  "upload.dir",
	"UPLOAD_MAX_FILE_SIZE":        "upload.max_file_size",
}

// fromEnv translates one environment variable. List-valued keys accept a
// comma separated value.
func fromEnv(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}

	if key == "cors.allowed_origins" {
		origins := strings.Split(value, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		return key, origins
	}

	return key, value
}

// validate reports every problem at once so a bad deploy is fixed in one pass.
func validate(c *Config) error {
	var errs []error
	require := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	require(c.Database.URL != "", "DATABASE_URL is required")
	require(c.Redis.URL != "", "REDIS_URL is required")
	require(c.JWT.PrivateKeyPath != "", "JWT_PRIVATE_KEY_PATH is required")
	require(c.JWT.PublicKeyPath != "", "JWT_PUBLIC_KEY_PATH is required")
	require(c.Upload.Dir != "", "UPLOAD_DIR is required")

	require(c.Upload.MaxFileSize > 0, "upload.max_file_size must be positive")
	require(
		c.Upload.MaxFormBytes >= c.Upload.MaxFileSize,
		"upload.max_form_bytes (%d) is below upload.max_file_size (%d)",
		c.Upload.MaxFormBytes,
		c.Upload.MaxFileSize,
	)
	require(c.RateLimit.Requests > 0, "rate_limit.requests must be positive")
	require(c.RateLimit.UploadRequests > 0, "rate_limit.upload_requests must be positive")
	require(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	require(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")

	if c.CORS.AllowCredentials {
		require(
			!slices.Contains(c.CORS.AllowedOrigins, "*"),
			"cors: wildcard origin cannot be combined with credentials",
		)
	}

	if c.IsProduction() {
		require(
			!c.Otel.Enabled || !c.Otel.Insecure,
			"OTEL_INSECURE must be false in production",
		)
		require(!c.JWT.GenerateKeys, "JWT_GENERATE_KEYS is not allowed in production")
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == envProduction
}

func (s *ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

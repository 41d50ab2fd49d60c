package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Notification NotificationConfig `mapstructure:"notification"`
	Swagger      SwaggerConfig      `mapstructure:"swagger"`
}

type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Mode          string        `mapstructure:"mode"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UseHTTPS      bool          `mapstructure:"use_https"`
	HTTPSCertFile string        `mapstructure:"https_cert_file"`
	HTTPSKeyFile  string        `mapstructure:"https_key_file"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	Timezone        string        `mapstructure:"timezone"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// AuthConfig only covers token verification. Tokens are issued by the
// identity service, we share its secret and issuer.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTExpiryHours int           `mapstructure:"jwt_expiry_hours"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig controls the background sweeps. Sweep intervals are fixed
// by the lifecycle rules, only the runtime knobs live here.
type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`
}

type NotificationConfig struct {
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"`
	Workers         int           `mapstructure:"workers"`
	BufferSize      int           `mapstructure:"buffer_size"`
}

type SwaggerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Version     string `mapstructure:"version"`
	Host        string `mapstructure:"host"`
	BasePath    string `mapstructure:"base_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.retry_attempts", 5)
	v.SetDefault("database.retry_delay", 2*time.Second)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("auth.jwt_expiry_hours", 24)
	v.SetDefault("auth.rate_limit", 120)
	v.SetDefault("auth.rate_window", time.Minute)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.lock_ttl", 50*time.Second)
	v.SetDefault("scheduler.sweep_timeout", 45*time.Second)
	v.SetDefault("notification.delivery_timeout", 10*time.Second)
	v.SetDefault("notification.workers", 4)
	v.SetDefault("notification.buffer_size", 256)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("swagger.title", "Hub Meetups API")
	v.SetDefault("swagger.version", "1.0")
	v.SetDefault("swagger.host", "localhost:8000")
}

func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// If CONFIG_FILE environment variable is set, use it
	if envConfigFile := os.Getenv("CONFIG_FILE"); envConfigFile != "" {
		configPath = envConfigFile
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		ext := filepath.Ext(file)
		name := strings.TrimSuffix(file, ext)

		v.AddConfigPath(dir)
		v.SetConfigName(name)
	} else {
		// Fallback to default locations
		_, filename, _, _ := runtime.Caller(0)
		pkgConfigDir := filepath.Dir(filename)
		projectRoot := filepath.Join(pkgConfigDir, "..", "..")

		v.AddConfigPath(pkgConfigDir)
		v.AddConfigPath(projectRoot)
		v.AddConfigPath(filepath.Join(projectRoot, "pkg", "config"))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error loading config file: %v", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyEnvOverrides(v)

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

var envVars = map[string]string{
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.name":           "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"server.port":             "SERVER_PORT",
	"server.mode":             "SERVER_MODE",
	"server.timeout":          "SERVER_TIMEOUT",
	"redis.host":              "REDIS_HOST",
	"redis.port":              "REDIS_PORT",
	"redis.password":          "REDIS_PASSWORD",
	"redis.db":                "REDIS_DB",
	"redis.enabled":           "REDIS_ENABLED",
	"auth.jwt_secret":         "JWT_SECRET",
	"auth.jwt_issuer":         "JWT_ISSUER",
	"auth.jwt_expiry_hours":   "JWT_EXPIRY_HOURS",
	"logging.level":           "LOG_LEVEL",
	"logging.format":          "LOG_FORMAT",
	"scheduler.enabled":       "SCHEDULER_ENABLED",
	"scheduler.lock_ttl":      "SCHEDULER_LOCK_TTL",
	"scheduler.sweep_timeout": "SCHEDULER_SWEEP_TIMEOUT",
	"swagger.enabled":         "SWAGGER_ENABLED",
	"swagger.host":            "SWAGGER_HOST",
}

func applyEnvOverrides(v *viper.Viper) {
	for configKey, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		switch envVar {
		case "DB_PORT", "REDIS_PORT", "REDIS_DB", "SERVER_PORT", "JWT_EXPIRY_HOURS":
			if intVal, err := strconv.Atoi(value); err == nil {
				v.Set(configKey, intVal)
			}
		case "SERVER_TIMEOUT", "SCHEDULER_LOCK_TTL", "SCHEDULER_SWEEP_TIMEOUT":
			if d, err := time.ParseDuration(value); err == nil {
				v.Set(configKey, d)
			}
		case "REDIS_ENABLED", "SCHEDULER_ENABLED", "SWAGGER_ENABLED":
			if b, err := strconv.ParseBool(value); err == nil {
				v.Set(configKey, b)
			}
		default:
			v.Set(configKey, value)
		}
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// DSN returns the postgres connection string for lib/pq and gorm.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.Timezone)
}

// Addr returns the host:port pair used by the redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

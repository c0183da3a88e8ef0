// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // plan cache ttl
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	TempTokenTTL time.Duration `yaml:"temp_token_ttl"`
	CookieName   string        `yaml:"cookie_name"`
	SecureCookie bool          `yaml:"secure_cookie"`
	OTPTTL       time.Duration `yaml:"otp_ttl"`
	VerifiedTTL  time.Duration `yaml:"verified_ttl"`
	OTPPerWindow int           `yaml:"otp_per_window"`
	OTPWindow    time.Duration `yaml:"otp_window"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
	// Disabled logs messages instead of sending them.
	Disabled bool `yaml:"disabled"`
}

type BookingConfig struct {
	Buffer          time.Duration `yaml:"buffer"`
	SessionDuration time.Duration `yaml:"session_duration"`
	EnforceHours    bool          `yaml:"enforce_hours"`
	OpenHour        int           `yaml:"open_hour"`
	CloseHour       int           `yaml:"close_hour"`
}

type WorkerConfig struct {
	Count      int           `yaml:"count"`
	QueueSize  int           `yaml:"queue_size"`
	MaxRetries int           `yaml:"max_retries"`
	Backoff    time.Duration `yaml:"backoff"`
}

type SchedulerConfig struct {
	ExpiryCheckCron string `yaml:"expiry_check_cron"`
}

type AdminConfig struct {
	SuperAdminEmail string `yaml:"super_admin_email"`
}

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Booking   BookingConfig   `yaml:"booking"`
	Worker    WorkerConfig    `yaml:"worker"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig parses -config and -dev and loads the file they name.
func LoadConfig() (*Config, error) {
	var configPath string = ""
	var envPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.StringVar(&envPath, "env", ".env", "optional dotenv file")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	// a missing .env is fine
	_ = godotenv.Load(envPath)

	return Load(configPath, dev)
}

// Load reads the yaml file, applies env overrides and defaults, and validates.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Mail.Password, "SMTP_PASSWORD")
	override(&cfg.Admin.SuperAdminEmail, "SUPER_ADMIN_EMAIL")
	override(&cfg.HTTP.Addr, "HTTP_ADDR")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":5000"
	}
	cfg.HTTP.ReadTimeout = orDuration(cfg.HTTP.ReadTimeout, 15*time.Second)
	cfg.HTTP.WriteTimeout = orDuration(cfg.HTTP.WriteTimeout, 30*time.Second)
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 20*time.Second)
	cfg.HTTP.ShutdownTimeout = orDuration(cfg.HTTP.ShutdownTimeout, 10*time.Second)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	cfg.Auth.TokenTTL = orDuration(cfg.Auth.TokenTTL, 7*24*time.Hour)
	cfg.Auth.TempTokenTTL = orDuration(cfg.Auth.TempTokenTTL, 30*time.Minute)
	cfg.Auth.OTPTTL = orDuration(cfg.Auth.OTPTTL, 10*time.Minute)
	cfg.Auth.VerifiedTTL = orDuration(cfg.Auth.VerifiedTTL, 30*time.Minute)
	cfg.Auth.OTPWindow = orDuration(cfg.Auth.OTPWindow, 15*time.Minute)
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "token"
	}
	if cfg.Auth.OTPPerWindow <= 0 {
		cfg.Auth.OTPPerWindow = 5
	}

	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.Username
	}

	cfg.Booking.Buffer = orDuration(cfg.Booking.Buffer, 30*time.Minute)
	cfg.Booking.SessionDuration = orDuration(cfg.Booking.SessionDuration, 30*time.Minute)
	if cfg.Booking.OpenHour == 0 && cfg.Booking.CloseHour == 0 {
		cfg.Booking.OpenHour, cfg.Booking.CloseHour = 7, 19
	}

	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = 4
	}
	if cfg.Worker.QueueSize <= 0 {
		cfg.Worker.QueueSize = 100
	}
	if cfg.Worker.MaxRetries < 0 {
		cfg.Worker.MaxRetries = 0
	} else if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	cfg.Worker.Backoff = orDuration(cfg.Worker.Backoff, 2*time.Second)

	if cfg.Scheduler.ExpiryCheckCron == "" {
		cfg.Scheduler.ExpiryCheckCron = "@hourly"
	}
}

// Minimal validation
func (cfg *Config) validate() error {
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if len(cfg.Auth.JWTSecret) < 16 {
		return errors.New("auth.jwt_secret must be at least 16 characters")
	}
	if !cfg.Mail.Disabled && cfg.Mail.Host == "" {
		return errors.New("mail.host is required unless mail.disabled is set")
	}
	if cfg.Booking.OpenHour < 0 || cfg.Booking.CloseHour > 24 || cfg.Booking.OpenHour >= cfg.Booking.CloseHour {
		return fmt.Errorf("booking hours %d-%d are invalid", cfg.Booking.OpenHour, cfg.Booking.CloseHour)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

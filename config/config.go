package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "./config/config.yaml"

type HTTP struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// GRPC: пустой addr отключает gRPC health-сервер.
type GRPC struct {
	Addr string `yaml:"addr"`
}

type WS struct {
	PingEvery  time.Duration `yaml:"pingEvery"`
	WriteWait  time.Duration `yaml:"writeWait"`
	SendBuffer int           `yaml:"sendBuffer"`
	ReadLimit  int64         `yaml:"readLimit"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Health struct {
	Password     string        `yaml:"password"`
	PasswordHash string        `yaml:"passwordHash"` // bcrypt, приоритетнее password
	TokenSecret  string        `yaml:"tokenSecret"`  // пусто - случайный на процесс
	TokenTTL     time.Duration `yaml:"tokenTTL"`
	CookieSecure bool          `yaml:"cookieSecure"`
	RefreshEvery time.Duration `yaml:"refreshEvery"`
}

type Events struct {
	Capacity int `yaml:"capacity"`
}

type Static struct {
	Dir string `yaml:"dir"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // presence-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	GRPC    GRPC    `yaml:"grpc"`
	WS      WS      `yaml:"ws"`
	CORS    CORS    `yaml:"cors"`
	Health  Health  `yaml:"health"`
	Events  Events  `yaml:"events"`
	Static  Static  `yaml:"static"`
	Logging Logging `yaml:"logging"`
}

// LoadConfig читает .env (если есть), yaml-файл из CONFIG_PATH и
// применяет переопределения из окружения.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// без файла работаем на дефолтах и окружении
	default:
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("GRPC_ADDR"); v != "" {
		c.GRPC.Addr = v
	}
	if v := os.Getenv("HEALTH_PASSWORD"); v != "" {
		c.Health.Password = v
	}
	if v := os.Getenv("HEALTH_PASSWORD_HASH"); v != "" {
		c.Health.PasswordHash = v
	}
	if v := os.Getenv("HEALTH_TOKEN_SECRET"); v != "" {
		c.Health.TokenSecret = v
	}
	if v := os.Getenv("HEALTH_TOKEN_TTL"); v != "" {
		c.Health.TokenTTL = parseDurationOr(c.Health.TokenTTL, v)
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		c.Static.Dir = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	// установка дефолтов, если значения не указаны
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3001"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout <= 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.WS.PingEvery <= 0 {
		c.WS.PingEvery = 15 * time.Second
	}
	if c.WS.WriteWait <= 0 {
		c.WS.WriteWait = 5 * time.Second
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 32
	}
	if c.WS.ReadLimit <= 0 {
		c.WS.ReadLimit = 64 << 10
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Health.TokenTTL <= 0 {
		c.Health.TokenTTL = 10 * time.Minute
	}
	if c.Health.RefreshEvery <= 0 {
		c.Health.RefreshEvery = 2 * time.Second
	}
	if c.Events.Capacity <= 0 {
		c.Events.Capacity = 50
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "./dist"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "presence-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.WS.WriteWait >= c.WS.PingEvery {
		return errors.New("ws.writeWait must be shorter than ws.pingEvery")
	}
	if c.Logging.Backend != "std" && c.Logging.Backend != "zap" {
		return fmt.Errorf("logging.backend %q: want std or zap", c.Logging.Backend)
	}
	return nil
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr            string `yaml:"addr"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	KV struct {
		Driver string `yaml:"driver"` // memory | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Prefix string `yaml:"prefix"`
	} `yaml:"kv"`

	Auth struct {
		NonceTTL string `yaml:"nonce_ttl"`
		Session  struct {
			MaxPerPrincipal int    `yaml:"max_per_principal"`
			IdleTimeout     string `yaml:"idle_timeout"`
			CookieName      string `yaml:"cookie_name"`
			Secure          bool   `yaml:"secure"`
		} `yaml:"session"`
		Lockout struct {
			Duration string `yaml:"duration"`
		} `yaml:"lockout"`
	} `yaml:"auth"`

	Rate struct {
		Login struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
		Registration struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"registration"`
	} `yaml:"rate"`

	Honeypot struct {
		BlockThreshold int64 `yaml:"block_threshold"`
	} `yaml:"honeypot"`

	Sweeper struct {
		Interval string `yaml:"interval"`
	} `yaml:"sweeper"`

	Alerts struct {
		WebhookURL string `yaml:"webhook_url"`
		SMTP       struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
			To       string `yaml:"to"`
		} `yaml:"smtp"`
	} `yaml:"alerts"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee el YAML, aplica defaults sanos, overrides por env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "15s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.KV.Driver == "" {
		c.KV.Driver = "memory"
	}
	if c.KV.Redis.Addr == "" {
		c.KV.Redis.Addr = "localhost:6379"
	}
	if c.Auth.NonceTTL == "" {
		c.Auth.NonceTTL = "5m"
	}
	if c.Auth.Session.MaxPerPrincipal == 0 {
		c.Auth.Session.MaxPerPrincipal = 5
	}
	if c.Auth.Session.IdleTimeout == "" {
		c.Auth.Session.IdleTimeout = "30m"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Lockout.Duration == "" {
		c.Auth.Lockout.Duration = "15m"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 3
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "5m"
	}
	if c.Rate.Registration.Limit == 0 {
		c.Rate.Registration.Limit = 2
	}
	if c.Rate.Registration.Window == "" {
		c.Rate.Registration.Window = "10m"
	}
	if c.Honeypot.BlockThreshold == 0 {
		c.Honeypot.BlockThreshold = 5
	}
	if c.Sweeper.Interval == "" {
		c.Sweeper.Interval = "5m"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	c.applyEnvOverrides()

	// validate string durations
	for name, v := range map[string]string{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"auth.nonce_ttl":            c.Auth.NonceTTL,
		"auth.session.idle_timeout": c.Auth.Session.IdleTimeout,
		"auth.lockout.duration":     c.Auth.Lockout.Duration,
		"rate.login.window":         c.Rate.Login.Window,
		"rate.registration.window":  c.Rate.Registration.Window,
		"sweeper.interval":          c.Sweeper.Interval,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("config: %s: %w", name, err)
		}
	}

	if c.KV.Driver != "memory" && c.KV.Driver != "redis" {
		return nil, fmt.Errorf("config: kv.driver inválido: %q", c.KV.Driver)
	}

	// Guardia dura: en prod el KV debe ser redis, si no la blocklist
	// se pierde en cada deploy.
	if strings.EqualFold(c.App.Env, "prod") && c.KV.Driver != "redis" {
		return nil, fmt.Errorf("config: kv.driver debe ser redis en prod")
	}

	return &c, nil
}

// Duration parsea una duración ya validada por Load.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(v)
	return d
}

func getEnvStr(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	return v, ok && strings.TrimSpace(v) != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	return n, err == nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("KV_DRIVER"); ok {
		c.KV.Driver = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.KV.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.KV.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.KV.Redis.DB = v
	}
	if v, ok := getEnvStr("SECURITY_WEBHOOK_URL"); ok {
		c.Alerts.WebhookURL = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Alerts.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Alerts.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.Alerts.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.Alerts.SMTP.Password = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
}

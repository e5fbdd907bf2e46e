// Package config loads service settings from config.yaml, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Log      LogConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Database DatabaseConfig
	NATS     NATSConfig
	Telegram TelegramConfig
	Gateway  GatewayConfig
	Notify   NotifyConfig
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

type HTTPConfig struct {
	Addr            string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type NATSConfig struct {
	URL                 string
	Name                string
	ConnectTimeout      time.Duration
	ReconnectWait       time.Duration
	MaxReconnects       int
	Stream              string
	Subjects            []string
	Durable             string
	FilterSubject       string
	ConfirmationSubject string
	AckWait             time.Duration
	MaxDeliver          int
	NakDelay            time.Duration
}

type TelegramConfig struct {
	BaseURL  string
	BotToken string
	ChatID   string
}

type GatewayConfig struct {
	BaseURL         string
	APIKey          string
	Instance        string
	Integration     string
	MaxRetries      int
	RetryDelay      time.Duration
	MaxRetryDelay   time.Duration
	Timeout         time.Duration
	RestartDelay    time.Duration
	StartupDelay    time.Duration
	PostCreateDelay time.Duration
	ConnectDelay    time.Duration
	ConnectingDelay time.Duration
	SendDelay       int // milliseconds
}

// Enabled reports whether the personal channel is configured.
func (g GatewayConfig) Enabled() bool {
	return strings.TrimSpace(g.BaseURL) != ""
}

type NotifyConfig struct {
	SendTimeout       time.Duration
	HTTPClientTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("http.addr", ":8089")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "radar-watch-service")
	v.SetDefault("nats.connect_timeout", 10*time.Second)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.stream", "RADARES")
	v.SetDefault("nats.subjects", []string{"radares.*", "alerta.confirmado"})
	v.SetDefault("nats.durable", "monitoramento_radares_queue")
	v.SetDefault("nats.filter_subject", "radares.*")
	v.SetDefault("nats.confirmation_subject", "alerta.confirmado")
	v.SetDefault("nats.ack_wait", 30*time.Second)
	v.SetDefault("nats.max_deliver", 5)
	v.SetDefault("nats.nak_delay", 5*time.Second)

	v.SetDefault("telegram.base_url", "https://api.telegram.org")

	v.SetDefault("gateway.instance", "RadarBot")
	v.SetDefault("gateway.integration", "WHATSAPP-BAILEYS")
	v.SetDefault("gateway.max_retries", 20)
	v.SetDefault("gateway.retry_delay", 5*time.Second)
	v.SetDefault("gateway.max_retry_delay", 30*time.Second)
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.restart_delay", 60*time.Second)
	v.SetDefault("gateway.startup_delay", 5*time.Second)
	v.SetDefault("gateway.post_create_delay", 2*time.Second)
	v.SetDefault("gateway.connect_delay", 2*time.Second)
	v.SetDefault("gateway.connecting_delay", 5*time.Second)
	v.SetDefault("gateway.send_delay", 1200)

	v.SetDefault("notify.send_timeout", 15*time.Second)
	v.SetDefault("notify.http_client_timeout", 20*time.Second)
}

// Load reads .env (if present), then config.yaml from path or the working
// directory, then environment variables such as GATEWAY_API_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using environment variables and defaults")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("auth.enabled"),
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		NATS: NATSConfig{
			URL:                 v.GetString("nats.url"),
			Name:                v.GetString("nats.name"),
			ConnectTimeout:      v.GetDuration("nats.connect_timeout"),
			ReconnectWait:       v.GetDuration("nats.reconnect_wait"),
			MaxReconnects:       v.GetInt("nats.max_reconnects"),
			Stream:              v.GetString("nats.stream"),
			Subjects:            v.GetStringSlice("nats.subjects"),
			Durable:             v.GetString("nats.durable"),
			FilterSubject:       v.GetString("nats.filter_subject"),
			ConfirmationSubject: v.GetString("nats.confirmation_subject"),
			AckWait:             v.GetDuration("nats.ack_wait"),
			MaxDeliver:          v.GetInt("nats.max_deliver"),
			NakDelay:            v.GetDuration("nats.nak_delay"),
		},
		Telegram: TelegramConfig{
			BaseURL:  v.GetString("telegram.base_url"),
			BotToken: v.GetString("telegram.bot_token"),
			ChatID:   v.GetString("telegram.chat_id"),
		},
		Gateway: GatewayConfig{
			BaseURL:         v.GetString("gateway.base_url"),
			APIKey:          v.GetString("gateway.api_key"),
			Instance:        v.GetString("gateway.instance"),
			Integration:     v.GetString("gateway.integration"),
			MaxRetries:      v.GetInt("gateway.max_retries"),
			RetryDelay:      v.GetDuration("gateway.retry_delay"),
			MaxRetryDelay:   v.GetDuration("gateway.max_retry_delay"),
			Timeout:         v.GetDuration("gateway.timeout"),
			RestartDelay:    v.GetDuration("gateway.restart_delay"),
			StartupDelay:    v.GetDuration("gateway.startup_delay"),
			PostCreateDelay: v.GetDuration("gateway.post_create_delay"),
			ConnectDelay:    v.GetDuration("gateway.connect_delay"),
			ConnectingDelay: v.GetDuration("gateway.connecting_delay"),
			SendDelay:       v.GetInt("gateway.send_delay"),
		},
		Notify: NotifyConfig{
			SendTimeout:       v.GetDuration("notify.send_timeout"),
			HTTPClientTimeout: v.GetDuration("notify.http_client_timeout"),
		},
	}, nil
}

// Validate checks the settings the serve command cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.Database.DSN == "" {
		problems = append(problems, "database.dsn is required")
	}
	if c.NATS.URL == "" {
		problems = append(problems, "nats.url is required")
	}
	if c.Telegram.BotToken == "" {
		problems = append(problems, "telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		problems = append(problems, "telegram.chat_id is required")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required when auth is enabled")
	}
	if c.Gateway.Enabled() {
		if c.Gateway.APIKey == "" {
			problems = append(problems, "gateway.api_key is required when gateway.base_url is set")
		}
		if c.Gateway.Instance == "" {
			problems = append(problems, "gateway.instance is required when gateway.base_url is set")
		}
		if c.Gateway.MaxRetries < 1 {
			problems = append(problems, "gateway.max_retries must be at least 1")
		}
		if c.Gateway.Timeout <= 0 {
			problems = append(problems, "gateway.timeout must be positive")
		}
		if c.Gateway.RestartDelay <= 0 {
			problems = append(problems, "gateway.restart_delay must be positive")
		}
		if c.Gateway.RetryDelay < 0 {
			problems = append(problems, "gateway.retry_delay cannot be negative")
		}
		if c.Gateway.MaxRetryDelay < c.Gateway.RetryDelay {
			problems = append(problems, "gateway.max_retry_delay must be at least gateway.retry_delay")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

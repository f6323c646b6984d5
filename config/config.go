package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mpv-chat-remote/mpv"
)

// DefaultEnvFile is read from the working directory when present.
const DefaultEnvFile = ".env"

// Config aggregates configuration values from the environment.
type Config struct {
	Twitch          TwitchConfig
	AuthorizedUsers []string
	MPV             MPVConfig
	Reply           ReplyConfig
	Postgres        PostgresConfig
	Batch           BatchConfig
	LogLevel        string
}

// TwitchConfig holds the bot account and the channel it listens in.
type TwitchConfig struct {
	Username   string
	OAuthToken string
	Channel    string
}

// MPVConfig points at the player's control socket.
type MPVConfig struct {
	SocketPath string
	Timeout    time.Duration
}

// ReplyConfig throttles chat replies.
type ReplyConfig struct {
	Interval time.Duration
	Burst    int
}

// PostgresConfig holds connection parameters for the optional invocation journal.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// Enabled reports whether the journal should be started.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN builds a connection string for pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// BatchConfig controls journal batching and flushes.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

var keys = []string{
	"bot_username",
	"oauth_token",
	"channel_name",
	"authorized_users",
	"mpv_socket",
	"mpv_timeout",
	"reply_interval",
	"reply_burst",
	"log_level",
	"postgres_host",
	"postgres_port",
	"postgres_db",
	"postgres_user",
	"postgres_password",
}

// Load reads DefaultEnvFile if it exists, then the environment, and returns a validated Config.
func Load() (Config, error) {
	return LoadFile(DefaultEnvFile)
}

// LoadFile is Load with an explicit env file. Environment variables take
// precedence over the file; a missing file is not an error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("mpv_socket", mpv.DefaultSocketPath)
	v.SetDefault("mpv_timeout", "0s")
	v.SetDefault("reply_interval", "1500ms")
	v.SetDefault("reply_burst", 3)
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres_port", "5432")

	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	str := func(k string) string { return strings.TrimSpace(v.GetString(k)) }

	mpvTimeout, err := time.ParseDuration(str("mpv_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("MPV_TIMEOUT: %w", err)
	}
	replyInterval, err := time.ParseDuration(str("reply_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("REPLY_INTERVAL: %w", err)
	}
	replyBurst, err := strconv.Atoi(str("reply_burst"))
	if err != nil {
		return Config{}, fmt.Errorf("REPLY_BURST: %w", err)
	}

	cfg := Config{
		Twitch: TwitchConfig{
			Username:   strings.ToLower(str("bot_username")),
			OAuthToken: normalizeToken(str("oauth_token")),
			Channel:    strings.ToLower(strings.TrimPrefix(str("channel_name"), "#")),
		},
		AuthorizedUsers: lower(splitAndTrim(str("authorized_users"))),
		MPV: MPVConfig{
			SocketPath: str("mpv_socket"),
			Timeout:    mpvTimeout,
		},
		Reply: ReplyConfig{
			Interval: replyInterval,
			Burst:    replyBurst,
		},
		Postgres: PostgresConfig{
			Host:     str("postgres_host"),
			Port:     str("postgres_port"),
			DB:       str("postgres_db"),
			User:     str("postgres_user"),
			Password: str("postgres_password"),
		},
		Batch: BatchConfig{
			MaxBatch:      100,
			FlushEvery:    1500 * time.Millisecond,
			ChanBuffer:    4096,
			StatsLogEvery: 5 * time.Minute,
			FlushTimeout:  5 * time.Second,
		},
		LogLevel: str("log_level"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Twitch.Username == "" {
		return fmt.Errorf("BOT_USERNAME is required")
	}
	if c.Twitch.OAuthToken == "" {
		return fmt.Errorf("OAUTH_TOKEN is required")
	}
	if c.Twitch.Channel == "" {
		return fmt.Errorf("CHANNEL_NAME is required")
	}
	if len(c.AuthorizedUsers) == 0 {
		return fmt.Errorf("AUTHORIZED_USERS is required")
	}

	if c.MPV.SocketPath == "" {
		return fmt.Errorf("MPV_SOCKET must not be empty")
	}
	if c.MPV.Timeout < 0 {
		return fmt.Errorf("MPV_TIMEOUT must not be negative")
	}
	if c.Reply.Interval < 0 {
		return fmt.Errorf("REPLY_INTERVAL must not be negative")
	}
	if c.Reply.Burst <= 0 {
		return fmt.Errorf("REPLY_BURST must be greater than zero")
	}

	if !c.Postgres.Enabled() {
		return nil
	}
	if c.Postgres.Port == "" {
		return fmt.Errorf("POSTGRES_PORT is required")
	}
	if c.Postgres.DB == "" {
		return fmt.Errorf("POSTGRES_DB is required")
	}
	if c.Postgres.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.Postgres.Password == "" {
		return fmt.Errorf("POSTGRES_PASSWORD is required")
	}

	return nil
}

func normalizeToken(token string) string {
	if token == "" || strings.HasPrefix(token, "oauth:") {
		return token
	}
	return "oauth:" + token
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lower(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}

// Getenv is a helper for callers that want a single raw variable with a fallback.
func Getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

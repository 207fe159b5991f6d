package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mind-engage/mindengage-quiz/internal/db"
)

const devSecret = "supersecret-dev-key"

type Config struct {
	HTTPAddr string

	DBDriver db.Driver
	DBDSN    string

	AuthSecret string
	TokenTTL   time.Duration
	AuthRate   time.Duration // one login/register per AuthRate per client
	AuthBurst  int

	// TrustProxy honours X-Forwarded-For / X-Real-IP. Only enable it behind a
	// proxy that overwrites those headers; the auth limiter keys on the result.
	TrustProxy bool

	// PassPercentage is read once at startup and handed to the grading
	// engine; results store no pass flag.
	PassPercentage int

	CORSOrigins []string

	LogLevel  string
	LogFormat string
	LogFile   string

	ConfigFile string // empty when no file was found
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.String("db-driver", "sqlite", "database driver (sqlite, postgres)")
	fs.String("db-dsn", "", "database DSN (driver default when empty)")
	fs.String("auth-secret", devSecret, "HS256 signing key for access tokens")
	fs.Duration("token-ttl", 30*time.Minute, "access token lifetime")
	fs.Duration("auth-rate", time.Second, "refill interval of the login/register limiter")
	fs.Int("auth-burst", 10, "burst size of the login/register limiter")
	fs.Bool("trust-proxy", false, "take the client IP from X-Forwarded-For/X-Real-IP")
	fs.Int("pass-percentage", 60, "minimum percentage for a passing result")
	fs.StringSlice("cors-origins", []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:8080"}, "allowed CORS origins")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-format", "console", "log format (console, json)")
	fs.String("log-file", "", "optional rotating log file")
	fs.String("config", "", "config file (default: quizd.yaml in ., $HOME/.config/quizd, /etc/quizd)")
}

// Load resolves settings with precedence flag > env > config file > default.
// Environment variables carry no prefix: pass-percentage is PASS_PERCENTAGE.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if f := v.GetString("config"); f != "" {
		v.SetConfigFile(f)
	} else {
		v.SetConfigName("quizd")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/quizd")
		v.AddConfigPath("/etc/quizd")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	drv, err := db.ParseDriver(v.GetString("db-driver"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		HTTPAddr:       v.GetString("http-addr"),
		DBDriver:       drv,
		DBDSN:          v.GetString("db-dsn"),
		AuthSecret:     v.GetString("auth-secret"),
		TokenTTL:       v.GetDuration("token-ttl"),
		AuthRate:       v.GetDuration("auth-rate"),
		AuthBurst:      v.GetInt("auth-burst"),
		TrustProxy:     v.GetBool("trust-proxy"),
		PassPercentage: v.GetInt("pass-percentage"),
		CORSOrigins:    splitCSV(v.GetStringSlice("cors-origins")),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		LogFile:        v.GetString("log-file"),
		ConfigFile:     v.ConfigFileUsed(),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.AuthSecret == "":
		return errors.New("auth-secret must not be empty")
	case c.TokenTTL <= 0:
		return errors.New("token-ttl must be positive")
	case c.AuthRate <= 0 || c.AuthBurst <= 0:
		return errors.New("auth-rate and auth-burst must be positive")
	}
	return nil
}

// InsecureSecret reports whether the built-in development key is in use.
func (c Config) InsecureSecret() bool { return c.AuthSecret == devSecret }

// splitCSV accepts both repeated values and a single comma separated value,
// which is how the list arrives from the environment.
func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

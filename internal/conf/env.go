package conf

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/pixalb/internal/errors"
)

// envBinding maps a config key to one or more environment variables.
// The first variable that is set wins.
type envBinding struct {
	ConfigKey string
	EnvVars   []string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", []string{"PIXALB_DEBUG"}, validateEnvBool},

		{"pixabay.apikey", []string{"PIXALB_PIXABAY_APIKEY", "PIXABAY_API_KEY"}, nil},
		{"pixabay.baseurl", []string{"PIXALB_PIXABAY_BASEURL"}, validateEnvURL},
		{"pixabay.timeout", []string{"PIXALB_PIXABAY_TIMEOUT"}, validateEnvDuration},
		{"pixabay.lang", []string{"PIXALB_PIXABAY_LANG"}, nil},

		{"cache.ttl", []string{"PIXALB_CACHE_TTL"}, validateEnvDuration},

		{"database.type", []string{"PIXALB_DATABASE_TYPE"}, validateEnvDatabaseType},
		{"database.sqlite.path", []string{"PIXALB_DATABASE_SQLITE_PATH"}, nil},
		{"database.sqlite.minfreemb", []string{"PIXALB_DATABASE_SQLITE_MINFREEMB"}, nil},
		{"database.mysql.host", []string{"PIXALB_MYSQL_HOST"}, nil},
		{"database.mysql.port", []string{"PIXALB_MYSQL_PORT"}, validateEnvPort},
		{"database.mysql.username", []string{"PIXALB_MYSQL_USERNAME"}, nil},
		{"database.mysql.password", []string{"PIXALB_MYSQL_PASSWORD"}, nil},
		{"database.mysql.database", []string{"PIXALB_MYSQL_DATABASE"}, nil},

		{"logging.default_level", []string{"PIXALB_LOG_LEVEL"}, validateEnvLogLevel},

		{"server.listen", []string{"PIXALB_SERVER_LISTEN"}, nil},

		{"mqtt.enabled", []string{"PIXALB_MQTT_ENABLED"}, validateEnvBool},
		{"mqtt.broker", []string{"PIXALB_MQTT_BROKER"}, validateEnvURL},
		{"mqtt.username", []string{"PIXALB_MQTT_USERNAME"}, nil},
		{"mqtt.password", []string{"PIXALB_MQTT_PASSWORD"}, nil},

		{"sentry.enabled", []string{"PIXALB_SENTRY_ENABLED"}, validateEnvBool},
		{"sentry.dsn", []string{"PIXALB_SENTRY_DSN", "SENTRY_DSN"}, nil},
	}
}

// bindEnvVars binds every environment variable and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var problems []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		for _, name := range binding.EnvVars {
			if value := os.Getenv(name); value != "" {
				if err := binding.Validate(value); err != nil {
					problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", name, value, err))
				}
				break
			}
		}
	}

	if len(problems) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - ")).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped;
// with no arguments ".env" in the working directory is tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.New(fmt.Errorf("failed to load %s: %w", path, err)).
				Category(errors.CategoryFileParsing).
				Build()
		}
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 30s or 24h")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	if !slices.Contains(supportedDatabaseTypes, value) {
		return fmt.Errorf("must be one of %v", supportedDatabaseTypes)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains(supportedLogLevels, value) {
		return fmt.Errorf("must be one of %v", supportedLogLevels)
	}
	return nil
}

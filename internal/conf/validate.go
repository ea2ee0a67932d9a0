package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/tphakala/pixalb/internal/errors"
)

var (
	supportedDatabaseTypes = []string{"sqlite", "mysql"}
	supportedLogLevels     = []string{"trace", "debug", "info", "warn", "error"}
	supportedImageTypes    = []string{"all", "photo", "illustration", "vector"}
)

// ValidationError collects every problem found in one pass.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return "validation errors: " + strings.Join(ve.Errors, "; ")
}

// ErrorCategory classifies validation failures as configuration errors.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	for _, check := range []func(*Settings) error{
		validatePixabaySettings,
		validateCacheSettings,
		validateDatabaseSettings,
		validateLoggingSettings,
		validateServerSettings,
		validateMQTTSettings,
		validateSentrySettings,
	} {
		if err := check(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validatePixabaySettings(s *Settings) error {
	p := &s.Pixabay
	var problems []string
	if u, err := url.Parse(p.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "baseurl must be an absolute URL")
	}
	if p.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if p.RateLimit <= 0 {
		problems = append(problems, "ratelimit must be positive")
	}
	if p.Burst < 1 {
		problems = append(problems, "burst must be at least 1")
	}
	if p.ResponseCacheTTL < 0 {
		problems = append(problems, "responsecachettl cannot be negative")
	}
	if p.ImageType != "" && !slices.Contains(supportedImageTypes, p.ImageType) {
		problems = append(problems, fmt.Sprintf("imagetype must be one of %v", supportedImageTypes))
	}
	if p.Lang != "" && len(p.Lang) != 2 {
		problems = append(problems, "lang must be a two-letter language code")
	}
	return joinProblems("pixabay", problems)
}

func validateCacheSettings(s *Settings) error {
	if s.Cache.TTL <= 0 {
		return fmt.Errorf("cache: ttl must be positive")
	}
	return nil
}

func validateDatabaseSettings(s *Settings) error {
	db := &s.Database
	var problems []string
	switch db.Type {
	case "sqlite":
		if db.SQLite.Path == "" {
			problems = append(problems, "sqlite.path is required")
		}
	case "mysql":
		if db.MySQL.Host == "" || db.MySQL.Database == "" {
			problems = append(problems, "mysql.host and mysql.database are required")
		}
		if db.MySQL.Port < 1 || db.MySQL.Port > 65535 {
			problems = append(problems, "mysql.port must be between 1 and 65535")
		}
	default:
		problems = append(problems, fmt.Sprintf("type must be one of %v", supportedDatabaseTypes))
	}
	return joinProblems("database", problems)
}

func validateLoggingSettings(s *Settings) error {
	if s.Logging.DefaultLevel != "" && !slices.Contains(supportedLogLevels, s.Logging.DefaultLevel) {
		return fmt.Errorf("logging: default_level must be one of %v", supportedLogLevels)
	}
	return nil
}

func validateServerSettings(s *Settings) error {
	if s.Server.Listen == "" {
		return fmt.Errorf("server: listen address is required")
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	m := &s.MQTT
	if !m.Enabled {
		return nil
	}
	var problems []string
	if m.Broker == "" {
		problems = append(problems, "broker is required when enabled")
	}
	if strings.TrimSpace(m.Topic) == "" {
		problems = append(problems, "topic is required when enabled")
	}
	if m.QoS > 2 {
		problems = append(problems, "qos must be 0, 1 or 2")
	}
	return joinProblems("mqtt", problems)
}

func validateSentrySettings(s *Settings) error {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return fmt.Errorf("sentry: dsn is required when enabled")
	}
	return nil
}

func joinProblems(section string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %s", section, strings.Join(problems, ", "))
}

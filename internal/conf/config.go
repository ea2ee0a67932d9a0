// Package conf loads pixalb settings from config.yaml, .env files and the environment.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
)

// Settings is the root of the configuration tree.
type Settings struct {
	Debug    bool                 `yaml:"debug" mapstructure:"debug"`
	Pixabay  PixabaySettings      `yaml:"pixabay" mapstructure:"pixabay"`
	Cache    CacheSettings        `yaml:"cache" mapstructure:"cache"`
	Database DatabaseSettings     `yaml:"database" mapstructure:"database"`
	Logging  logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Server   ServerSettings       `yaml:"server" mapstructure:"server"`
	MQTT     MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt"`
	Sentry   SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
}

// PixabaySettings configures the remote API client.
type PixabaySettings struct {
	APIKey            string        `yaml:"apikey" mapstructure:"apikey"`
	BaseURL           string        `yaml:"baseurl" mapstructure:"baseurl"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit         float64       `yaml:"ratelimit" mapstructure:"ratelimit"` // requests per second
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	ResponseCacheTTL  time.Duration `yaml:"responsecachettl" mapstructure:"responsecachettl"`
	SafeSearch        bool          `yaml:"safesearch" mapstructure:"safesearch"`
	Lang              string        `yaml:"lang" mapstructure:"lang"`
	ImageType         string        `yaml:"imagetype" mapstructure:"imagetype"`
	ConnectivityCheck bool          `yaml:"connectivitycheck" mapstructure:"connectivitycheck"`
}

// CacheSettings configures the local gallery cache.
type CacheSettings struct {
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// DatabaseSettings selects and configures the storage backend.
type DatabaseSettings struct {
	Type               string         `yaml:"type" mapstructure:"type"` // sqlite or mysql
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold" mapstructure:"slowquerythreshold"`
	SQLite             SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL              MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
	// MinFreeMB refuses to open a database file on a volume with less free
	// space; zero disables the check.
	MinFreeMB uint64 `yaml:"minfreemb" mapstructure:"minfreemb"`
}

type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// ServerSettings configures the HTTP API started by "serve".
type ServerSettings struct {
	Listen       string        `yaml:"listen" mapstructure:"listen"`
	SSEHeartbeat time.Duration `yaml:"sseheartbeat" mapstructure:"sseheartbeat"`
}

// MQTTSettings configures the state bridge.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"`
	ClientID string `yaml:"clientid" mapstructure:"clientid"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	QoS      byte   `yaml:"qos" mapstructure:"qos"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// SentrySettings enables error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configFile (or searches the default locations when empty),
// overlays environment variables and validates the result.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range GetDefaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Category(errors.CategoryFileParsing).
				Context("config_file", configFile).
				Build()
		}
		// no config file: run on defaults and environment
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()

	return settings, nil
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// DefaultSettings returns the settings produced by defaults alone.
func DefaultSettings() *Settings {
	v := viper.New()
	setDefaultConfig(v)
	settings := &Settings{}
	// defaults are typed values; decoding them cannot fail
	_ = v.Unmarshal(settings)
	return settings
}

// GetDefaultConfigPaths lists the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pixalb"))
	}
	return append(paths, "/etc/pixalb")
}

// RequireAPIKey reports a configuration error when no Pixabay key is set.
func (s *Settings) RequireAPIKey() error {
	if s.Pixabay.APIKey == "" {
		return errors.Newf("pixabay API key is not set (pixabay.apikey or PIXABAY_API_KEY)").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers default values for every key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("pixabay.apikey", "")
	v.SetDefault("pixabay.baseurl", "https://pixabay.com/api/")
	v.SetDefault("pixabay.timeout", 15*time.Second)
	// Pixabay allows 100 requests per 60 seconds
	v.SetDefault("pixabay.ratelimit", 100.0/60.0)
	v.SetDefault("pixabay.burst", 5)
	v.SetDefault("pixabay.responsecachettl", 5*time.Minute)
	v.SetDefault("pixabay.safesearch", true)
	v.SetDefault("pixabay.lang", "en")
	v.SetDefault("pixabay.imagetype", "all")
	v.SetDefault("pixabay.connectivitycheck", false)

	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)
	v.SetDefault("database.sqlite.path", "pixalb.db")
	v.SetDefault("database.sqlite.minfreemb", 16)
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", 3306)
	v.SetDefault("database.mysql.username", "")
	v.SetDefault("database.mysql.password", "")
	v.SetDefault("database.mysql.database", "pixalb")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/pixalb.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.sseheartbeat", 15*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientid", "pixalb")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.topic", "pixalb")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", true)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}

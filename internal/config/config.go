package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the stratus client.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the headless dashboard server.
// - API: How to reach the weather backend.
// - Search: Which collaborator answers location searches.
// - Workers: The number of concurrent weather fetches per dashboard load (0 = one per location).
// - Interval: The duration between dashboard refreshes in watch mode.
// - Profile: The user's profile and display preferences.
// - Archive: Optional snapshot archive.
type Config struct {
	Env      string        `mapstructure:"env"`      // Env is the current environment: local, development, production.
	Port     int           `mapstructure:"port"`     // Port is the dashboard server port.
	API      APIConfig     `mapstructure:"api"`      // API holds the backend connection settings.
	Search   SearchConfig  `mapstructure:"search"`   // Search selects the search collaborator.
	Workers  int           `mapstructure:"workers"`  // Workers bounds concurrent weather fetches.
	Interval time.Duration `mapstructure:"interval"` // Interval between refreshes in watch mode.
	Profile  ProfileConfig `mapstructure:"profile"`  // Profile holds the user's preferences.
	Archive  ArchiveConfig `mapstructure:"archive"`  // Archive holds the snapshot archive settings.
}

// APIConfig holds the weather backend connection settings.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`   // BaseURL of the backend, e.g. http://localhost:8000.
	Token     string        `mapstructure:"token"`      // Token is the bearer token identifying the current user.
	Timeout   time.Duration `mapstructure:"timeout"`    // Timeout per request.
	RateLimit int           `mapstructure:"rate_limit"` // RateLimit in requests per second (0 = unlimited).
}

// SearchConfig selects the collaborator used for location search.
type SearchConfig struct {
	Provider string `mapstructure:"provider"` // Provider is backend, nominatim, openmeteo or google.
	APIKey   string `mapstructure:"api_key"`  // APIKey for providers that require one.
}

// ProfileConfig holds the user's profile and display preferences.
type ProfileConfig struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Unit     string `mapstructure:"unit"` // Unit is "celsius" or "fahrenheit".
}

// ArchiveConfig holds the PostgreSQL snapshot archive settings.
type ArchiveConfig struct {
	DSN string `mapstructure:"dsn"` // DSN enables the archive when set.
}

// Enabled reports whether a snapshot archive is configured.
func (a ArchiveConfig) Enabled() bool {
	return a.DSN != ""
}

// MustLoad loads the configuration from the environment and an optional YAML file.
// Environment variables use the STRATUS_ prefix with dots replaced by underscores
// (STRATUS_API_BASE_URL overrides api.base_url). STRATUS_CONFIG points at the file.
func MustLoad() *Config {
	_ = godotenv.Load()

	vpr := viper.New()
	vpr.SetEnvPrefix("stratus")
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()
	setDefaults(vpr)

	if path := vpr.GetString("config"); path != "" {
		vpr.SetConfigFile(path)
		vpr.SetConfigType("yaml")
		if err := vpr.ReadInConfig(); err != nil {
			panic("failed to read configuration file")
		}
	}

	interval, err := time.ParseDuration(vpr.GetString("interval"))
	if err != nil || interval <= 0 {
		panic("failed to parse interval from configuration")
	}

	timeout, err := time.ParseDuration(vpr.GetString("api.timeout"))
	if err != nil || timeout <= 0 {
		panic("failed to parse api timeout from configuration")
	}

	port, err := parseInt(vpr.GetString("port"))
	if err != nil {
		panic("failed to parse port for dashboard server from configuration")
	}

	workers, err := parseInt(vpr.GetString("workers"))
	if err != nil || workers < 0 {
		panic("failed to parse workers from configuration, must be a non-negative integer")
	}

	rateLimit, err := parseInt(vpr.GetString("api.rate_limit"))
	if err != nil || rateLimit < 0 {
		panic("failed to parse api rate limit from configuration")
	}

	unit := strings.ToLower(vpr.GetString("profile.unit"))
	if unit != "celsius" && unit != "fahrenheit" {
		panic("unsupported temperature unit, must be celsius or fahrenheit")
	}

	return &Config{
		Env:      vpr.GetString("env"),
		Port:     port,
		Workers:  workers,
		Interval: interval,
		API: APIConfig{
			BaseURL:   strings.TrimRight(vpr.GetString("api.base_url"), "/"),
			Token:     vpr.GetString("api.token"),
			Timeout:   timeout,
			RateLimit: rateLimit,
		},
		Search: SearchConfig{
			Provider: strings.ToLower(vpr.GetString("search.provider")),
			APIKey:   vpr.GetString("search.api_key"),
		},
		Profile: ProfileConfig{
			Username: vpr.GetString("profile.username"),
			Email:    vpr.GetString("profile.email"),
			Unit:     unit,
		},
		Archive: ArchiveConfig{
			DSN: vpr.GetString("archive.dsn"),
		},
	}
}

func setDefaults(vpr *viper.Viper) {
	vpr.SetDefault("config", "")
	vpr.SetDefault("env", "production")
	vpr.SetDefault("port", "8080")
	vpr.SetDefault("workers", "4")
	vpr.SetDefault("interval", "30m") // matches the backend's collection interval
	vpr.SetDefault("api.base_url", "http://localhost:8000")
	vpr.SetDefault("api.token", "")
	vpr.SetDefault("api.timeout", "10s")
	vpr.SetDefault("api.rate_limit", "20")
	vpr.SetDefault("search.provider", "backend")
	vpr.SetDefault("search.api_key", "")
	vpr.SetDefault("profile.username", "demo_user")
	vpr.SetDefault("profile.email", "demo@example.com")
	vpr.SetDefault("profile.unit", "celsius")
	vpr.SetDefault("archive.dsn", "")
}

func parseInt(value string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(value))
}

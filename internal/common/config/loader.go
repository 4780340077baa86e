// internal/common/config/loader.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrCreated is returned when no config file existed and a default one was
// written. Startup should print a remediation hint and exit so the operator
// can fill in the required values.
var ErrCreated = errors.New("config file created from defaults")

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "config.json"

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("BOT")
	v.AutomaticEnv()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyDefaultKeys(v)
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("failed to write default config %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrCreated, path)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Backfill keys added after the file was first written.
	if backfillMissingKeys(v) {
		if err := v.WriteConfig(); err != nil {
			return nil, fmt.Errorf("failed to rewrite config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func defaultKeys() map[string]interface{} {
	return map[string]interface{}{
		"token":             "",
		"guild_id":          "",
		"bot_activity":      "people applying",
		"pending_app":       "",
		"validated_app":     "",
		"rejected_app":      "",
		"console_channels":  []string{},
		"whitelists_closed": false,
		"staff_role_id":     "",
		"whitelist_path":    "whitelisted_players.json",
		"stats_path":        "stats_users.json",
		"interview_timeout": 300,
		"metrics_address":   ":9100",
		"store.backend":     "file",
		"store.redis.address":  "",
		"store.redis.password": "",
		"store.redis.db":       0,
		"logging.level":     "info",
		"logging.format":    "json",
	}
}

func applyDefaultKeys(v *viper.Viper) {
	for key, val := range defaultKeys() {
		v.Set(key, val)
	}
}

func backfillMissingKeys(v *viper.Viper) bool {
	changed := false
	for key, val := range defaultKeys() {
		if !v.IsSet(key) {
			v.Set(key, val)
			changed = true
		}
	}
	return changed
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.BotActivity == "" {
		cfg.BotActivity = "people applying"
	}
	if cfg.WhitelistPath == "" {
		cfg.WhitelistPath = "whitelisted_players.json"
	}
	if cfg.StatsPath == "" {
		cfg.StatsPath = "stats_users.json"
	}
	if cfg.InterviewTimeout == 0 {
		cfg.InterviewTimeout = 300
	}
	if cfg.MetricsAddress == "" {
		cfg.MetricsAddress = ":9100"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "file"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Token == "" {
		return fmt.Errorf("token is required")
	}
	if cfg.GuildID == "" {
		return fmt.Errorf("guild_id is required")
	}
	if cfg.PendingChannelID == "" {
		return fmt.Errorf("pending_app is required")
	}
	if cfg.ApprovedChannelID == "" {
		return fmt.Errorf("validated_app is required")
	}
	if cfg.RejectedChannelID == "" {
		return fmt.Errorf("rejected_app is required")
	}
	if cfg.Store.Backend != "file" && cfg.Store.Backend != "redis" {
		return fmt.Errorf("store.backend must be file or redis")
	}
	if cfg.Store.Backend == "redis" && cfg.Store.Redis.Address == "" {
		return fmt.Errorf("store.redis.address is required")
	}
	return nil
}

// ReceiveTimeout converts the configured interview timeout to a duration.
func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.InterviewTimeout) * time.Second
}

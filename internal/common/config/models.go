package config

// Config is the flat configuration document for the bot.
type Config struct {
	Token             string   `mapstructure:"token"`
	GuildID           string   `mapstructure:"guild_id"`
	BotActivity       string   `mapstructure:"bot_activity"`
	PendingChannelID  string   `mapstructure:"pending_app"`
	ApprovedChannelID string   `mapstructure:"validated_app"`
	RejectedChannelID string   `mapstructure:"rejected_app"`
	ConsoleChannelIDs []string `mapstructure:"console_channels"`
	WhitelistsClosed  bool     `mapstructure:"whitelists_closed"`
	StaffRoleID       string   `mapstructure:"staff_role_id"`
	WhitelistPath     string   `mapstructure:"whitelist_path"`
	StatsPath         string   `mapstructure:"stats_path"`
	InterviewTimeout  int      `mapstructure:"interview_timeout"`
	MetricsAddress    string   `mapstructure:"metrics_address"`

	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects and configures the whitelist store backend.
type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

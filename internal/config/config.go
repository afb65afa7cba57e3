// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Accepted values for the output settings.
const (
	NoticeChat    = "chat"
	NoticeWhisper = "whisper"
	NoticeNone    = "none"

	OutputChat      = "chat"
	OutputWhisper   = "whisper"
	OutputThreshold = "threshold"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Daily     DailyConfig     `mapstructure:"daily"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Games     GamesConfig     `mapstructure:"games"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	StartupWait     time.Duration `mapstructure:"startup_wait"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// DailyConfig holds daily reward configuration.
type DailyConfig struct {
	Reward        int64 `mapstructure:"reward"`
	CooldownHours int   `mapstructure:"cooldown_hours"`
}

// HTTPConfig holds the status server configuration. An empty Addr
// disables the server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Haunt HauntConfig `mapstructure:"haunt"`
	Spin  SpinConfig  `mapstructure:"spin"`
	Flip  FlipConfig  `mapstructure:"flip"`
}

// HauntConfig holds haunted house configuration.
type HauntConfig struct {
	// ChatID pins announcements to one chat. 0 means the chat the round
	// was started from.
	ChatID                int64   `mapstructure:"chat_id"`
	PayoutRate            float64 `mapstructure:"payout_rate"`
	WinMultiplier         float64 `mapstructure:"win_multiplier"`
	SabotageChance        int     `mapstructure:"sabotage_chance"`
	WaitTimeSeconds       int     `mapstructure:"wait_time_seconds"`
	GlobalCooldownSeconds int     `mapstructure:"global_cooldown_seconds"`
	UserCooldownSeconds   int     `mapstructure:"user_cooldown_seconds"`
	CommandCooldown       int     `mapstructure:"command_cooldown_seconds"`
	MinBet                int64   `mapstructure:"min_bet"`
	MaxBet                int64   `mapstructure:"max_bet"`
	CooldownNotice        string  `mapstructure:"cooldown_notice"`
	StartJoinMessage      string  `mapstructure:"start_join_message"`
	JoinMessage           string  `mapstructure:"join_message"`
	AlertWhenLive         string  `mapstructure:"alert_when_live"`
	PayoutRetries         int     `mapstructure:"payout_retries"`
	NarrativesFile        string  `mapstructure:"narratives_file"`
}

// SpinConfig holds slot machine configuration. Emote lists are
// space-separated; win settings are percentages of the bet.
type SpinConfig struct {
	DeathEmotes           string `mapstructure:"death_emotes"`
	LowTierEmotes         string `mapstructure:"low_tier_emotes"`
	HighTierEmotes        string `mapstructure:"high_tier_emotes"`
	LowTierSmallWin       int    `mapstructure:"ltsw"`
	LowTierBigWin         int    `mapstructure:"ltbw"`
	HighTierSmallWin      int    `mapstructure:"htsw"`
	HighTierBigWin        int    `mapstructure:"htbw"`
	DefaultBet            int64  `mapstructure:"default_bet"`
	MinBet                int64  `mapstructure:"min_bet"`
	MaxBet                int64  `mapstructure:"max_bet"`
	UserCooldownSeconds   int    `mapstructure:"user_cooldown_seconds"`
	GlobalCooldownSeconds int    `mapstructure:"global_cooldown_seconds"`
	Output                string `mapstructure:"output"`
	MinShowPoints         int64  `mapstructure:"min_show_points"`
	MessageWon            string `mapstructure:"message_won"`
	MessageLost           string `mapstructure:"message_lost"`
	MessageJackpot        string `mapstructure:"message_jackpot"`
}

// FlipConfig holds coin flip configuration.
type FlipConfig struct {
	UserCooldownSeconds   int `mapstructure:"user_cooldown_seconds"`
	GlobalCooldownSeconds int `mapstructure:"global_cooldown_seconds"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads .env, then configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, GAMES_HAUNT_PAYOUT_RATE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "gamebot")
	v.SetDefault("database.name", "gamebot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.startup_wait", "30s")

	v.SetDefault("daily.reward", 500)
	v.SetDefault("daily.cooldown_hours", 24)

	v.SetDefault("http.addr", "")

	v.SetDefault("games.haunt.chat_id", 0)
	v.SetDefault("games.haunt.payout_rate", 2.0)
	v.SetDefault("games.haunt.win_multiplier", 1.5)
	v.SetDefault("games.haunt.sabotage_chance", 5)
	v.SetDefault("games.haunt.wait_time_seconds", 90)
	v.SetDefault("games.haunt.global_cooldown_seconds", 900)
	v.SetDefault("games.haunt.user_cooldown_seconds", 30)
	v.SetDefault("games.haunt.command_cooldown_seconds", 0)
	v.SetDefault("games.haunt.min_bet", 1)
	v.SetDefault("games.haunt.max_bet", 0)
	v.SetDefault("games.haunt.cooldown_notice", NoticeChat)
	v.SetDefault("games.haunt.start_join_message", "{user} is going into the haunted house. Join them with /haunt <bones>!")
	v.SetDefault("games.haunt.join_message", "{user} is in!")
	v.SetDefault("games.haunt.alert_when_live", "Brave souls wanted! Count Charles is terrorizing the village again. Type /haunt <bones> to storm his manor.")
	v.SetDefault("games.haunt.payout_retries", 3)
	v.SetDefault("games.haunt.narratives_file", "")

	v.SetDefault("games.spin.death_emotes", "💀")
	v.SetDefault("games.spin.low_tier_emotes", "🎃 👻 🦇")
	v.SetDefault("games.spin.high_tier_emotes", "🧛 🦴")
	v.SetDefault("games.spin.ltsw", 125)
	v.SetDefault("games.spin.ltbw", 175)
	v.SetDefault("games.spin.htsw", 225)
	v.SetDefault("games.spin.htbw", 400)
	v.SetDefault("games.spin.default_bet", 150)
	v.SetDefault("games.spin.min_bet", 1)
	v.SetDefault("games.spin.max_bet", 0)
	v.SetDefault("games.spin.user_cooldown_seconds", 60)
	v.SetDefault("games.spin.global_cooldown_seconds", 0)
	v.SetDefault("games.spin.output", OutputChat)
	v.SetDefault("games.spin.min_show_points", 100)
	v.SetDefault("games.spin.message_won", "▬[ {emotes} ]▬ | {result} bones paid out to {user}!")
	v.SetDefault("games.spin.message_lost", "▬[ {emotes} ]▬ | NO MONEY {user}, NO PRIZES, I HATE IT")
	v.SetDefault("games.spin.message_jackpot", "▬[ {emotes} ]▬ | Big money! Big prizes! I love it! | {points} paid out to {user}!")

	v.SetDefault("games.flip.user_cooldown_seconds", 30)
	v.SetDefault("games.flip.global_cooldown_seconds", 15)
}

// Validate checks setting ranges. Every violation is reported.
func (c *Config) Validate() error {
	var errs []error
	h := c.Games.Haunt

	if h.PayoutRate < 2 || h.PayoutRate > 500 {
		errs = append(errs, fmt.Errorf("games.haunt.payout_rate must be in [2, 500], got %v", h.PayoutRate))
	}
	if h.WinMultiplier < 0 {
		errs = append(errs, fmt.Errorf("games.haunt.win_multiplier must not be negative, got %v", h.WinMultiplier))
	}
	if h.SabotageChance < 0 || h.SabotageChance > 10000 {
		errs = append(errs, fmt.Errorf("games.haunt.sabotage_chance must be in [0, 10000], got %d", h.SabotageChance))
	}
	if h.WaitTimeSeconds < 5 || h.WaitTimeSeconds > 3600 {
		errs = append(errs, fmt.Errorf("games.haunt.wait_time_seconds must be in [5, 3600], got %d", h.WaitTimeSeconds))
	}
	if h.GlobalCooldownSeconds < 1 {
		errs = append(errs, fmt.Errorf("games.haunt.global_cooldown_seconds must be at least 1, got %d", h.GlobalCooldownSeconds))
	} else if h.GlobalCooldownSeconds < 300 {
		log.Warn().
			Int("global_cooldown_seconds", h.GlobalCooldownSeconds).
			Msg("Haunt global cooldown is below 5 minutes")
	}
	if h.MinBet < 1 {
		errs = append(errs, fmt.Errorf("games.haunt.min_bet must be at least 1, got %d", h.MinBet))
	}
	if h.MaxBet < 0 {
		errs = append(errs, fmt.Errorf("games.haunt.max_bet must not be negative, got %d", h.MaxBet))
	}
	if h.MaxBet > 0 && h.MaxBet < h.MinBet {
		errs = append(errs, fmt.Errorf("games.haunt.max_bet %d is below min_bet %d", h.MaxBet, h.MinBet))
	}
	if !slices.Contains([]string{NoticeChat, NoticeWhisper, NoticeNone}, h.CooldownNotice) {
		errs = append(errs, fmt.Errorf("games.haunt.cooldown_notice must be chat, whisper or none, got %q", h.CooldownNotice))
	}
	if h.PayoutRetries < 0 {
		errs = append(errs, fmt.Errorf("games.haunt.payout_retries must not be negative, got %d", h.PayoutRetries))
	}

	s := c.Games.Spin
	if len(strings.Fields(s.LowTierEmotes)) == 0 || len(strings.Fields(s.HighTierEmotes)) == 0 {
		errs = append(errs, errors.New("games.spin needs at least one low tier and one high tier emote"))
	}
	if s.MinBet < 1 {
		errs = append(errs, fmt.Errorf("games.spin.min_bet must be at least 1, got %d", s.MinBet))
	}
	if !slices.Contains([]string{OutputChat, OutputWhisper, OutputThreshold}, s.Output) {
		errs = append(errs, fmt.Errorf("games.spin.output must be chat, whisper or threshold, got %q", s.Output))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	return slices.Contains(c.Admin.IDs, userID)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
// An empty whitelist allows every chat.
func (c *Config) IsChatAllowed(chatID int64) bool {
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	return slices.Contains(c.Whitelist.Chats, chatID)
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	APISecret  string        `mapstructure:"api_secret"`
	BotToken   string        `mapstructure:"bot_token"`
	GuildID    string        `mapstructure:"guild_id"`
	IdleGrace  time.Duration `mapstructure:"idle_grace"`
	VoteWindow time.Duration `mapstructure:"vote_window"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("idle_grace", "60s")
	v.SetDefault("vote_window", "30s")

	// Secrets come from the environment, never from the yaml file.
	v.BindEnv("bot_token", "BOT_TOKEN")
	v.BindEnv("guild_id", "GUILD_ID")
	v.BindEnv("api_secret", "API_SECRET")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

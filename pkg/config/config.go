package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Tracking  TrackingConfig  `mapstructure:"tracking"`
	DevServer DevServerConfig `mapstructure:"devserver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	URL              string        `mapstructure:"url"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ReconnectMin     time.Duration `mapstructure:"reconnect_min"`
	ReconnectMax     time.Duration `mapstructure:"reconnect_max"`
}

type TrackingConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ArrivalCooldown time.Duration `mapstructure:"arrival_cooldown"`
}

type DevServerConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	CookingTime time.Duration `mapstructure:"cooking_time"`
	ReadyTime   time.Duration `mapstructure:"ready_time"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("realtime.handshake_timeout", 10*time.Second)
	v.SetDefault("realtime.reconnect_min", time.Second)
	v.SetDefault("realtime.reconnect_max", 30*time.Second)
	v.SetDefault("tracking.poll_interval", 10*time.Second)
	v.SetDefault("tracking.arrival_cooldown", 3*time.Minute)
	v.SetDefault("devserver.host", "0.0.0.0")
	v.SetDefault("devserver.port", 3000)
	v.SetDefault("devserver.cooking_time", 10*time.Second)
	v.SetDefault("devserver.ready_time", 20*time.Second)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DevServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

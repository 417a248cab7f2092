package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	Game   GameConfig   `yaml:"game"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host" env:"LIGHTCYCLE_HOST"`
	Port           int    `yaml:"port" env:"LIGHTCYCLE_PORT"`
	MaxConnections int    `yaml:"max_connections" env:"LIGHTCYCLE_MAX_CONNECTIONS"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"LIGHTCYCLE_REDIS_ADDR"`
	Password string `yaml:"password" env:"LIGHTCYCLE_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"LIGHTCYCLE_REDIS_DB"`
}

// GameConfig 对局配置
type GameConfig struct {
	GridSize        int `yaml:"grid_size" env:"LIGHTCYCLE_GRID_SIZE"`                // 正方形网格边长
	TickIntervalMs  int `yaml:"tick_interval_ms" env:"LIGHTCYCLE_TICK_INTERVAL_MS"`  // 模拟 tick 间隔（毫秒）
	CountdownFrom   int `yaml:"countdown_from" env:"LIGHTCYCLE_COUNTDOWN_FROM"`      // 开局倒计时起点
	CountdownStepMs int `yaml:"countdown_step_ms" env:"LIGHTCYCLE_COUNTDOWN_STEPMS"` // 倒计时步进（毫秒）
	KickTimeout     int `yaml:"kick_timeout" env:"LIGHTCYCLE_KICK_TIMEOUT"`          // 未准备踢出超时（秒）
}

// TickIntervalDuration 返回 tick 间隔时长
func (c *GameConfig) TickIntervalDuration() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// CountdownStepDuration 返回倒计时步进时长
func (c *GameConfig) CountdownStepDuration() time.Duration {
	return time.Duration(c.CountdownStepMs) * time.Millisecond
}

// KickTimeoutDuration 返回踢出超时时长
func (c *GameConfig) KickTimeoutDuration() time.Duration {
	return time.Duration(c.KickTimeout) * time.Second
}

// Load 加载配置文件，环境变量可覆盖文件中的值
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 补齐缺省值
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9898
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 1024
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Game.GridSize == 0 {
		c.Game.GridSize = 100
	}
	if c.Game.TickIntervalMs == 0 {
		c.Game.TickIntervalMs = 200
	}
	if c.Game.CountdownFrom == 0 {
		c.Game.CountdownFrom = 3
	}
	if c.Game.CountdownStepMs == 0 {
		c.Game.CountdownStepMs = 1000
	}
	if c.Game.KickTimeout == 0 {
		c.Game.KickTimeout = 30
	}
}

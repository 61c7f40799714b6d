package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost           = "0.0.0.0"
	defaultPort           = 1780
	defaultRequestTimeout = 5 // 秒
	defaultMessageRate    = 20
	defaultRedisAddr      = "localhost:6379"
	defaultStorageDriver  = DriverRedis
	defaultCodeAttempts   = 16
	defaultRoomExpiration = 24 * 60 // 分钟
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// 存储驱动
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config 服务端配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Redis   RedisConfig   `yaml:"redis"`
	Storage StorageConfig `yaml:"storage"`
	Game    GameConfig    `yaml:"game"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig HTTP / WebSocket 服务器配置
type ServerConfig struct {
	Host           string   `yaml:"host"            env:"IMPOSTER_SERVER_HOST"`
	Port           int      `yaml:"port"            env:"IMPOSTER_SERVER_PORT"`
	RequestTimeout int      `yaml:"request_timeout" env:"IMPOSTER_SERVER_REQUEST_TIMEOUT"` // 单个请求超时（秒）
	AllowedOrigins []string `yaml:"allowed_origins" env:"IMPOSTER_SERVER_ALLOWED_ORIGINS" envSeparator:","`
	MessageRate    int      `yaml:"message_rate"    env:"IMPOSTER_SERVER_MESSAGE_RATE"` // 每个连接每秒最多处理的消息数
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `yaml:"addr"     env:"IMPOSTER_REDIS_ADDR"`
	Password string `yaml:"password" env:"IMPOSTER_REDIS_PASSWORD"`
	DB       int    `yaml:"db"       env:"IMPOSTER_REDIS_DB"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `yaml:"driver" env:"IMPOSTER_STORAGE_DRIVER"` // redis | memory
}

// GameConfig 游戏配置
type GameConfig struct {
	CodeAttempts   int `yaml:"code_attempts"   env:"IMPOSTER_GAME_CODE_ATTEMPTS"`   // 房间码冲突重试次数
	RoomExpiration int `yaml:"room_expiration" env:"IMPOSTER_GAME_ROOM_EXPIRATION"` // 房间数据保留时长（分钟）
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"  env:"IMPOSTER_LOG_LEVEL"`  // debug | info | warn | error
	Format string `yaml:"format" env:"IMPOSTER_LOG_FORMAT"` // json | console
}

// RequestTimeoutDuration 返回请求超时时长
func (c *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// Addr 返回监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RoomExpirationDuration 返回房间数据保留时长
func (c *GameConfig) RoomExpirationDuration() time.Duration {
	return time.Duration(c.RoomExpiration) * time.Minute
}

// Load 加载配置文件，环境变量优先于文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回默认配置（叠加环境变量）
func Default() *Config {
	cfg := &Config{}
	_ = ApplyEnv(cfg)
	cfg.applyDefaults()
	return cfg
}

// ApplyEnv 用环境变量覆盖配置，未设置的变量保持原值
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("解析环境变量失败: %w", err)
	}
	return nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("未知的存储驱动: %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("端口无效: %d", c.Server.Port)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	if c.Server.MessageRate == 0 {
		c.Server.MessageRate = defaultMessageRate
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = defaultRedisAddr
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = defaultStorageDriver
	}
	if c.Game.CodeAttempts == 0 {
		c.Game.CodeAttempts = defaultCodeAttempts
	}
	if c.Game.RoomExpiration == 0 {
		c.Game.RoomExpiration = defaultRoomExpiration
	}
	if c.Log.Level == "" {
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = defaultLogFormat
	}
}

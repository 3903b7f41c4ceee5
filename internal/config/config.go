package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config 聚合整个服务的配置项。
type Config struct {
	Chat    ChatConfig
	Server  ServerConfig
	Logging LoggingConfig
}

// ChatConfig 描述聊天后端与会话行为。
type ChatConfig struct {
	// Endpoint 为 GraphQL 聊天后端地址，启动时注入，之后不可变。
	Endpoint       string        `env:"CHATBOX_ENDPOINT" validate:"required,url"`
	Profile        string        `env:"CHATBOX_PROFILE,default=zh-CN" validate:"required"`
	RequestTimeout time.Duration `env:"CHATBOX_REQUEST_TIMEOUT,default=0s" validate:"gte=0"`
	StrictReplies  bool          `env:"CHATBOX_STRICT_REPLIES,default=false"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port string `env:"PORT,default=8080"`
	Addr string `validate:"required"`
}

// LoggingConfig 描述日志输出。
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn error"`
	Format string `env:"LOG_FORMAT,default=console" validate:"oneof=console json"`
}

// Load 从环境变量加载并校验配置。
func Load() (*Config, error) {
	cfg, err := Decode()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode 仅从环境变量解析配置，不做校验，便于命令行参数覆盖后再校验。
func Decode() (*Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg.Chat); err != nil {
		return nil, fmt.Errorf("decode chat config: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(&cfg.Server); err != nil {
		return nil, fmt.Errorf("decode server config: %w", err)
	}
	if _, err := env.UnmarshalFromEnviron(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("decode logging config: %w", err)
	}
	return &cfg, nil
}

// Validate 规范化并校验配置。
func (c *Config) Validate() error {
	c.Chat.Endpoint = strings.TrimSpace(c.Chat.Endpoint)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	addr, err := listenAddr(c.Server.Port)
	if err != nil {
		return err
	}
	c.Server.Addr = addr

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// listenAddr 解析服务器监听地址。
func listenAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	return ":" + port, nil
}

package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

type Config struct {
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort string `yaml:"http-port" env:"HTTP_PORT" env-default:"5001"`
	Policy   Policy `yaml:"policy"`
	Redis    Redis  `yaml:"redis"`
	CORS     CORS   `yaml:"cors"`
}

type Policy struct {
	Source string `yaml:"source" env:"POLICY_SOURCE" env-default:"file"`
	Path   string `yaml:"path" env:"POLICY_PATH" env-default:"./best_agent.json"`
	Name   string `yaml:"name" env:"POLICY_NAME" env-default:"best_agent"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type CORS struct {
	AllowOrigins []string `yaml:"allow-origins" env:"CORS_ALLOW_ORIGINS" env-default:"*"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Policy.Source {
	case SourceFile:
		if that.Policy.Path == "" {
			return fmt.Errorf("policy path is required for source %q", SourceFile)
		}
	case SourceRedis:
		if that.Policy.Name == "" {
			return fmt.Errorf("policy name is required for source %q", SourceRedis)
		}
	default:
		return fmt.Errorf("unknown policy source %q", that.Policy.Source)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

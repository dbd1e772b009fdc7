package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App       App       `yaml:"app"`
	HTTP      HTTP      `yaml:"http"`
	Log       Log       `yaml:"log"`
	Postgres  Postgres  `yaml:"postgres"`
	Redis     Redis     `yaml:"redis"`
	Kafka     Kafka     `yaml:"kafka"`
	Scheduler Scheduler `yaml:"scheduler"`
	Providers Providers `yaml:"providers"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"flighttrack"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"flighttrack_db"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"flight-updates"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"flight-updates-consumer-1"`
}

type Scheduler struct {
	TickSeconds         int `yaml:"tick_seconds" env:"SCHEDULER_TICK_SECONDS" env-default:"5"`
	FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds" env:"SCHEDULER_FETCH_TIMEOUT_SECONDS" env-default:"30"`
}

func (s Scheduler) Tick() time.Duration {
	return time.Duration(s.TickSeconds) * time.Second
}

func (s Scheduler) FetchTimeout() time.Duration {
	return time.Duration(s.FetchTimeoutSeconds) * time.Second
}

type Providers struct {
	SimulatedEnabled bool   `yaml:"simulated_enabled" env:"PROVIDER_SIMULATED_ENABLED" env-default:"true"`
	HTTPName         string `yaml:"http_name" env:"PROVIDER_HTTP_NAME" env-default:""`
	HTTPURL          string `yaml:"http_url" env:"PROVIDER_HTTP_URL" env-default:""`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}

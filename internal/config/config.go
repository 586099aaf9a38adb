package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "./config/config.yaml"

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	FrontendHost string `yaml:"frontend_host" env:"FRONTEND_HOST"`
	HTTPServer   `yaml:"http_server"`
	Postgres     `yaml:"postgres"`
	Stripe       `yaml:"stripe"`
	Tiers        `yaml:"tiers"`
	RabbitMQ     `yaml:"rabbitmq"`
	Alerts       `yaml:"alerts"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:5000"`
	Timeout     time.Duration `yaml:"timeout" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host           string        `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port           int           `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User           string        `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password       string        `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName         string        `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode        string        `yaml:"sslmode" env-default:"disable"`
	MaxConns       int32         `yaml:"max_conns" env-default:"10"`
	MinConns       int32         `yaml:"min_conns" env-default:"2"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout" env-default:"5s"`
}

type Stripe struct {
	SecretKey      string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	PublishableKey string        `yaml:"publishable_key" env:"STRIPE_PUBLISHABLE_KEY"`
	APIBase        string        `yaml:"api_base" env-default:"https://api.stripe.com/"`
	Timeout        time.Duration `yaml:"timeout" env-default:"10s"`
}

type Tiers struct {
	// RefreshInterval of zero refreshes only at startup and on SIGHUP.
	RefreshInterval   time.Duration `yaml:"refresh_interval" env-default:"1h"`
	LookupConcurrency int           `yaml:"lookup_concurrency" env-default:"4"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"checkout_events"`
}

type Alerts struct {
	Host      string `yaml:"host" env:"SMTP_HOST"`
	Port      int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username  string `yaml:"username" env:"SMTP_USERNAME"`
	Password  string `yaml:"password" env:"SMTP_PASSWORD"`
	Recipient string `yaml:"recipient" env:"ALERTS_RECIPIENT"`
}

// MustLoad reads the file named by CONFIG_PATH, falling back to ./config/config.yaml.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, &os.PathError{Op: "config file does not exist", Path: configPath, Err: err}
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

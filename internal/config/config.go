// Package config описывает конфигурацию сервисов и загружает её из YAML
// с переопределением секретов переменными окружения.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"file://migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	JWTToken                `yaml:"jwttoken"`
	RabbitMQ                `yaml:"rabbitmq"`
	Payments                `yaml:"payments"`
	Media                   `yaml:"media"`
	Reconciler              `yaml:"reconciler"`
	Sentry                  `yaml:"sentry"`
	RateLimit               `yaml:"rate_limit"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"1h"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"168h"`
}

// RabbitMQ настройки брокера событий подписок.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// Payments настройки платёжных провайдеров.
type Payments struct {
	FrontendURL string   `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	Stripe      Stripe   `yaml:"stripe"`
	Paystack    Paystack `yaml:"paystack"`
}

// Stripe ключи Stripe.
type Stripe struct {
	SecretKey     string `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	// BackendURL переопределяет адрес API, пусто, боевой адрес Stripe.
	BackendURL string `yaml:"backend_url"`
}

// Paystack ключи и параметры Paystack.
type Paystack struct {
	SecretKey string `yaml:"secret_key" env:"PAYSTACK_SECRET_KEY"`
	BaseURL   string `yaml:"base_url" env-default:"https://api.paystack.co"`
	Currency  string `yaml:"currency" env-default:"NGN"`
}

// Media настройки хранения загружаемых файлов.
type Media struct {
	UploadDir     string `yaml:"upload_dir" env-default:"uploads"`
	PublicBaseURL string `yaml:"public_base_url" env-default:"/uploads"`
	MaxUploadMB   int64  `yaml:"max_upload_mb" env-default:"100"`
	S3            S3     `yaml:"s3"`
}

// S3 настройки бакета. Хранилище включается, если заданы бакет и ключи.
type S3 struct {
	Bucket          string `yaml:"bucket" env:"AWS_S3_BUCKET"`
	Region          string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// Enabled сообщает, настроено ли S3.
func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// Reconciler настройки периодической сверки подписок.
type Reconciler struct {
	Interval   time.Duration `yaml:"interval" env-default:"15m"`
	PendingTTL time.Duration `yaml:"pending_ttl" env-default:"24h"`
}

// Sentry настройки отправки ошибок.
type Sentry struct {
	DSN string `yaml:"dsn" env:"SENTRY_DSN"`
}

// RateLimit параметры token bucket для HTTP API.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"20"`
	Burst int     `yaml:"burst" env-default:"40"`
}

// Load читает конфиг по пути path и применяет переменные окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// String печатает конфиг без секретов.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer: %s (timeout %s, idle %s)\n"+
			"Redis: %s db=%d\n"+
			"RabbitMQ: configured=%t\n"+
			"Payments: frontend=%s stripe=%t paystack=%t currency=%s\n"+
			"Media: dir=%s s3=%t\n"+
			"Reconciler: every %s, pending ttl %s\n",
		c.Env,
		c.AddressHTTP, c.TimeoutHTTP, c.IdleTimeout,
		c.AddressRedis, c.DB,
		c.RabbitMQ.URL != "",
		c.FrontendURL, c.Stripe.SecretKey != "", c.Paystack.SecretKey != "", c.Paystack.Currency,
		c.UploadDir, c.S3.Enabled(),
		c.Interval, c.PendingTTL,
	)
}

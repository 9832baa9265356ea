package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	ShopName    string `mapstructure:"SHOP_NAME"`
	BaseURL     string `mapstructure:"BASE_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	StripeSecretKey     string  `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string  `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeCurrency      string  `mapstructure:"STRIPE_CURRENCY"`
	ShippingCost        float64 `mapstructure:"SHIPPING_COST"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTTTL        time.Duration `mapstructure:"JWT_TTL"`
	SessionSecret string        `mapstructure:"SESSION_SECRET"`

	GoogleClientID       string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `mapstructure:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `mapstructure:"FACEBOOK_CLIENT_SECRET"`

	KafkaBrokers         string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic      string `mapstructure:"KAFKA_ORDER_TOPIC"`
	KafkaDeadLetterTopic string `mapstructure:"KAFKA_DEADLETTER_TOPIC"`
	KafkaGroupID         string `mapstructure:"KAFKA_GROUP_ID"`
	WebhookMaxAttempts   int    `mapstructure:"WEBHOOK_MAX_ATTEMPTS"`

	ScyllaHosts    string `mapstructure:"SCYLLA_HOSTS"`
	ScyllaKeyspace string `mapstructure:"SCYLLA_KEYSPACE"`
	ScyllaUsername string `mapstructure:"SCYLLA_USERNAME"`
	ScyllaPassword string `mapstructure:"SCYLLA_PASSWORD"`

	ElasticURL      string `mapstructure:"ELASTICSEARCH_URL"`
	ElasticUser     string `mapstructure:"ELASTICSEARCH_USER"`
	ElasticPassword string `mapstructure:"ELASTICSEARCH_PASSWORD"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`
	ShopEmail    string `mapstructure:"SHOP_EMAIL"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

var defaults = map[string]any{
	"PORT":                   "8080",
	"APP_ENV":                "development",
	"LOG_LEVEL":              "info",
	"SHOP_NAME":              "ThreadsNTrends",
	"BASE_URL":               "http://localhost:8080",
	"FRONTEND_URL":           "http://localhost:3000",
	"CORS_ORIGINS":           "http://localhost:3000",
	"MONGO_URI":              "",
	"MONGO_DB":               "threadsntrends",
	"REDIS_ADDR":             "localhost:6379",
	"REDIS_PASSWORD":         "",
	"STRIPE_SECRET_KEY":      "",
	"STRIPE_WEBHOOK_SECRET":  "",
	"STRIPE_CURRENCY":        "pkr",
	"SHIPPING_COST":          99.0,
	"JWT_SECRET":             "",
	"JWT_TTL":                24 * time.Hour,
	"SESSION_SECRET":         "",
	"GOOGLE_CLIENT_ID":       "",
	"GOOGLE_CLIENT_SECRET":   "",
	"FACEBOOK_CLIENT_ID":     "",
	"FACEBOOK_CLIENT_SECRET": "",
	"KAFKA_BROKERS":          "",
	"KAFKA_ORDER_TOPIC":      "orders.created",
	"KAFKA_DEADLETTER_TOPIC": "orders.webhook.deadletter",
	"KAFKA_GROUP_ID":         "threadsntrends-webhook-retry",
	"WEBHOOK_MAX_ATTEMPTS":   5,
	"SCYLLA_HOSTS":           "",
	"SCYLLA_KEYSPACE":        "threadsntrends_audit",
	"SCYLLA_USERNAME":        "",
	"SCYLLA_PASSWORD":        "",
	"ELASTICSEARCH_URL":      "",
	"ELASTICSEARCH_USER":     "",
	"ELASTICSEARCH_PASSWORD": "",
	"MINIO_ENDPOINT":         "",
	"MINIO_ACCESS_KEY":       "",
	"MINIO_SECRET_KEY":       "",
	"MINIO_BUCKET":           "threadsntrends-images",
	"MINIO_USE_SSL":          false,
	"SMTP_HOST":              "",
	"SMTP_PORT":              587,
	"SMTP_USERNAME":          "",
	"SMTP_PASSWORD":          "",
	"MAIL_FROM":              "noreply@threadsntrends.pk",
	"SHOP_EMAIL":             "contact@threadsntrends.pk",
	"RATE_LIMIT_PER_MINUTE":  100,
}

// Load lit le fichier .env (optionnel) puis les variables d'environnement.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Warn().Msg("⚠️ Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Info().Msg("✅ Fichier .env chargé avec succès")
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.MongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.StripeWebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("configuration incomplète: " + strings.Join(missing, ", "))
	}
	if c.ShippingCost < 0 {
		return errors.New("SHIPPING_COST ne peut pas être négatif")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) KafkaBrokerList() []string { return splitList(c.KafkaBrokers) }

func (c *Config) ScyllaHostList() []string { return splitList(c.ScyllaHosts) }

func (c *Config) CORSOriginList() []string { return splitList(c.CORSOrigins) }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

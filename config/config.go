package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config is built once at start-up and handed to every controller.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	MongoURI    string
	DBName      string
	MongoClient *mongo.Client

	JWTSecret string
	JWTTTL    time.Duration

	RazorpayKeyID  string
	RazorpaySecret string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	ZeptoAPIURL string
	ZeptoAPIKey string
	EmailFrom   string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	RateLimit      string
	AllowedOrigins []string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI: os.Getenv("MONGO_URI"),
		DBName:   getEnv("DB_NAME", "club_events"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    12 * time.Hour,

		RazorpayKeyID:  os.Getenv("RAZORPAY_KEY_ID"),
		RazorpaySecret: os.Getenv("RAZORPAY_SECRET"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),

		ZeptoAPIURL: os.Getenv("ZEPTO_API_URL"),
		ZeptoAPIKey: os.Getenv("ZEPTO_API_KEY"),
		EmailFrom:   os.Getenv("EMAIL_FROM"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "registrations"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "registration-confirmations"),

		RateLimit:      getEnv("RATE_LIMIT", "30-M"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if v := os.Getenv("JWT_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid JWT_TTL_HOURS %q", v)
		}
		cfg.JWTTTL = time.Duration(hours) * time.Hour
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// ConnectMongo dials MONGO_URI and pings the primary.
func (c *Config) ConnectMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.MongoClient = client
	return nil
}

// Database returns the configured database handle.
func (c *Config) Database() *mongo.Database {
	return c.MongoClient.Database(c.DBName)
}

func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

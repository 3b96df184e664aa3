package config

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Security SecurityConfig `env:",prefix="`
	Cache    CacheConfig    `env:",prefix=CACHE_"`
	Media    MediaConfig    `env:",prefix=MEDIA_"`
	Upload   UploadConfig   `env:",prefix=UPLOAD_"`
	Cookie   CookieConfig   `env:",prefix=COOKIE_"`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8000"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=30s"`
}

type PostgresConfig struct {
	Host        string `env:"HOST,default=localhost"`
	Port        string `env:"PORT,default=5432"`
	User        string `env:"USER,default=media_identity"`
	Password    string `env:"PASSWORD,default=media_identity_password"`
	DBName      string `env:"DB,default=media_identity_db"`
	SSLMode     string `env:"SSLMODE,default=disable"`
	AutoMigrate bool   `env:"AUTO_MIGRATE,default=true"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=15m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type SecurityConfig struct {
	BCryptCost int `env:"BCRYPT_COST,default=12"`
}

// CacheConfig controls the Redis-backed user projection cache
type CacheConfig struct {
	UserTTL Duration `env:"USER_TTL,default=5m"`
}

// MediaConfig points at an S3-compatible bucket (AWS S3, MinIO)
type MediaConfig struct {
	Endpoint      string `env:"ENDPOINT,default="`
	Region        string `env:"REGION,default=us-east-1"`
	Bucket        string `env:"BUCKET,default=media"`
	AccessKey     string `env:"ACCESS_KEY,default="`
	SecretKey     string `env:"SECRET_KEY,default="`
	PublicBaseURL string `env:"PUBLIC_BASE_URL,default="`
	UsePathStyle  bool   `env:"USE_PATH_STYLE,default=true"`
}

type UploadConfig struct {
	TempDir string `env:"TEMP_DIR,default=./public/temp"`
}

type CookieConfig struct {
	Secure bool   `env:"SECURE,default=true"`
	Domain string `env:"DOMAIN,default="`
	Path   string `env:"PATH,default=/"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PATCH,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// ObjectURL returns the public URL of an object key in the media bucket
func (m MediaConfig) ObjectURL(key string) string {
	if m.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", m.PublicBaseURL, key)
	}
	if m.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", m.Endpoint, m.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.Bucket, m.Region, key)
}

// Load loads configuration from environment variables.
// A .env file in the working directory is applied first when present.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Security.BCryptCost < 4 || config.Security.BCryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", config.Security.BCryptCost)
	}

	return &config, nil
}

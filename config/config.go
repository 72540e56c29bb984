package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string `validate:"required,numeric"`
	DatabaseURL    string
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	JWTSecret      string
	InternalAPIKey string   // 内部服务（论坛/消息/计费）调用入队接口的密钥
	AdminUserIDs   []string // 管理员用户 ID，逗号分隔

	LogJSON  bool
	LogDebug bool

	Match struct {
		TopK           int `validate:"min=1,max=100"` // 每次生成的候选数量
		CandidateLimit int `validate:"min=1"`         // 候选池最大读取数量
	}

	Delivery struct {
		BatchSize   int           `validate:"min=1,max=1000"`
		MaxAttempts int           `validate:"min=1"`
		Concurrency int           `validate:"min=1,max=64"`
		Timeout     time.Duration `validate:"gt=0"` // 单次投递超时
		Interval    time.Duration // serve 模式下的批处理间隔，0 表示不启用
		Lease       time.Duration `validate:"gt=0"`                  // 跨 Pod 批处理租约
		Channel     string        `validate:"oneof=redis email log"` // 投递通道
	}

	SMTP struct {
		Host     string
		Port     int `validate:"min=0,max=65535"`
		Username string
		Password string
		From     string `validate:"omitempty,email"`
	}
}

// Validate 校验配置取值范围
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Delivery.Channel == "email" && (c.SMTP.Host == "" || c.SMTP.From == "") {
		return errors.New("invalid config: SMTP_HOST and SMTP_FROM are required for the email channel")
	}
	return nil
}

func Load() *Config {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),
		AdminUserIDs:   splitList(os.Getenv("ADMIN_USER_IDS")),
		LogJSON:        getEnvBool("LOG_JSON", false),
		LogDebug:       getEnvBool("LOG_DEBUG", false),
	}

	cfg.Match.TopK = getEnvInt("MATCH_TOP_K", 5)
	cfg.Match.CandidateLimit = getEnvInt("MATCH_CANDIDATE_LIMIT", 500)

	cfg.Delivery.BatchSize = getEnvInt("DELIVERY_BATCH_SIZE", 10)
	cfg.Delivery.MaxAttempts = getEnvInt("DELIVERY_MAX_ATTEMPTS", 3)
	cfg.Delivery.Concurrency = getEnvInt("DELIVERY_CONCURRENCY", 4)
	cfg.Delivery.Timeout = time.Duration(getEnvInt("DELIVERY_TIMEOUT_SEC", 10)) * time.Second
	cfg.Delivery.Interval = time.Duration(getEnvInt("DELIVERY_INTERVAL_SEC", 120)) * time.Second
	cfg.Delivery.Lease = time.Duration(getEnvInt("DELIVERY_LEASE_SEC", 60)) * time.Second
	cfg.Delivery.Channel = getEnv("DELIVERY_CHANNEL", "redis")

	cfg.SMTP.Host = os.Getenv("SMTP_HOST")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)
	cfg.SMTP.Username = os.Getenv("SMTP_USERNAME")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = os.Getenv("SMTP_FROM")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 解析失败或为负数时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

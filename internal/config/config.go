package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// TelegramConfig 定义 Telegram 机器人接入配置
type TelegramConfig struct {
	Token       string // 机器人令牌，必填，从 @BotFather 获取
	PollTimeout int    // 长轮询超时秒数，默认 30
	Debug       bool   // 是否打印 Telegram API 调试日志
}

// ProviderConfig 定义邮件服务商 API 配置
type ProviderConfig struct {
	BaseURL    string        // 服务商 API 根地址，默认 "https://api.mail.tm"
	Timeout    time.Duration // 单次请求超时，默认 10s
	RetryCount int           // 失败重试次数，默认 2
}

// InboxConfig 定义收件箱读取行为配置
type InboxConfig struct {
	MaxMessages  int // 单次 /read 最多处理的邮件数，默认 5
	MaxBodyChars int // 正文展示的最大字符数，超出截断，默认 2000
}

// RateLimitConfig 定义按用户限流配置
type RateLimitConfig struct {
	PerSecond float64 // 每秒补充的令牌数，默认 0.5
	Burst     int     // 令牌桶容量，默认 3
}

// ServerConfig 定义探活 HTTP 服务器的监听配置
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// WorkerConfig 定义更新处理协程池配置
type WorkerConfig struct {
	MaxWorkers int // 并发处理协程数，默认 8
	QueueSize  int // 任务队列大小，默认 64
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	LogFile     string // 日志文件路径，留空只写标准输出
}

// Config 是机器人全部配置的根结构体
type Config struct {
	Telegram  TelegramConfig  // Telegram 接入配置
	Provider  ProviderConfig  // 邮件服务商配置
	Inbox     InboxConfig     // 收件箱读取配置
	RateLimit RateLimitConfig // 按用户限流配置
	Server    ServerConfig    // 探活服务器配置
	Worker    WorkerConfig    // 协程池配置
	Log       LogConfig       // 日志配置
}

// Load 从环境变量和 .env 文件加载配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: TMBOT_
// 例如: TMBOT_TELEGRAM_TOKEN, TMBOT_PROVIDER_BASE_URL
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("tmbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("telegram.debug", false)
	v.SetDefault("provider.base_url", "https://api.mail.tm")
	v.SetDefault("provider.timeout", "10s")
	v.SetDefault("provider.retry_count", 2)
	v.SetDefault("inbox.max_messages", 5)
	v.SetDefault("inbox.max_body_chars", 2000)
	v.SetDefault("ratelimit.per_second", 0.5)
	v.SetDefault("ratelimit.burst", 3)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("worker.max_workers", 8)
	v.SetDefault("worker.queue_size", 64)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.log_file", "")

	token := strings.TrimSpace(v.GetString("telegram.token"))
	if token == "" {
		return nil, fmt.Errorf("telegram token is required, set TMBOT_TELEGRAM_TOKEN")
	}

	pollTimeout := v.GetInt("telegram.poll_timeout")
	if pollTimeout <= 0 {
		pollTimeout = 30
	}

	baseURL := strings.TrimRight(v.GetString("provider.base_url"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider.base_url must not be empty")
	}

	timeout, err := time.ParseDuration(v.GetString("provider.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid provider.timeout: %w", err)
	}

	maxMessages := v.GetInt("inbox.max_messages")
	if maxMessages <= 0 {
		maxMessages = 5
	}

	maxBodyChars := v.GetInt("inbox.max_body_chars")
	if maxBodyChars <= 0 {
		maxBodyChars = 2000
	}

	perSecond := v.GetFloat64("ratelimit.per_second")
	if perSecond <= 0 {
		perSecond = 0.5
	}

	burst := v.GetInt("ratelimit.burst")
	if burst <= 0 {
		burst = 3
	}

	maxWorkers := v.GetInt("worker.max_workers")
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	queueSize := v.GetInt("worker.queue_size")
	if queueSize <= 0 {
		queueSize = 64
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:       token,
			PollTimeout: pollTimeout,
			Debug:       v.GetBool("telegram.debug"),
		},
		Provider: ProviderConfig{
			BaseURL:    baseURL,
			Timeout:    timeout,
			RetryCount: v.GetInt("provider.retry_count"),
		},
		Inbox: InboxConfig{
			MaxMessages:  maxMessages,
			MaxBodyChars: maxBodyChars,
		},
		RateLimit: RateLimitConfig{
			PerSecond: perSecond,
			Burst:     burst,
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Worker: WorkerConfig{
			MaxWorkers: maxWorkers,
			QueueSize:  queueSize,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			LogFile:     v.GetString("log.log_file"),
		},
	}

	return cfg, nil
}

// loadEnvFile 尝试加载 .env 文件
//
// 如果文件不存在则静默跳过，已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

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

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// NylasConfig 定义邮件服务商 API 的接入配置
type NylasConfig struct {
	APIKey        string // 服务商 API 密钥（Bearer 凭证），必填
	APIURI        string // 服务商 API 地址，默认 "https://api.us.nylas.com"
	ClientID      string // OAuth 应用 ID
	CallbackURI   string // OAuth 回调地址
	WebhookSecret string // Webhook 签名密钥（HMAC-SHA256），必填
}

// AIProviderConfig 定义单个托管大模型服务商的配置
type AIProviderConfig struct {
	APIKey  string // 服务商 API 密钥
	BaseURI string // Chat Completion 接口地址
	Model   string // 模型名称
}

// AIConfig 定义 AI 辅助功能配置（两个独立的托管服务商）
type AIConfig struct {
	Groq       AIProviderConfig // 撰写/回复流式生成
	OpenRouter AIProviderConfig // 分类与摘要
	MaxTokens  int              // 单次请求的 max_tokens 上限，默认 1024
	Timeout    time.Duration    // 单次外呼的固定超时，默认 30s
	RatePerMin int              // 单用户每分钟 AI 请求数上限，默认 20
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空表示只输出到标准输出
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret        string        // JWT 签名密钥，必须至少 32 字符
	Issuer        string        // JWT 签发者标识，默认 "onebox"
	AccessExpiry  time.Duration // 访问令牌有效期，默认 15 分钟
	RefreshExpiry time.Duration // 刷新令牌有效期，默认 7 天
}

// PaginationConfig 定义邮件列表分页配置
type PaginationConfig struct {
	PageSize     int           // 返回给前端的固定分页大小，默认 20
	ProviderSize int           // 单次向服务商请求的页大小，默认 100
	BufferTTL    time.Duration // 分页缓冲区的生存时间，默认 10 分钟
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server     ServerConfig     // HTTP 服务器配置
	Nylas      NylasConfig      // 邮件服务商配置
	AI         AIConfig         // AI 辅助功能配置
	Pagination PaginationConfig // 分页配置
	CORS       CORSConfig       // 跨域配置
	Log        LogConfig        // 日志配置
	Database   DatabaseConfig   // 数据库配置
	Redis      RedisConfig      // Redis 配置
	JWT        JWTConfig        // JWT 认证配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: ONEBOX_
// 例如: ONEBOX_SERVER_HOST, ONEBOX_NYLAS_API_KEY
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 配置验证失败时返回错误
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("onebox")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("nylas.api_key", "")
	viper.SetDefault("nylas.api_uri", "https://api.us.nylas.com")
	viper.SetDefault("nylas.client_id", "")
	viper.SetDefault("nylas.callback_uri", "http://localhost:8080/v1/auth/nylas/callback")
	viper.SetDefault("nylas.webhook_secret", "")
	viper.SetDefault("ai.groq_api_key", "")
	viper.SetDefault("ai.groq_base_uri", "https://api.groq.com/openai/v1")
	viper.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.openrouter_api_key", "")
	viper.SetDefault("ai.openrouter_base_uri", "https://openrouter.ai/api/v1")
	viper.SetDefault("ai.openrouter_model", "openai/gpt-4o-mini")
	viper.SetDefault("ai.max_tokens", 1024)
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.rate_per_min", 20)
	viper.SetDefault("pagination.page_size", 20)
	viper.SetDefault("pagination.provider_size", 100)
	viper.SetDefault("pagination.buffer_ttl", "10m")
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "onebox")
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.refresh_expiry", "168h")

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	aiTimeout, err := time.ParseDuration(viper.GetString("ai.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid ai.timeout: %w", err)
	}

	bufferTTL, err := time.ParseDuration(viper.GetString("pagination.buffer_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid pagination.buffer_ttl: %w", err)
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("jwt.access_expiry"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("jwt.refresh_expiry"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	jwtSecret := viper.GetString("jwt.secret")

	// 安全检查：禁止使用默认的 JWT secret
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set ONEBOX_JWT_SECRET environment variable")
	}

	// JWT secret 必须至少 32 字符
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	nylasAPIKey := viper.GetString("nylas.api_key")
	if nylasAPIKey == "" {
		return nil, fmt.Errorf("nylas.api_key is required. Please set ONEBOX_NYLAS_API_KEY environment variable")
	}

	webhookSecret := viper.GetString("nylas.webhook_secret")
	if webhookSecret == "" {
		return nil, fmt.Errorf("nylas.webhook_secret is required. Please set ONEBOX_NYLAS_WEBHOOK_SECRET environment variable")
	}

	pageSize := viper.GetInt("pagination.page_size")
	if pageSize <= 0 {
		pageSize = 20
	}
	providerSize := viper.GetInt("pagination.provider_size")
	if providerSize < pageSize {
		providerSize = pageSize
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Nylas: NylasConfig{
			APIKey:        nylasAPIKey,
			APIURI:        strings.TrimRight(viper.GetString("nylas.api_uri"), "/"),
			ClientID:      viper.GetString("nylas.client_id"),
			CallbackURI:   viper.GetString("nylas.callback_uri"),
			WebhookSecret: webhookSecret,
		},
		AI: AIConfig{
			Groq: AIProviderConfig{
				APIKey:  viper.GetString("ai.groq_api_key"),
				BaseURI: strings.TrimRight(viper.GetString("ai.groq_base_uri"), "/"),
				Model:   viper.GetString("ai.groq_model"),
			},
			OpenRouter: AIProviderConfig{
				APIKey:  viper.GetString("ai.openrouter_api_key"),
				BaseURI: strings.TrimRight(viper.GetString("ai.openrouter_base_uri"), "/"),
				Model:   viper.GetString("ai.openrouter_model"),
			},
			MaxTokens:  viper.GetInt("ai.max_tokens"),
			Timeout:    aiTimeout,
			RatePerMin: viper.GetInt("ai.rate_per_min"),
		},
		Pagination: PaginationConfig{
			PageSize:     pageSize,
			ProviderSize: providerSize,
			BufferTTL:    bufferTTL,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			Issuer:        viper.GetString("jwt.issuer"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env（用于从子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	// 尝试当前目录的 .env
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	// 尝试父目录的 .env
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
	Locale LocaleConfig
	Chat   ChatConfig
	Notify NotifyConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	locale, err := loadLocaleConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Store:  storeCfg,
		Locale: locale,
		Chat:   chat,
		Notify: notify,
		Log:    logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	HistoryLimit int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	// 0 或负数表示发送完整对话记录
	historyLimit := 0
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		historyLimit = *override
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
	}, nil
}

// StoreConfig 描述持久化存储配置。
type StoreConfig struct {
	Driver string // sqlite | memory
	DBPath string
}

func loadStoreConfig() (StoreConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORE_DRIVER", "sqlite"))
	if driver != "sqlite" && driver != "memory" {
		return StoreConfig{}, fmt.Errorf("invalid STORE_DRIVER value %q: want sqlite or memory", driver)
	}

	dbPath := getEnvOrDefault("DB_PATH", "./data/wellbeing.db")
	return StoreConfig{Driver: driver, DBPath: dbPath}, nil
}

// LocaleConfig 描述时区与一周起始日，用于提醒与周统计。
type LocaleConfig struct {
	Location  *time.Location
	WeekStart time.Weekday
}

func loadLocaleConfig() (LocaleConfig, error) {
	loc := time.Local
	if name := strings.TrimSpace(os.Getenv("TIMEZONE")); name != "" {
		parsed, err := time.LoadLocation(name)
		if err != nil {
			return LocaleConfig{}, fmt.Errorf("invalid TIMEZONE value %q: %w", name, err)
		}
		loc = parsed
	}

	weekStart := time.Sunday
	switch strings.ToLower(getEnvOrDefault("WEEK_START", "sunday")) {
	case "sunday":
	case "monday":
		weekStart = time.Monday
	default:
		return LocaleConfig{}, fmt.Errorf("invalid WEEK_START value %q: want sunday or monday", os.Getenv("WEEK_START"))
	}

	return LocaleConfig{Location: loc, WeekStart: weekStart}, nil
}

// ChatConfig 描述会话续接窗口。
type ChatConfig struct {
	ContinuityWindow time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	window, err := parseDurationEnv("CONTINUITY_WINDOW", 2*time.Hour)
	if err != nil {
		return ChatConfig{}, err
	}
	if window <= 0 {
		return ChatConfig{}, fmt.Errorf("CONTINUITY_WINDOW must be positive")
	}
	return ChatConfig{ContinuityWindow: window}, nil
}

// NotifyConfig 描述本地通知的展示参数。
type NotifyConfig struct {
	Icon string
	// PromptTimeout 为等待客户端回应权限请求的时长。
	PromptTimeout time.Duration
}

func loadNotifyConfig() (NotifyConfig, error) {
	timeout, err := parseDurationEnv("NOTIFICATION_PROMPT_TIMEOUT", 30*time.Second)
	if err != nil {
		return NotifyConfig{}, err
	}
	if timeout < 0 {
		return NotifyConfig{}, fmt.Errorf("NOTIFICATION_PROMPT_TIMEOUT must not be negative")
	}
	return NotifyConfig{
		Icon:          getEnvOrDefault("NOTIFICATION_ICON", "/logo.png"),
		PromptTimeout: timeout,
	}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info"), Pretty: pretty}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

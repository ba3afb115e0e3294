// =============================================================================
// 📦 QuizFlow 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("QUIZFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量 → 凭证环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 QuizFlow 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Student 学生凭证配置
	Student StudentConfig `yaml:"student" env:"STUDENT"`

	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Browser 页面抓取配置
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Retrieval 数据下载配置
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Solver 编排器配置
	Solver SolverConfig `yaml:"solver" env:"SOLVER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 限流速率（每秒请求数，按客户端 IP）
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// StudentConfig 学生凭证配置
// Email 与 Secret 也可通过 STUDENT_EMAIL / STUDENT_SECRET 直接注入
type StudentConfig struct {
	// 注册邮箱
	Email string `yaml:"email" env:"EMAIL"`
	// 共享密钥（不写日志）
	Secret string `yaml:"secret" env:"SECRET"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	// API Key，也可通过 ANTHROPIC_API_KEY 直接注入
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选，默认官方端点）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 单次补全最大 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 单次请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// BrowserConfig 页面抓取配置
type BrowserConfig struct {
	// 是否无头模式
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// 单页导航 + 渲染超时
	NavTimeout time.Duration `yaml:"nav_timeout" env:"NAV_TIMEOUT"`
	// 网络空闲后的额外等待（等 JS 渲染完成）
	SettleDelay time.Duration `yaml:"settle_delay" env:"SETTLE_DELAY"`
	// Chrome 可执行文件路径（可选）
	ExecPath string `yaml:"exec_path" env:"EXEC_PATH"`
}

// RetrievalConfig 数据下载配置
type RetrievalConfig struct {
	// 单文件下载超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 并发下载上限
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
	// 单文件大小上限（字节）
	MaxBytes int64 `yaml:"max_bytes" env:"MAX_BYTES"`
}

// SolverConfig 编排器配置
type SolverConfig struct {
	// 单次求解运行的总时限（含整条链）
	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
	// 链式跳转的最大环节数
	MaxLinks int `yaml:"max_links" env:"MAX_LINKS"`
	// 相邻环节之间的停顿
	LinkPause time.Duration `yaml:"link_pause" env:"LINK_PAUSE"`
	// 页面抓取失败后的重试次数
	FetchRetries int `yaml:"fetch_retries" env:"FETCH_RETRIES"`
	// 解析步骤失败后的重试次数
	InterpretRetries int `yaml:"interpret_retries" env:"INTERPRET_RETRIES"`
	// 计算步骤失败后的重试次数
	ComputeRetries int `yaml:"compute_retries" env:"COMPUTE_RETRIES"`
	// 提交步骤失败后的重试次数
	SubmitRetries int `yaml:"submit_retries" env:"SUBMIT_RETRIES"`
	// 单次提交请求超时
	SubmitTimeout time.Duration `yaml:"submit_timeout" env:"SUBMIT_TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "QUIZFLOW",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量 → 凭证环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 凭证环境变量拥有最高优先级
	applyCredentialEnv(cfg)

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// applyCredentialEnv 应用无前缀凭证环境变量
// STUDENT_EMAIL / STUDENT_SECRET / ANTHROPIC_API_KEY 是部署环境的约定名
func applyCredentialEnv(cfg *Config) {
	if v := os.Getenv("STUDENT_EMAIL"); v != "" {
		cfg.Student.Email = v
	}
	if v := os.Getenv("STUDENT_SECRET"); v != "" {
		cfg.Student.Secret = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	// 验证服务器配置
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}

	// 凭证缺失时无法验证入站请求，也无法调用模型
	if c.Student.Email == "" {
		errs = append(errs, "student email is required (STUDENT_EMAIL)")
	}
	if c.Student.Secret == "" {
		errs = append(errs, "student secret is required (STUDENT_SECRET)")
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, "LLM API key is required (ANTHROPIC_API_KEY)")
	}

	// 验证编排器配置
	if c.Solver.MaxLinks <= 0 {
		errs = append(errs, "max_links must be positive")
	}
	if c.Solver.RunTimeout <= 0 {
		errs = append(errs, "run_timeout must be positive")
	}
	if c.Retrieval.Concurrency <= 0 {
		errs = append(errs, "retrieval concurrency must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

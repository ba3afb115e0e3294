// =============================================================================
// 📦 QuizFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Student:   StudentConfig{},
		LLM:       DefaultLLMConfig(),
		Browser:   DefaultBrowserConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Solver:    DefaultSolverConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		APIKey:     "",
		BaseURL:    "",
		Model:      "claude-sonnet-4-5",
		MaxTokens:  2048,
		Timeout:    60 * time.Second,
		MaxRetries: 2,
	}
}

// DefaultBrowserConfig 返回默认页面抓取配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:    true,
		NavTimeout:  30 * time.Second,
		SettleDelay: 3 * time.Second,
		ExecPath:    "",
	}
}

// DefaultRetrievalConfig 返回默认数据下载配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Timeout:     30 * time.Second,
		Concurrency: 3,
		MaxBytes:    10 << 20, // 10 MiB
	}
}

// DefaultSolverConfig 返回默认编排器配置
// 总时限留在 3 分钟评分窗口之内，提交重试也算在内
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		RunTimeout:       170 * time.Second,
		MaxLinks:         20,
		LinkPause:        time.Second,
		FetchRetries:     1,
		InterpretRetries: 1,
		ComputeRetries:   1,
		SubmitRetries:    2,
		SubmitTimeout:    30 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

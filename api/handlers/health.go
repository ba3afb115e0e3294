package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/llm"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger           *zap.Logger
	apiKeyConfigured bool
	emailConfigured  bool
	checks           []HealthCheck
	mu               sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status           string                 `json:"status"` // "healthy", "unhealthy"
	Timestamp        time.Time              `json:"timestamp"`
	APIKeyConfigured bool                   `json:"api_key_configured"`
	EmailConfigured  bool                   `json:"email_configured"`
	Checks           map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器。
// apiKeyConfigured/emailConfigured 来自启动配置，只报告有无，不报告值。
func NewHealthHandler(apiKeyConfigured, emailConfigured bool, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:           logger,
		apiKeyConfigured: apiKeyConfigured,
		emailConfigured:  emailConfigured,
		checks:           make([]HealthCheck, 0),
	}
}

// RegisterCheck 注册健康检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleHealth 处理 GET /health 请求（活跃度检查）。
// 只要进程在跑就是 healthy；依赖探测走 /ready。
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:           "healthy",
		Timestamp:        time.Now(),
		APIKeyConfigured: h.apiKeyConfigured,
		EmailConfigured:  h.emailConfigured,
	}

	WriteJSON(w, http.StatusOK, status)
}

// HandleReady 处理 GET /ready 请求（就绪检查）。
// 逐个执行注册的依赖探测，任一失败即 503。
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:           "healthy",
		Timestamp:        time.Now(),
		APIKeyConfigured: h.apiKeyConfigured,
		EmailConfigured:  h.emailConfigured,
		Checks:           make(map[string]CheckResult),
	}

	allHealthy := true
	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		latency := time.Since(start)

		result := CheckResult{
			Status:  "pass",
			Latency: latency.String(),
		}

		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			allHealthy = false

			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err),
				zap.Duration("latency", latency),
			)
		}

		status.Checks[check.Name()] = result
	}

	if !allHealthy {
		status.Status = "unhealthy"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// ProviderHealthCheck 探测 LLM Provider 的可用性
type ProviderHealthCheck struct {
	provider llm.Provider
}

// NewProviderHealthCheck 创建 LLM Provider 健康检查
func NewProviderHealthCheck(provider llm.Provider) *ProviderHealthCheck {
	return &ProviderHealthCheck{provider: provider}
}

func (c *ProviderHealthCheck) Name() string {
	return "llm:" + c.provider.Name()
}

func (c *ProviderHealthCheck) Check(ctx context.Context) error {
	_, err := c.provider.HealthCheck(ctx)
	return err
}

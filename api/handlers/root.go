package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

// =============================================================================
// 🏠 根路径 Handler
// =============================================================================

// RootHandler 返回服务自述与端点清单
type RootHandler struct {
	email            string
	secretConfigured bool
	apiKeyConfigured bool
	logger           *zap.Logger
}

// ServiceInfo 是 GET / 的应答体
type ServiceInfo struct {
	Service       string            `json:"service"`
	Status        string            `json:"status"`
	Endpoints     map[string]string `json:"endpoints"`
	Configuration ServiceConfig     `json:"configuration"`
	Ready         bool              `json:"ready"`
}

// ServiceConfig 只暴露配置的有无，绝不暴露密钥本身
type ServiceConfig struct {
	Email            string `json:"email"`
	SecretConfigured bool   `json:"secret_configured"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// NewRootHandler 创建根路径处理器
func NewRootHandler(email string, secretConfigured, apiKeyConfigured bool, logger *zap.Logger) *RootHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RootHandler{
		email:            email,
		secretConfigured: secretConfigured,
		apiKeyConfigured: apiKeyConfigured,
		logger:           logger,
	}
}

// HandleRoot 处理 GET / 请求
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	// 根路径兼作 404 兜底，只认精确匹配
	if r.URL.Path != "/" {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest,
			"not found", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, ServiceInfo{
		Service: "LLM Quiz Solver",
		Status:  "running",
		Endpoints: map[string]string{
			"POST /quiz":   "Submit quiz URL for solving",
			"GET /health":  "Health check",
			"GET /ready":   "Readiness check",
			"GET /metrics": "Prometheus metrics",
			"GET /":        "This page",
		},
		Configuration: ServiceConfig{
			Email:            h.email,
			SecretConfigured: h.secretConfigured,
			APIKeyConfigured: h.apiKeyConfigured,
		},
		Ready: h.apiKeyConfigured && h.email != "",
	})
}

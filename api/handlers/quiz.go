package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/solver"
	"github.com/BaSui01/quizflow/types"
)

// =============================================================================
// 🧩 Quiz Handler
// =============================================================================

// QuizRunner 执行一次完整的求解运行
type QuizRunner interface {
	Run(ctx context.Context, req types.QuizRequest) (solver.RunState, error)
}

// CredentialVerifier 校验请求携带的学生凭证
type CredentialVerifier interface {
	Verify(email, secret string) error
}

// QuizHandler 接收测验任务并在后台启动求解
type QuizHandler struct {
	runner   QuizRunner
	verifier CredentialVerifier
	logger   *zap.Logger
}

// StartResponse 是任务已受理的应答体
type StartResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// NewQuizHandler 创建测验任务处理器
func NewQuizHandler(runner QuizRunner, verifier CredentialVerifier, logger *zap.Logger) *QuizHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuizHandler{
		runner:   runner,
		verifier: verifier,
		logger:   logger.With(zap.String("handler", "quiz")),
	}
}

// HandleQuiz 处理 POST /quiz 请求。
// 凭证与 URL 同步校验；校验通过后立即应答 started，
// 求解在后台进行，结果只出现在日志与指标里。
func (h *QuizHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest,
			"method not allowed", h.logger)
		return
	}

	var req types.QuizRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	// 凭证先于一切：失败时只记录结论，不记录提交的值
	if err := h.verifier.Verify(req.Email, req.Secret); err != nil {
		h.logger.Warn("credential verification failed",
			zap.String("remote_addr", r.RemoteAddr))
		var appErr *types.Error
		if e, ok := err.(*types.Error); ok {
			appErr = e
		} else {
			appErr = types.NewError(types.ErrAuthentication, "invalid credentials").
				WithHTTPStatus(http.StatusForbidden)
		}
		WriteError(w, appErr, nil)
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"no URL provided", h.logger)
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"url must be an absolute http(s) URL", h.logger)
		return
	}

	h.logger.Info("quiz accepted", zap.String("url", req.URL))

	// 后台运行时脱离请求 context：应答已经发出，运行有自己的总时限
	go func(req types.QuizRequest) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("solver run panicked", zap.Any("panic", rec))
			}
		}()
		if _, err := h.runner.Run(context.Background(), req); err != nil {
			h.logger.Error("background run failed",
				zap.String("url", req.URL),
				zap.Error(err))
		}
	}(req)

	WriteJSON(w, http.StatusOK, StartResponse{
		Status:  "started",
		Message: "Quiz solving initiated",
		URL:     req.URL,
	})
}

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/api/handlers"
	"github.com/BaSui01/quizflow/browser"
	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/internal/metrics"
	"github.com/BaSui01/quizflow/internal/server"
	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/providers"
	claude "github.com/BaSui01/quizflow/providers/anthropic"
	"github.com/BaSui01/quizflow/retrieval"
	"github.com/BaSui01/quizflow/solver"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 QuizFlow 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager *server.Manager

	// 求解管线
	fetcher  browser.Fetcher
	provider *claude.ClaudeProvider
	solver   *solver.Solver

	// Handlers
	quizHandler   *handlers.QuizHandler
	healthHandler *handlers.HealthHandler
	rootHandler   *handlers.RootHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器
	s.metricsCollector = metrics.NewCollector("quizflow", nil, s.logger)

	// 2. 组装求解管线
	if err := s.initPipeline(); err != nil {
		return fmt.Errorf("failed to init solver pipeline: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initPipeline 组装求解管线的所有部件
func (s *Server) initPipeline() error {
	s.provider = claude.NewClaudeProvider(providers.ClaudeConfig{
		APIKey:  s.cfg.LLM.APIKey,
		BaseURL: s.cfg.LLM.BaseURL,
		Model:   s.cfg.LLM.Model,
		Timeout: s.cfg.LLM.Timeout,
	}, s.logger)

	// 管线经由计量包装调用模型，llm_* 指标在此落账
	provider := llm.NewInstrumentedProvider(s.provider, s.metricsCollector)

	fetcher, err := browser.NewChromeFetcher(browser.Config{
		Headless:    s.cfg.Browser.Headless,
		NavTimeout:  s.cfg.Browser.NavTimeout,
		SettleDelay: s.cfg.Browser.SettleDelay,
		ExecPath:    s.cfg.Browser.ExecPath,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create browser fetcher: %w", err)
	}
	s.fetcher = fetcher

	downloader := retrieval.NewDownloader(retrieval.Config{
		Timeout:     s.cfg.Retrieval.Timeout,
		Concurrency: s.cfg.Retrieval.Concurrency,
		MaxBytes:    s.cfg.Retrieval.MaxBytes,
	}, s.logger)

	verifier := solver.NewVerifier(s.cfg.Student.Email, s.cfg.Student.Secret)
	interpreter := solver.NewInterpreter(provider, s.cfg.LLM.Model, s.cfg.Solver.InterpretRetries, s.logger)
	computer := solver.NewComputer(provider, s.cfg.LLM.Model, s.cfg.Solver.ComputeRetries, s.logger)
	submitter := solver.NewSubmitter(
		s.cfg.Student.Email,
		s.cfg.Student.Secret,
		s.cfg.Solver.SubmitRetries,
		s.cfg.Solver.SubmitTimeout,
		s.logger,
	)

	s.solver = solver.New(
		verifier,
		s.fetcher,
		interpreter,
		downloader,
		computer,
		submitter,
		s.metricsCollector,
		solver.Config{
			RunTimeout:   s.cfg.Solver.RunTimeout,
			MaxLinks:     s.cfg.Solver.MaxLinks,
			LinkPause:    s.cfg.Solver.LinkPause,
			FetchRetries: s.cfg.Solver.FetchRetries,
		},
		s.logger,
	)

	s.logger.Info("Solver pipeline initialized",
		zap.String("model", s.cfg.LLM.Model),
		zap.Duration("run_timeout", s.cfg.Solver.RunTimeout),
		zap.Int("max_links", s.cfg.Solver.MaxLinks),
	)
	return nil
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	verifier := solver.NewVerifier(s.cfg.Student.Email, s.cfg.Student.Secret)
	s.quizHandler = handlers.NewQuizHandler(s.solver, verifier, s.logger)

	s.healthHandler = handlers.NewHealthHandler(
		s.cfg.LLM.APIKey != "",
		s.cfg.Student.Email != "",
		s.logger,
	)
	s.healthHandler.RegisterCheck(handlers.NewProviderHealthCheck(s.provider))

	s.rootHandler = handlers.NewRootHandler(
		s.cfg.Student.Email,
		s.cfg.Student.Secret != "",
		s.cfg.LLM.APIKey != "",
		s.logger,
	)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.rootHandler.HandleRoot)
	mux.HandleFunc("/quiz", s.quizHandler.HandleQuiz)
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.Handle("/metrics", promhttp.Handler())

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(rateLimiterCtx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout, // 2x ReadTimeout
		MaxHeaderBytes:  1 << 20,                      // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 0. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 1. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 2. 释放浏览器资源
	if s.fetcher != nil {
		if err := s.fetcher.Close(); err != nil {
			s.logger.Error("Browser fetcher shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}

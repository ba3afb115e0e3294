// =============================================================================
// 🧩 QuizFlow 求解编排器
// =============================================================================
// 状态机驱动的求解管线：验证 → 抓取 → 解析 → 下载 → 计算 → 提交 → 链式跳转
// =============================================================================
package solver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/browser"
	"github.com/BaSui01/quizflow/internal/metrics"
	"github.com/BaSui01/quizflow/types"
)

// TaskInterpreter extracts a structured task from quiz page text.
type TaskInterpreter interface {
	Interpret(ctx context.Context, pageURL, pageText string) (*types.QuizTask, error)
}

// AnswerComputer produces a shape-validated answer for a task.
type AnswerComputer interface {
	Compute(ctx context.Context, task *types.QuizTask, data []types.RetrievedData, pageText string) (types.Answer, error)
}

// AnswerSubmitter posts an answer and returns the endpoint's verdict.
type AnswerSubmitter interface {
	Submit(ctx context.Context, answer types.Answer, quizURL string) (*types.SubmissionResult, error)
}

// DataRetriever downloads the task's referenced data files.
type DataRetriever interface {
	FetchAll(ctx context.Context, urls []string) ([]types.RetrievedData, error)
}

// Config 编排器配置
type Config struct {
	// 单次运行的总时限（含整条链）
	RunTimeout time.Duration
	// 链式跳转的最大环节数
	MaxLinks int
	// 相邻环节之间的停顿
	LinkPause time.Duration
	// 页面抓取失败后的重试次数
	FetchRetries int
}

// Solver 按固定顺序驱动一次求解运行的所有步骤。
// 每个请求一个独立的运行实例；运行之间除只读配置外不共享可变状态。
type Solver struct {
	verifier    *Verifier
	fetcher     browser.Fetcher
	interpreter TaskInterpreter
	retriever   DataRetriever
	computer    AnswerComputer
	submitter   AnswerSubmitter
	collector   *metrics.Collector
	config      Config
	logger      *zap.Logger
}

// New 创建编排器
func New(
	verifier *Verifier,
	fetcher browser.Fetcher,
	interpreter TaskInterpreter,
	retriever DataRetriever,
	computer AnswerComputer,
	submitter AnswerSubmitter,
	collector *metrics.Collector,
	config Config,
	logger *zap.Logger,
) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 170 * time.Second
	}
	if config.MaxLinks <= 0 {
		config.MaxLinks = 20
	}
	if config.FetchRetries < 0 {
		config.FetchRetries = 0
	}

	return &Solver{
		verifier:    verifier,
		fetcher:     fetcher,
		interpreter: interpreter,
		retriever:   retriever,
		computer:    computer,
		submitter:   submitter,
		collector:   collector,
		config:      config,
		logger:      logger.With(zap.String("component", "solver")),
	}
}

// Run 执行一次完整的求解运行，返回终态。
// 调用方（HTTP 处理器）已经同步应答，这里的失败只通过日志与指标可见。
func (s *Solver) Run(ctx context.Context, req types.QuizRequest) (RunState, error) {
	runID := uuid.NewString()
	logger := s.logger.With(zap.String("run_id", runID))
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	state := StateIdle
	links := 0

	transition := func(to RunState) {
		s.collector.RecordStateTransition(state.String(), to.String())
		logger.Debug("state transition",
			zap.String("from", state.String()),
			zap.String("to", to.String()),
			zap.Int("link", links))
		state = to
	}

	fail := func(err error) (RunState, error) {
		// 总时限超时覆盖其它错误语义
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = types.NewError(types.ErrTimeout, "run deadline exceeded").
				WithStep(state.String()).
				WithCause(err)
		}
		transition(StateFailed)
		s.collector.RecordRun("failed", links, time.Since(start))
		logger.Error("run failed",
			zap.Int("links", links),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return StateFailed, err
	}

	done := func() (RunState, error) {
		transition(StateDone)
		s.collector.RecordRun("done", links, time.Since(start))
		logger.Info("run complete",
			zap.Int("links", links),
			zap.Duration("elapsed", time.Since(start)))
		return StateDone, nil
	}

	logger.Info("run started", zap.String("quiz_url", req.URL))

	// 凭证不对就什么都不做：不开浏览器、不调模型
	transition(StateVerifying)
	if err := s.verifier.Verify(req.Email, req.Secret); err != nil {
		return fail(err)
	}

	currentURL := req.URL
	for currentURL != "" && links < s.config.MaxLinks {
		links++
		logger.Info("processing chain link",
			zap.Int("link", links),
			zap.String("url", currentURL))

		transition(StateFetching)
		pageText, err := s.fetchWithRetry(ctx, logger, currentURL)
		if err != nil {
			return fail(err)
		}

		transition(StateInterpreting)
		task, err := step(s, "interpreting", func() (*types.QuizTask, error) {
			return s.interpreter.Interpret(ctx, currentURL, pageText)
		})
		if err != nil {
			return fail(err)
		}

		transition(StateRetrieving)
		data, err := step(s, "retrieving", func() ([]types.RetrievedData, error) {
			return s.retriever.FetchAll(ctx, task.DataURLs)
		})
		if err != nil {
			return fail(err)
		}

		transition(StateComputing)
		answer, err := step(s, "computing", func() (types.Answer, error) {
			return s.computer.Compute(ctx, task, data, pageText)
		})
		if err != nil {
			return fail(err)
		}

		transition(StateSubmitting)
		result, err := step(s, "submitting", func() (*types.SubmissionResult, error) {
			return s.submitter.Submit(ctx, answer, currentURL)
		})
		if err != nil {
			return fail(err)
		}

		next := ""
		if result.Correct {
			logger.Info("answer correct", zap.Int("link", links))
			next = result.NextURL
		} else {
			logger.Warn("answer incorrect",
				zap.Int("link", links),
				zap.String("reason", result.Reason))
			// 端点给了新 URL 时继续前进，否则结束
			if result.NextURL != "" && result.NextURL != currentURL {
				next = result.NextURL
			}
		}

		if next == "" {
			return done()
		}

		// 进入下一环节，不带上一环节的任何任务/数据状态
		transition(StateChaining)
		currentURL = next

		select {
		case <-ctx.Done():
			return fail(ctx.Err())
		case <-time.After(s.config.LinkPause):
		}
	}

	if links >= s.config.MaxLinks {
		logger.Warn("chain link budget exhausted", zap.Int("max_links", s.config.MaxLinks))
	}
	return done()
}

// step 记录单个管线步骤的耗时
func step[T any](s *Solver, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	result, err := fn()
	s.collector.RecordStep(name, time.Since(start))
	return result, err
}

// fetchWithRetry 抓取页面，可重试错误按配置重试
func (s *Solver) fetchWithRetry(ctx context.Context, logger *zap.Logger, url string) (string, error) {
	start := time.Now()
	defer func() { s.collector.RecordStep("fetching", time.Since(start)) }()

	var lastErr error
	for attempt := 0; attempt <= s.config.FetchRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying page fetch",
				zap.Int("attempt", attempt),
				zap.Error(lastErr))
		}

		text, err := s.fetcher.Fetch(ctx, url)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !types.IsRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

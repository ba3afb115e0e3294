// Package quizflow provides a top-level convenience entry point for building
// a quiz-solving pipeline with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/quizflow"
//
//	s, cleanup, err := quizflow.New(quizflow.WithCredentials(email, secret), quizflow.WithAPIKey(key))
//	defer cleanup()
//	state, err := s.Run(ctx, types.QuizRequest{Email: email, Secret: secret, URL: quizURL})
//
// This is a thin wrapper over the solver, browser, retrieval and provider
// packages; the HTTP service in cmd/quizflow wires the same parts itself.
package quizflow

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/browser"
	"github.com/BaSui01/quizflow/config"
	"github.com/BaSui01/quizflow/internal/metrics"
	"github.com/BaSui01/quizflow/providers"
	claude "github.com/BaSui01/quizflow/providers/anthropic"
	"github.com/BaSui01/quizflow/retrieval"
	"github.com/BaSui01/quizflow/solver"
)

// Option configures the pipeline created by [New].
type Option func(*options)

type options struct {
	email  string
	secret string
	apiKey string
	model  string
	logger *zap.Logger
}

// WithCredentials sets the student identity used for verification and
// submission.
func WithCredentials(email, secret string) Option {
	return func(o *options) {
		o.email = email
		o.secret = secret
	}
}

// WithAPIKey sets the Anthropic API key. Defaults to ANTHROPIC_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New builds a ready-to-run [solver.Solver] with default configuration.
// The returned cleanup releases the headless browser and must be called when
// the solver is no longer needed.
func New(opts ...Option) (*solver.Solver, func() error, error) {
	o := &options{
		email:  os.Getenv("STUDENT_EMAIL"),
		secret: os.Getenv("STUDENT_SECRET"),
		apiKey: os.Getenv("ANTHROPIC_API_KEY"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.email == "" || o.secret == "" {
		return nil, nil, fmt.Errorf("quizflow: student credentials are required (WithCredentials or STUDENT_EMAIL/STUDENT_SECRET)")
	}
	if o.apiKey == "" {
		return nil, nil, fmt.Errorf("quizflow: anthropic API key is required (WithAPIKey or ANTHROPIC_API_KEY)")
	}

	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := config.DefaultConfig()
	if o.model != "" {
		cfg.LLM.Model = o.model
	}

	provider := claude.NewClaudeProvider(providers.ClaudeConfig{
		APIKey:  o.apiKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	fetcher, err := browser.NewChromeFetcher(browser.Config{
		Headless:    cfg.Browser.Headless,
		NavTimeout:  cfg.Browser.NavTimeout,
		SettleDelay: cfg.Browser.SettleDelay,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("quizflow: create browser fetcher: %w", err)
	}

	downloader := retrieval.NewDownloader(retrieval.Config{
		Timeout:     cfg.Retrieval.Timeout,
		Concurrency: cfg.Retrieval.Concurrency,
		MaxBytes:    cfg.Retrieval.MaxBytes,
	}, logger)

	s := solver.New(
		solver.NewVerifier(o.email, o.secret),
		fetcher,
		solver.NewInterpreter(provider, cfg.LLM.Model, cfg.Solver.InterpretRetries, logger),
		downloader,
		solver.NewComputer(provider, cfg.LLM.Model, cfg.Solver.ComputeRetries, logger),
		solver.NewSubmitter(o.email, o.secret, cfg.Solver.SubmitRetries, cfg.Solver.SubmitTimeout, logger),
		metrics.NewCollector("quizflow", nil, logger),
		solver.Config{
			RunTimeout:   cfg.Solver.RunTimeout,
			MaxLinks:     cfg.Solver.MaxLinks,
			LinkPause:    cfg.Solver.LinkPause,
			FetchRetries: cfg.Solver.FetchRetries,
		},
		logger,
	)

	return s, fetcher.Close, nil
}

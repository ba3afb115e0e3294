// =============================================================================
// 📦 QuizFlow 页面抓取器
// =============================================================================
// 基于 chromedp 的无头浏览器抓取，支持 JS 渲染页面
// =============================================================================
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

// Config 浏览器抓取配置
type Config struct {
	// 是否无头模式
	Headless bool
	// 单页导航 + 渲染超时
	NavTimeout time.Duration
	// 页面加载后的额外等待（等 JS 渲染完成）
	SettleDelay time.Duration
	// Chrome 可执行文件路径（可选）
	ExecPath string
	// 自定义 UA（可选）
	UserAgent string
}

// Fetcher 抓取渲染后的页面文本
type Fetcher interface {
	// Fetch 导航到 URL 并返回渲染后的可见文本
	Fetch(ctx context.Context, url string) (string, error)

	// Close 释放浏览器资源
	Close() error
}

// ChromeFetcher 基于 chromedp 的 Fetcher 实现
// 每次 Fetch 在共享浏览器进程上开新标签页，互不干扰
type ChromeFetcher struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	config      Config
	logger      *zap.Logger
	mu          sync.Mutex
	closed      bool
}

// NewChromeFetcher 创建 chromedp 抓取器
func NewChromeFetcher(config Config, logger *zap.Logger) (*ChromeFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.NavTimeout <= 0 {
		config.NavTimeout = 30 * time.Second
	}
	if config.SettleDelay < 0 {
		config.SettleDelay = 0
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	logger.Info("chromedp fetcher ready",
		zap.Bool("headless", config.Headless),
		zap.Duration("nav_timeout", config.NavTimeout),
		zap.Duration("settle_delay", config.SettleDelay))

	return &ChromeFetcher{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		config:      config,
		logger:      logger.With(zap.String("component", "chrome_fetcher")),
	}, nil
}

// Fetch 导航到 URL，等待渲染完成后返回页面可见文本
// 页面如果带有 #result 容器且非空，以其内容为准
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return "", types.NewError(types.ErrFetch, "fetcher already closed")
	}
	f.mu.Unlock()

	tabCtx, tabCancel := chromedp.NewContext(f.allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, f.config.NavTimeout)
	defer cancel()

	// 上游 context 取消时同步取消抓取
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	f.logger.Debug("fetching page", zap.String("url", url))

	var bodyText, resultText string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.config.SettleDelay),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &bodyText),
		chromedp.Evaluate(`(function(){
			var el = document.querySelector("#result");
			return el ? el.innerText : "";
		})()`, &resultText),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", mapFetchError(url, ctx.Err())
		}
		return "", mapFetchError(url, err)
	}

	text := pickPageText(bodyText, resultText)
	if strings.TrimSpace(text) == "" {
		return "", types.NewError(types.ErrFetch, fmt.Sprintf("page rendered empty: %s", url))
	}

	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.Int("chars", len(text)))
	return text, nil
}

// Close 关闭浏览器进程
func (f *ChromeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.logger.Info("closing chromedp fetcher")
	f.allocCancel()
	return nil
}

// pickPageText 选择页面文本：#result 非空时优先
func pickPageText(bodyText, resultText string) string {
	if strings.TrimSpace(resultText) != "" {
		return resultText
	}
	return bodyText
}

// mapFetchError 将底层错误映射为结构化抓取错误
func mapFetchError(url string, err error) *types.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return types.NewError(types.ErrFetchTimeout, fmt.Sprintf("fetch timed out: %s", url)).
			WithRetryable(true).
			WithCause(err)
	}
	return types.NewError(types.ErrFetch, fmt.Sprintf("fetch failed: %s", url)).
		WithRetryable(true).
		WithCause(err)
}

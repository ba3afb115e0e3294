package retrieval

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/quizflow/types"
)

// Config 数据下载配置
type Config struct {
	// 单文件下载超时
	Timeout time.Duration
	// 并发下载上限
	Concurrency int
	// 单文件大小上限（字节）
	MaxBytes int64
}

// Downloader 并发下载任务引用的数据文件并解析为文本
type Downloader struct {
	client  *http.Client
	parsers *ParserRegistry
	config  Config
	logger  *zap.Logger
}

// NewDownloader 创建下载器
func NewDownloader(config Config, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 10 << 20
	}

	return &Downloader{
		client:  &http.Client{Timeout: config.Timeout},
		parsers: NewParserRegistry(),
		config:  config,
		logger:  logger.With(zap.String("component", "downloader")),
	}
}

// FetchAll 并发下载全部 URL，保持输入顺序返回
// 单个文件失败不会中断整体：失败条目以占位文本记录，供后续计算参考。
// 所有文件都失败时返回 DATA_FETCH 错误。
func (d *Downloader) FetchAll(ctx context.Context, urls []string) ([]types.RetrievedData, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	results := make([]types.RetrievedData, len(urls))
	failures := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			data, err := d.fetchOne(gctx, url)
			if err != nil {
				d.logger.Warn("data download failed",
					zap.String("url", url),
					zap.Error(err))
				failures[i] = err
				// 失败也留占位，计算步骤可以知道缺了什么
				results[i] = types.RetrievedData{
					SourceURL:  url,
					ParsedText: fmt.Sprintf("error downloading %s: %v", url, err),
				}
				return nil
			}
			results[i] = data
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, types.NewError(types.ErrDataFetch, "data retrieval aborted").WithCause(err)
	}

	failed := 0
	for _, ferr := range failures {
		if ferr != nil {
			failed++
		}
	}
	if failed == len(urls) {
		return nil, types.NewError(types.ErrDataFetch,
			fmt.Sprintf("all %d data downloads failed", len(urls))).
			WithCause(failures[0]).
			WithRetryable(true)
	}

	d.logger.Info("data retrieval complete",
		zap.Int("total", len(urls)),
		zap.Int("failed", failed))
	return results, nil
}

// fetchOne 下载并解析单个文件
func (d *Downloader) fetchOne(ctx context.Context, url string) (types.RetrievedData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.RetrievedData{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return types.RetrievedData{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.RetrievedData{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	// 限制读取大小，防止超大文件拖垮内存
	raw, err := io.ReadAll(io.LimitReader(resp.Body, d.config.MaxBytes+1))
	if err != nil {
		return types.RetrievedData{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > d.config.MaxBytes {
		return types.RetrievedData{}, fmt.Errorf("file exceeds %d byte limit", d.config.MaxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	parsed, err := d.parsers.Parse(url, contentType, raw)
	if err != nil {
		return types.RetrievedData{}, err
	}

	return types.RetrievedData{
		SourceURL:   url,
		ContentType: contentType,
		Raw:         raw,
		ParsedText:  parsed,
	}, nil
}

// Parsers 暴露解析器注册表，便于注册自定义格式
func (d *Downloader) Parsers() *ParserRegistry {
	return d.parsers
}

package solver

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/internal/metrics"
	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/types"
)

// stubProvider 按调用顺序回放预置的回复与错误
type stubProvider struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	prompts []string
	systems []string
}

func (p *stubProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	p.calls++
	if len(req.Messages) > 0 {
		p.prompts = append(p.prompts, req.Messages[len(req.Messages)-1].Content)
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			p.systems = append(p.systems, m.Content)
		}
	}

	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}

	reply := ""
	if i < len(p.replies) {
		reply = p.replies[i]
	} else if len(p.replies) > 0 {
		reply = p.replies[len(p.replies)-1]
	}
	return &llm.ChatResponse{
		Model: req.Model,
		Choices: []llm.ChatChoice{{
			Message: llm.Message{Role: llm.RoleAssistant, Content: reply},
		}},
	}, nil
}

func (p *stubProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeFetcher 按 URL 返回预置页面文本
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	err   error
	block bool // 阻塞到 ctx 取消，用于超时测试
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

func (f *fakeFetcher) Close() error { return nil }

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeInterpreter struct {
	tasks map[string]*types.QuizTask
	err   error
	calls int
}

func (f *fakeInterpreter) Interpret(_ context.Context, pageURL, _ string) (*types.QuizTask, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks[pageURL], nil
}

type fakeRetriever struct {
	data  []types.RetrievedData
	err   error
	calls int
	urls  [][]string
}

func (f *fakeRetriever) FetchAll(_ context.Context, urls []string) ([]types.RetrievedData, error) {
	f.calls++
	f.urls = append(f.urls, urls)
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type fakeComputer struct {
	answer types.Answer
	err    error
	calls  int
}

func (f *fakeComputer) Compute(_ context.Context, task *types.QuizTask, _ []types.RetrievedData, _ string) (types.Answer, error) {
	f.calls++
	if f.err != nil {
		return types.Answer{}, f.err
	}
	a := f.answer
	if a.SubmitURL == "" {
		a.SubmitURL = task.SubmitURL
	}
	return a, nil
}

type fakeSubmitter struct {
	results []*types.SubmissionResult
	err     error
	calls   []string
}

func (f *fakeSubmitter) Submit(_ context.Context, _ types.Answer, quizURL string) (*types.SubmissionResult, error) {
	i := len(f.calls)
	f.calls = append(f.calls, quizURL)
	if f.err != nil {
		return nil, f.err
	}
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

func newTestCollector() *metrics.Collector {
	return metrics.NewCollector("test", prometheus.NewRegistry(), zap.NewNop())
}

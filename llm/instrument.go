package llm

import (
	"context"
	"time"
)

// CallRecorder 接收每次 LLM 调用的指标
type CallRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int)
}

// instrumentedProvider 在 Completion 调用外层记录耗时、结果与 token 用量
type instrumentedProvider struct {
	inner    Provider
	recorder CallRecorder
}

// NewInstrumentedProvider wraps a Provider so every Completion call is
// reported to the recorder. A nil recorder returns the provider unchanged.
func NewInstrumentedProvider(inner Provider, recorder CallRecorder) Provider {
	if recorder == nil {
		return inner
	}
	return &instrumentedProvider{inner: inner, recorder: recorder}
}

func (p *instrumentedProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
	}
	model := req.Model
	var promptTokens, completionTokens int
	if resp != nil {
		if resp.Model != "" {
			model = resp.Model
		}
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	}
	p.recorder.RecordLLMRequest(p.inner.Name(), model, status, time.Since(start), promptTokens, completionTokens)

	return resp, err
}

func (p *instrumentedProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

func (p *instrumentedProvider) Name() string { return p.inner.Name() }

package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

// Submitter posts answers to the quiz's submission endpoint. Network and 5xx
// failures are retried with exponential backoff; 4xx responses are final
// since resubmitting the same payload cannot change the verdict.
type Submitter struct {
	client     *http.Client
	email      string
	secret     string
	maxRetries int
	logger     *zap.Logger
}

// submissionPayload is the wire format the grading endpoint expects.
type submissionPayload struct {
	Email  string          `json:"email"`
	Secret string          `json:"secret"`
	URL    string          `json:"url"`
	Answer json.RawMessage `json:"answer"`
}

// NewSubmitter creates a Submitter. maxRetries bounds re-attempts after the
// first; timeout covers a single HTTP exchange.
func NewSubmitter(email, secret string, maxRetries int, timeout time.Duration, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Submitter{
		client:     &http.Client{Timeout: timeout},
		email:      email,
		secret:     secret,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("component", "submitter")),
	}
}

// Submit posts the answer and returns the endpoint's verdict.
// quizURL identifies which quiz the answer belongs to.
func (s *Submitter) Submit(ctx context.Context, answer types.Answer, quizURL string) (*types.SubmissionResult, error) {
	payload, err := json.Marshal(submissionPayload{
		Email:  s.email,
		Secret: s.secret,
		URL:    quizURL,
		Answer: answer.Value,
	})
	if err != nil {
		return nil, types.NewError(types.ErrSubmission, "marshal submission payload").WithCause(err)
	}

	// 不打印 payload：里面有共享密钥
	s.logger.Info("submitting answer",
		zap.String("submit_url", answer.SubmitURL),
		zap.String("quiz_url", quizURL))

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 500 * time.Millisecond

	result, err := backoff.Retry(ctx, func() (*types.SubmissionResult, error) {
		return s.post(ctx, answer.SubmitURL, payload)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(s.maxRetries+1)),
	)
	if err != nil {
		return nil, types.NewError(types.ErrSubmission,
			fmt.Sprintf("submission to %s failed", answer.SubmitURL)).
			WithCause(err).
			WithRetryable(false)
	}

	s.logger.Info("submission acknowledged",
		zap.Bool("correct", result.Correct),
		zap.Bool("has_next", result.NextURL != ""))
	return result, nil
}

// post performs one submission attempt. Errors wrapped with
// backoff.Permanent stop the retry loop.
func (s *Submitter) post(ctx context.Context, submitURL string, payload []byte) (*types.SubmissionResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("submit endpoint returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("submit endpoint rejected request: %d %s",
			resp.StatusCode, truncate(string(body), 200)))
	}

	var result types.SubmissionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("malformed submit response: %w", err)
	}
	return &result, nil
}

package solver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

type solverFixture struct {
	verifier    *Verifier
	fetcher     *fakeFetcher
	interpreter *fakeInterpreter
	retriever   *fakeRetriever
	computer    *fakeComputer
	submitter   *fakeSubmitter
	config      Config
}

func newSolverFixture() *solverFixture {
	return &solverFixture{
		verifier: NewVerifier("student@example.com", "s3cret"),
		fetcher:  &fakeFetcher{pages: map[string]string{}},
		interpreter: &fakeInterpreter{
			tasks: map[string]*types.QuizTask{},
		},
		retriever: &fakeRetriever{},
		computer: &fakeComputer{
			answer: types.Answer{Value: json.RawMessage("42")},
		},
		submitter: &fakeSubmitter{},
		config: Config{
			RunTimeout: 5 * time.Second,
			MaxLinks:   20,
			LinkPause:  time.Millisecond,
		},
	}
}

func (f *solverFixture) build() *Solver {
	return New(
		f.verifier,
		f.fetcher,
		f.interpreter,
		f.retriever,
		f.computer,
		f.submitter,
		newTestCollector(),
		f.config,
		zap.NewNop(),
	)
}

func (f *solverFixture) addQuiz(url string) {
	f.fetcher.pages[url] = "quiz page at " + url
	f.interpreter.tasks[url] = &types.QuizTask{
		Question:     "question at " + url,
		SubmitURL:    url + "/submit",
		AnswerFormat: types.FormatNumber,
	}
}

func validRequest() types.QuizRequest {
	return types.QuizRequest{
		Email:  "student@example.com",
		Secret: "s3cret",
		URL:    "https://example.com/quiz/1",
	}
}

func TestSolverSingleLinkCorrect(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.submitter.results = []*types.SubmissionResult{{Correct: true}}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	assert.Equal(t, []string{"https://example.com/quiz/1"}, f.fetcher.calls)
	assert.Equal(t, 1, f.interpreter.calls)
	assert.Equal(t, 1, f.retriever.calls)
	assert.Equal(t, 1, f.computer.calls)
	assert.Equal(t, []string{"https://example.com/quiz/1"}, f.submitter.calls)
}

func TestSolverChainsToNextLink(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.addQuiz("https://example.com/quiz/2")
	f.submitter.results = []*types.SubmissionResult{
		{Correct: true, NextURL: "https://example.com/quiz/2"},
		{Correct: true},
	}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)

	// 每个环节各走一遍完整管线
	assert.Equal(t, []string{
		"https://example.com/quiz/1",
		"https://example.com/quiz/2",
	}, f.fetcher.calls)
	assert.Equal(t, 2, f.interpreter.calls)
	assert.Equal(t, 2, f.computer.calls)
	assert.Equal(t, []string{
		"https://example.com/quiz/1",
		"https://example.com/quiz/2",
	}, f.submitter.calls)
}

func TestSolverAuthFailureTouchesNothing(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")

	req := validRequest()
	req.Secret = "wrong"

	state, err := f.build().Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, types.ErrAuthentication, types.GetErrorCode(err))

	// 凭证错误时不碰浏览器、不调模型、不提交
	assert.Zero(t, f.fetcher.fetchCount())
	assert.Zero(t, f.interpreter.calls)
	assert.Zero(t, f.retriever.calls)
	assert.Zero(t, f.computer.calls)
	assert.Empty(t, f.submitter.calls)
}

func TestSolverIncorrectWithoutNextURLEndsRun(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.submitter.results = []*types.SubmissionResult{{Correct: false, Reason: "off by one"}}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.Len(t, f.submitter.calls, 1)
}

func TestSolverIncorrectWithNewURLContinues(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.addQuiz("https://example.com/quiz/2")
	f.submitter.results = []*types.SubmissionResult{
		{Correct: false, NextURL: "https://example.com/quiz/2", Reason: "try the next one"},
		{Correct: true},
	}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.Len(t, f.submitter.calls, 2)
}

func TestSolverIncorrectWithSameURLEndsRun(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.submitter.results = []*types.SubmissionResult{
		{Correct: false, NextURL: "https://example.com/quiz/1", Reason: "wrong"},
	}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	// 同一 URL 不重复提交，避免死循环
	assert.Len(t, f.submitter.calls, 1)
}

func TestSolverLinkBudget(t *testing.T) {
	f := newSolverFixture()
	f.config.MaxLinks = 3
	for _, u := range []string{
		"https://example.com/quiz/1",
		"https://example.com/quiz/2",
		"https://example.com/quiz/3",
		"https://example.com/quiz/4",
	} {
		f.addQuiz(u)
	}
	f.submitter.results = []*types.SubmissionResult{
		{Correct: true, NextURL: "https://example.com/quiz/2"},
		{Correct: true, NextURL: "https://example.com/quiz/3"},
		{Correct: true, NextURL: "https://example.com/quiz/4"},
	}

	state, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, state)
	assert.Len(t, f.submitter.calls, 3)
}

func TestSolverDeadlineSurfacesTimeout(t *testing.T) {
	f := newSolverFixture()
	f.config.RunTimeout = 50 * time.Millisecond
	f.fetcher.block = true

	state, err := f.build().Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, types.ErrTimeout, types.GetErrorCode(err))
}

func TestSolverStepFailurePropagates(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.interpreter.err = types.NewError(types.ErrInterpretation, "no task found")

	state, err := f.build().Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, types.ErrInterpretation, types.GetErrorCode(err))
	assert.Zero(t, f.computer.calls)
	assert.Empty(t, f.submitter.calls)
}

func TestSolverFetchRetry(t *testing.T) {
	f := newSolverFixture()
	f.config.FetchRetries = 2
	f.fetcher.err = types.NewError(types.ErrFetch, "blank page").WithRetryable(true)

	state, err := f.build().Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, types.ErrFetch, types.GetErrorCode(err))
	assert.Equal(t, 3, f.fetcher.fetchCount())
}

func TestSolverFetchNoRetryOnPermanentError(t *testing.T) {
	f := newSolverFixture()
	f.config.FetchRetries = 2
	f.fetcher.err = types.NewError(types.ErrFetch, "bad url")

	state, err := f.build().Run(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, 1, f.fetcher.fetchCount())
}

func TestSolverPassesDataURLsToRetriever(t *testing.T) {
	f := newSolverFixture()
	f.addQuiz("https://example.com/quiz/1")
	f.interpreter.tasks["https://example.com/quiz/1"].DataURLs = []string{
		"https://example.com/data.csv",
	}
	f.submitter.results = []*types.SubmissionResult{{Correct: true}}

	_, err := f.build().Run(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, f.retriever.urls, 1)
	assert.Equal(t, []string{"https://example.com/data.csv"}, f.retriever.urls[0])
}

func TestRunStateTerminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateIdle.Terminal())
	assert.False(t, StateChaining.Terminal())
}

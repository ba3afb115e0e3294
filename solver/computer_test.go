package solver

import (
	"context"
	"encoding/json"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/quizflow/types"
)

func TestParseAnswerNumber(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"bare integer", "42", "42", false},
		{"negative", "-17", "-17", false},
		{"float", "3.14", "3.14", false},
		{"embedded in prose", "The answer is 12345.", "12345", false},
		{"trailing dot", "12.", "12", false},
		{"no number", "there is no answer", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnswer(tt.text, types.FormatNumber)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestParseAnswerBoolean(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"true", "true"},
		{"TRUE", "true"},
		{"yes", "true"},
		{"1", "true"},
		{"correct", "true"},
		{"false", "false"},
		{"no", "false"},
		{"maybe", "false"},
		{"", "false"},
	}

	for _, tt := range tests {
		got, err := ParseAnswer(tt.text, types.FormatBoolean)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "input %q", tt.text)
	}
}

func TestParseAnswerJSON(t *testing.T) {
	got, err := ParseAnswer("Here you go:\n{\"total\": 99}", types.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 99}`, string(got))

	_, err = ParseAnswer("not an object at all", types.FormatJSON)
	require.Error(t, err)
}

func TestParseAnswerArray(t *testing.T) {
	got, err := ParseAnswer("the list is [1, 2, 3]", types.FormatArray)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3]`, string(got))

	_, err = ParseAnswer("no brackets here", types.FormatArray)
	require.Error(t, err)
}

func TestParseAnswerString(t *testing.T) {
	got, err := ParseAnswer(`"hello world"`, types.FormatString)
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(got, &s))
	assert.Equal(t, "hello world", s)
}

// 任意输入下，成功解析出的答案必须是合法 JSON；
// boolean 与 string 两种格式永不报错。
func TestParseAnswerAlwaysValidJSON(t *testing.T) {
	formats := []types.AnswerFormat{
		types.FormatNumber,
		types.FormatString,
		types.FormatBoolean,
		types.FormatArray,
		types.FormatJSON,
	}

	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		format := rapid.SampledFrom(formats).Draw(t, "format")

		value, err := ParseAnswer(text, format)
		if format == types.FormatBoolean || format == types.FormatString {
			if err != nil {
				t.Fatalf("format %q must not fail, got %v", format, err)
			}
		}
		if err != nil {
			return
		}
		if !json.Valid(value) {
			t.Fatalf("ParseAnswer(%q, %q) produced invalid JSON %q", text, format, value)
		}
	})
}

func TestComputerHappyPath(t *testing.T) {
	provider := &stubProvider{replies: []string{"12345"}}
	c := NewComputer(provider, "claude-sonnet-4-5", 1, zap.NewNop())

	task := &types.QuizTask{
		Question:     "sum?",
		SubmitURL:    "https://example.com/submit",
		AnswerFormat: types.FormatNumber,
	}
	answer, err := c.Compute(context.Background(), task, nil, "page text")
	require.NoError(t, err)
	assert.Equal(t, "12345", string(answer.Value))
	assert.Equal(t, "https://example.com/submit", answer.SubmitURL)
	assert.Equal(t, 1, provider.callCount())
}

func TestComputerShapeCorrection(t *testing.T) {
	provider := &stubProvider{replies: []string{
		"I'm not sure about that",
		"{\"total\": 7}",
	}}
	c := NewComputer(provider, "claude-sonnet-4-5", 1, zap.NewNop())

	task := &types.QuizTask{
		Question:     "totals?",
		SubmitURL:    "https://example.com/submit",
		AnswerFormat: types.FormatJSON,
	}
	answer, err := c.Compute(context.Background(), task, nil, "page text")
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 7}`, string(answer.Value))
	assert.Equal(t, 2, provider.callCount())

	// 纠偏提示要告诉模型期望的格式
	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[1], "could not be parsed")
	assert.Contains(t, provider.prompts[1], `"json"`)
}

func TestComputerShapeMismatchExhausted(t *testing.T) {
	provider := &stubProvider{replies: []string{"still not a number"}}
	c := NewComputer(provider, "claude-sonnet-4-5", 1, zap.NewNop())

	task := &types.QuizTask{
		Question:     "count?",
		SubmitURL:    "https://example.com/submit",
		AnswerFormat: types.FormatNumber,
	}
	_, err := c.Compute(context.Background(), task, nil, "page")
	require.Error(t, err)
	assert.Equal(t, types.ErrShapeMismatch, types.GetErrorCode(err))
	assert.Equal(t, 2, provider.callCount())
}

func TestComputerProviderError(t *testing.T) {
	provider := &stubProvider{errs: []error{types.NewError(types.ErrUpstreamError, "boom")}}
	c := NewComputer(provider, "claude-sonnet-4-5", 1, zap.NewNop())

	task := &types.QuizTask{Question: "q", SubmitURL: "https://s", AnswerFormat: types.FormatString}
	_, err := c.Compute(context.Background(), task, nil, "page")
	require.Error(t, err)
	assert.Equal(t, types.ErrComputation, types.GetErrorCode(err))
	assert.Equal(t, 1, provider.callCount())
}

func TestComputerPromptUsesDataFiles(t *testing.T) {
	provider := &stubProvider{replies: []string{"1"}}
	c := NewComputer(provider, "claude-sonnet-4-5", 0, zap.NewNop())

	task := &types.QuizTask{Question: "q", SubmitURL: "https://s", AnswerFormat: types.FormatNumber}
	data := []types.RetrievedData{
		{SourceURL: "https://example.com/a.csv", ParsedText: "col1,col2\n1,2"},
	}
	_, err := c.Compute(context.Background(), task, data, "PAGE-FALLBACK")
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "https://example.com/a.csv")
	assert.Contains(t, provider.prompts[0], "col1,col2")
	// 有数据文件时不回退到页面文本
	assert.NotContains(t, provider.prompts[0], "PAGE-FALLBACK")
}

func TestRenderDataInfoUnparsedBinary(t *testing.T) {
	data := []types.RetrievedData{
		{SourceURL: "https://example.com/report.xlsx", Raw: []byte{0x50, 0x4b, 0x03, 0x04}},
	}
	out := renderDataInfo(data, "PAGE")

	assert.Contains(t, out, "https://example.com/report.xlsx")
	assert.Contains(t, out, "unparsed binary, 4 bytes")
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{"short passthrough", "abc", 10, "abc"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"multibyte boundary", "ab中文", 5, "ab中"},
		{"mid-rune cut", "ab中文", 4, "ab"},
		{"all multibyte mid-rune", "中文", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.s, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

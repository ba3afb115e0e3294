package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/llm"
	"github.com/BaSui01/quizflow/types"
)

// Truncation limits keep prompts inside the model's context window. The
// page/data excerpts mirror what the grading endpoint actually feeds quizzes
// from, so cutting tails is safe.
const (
	maxDataChars = 2000
	maxPageChars = 2000
)

var (
	numberRe    = regexp.MustCompile(`-?\d+\.?\d*`)
	jsonArrayRe = regexp.MustCompile(`(?s)\[.*\]`)
)

// Computer asks the LLM collaborator for the answer and validates its shape
// locally before it is allowed anywhere near the Submitter.
type Computer struct {
	provider   llm.Provider
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewComputer creates a Computer. maxRetries is the number of
// shape-correction re-prompts after a malformed answer.
func NewComputer(provider llm.Provider, model string, maxRetries int, logger *zap.Logger) *Computer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Computer{
		provider:   provider,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("component", "computer")),
	}
}

// Compute produces the answer for a task. On a shape mismatch it re-prompts
// once with a correction note; a still-malformed reply surfaces
// SHAPE_MISMATCH.
func (c *Computer) Compute(ctx context.Context, task *types.QuizTask, data []types.RetrievedData, pageText string) (types.Answer, error) {
	prompt := buildAnswerPrompt(task, data, pageText)
	format := task.AnswerFormat.Normalize()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			prompt = prompt + "\n\n" + shapeCorrectionNote(format, lastErr)
			c.logger.Warn("answer shape mismatch, re-prompting",
				zap.Int("attempt", attempt),
				zap.String("format", string(format)),
				zap.Error(lastErr))
		}

		resp, err := c.provider.Completion(ctx, &llm.ChatRequest{
			Model:    c.model,
			Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		})
		if err != nil {
			return types.Answer{}, types.NewError(types.ErrComputation, "answer computation failed").WithCause(err)
		}
		text, err := llm.FirstText(resp)
		if err != nil {
			lastErr = err
			continue
		}

		value, err := ParseAnswer(text, format)
		if err != nil {
			lastErr = err
			continue
		}

		c.logger.Info("answer computed",
			zap.String("format", string(format)),
			zap.Int("answer_bytes", len(value)))
		return types.Answer{Value: value, SubmitURL: task.SubmitURL}, nil
	}

	return types.Answer{}, types.NewError(types.ErrShapeMismatch,
		fmt.Sprintf("answer did not match format %q after %d attempts", format, c.maxRetries+1)).
		WithCause(lastErr)
}

// ParseAnswer validates the model's raw reply against the expected format and
// returns it as canonical JSON.
func ParseAnswer(text string, format types.AnswerFormat) (json.RawMessage, error) {
	text = strings.TrimSpace(text)

	switch format.Normalize() {
	case types.FormatNumber:
		match := numberRe.FindString(text)
		if match == "" {
			return nil, fmt.Errorf("no numeric value in %q", truncate(text, 80))
		}
		// "12." is a valid regex hit but not valid JSON.
		match = strings.TrimSuffix(match, ".")
		if !json.Valid([]byte(match)) {
			return nil, fmt.Errorf("numeric candidate %q is not a valid number", match)
		}
		return json.RawMessage(match), nil

	case types.FormatBoolean:
		switch strings.ToLower(text) {
		case "true", "yes", "1", "correct":
			return json.RawMessage("true"), nil
		default:
			return json.RawMessage("false"), nil
		}

	case types.FormatJSON:
		blob := jsonObjectRe.FindString(text)
		if blob == "" {
			blob = text
		}
		if !json.Valid([]byte(blob)) {
			return nil, fmt.Errorf("reply is not valid JSON: %q", truncate(blob, 80))
		}
		return json.RawMessage(blob), nil

	case types.FormatArray:
		blob := jsonArrayRe.FindString(text)
		if blob == "" {
			blob = text
		}
		if !json.Valid([]byte(blob)) {
			return nil, fmt.Errorf("reply is not a valid JSON array: %q", truncate(blob, 80))
		}
		return json.RawMessage(blob), nil

	default: // string
		text = strings.TrimPrefix(text, `"`)
		text = strings.TrimSuffix(text, `"`)
		encoded, err := json.Marshal(text)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(encoded), nil
	}
}

func buildAnswerPrompt(task *types.QuizTask, data []types.RetrievedData, pageText string) string {
	dataInfo := renderDataInfo(data, pageText)

	keyDetails := task.KeyDetails
	if keyDetails == "" {
		keyDetails = "None"
	}

	return fmt.Sprintf(`Solve this data analysis quiz and provide the EXACT answer.

QUESTION: %s

ANALYSIS NEEDED: %s

EXPECTED FORMAT: %s

DATA:
%s

KEY DETAILS: %s

Instructions:
1. Perform the required analysis/calculation
2. Provide ONLY the answer in the exact format specified
3. If format is "number": respond with just the number (e.g., 12345)
4. If format is "string": respond with just the text (e.g., "hello")
5. If format is "boolean": respond with true or false
6. If format is "json": respond with valid JSON object
7. Do NOT include explanations, just the answer

YOUR ANSWER:`, task.Question, task.AnalysisNeeded, task.AnswerFormat.Normalize(), dataInfo, keyDetails)
}

// renderDataInfo lays out the retrieved artifacts for the prompt, falling
// back to the page text when no data files were referenced.
func renderDataInfo(data []types.RetrievedData, pageText string) string {
	if len(data) == 0 {
		return "Page text: " + truncate(pageText, maxPageChars)
	}

	var b strings.Builder
	for i, d := range data {
		if i > 0 {
			b.WriteString("\n\n")
		}
		text := d.ParsedText
		if text == "" && len(d.Raw) > 0 {
			// 下载成功但没有文本表示，至少告诉模型文件存在及其大小
			text = fmt.Sprintf("(unparsed binary, %d bytes)", len(d.Raw))
		}
		fmt.Fprintf(&b, "File %d (%s):\n%s", i+1, d.SourceURL, truncate(text, maxDataChars))
	}
	return b.String()
}

func shapeCorrectionNote(format types.AnswerFormat, parseErr error) string {
	return fmt.Sprintf(
		"NOTE: Your previous reply could not be parsed as %q (%v). Respond again with ONLY the answer in that exact format, nothing else.",
		format, parseErr)
}

// truncate 截断到 n 字节以内，且不会切断多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

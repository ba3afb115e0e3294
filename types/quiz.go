package types

import "encoding/json"

// QuizRequest is the inbound request that starts an orchestration run.
// It is immutable; only the URL survives into the chain loop.
type QuizRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// AnswerFormat is the answer shape the quiz expects, as reported by the
// interpretation step.
type AnswerFormat string

const (
	FormatNumber  AnswerFormat = "number"
	FormatString  AnswerFormat = "string"
	FormatBoolean AnswerFormat = "boolean"
	FormatArray   AnswerFormat = "array"
	FormatJSON    AnswerFormat = "json"
)

// Normalize maps unknown or empty formats to FormatString.
func (f AnswerFormat) Normalize() AnswerFormat {
	switch f {
	case FormatNumber, FormatBoolean, FormatArray, FormatJSON:
		return f
	default:
		return FormatString
	}
}

// QuizTask is the structured task description produced by the interpreter.
type QuizTask struct {
	Question       string       `json:"question"`
	DataURLs       []string     `json:"data_urls"`
	SubmitURL      string       `json:"submit_url"`
	AnalysisNeeded string       `json:"analysis_needed"`
	AnswerFormat   AnswerFormat `json:"answer_format"`
	KeyDetails     string       `json:"key_details,omitempty"`
}

// RetrievedData holds one downloaded data artifact. ParsedText is set when a
// parser exists for the artifact's format; Raw always holds the bytes.
type RetrievedData struct {
	SourceURL   string
	ContentType string
	Raw         []byte
	ParsedText  string
}

// Answer is the computed answer ready for submission. Value is kept as raw
// JSON so number/boolean/array/object answers survive the round trip without
// type loss.
type Answer struct {
	Value     json.RawMessage
	SubmitURL string
}

// SubmissionResult is the remote endpoint's verdict. NextURL drives chaining.
type SubmissionResult struct {
	Correct bool   `json:"correct"`
	NextURL string `json:"url,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

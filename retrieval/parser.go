package retrieval

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// binaryDigestHead 无解析器的二进制文件在摘要里保留的 base64 头部字节数
const binaryDigestHead = 256

// Parser turns a downloaded artifact into prompt-ready text.
type Parser interface {
	// Parse renders the raw bytes as text suitable for an LLM prompt.
	Parse(raw []byte) (string, error)

	// SupportedTypes returns the content-type prefixes and file extensions
	// this parser handles (e.g. "text/csv", ".csv").
	SupportedTypes() []string
}

// ParserRegistry routes Parse calls to the appropriate Parser based on
// content type, falling back to the URL's file extension.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // lowercase content-type prefix or extension -> parser
}

// NewParserRegistry creates a registry pre-populated with the built-in parsers.
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{
		parsers: make(map[string]Parser),
	}

	// Register built-in parsers.
	builtins := []Parser{
		NewTextParser(),
		NewCSVParser(),
		NewJSONParser(),
	}
	for _, p := range builtins {
		for _, key := range p.SupportedTypes() {
			r.parsers[strings.ToLower(key)] = p
		}
	}

	return r
}

// Register adds or replaces a parser for the given content-type prefix or
// extension key.
func (r *ParserRegistry) Register(key string, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[strings.ToLower(key)] = p
}

// Parse picks a parser for the artifact and renders it as text.
// Unknown binary content (spreadsheets, PDFs) is not an error: it degrades
// to a base64-head digest so the model can still reason about what the file
// is, and the raw bytes stay available on the RetrievedData.
func (r *ParserRegistry) Parse(sourceURL, contentType string, raw []byte) (string, error) {
	if p, ok := r.lookup(sourceURL, contentType); ok {
		return p.Parse(raw)
	}

	// No parser matched: pass valid UTF-8 through as text.
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	return binaryDigest(sourceURL, contentType, raw), nil
}

// binaryDigest 为无法解析的二进制内容生成可入 prompt 的摘要
func binaryDigest(sourceURL, contentType string, raw []byte) string {
	head := raw
	if len(head) > binaryDigestHead {
		head = head[:binaryDigestHead]
	}
	return fmt.Sprintf("[binary file %s, content-type %q, %d bytes total; base64 head: %s]",
		sourceURL, contentType, len(raw), base64.StdEncoding.EncodeToString(head))
}

func (r *ParserRegistry) lookup(sourceURL, contentType string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Content-Type first, stripped of parameters.
	if contentType != "" {
		ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
		if p, ok := r.parsers[ct]; ok {
			return p, true
		}
	}

	// URL extension second.
	if ext := strings.ToLower(path.Ext(strings.Split(sourceURL, "?")[0])); ext != "" {
		if p, ok := r.parsers[ext]; ok {
			return p, true
		}
	}

	return nil, false
}

// SupportedTypes returns all registered keys, sorted.
func (r *ParserRegistry) SupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.parsers))
	for key := range r.parsers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// --- built-in parsers ---

// TextParser passes plain text and markdown through unchanged.
type TextParser struct{}

func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) Parse(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text parser: not valid UTF-8")
	}
	return string(raw), nil
}

func (p *TextParser) SupportedTypes() []string {
	return []string{"text/plain", "text/markdown", "text/html", ".txt", ".md", ".html"}
}

// CSVParser validates CSV and renders rows as comma-joined lines so malformed
// files fail loudly instead of confusing the model.
type CSVParser struct{}

func NewCSVParser() *CSVParser { return &CSVParser{} }

func (p *CSVParser) Parse(raw []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("csv parser: %w", err)
	}

	lines := make([]string, 0, len(records))
	for _, row := range records {
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n"), nil
}

func (p *CSVParser) SupportedTypes() []string {
	return []string{"text/csv", "application/csv", ".csv"}
}

// JSONParser validates and re-indents JSON for readability in prompts.
type JSONParser struct{}

func NewJSONParser() *JSONParser { return &JSONParser{} }

func (p *JSONParser) Parse(raw []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", fmt.Errorf("json parser: %w", err)
	}
	return buf.String(), nil
}

func (p *JSONParser) SupportedTypes() []string {
	return []string{"application/json", ".json"}
}

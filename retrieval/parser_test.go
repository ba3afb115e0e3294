package retrieval

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserRegistry_ContentTypeRouting(t *testing.T) {
	t.Parallel()

	r := NewParserRegistry()

	out, err := r.Parse("https://x/data", "text/csv; charset=utf-8", []byte("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2", out)

	out, err = r.Parse("https://x/data", "application/json", []byte(`{"k":1}`))
	require.NoError(t, err)
	assert.Contains(t, out, `"k": 1`)
}

func TestParserRegistry_ExtensionFallback(t *testing.T) {
	t.Parallel()

	r := NewParserRegistry()

	// Content-Type 缺失时按 URL 后缀路由，忽略查询串
	out, err := r.Parse("https://x/report.csv?token=1", "", []byte("h\nv\n"))
	require.NoError(t, err)
	assert.Equal(t, "h\nv", out)
}

func TestParserRegistry_UnknownTextPassthrough(t *testing.T) {
	t.Parallel()

	r := NewParserRegistry()

	out, err := r.Parse("https://x/notes", "application/x-unknown", []byte("plain words"))
	require.NoError(t, err)
	assert.Equal(t, "plain words", out)
}

func TestParserRegistry_BinaryDigest(t *testing.T) {
	t.Parallel()

	r := NewParserRegistry()

	// 无法识别的二进制内容（xlsx、PDF 等）降级为摘要而不是报错
	raw := []byte{0xff, 0xfe, 0x00, 0x80}
	out, err := r.Parse("https://x/report.xlsx", "application/octet-stream", raw)
	require.NoError(t, err)
	assert.Contains(t, out, "https://x/report.xlsx")
	assert.Contains(t, out, "4 bytes total")
	assert.Contains(t, out, base64.StdEncoding.EncodeToString(raw))
}

func TestParserRegistry_BinaryDigestTruncatesHead(t *testing.T) {
	t.Parallel()

	raw := bytes.Repeat([]byte{0x80}, binaryDigestHead*4)
	out, err := NewParserRegistry().Parse("https://x/big.bin", "application/octet-stream", raw)
	require.NoError(t, err)
	// base64 头部只覆盖前 binaryDigestHead 字节
	assert.Contains(t, out, base64.StdEncoding.EncodeToString(raw[:binaryDigestHead]))
	assert.Less(t, len(out), len(raw))
}

func TestCSVParser_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewCSVParser().Parse([]byte("a,\"b\n1"))
	require.Error(t, err)
}

func TestJSONParser_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewJSONParser().Parse([]byte(`{"k":`))
	require.Error(t, err)
}

package retrieval

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

func TestDownloader_FetchAll(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a.csv":
			w.Header().Set("Content-Type", "text/csv")
			w.Write([]byte("x,y\n1,2\n"))
		case "/b.json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"v":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	d := NewDownloader(Config{}, zap.NewNop())
	results, err := d.FetchAll(context.Background(), []string{srv.URL + "/a.csv", srv.URL + "/b.json"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// 结果保持输入顺序
	assert.Equal(t, "x,y\n1,2", results[0].ParsedText)
	assert.Contains(t, results[1].ParsedText, `"v": 3`)
	assert.Equal(t, srv.URL+"/a.csv", results[0].SourceURL)
}

func TestDownloader_PartialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.txt" {
			w.Write([]byte("fine"))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDownloader(Config{}, zap.NewNop())
	results, err := d.FetchAll(context.Background(), []string{srv.URL + "/ok.txt", srv.URL + "/bad.txt"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "fine", results[0].ParsedText)
	assert.Contains(t, results[1].ParsedText, "error downloading")
}

func TestDownloader_BinarySourceSucceeds(t *testing.T) {
	t.Parallel()

	raw := []byte{0x50, 0x4b, 0x03, 0x04, 0xff, 0xfe, 0x80, 0x81, 0x82, 0x83}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(raw)
	}))
	defer srv.Close()

	// 无解析器的二进制文件（xlsx 等）也算下载成功，不得拖垮整次检索
	d := NewDownloader(Config{}, zap.NewNop())
	results, err := d.FetchAll(context.Background(), []string{srv.URL + "/data.xlsx"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, raw, results[0].Raw)
	assert.Contains(t, results[0].ParsedText, "10 bytes total")
	assert.Contains(t, results[0].ParsedText, "base64 head")
}

func TestDownloader_AllFailed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDownloader(Config{}, zap.NewNop())
	_, err := d.FetchAll(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"})
	require.Error(t, err)
	assert.Equal(t, types.ErrDataFetch, types.GetErrorCode(err))
}

func TestDownloader_SizeLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	d := NewDownloader(Config{MaxBytes: 1024}, zap.NewNop())
	_, err := d.FetchAll(context.Background(), []string{srv.URL + "/big"})
	require.Error(t, err)
	assert.Equal(t, types.ErrDataFetch, types.GetErrorCode(err))
}

func TestDownloader_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	var inflight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inflight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inflight.Add(-1)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(Config{Concurrency: 2}, zap.NewNop())
	urls := make([]string, 6)
	for i := range urls {
		urls[i] = srv.URL + "/f.txt"
	}
	_, err := d.FetchAll(context.Background(), urls)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDownloader_EmptyURLList(t *testing.T) {
	t.Parallel()

	d := NewDownloader(Config{}, zap.NewNop())
	results, err := d.FetchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/scriptorium/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:         srv.URL,
		APIKey:          "secret",
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 3,
	}
	for _, f := range tweak {
		f(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{BaseURL: "http://x/v1/", APIKey: "k"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://x/v1", cfg.BaseURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxPollAttempts, cfg.MaxPollAttempts)

	assert.Error(t, (&Config{APIKey: "k"}).Validate())
	assert.Error(t, (&Config{BaseURL: "http://x"}).Validate())
}

func TestUploadSendsKeyAndName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/upload", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a.pdf", body["name"])
		assert.Equal(t, "JVBERg==", body["file"])
		writeJSON(w, map[string]any{"url": "https://files/a.pdf"})
	})

	url, err := c.Upload(context.Background(), "a.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "https://files/a.pdf", url)
}

func TestExtractTextInline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "eng", body["lang"])
		assert.Equal(t, true, body["unwrap"])
		writeJSON(w, map[string]any{"body": "page one\fpage two\f", "pageCount": 2})
	})

	res, err := c.ExtractText(context.Background(), "u", TextOptions{Language: "eng", Unwrap: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, res.Pages)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, "page one\n\npage two", res.Text)
}

func TestExtractTextAsyncPollsThenFetches(t *testing.T) {
	var checks atomic.Int32
	var srvURL string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/convert/to/text":
			writeJSON(w, map[string]any{"jobId": "j1", "url": srvURL + "/result.txt"})
		case "/job/check":
			if checks.Add(1) < 2 {
				writeJSON(w, map[string]any{"status": "working"})
				return
			}
			writeJSON(w, map[string]any{"status": "success"})
		case "/result.txt":
			_, _ = w.Write([]byte("async text"))
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = c.cfg.BaseURL

	res, err := c.ExtractText(context.Background(), "u", TextOptions{Async: true})
	require.NoError(t, err)
	assert.Equal(t, "async text", res.Text)
	assert.Equal(t, int32(2), checks.Load())
}

func TestPollJobTimeout(t *testing.T) {
	var checks atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		checks.Add(1)
		writeJSON(w, map[string]any{"status": "working"})
	})

	_, err := c.PollJob(context.Background(), "slow")
	var timeout *core.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 3, timeout.Attempts)
	assert.Equal(t, int32(3), checks.Load())
}

func TestPollJobFailed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/job/check" {
			writeJSON(w, map[string]any{"status": "failed", "message": "bad pdf"})
			return
		}
		writeJSON(w, map[string]any{"jobId": "j", "url": "unused"})
	})

	_, err := c.ExtractText(context.Background(), "u", TextOptions{Async: true})
	assert.ErrorIs(t, err, ErrJobFailed)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		writeJSON(w, map[string]any{"error": true, "message": "out of credits"})
	})

	_, err := c.DocumentInfo(context.Background(), "u")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
	assert.Equal(t, "out of credits", apiErr.Message)
}

func TestErrorFlagOnSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"error": true, "message": "file not found"})
	})
	_, err := c.RenderPages(context.Background(), "u", "0-2", 150)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "file not found", apiErr.Message)
}

func TestDocumentInfoStringifies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"info": map[string]any{"Title": "Report", "PageCount": 4, "Author": nil}})
	})
	info, err := c.DocumentInfo(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Title": "Report", "PageCount": "4"}, info)
}

func TestExtractTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"body": "a,b\r\n1,2\r\n\r\nx,y,z\n\"q,1\",2,3\n"})
	})
	tables, err := c.ExtractTables(context.Background(), "u")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, tables[0])
	assert.Equal(t, []string{"q,1", "2", "3"}, tables[1][1])
}

func TestParseCSVTablesEmpty(t *testing.T) {
	tables, err := ParseCSVTables("\n\n  \n")
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		writeJSON(w, map[string]any{"pages": []map[string]any{{"page": 1, "text": "t"}}})
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pages, err := c.ExtractStructured(context.Background(), "u")
			assert.NoError(t, err)
			assert.Len(t, pages, 1)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(DefaultMaxConcurrency))
}

func TestRequestTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writeJSON(w, map[string]any{"url": "late"})
	}, func(cfg *Config) { cfg.Timeout = 20 * time.Millisecond })

	_, err := c.Upload(context.Background(), "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

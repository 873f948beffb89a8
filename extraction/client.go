package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/scriptorium/core"
	"golang.org/x/sync/semaphore"
)

// TextOptions controls text extraction.
type TextOptions struct {
	Language string // OCR language hint, e.g. "eng"
	Unwrap   bool   // join lines broken by layout
	Pages    string // page range, e.g. "0-2"; empty means all
	Async    bool
}

// TextResult is extracted document text.
type TextResult struct {
	Text      string
	Pages     []string
	PageCount int
}

// PageText is the structured text of one page.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// JobStatus is the state of an asynchronous job.
type JobStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Done reports whether the job reached a final state.
func (s *JobStatus) Done() bool {
	return s.Status == "success" || s.Failed()
}

// Failed reports whether the job ended unsuccessfully.
func (s *JobStatus) Failed() bool {
	return s.Status == "failed" || s.Status == "aborted"
}

// envelope holds every field the service may return; each endpoint fills a subset.
type envelope struct {
	Error     bool           `json:"error"`
	Status    int            `json:"status"`
	Message   string         `json:"message"`
	URL       string         `json:"url"`
	URLs      []string       `json:"urls"`
	Body      string         `json:"body"`
	PageCount int            `json:"pageCount"`
	JobID     string         `json:"jobId"`
	Info      map[string]any `json:"info"`
	Pages     []PageText     `json:"pages"`
}

// Client talks to the extraction service. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client. Per-request timeouts still apply.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.http = hc
		return nil
	}
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{},
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		logger: slog.Default().With("component", "extraction"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Upload sends the document bytes and returns the URL later calls refer to.
func (c *Client) Upload(ctx context.Context, name string, buf []byte) (string, error) {
	var env envelope
	err := c.post(ctx, "/file/upload", map[string]any{
		"name": name,
		"file": base64.StdEncoding.EncodeToString(buf),
	}, &env)
	if err != nil {
		return "", err
	}
	if env.URL == "" {
		return "", fmt.Errorf("upload: %w", ErrEmptyResponse)
	}
	return env.URL, nil
}

// ExtractText extracts the document text. When the service answers with a job id
// instead of text, the job is polled and the result fetched from the returned URL.
func (c *Client) ExtractText(ctx context.Context, url string, opts TextOptions) (*TextResult, error) {
	req := map[string]any{
		"url":    url,
		"unwrap": opts.Unwrap,
		"async":  opts.Async,
		"inline": true,
	}
	if opts.Language != "" {
		req["lang"] = opts.Language
	}
	if opts.Pages != "" {
		req["pages"] = opts.Pages
	}

	var env envelope
	if err := c.post(ctx, "/pdf/convert/to/text", req, &env); err != nil {
		return nil, err
	}

	text := env.Body
	if text == "" && env.JobID != "" {
		status, err := c.PollJob(ctx, env.JobID)
		if err != nil {
			return nil, err
		}
		if status.Failed() {
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, status.Message)
		}
		if env.URL == "" {
			return nil, fmt.Errorf("text job %s: %w", env.JobID, ErrEmptyResponse)
		}
		body, err := c.fetch(ctx, env.URL)
		if err != nil {
			return nil, err
		}
		text = string(body)
	}

	pages := splitPages(text)
	count := env.PageCount
	if count == 0 {
		count = len(pages)
	}
	return &TextResult{
		Text:      strings.TrimSpace(strings.ReplaceAll(text, "\f", "\n\n")),
		Pages:     pages,
		PageCount: count,
	}, nil
}

// DocumentInfo returns document properties such as title, author and page count.
func (c *Client) DocumentInfo(ctx context.Context, url string) (map[string]string, error) {
	var env envelope
	if err := c.post(ctx, "/pdf/info", map[string]any{"url": url}, &env); err != nil {
		return nil, err
	}
	info := make(map[string]string, len(env.Info))
	for k, v := range env.Info {
		if v == nil {
			continue
		}
		info[k] = fmt.Sprint(v)
	}
	return info, nil
}

// ExtractStructured returns per-page text as laid out by the service.
func (c *Client) ExtractStructured(ctx context.Context, url string) ([]PageText, error) {
	var env envelope
	if err := c.post(ctx, "/pdf/convert/to/json", map[string]any{"url": url, "inline": true}, &env); err != nil {
		return nil, err
	}
	return env.Pages, nil
}

// RenderPages renders the given page range to images and returns their URLs.
func (c *Client) RenderPages(ctx context.Context, url, pages string, resolution int) ([]string, error) {
	req := map[string]any{"url": url, "pages": pages}
	if resolution > 0 {
		req["resolution"] = resolution
	}
	var env envelope
	if err := c.post(ctx, "/pdf/convert/to/png", req, &env); err != nil {
		return nil, err
	}
	return env.URLs, nil
}

// ExtractTables exports the document's tables as CSV and parses them into row
// matrices. Tables in the export are separated by blank lines.
func (c *Client) ExtractTables(ctx context.Context, url string) ([][][]string, error) {
	var env envelope
	if err := c.post(ctx, "/pdf/convert/to/csv", map[string]any{"url": url, "inline": true}, &env); err != nil {
		return nil, err
	}
	return ParseCSVTables(env.Body)
}

// PollJob checks an async job every PollInterval until it finishes. It returns a
// *core.TimeoutError once MaxPollAttempts checks have not seen a final state.
func (c *Client) PollJob(ctx context.Context, jobID string) (*JobStatus, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.cfg.MaxPollAttempts; attempt++ {
		var status JobStatus
		if err := c.post(ctx, "/job/check", map[string]any{"jobid": jobID}, &status); err != nil {
			return nil, err
		}
		if status.Done() {
			c.logger.Debug("job finished", "job", jobID, "status", status.Status, "attempts", attempt)
			return &status, nil
		}
		if attempt == c.cfg.MaxPollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return nil, &core.TimeoutError{Op: "extraction job " + jobID, Attempts: c.cfg.MaxPollAttempts}
}

// ParseCSVTables splits a CSV export on blank lines and parses each block.
func ParseCSVTables(body string) ([][][]string, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var tables [][][]string
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		r := csv.NewReader(strings.NewReader(block))
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("parse csv table: %w", err)
		}
		if len(rows) > 0 {
			tables = append(tables, rows)
		}
	}
	return tables, nil
}

func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	var pages []string
	for _, p := range strings.Split(text, "\f") {
		if p = strings.TrimSpace(p); p != "" {
			pages = append(pages, p)
		}
	}
	return pages
}

func (c *Client) acquire(ctx context.Context) (func(), error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { c.sem.Release(1) }, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	release, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("extraction %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	c.logger.Debug("extraction call", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	var head struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &head)
	if resp.StatusCode >= 300 || head.Error {
		msg := head.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Path: path, Status: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch result: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &APIError{Path: url, Status: resp.StatusCode, Message: resp.Status}
	}
	return io.ReadAll(resp.Body)
}

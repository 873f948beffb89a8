// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/scriptorium"
	"github.com/poiesic/scriptorium/api"
	"github.com/poiesic/scriptorium/config"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/reembed"
	"github.com/poiesic/scriptorium/search"
)

// databaseOptions are appended to every Open call.
var databaseOptions []scriptorium.DatabaseOption

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scriptorium",
		Usage: "Document ingestion and hybrid semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file to load before reading SCRIPTORIUM_* variables",
				Value: config.DefaultEnvFile,
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Override SCRIPTORIUM_DATA_DIR",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest files and wait for processing to finish",
				ArgsUsage: "<file>...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Token budget per chunk (default from config)",
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Token overlap between chunks (default from config)",
						Value: -1,
					},
					&cli.BoolFlag{
						Name:  "no-tables",
						Usage: "Skip table extraction",
					},
					&cli.BoolFlag{
						Name:  "images",
						Usage: "Render page images for multimodal embedding",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Vector search over stored chunks",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(searchFlags(),
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum cosine similarity",
					},
				),
			},
			{
				Name:      "hybrid",
				Usage:     "Hybrid vector and keyword search",
				ArgsUsage: "<query>",
				Action:    hybridCommand,
				Flags: append(searchFlags(),
					&cli.Float64Flag{
						Name:  "alpha",
						Usage: "Weight of the vector score (0 = keyword only, 1 = vector only)",
						Value: search.DefaultAlpha,
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show a document and its processing job",
				ArgsUsage: "<document id>",
				Action:    statusCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed stored chunks with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "only-mismatch",
						Usage: "Only re-embed chunks embedded with a different model",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (default from SCRIPTORIUM_LISTEN_ADDR)",
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "Grace period for in-flight requests",
						Value: 10 * time.Second,
					},
				},
			},
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"n"},
			Usage:   "Maximum number of results",
			Value:   search.DefaultLimit,
		},
		&cli.Uint64Flag{
			Name:  "document",
			Usage: "Restrict results to one document",
		},
	}
}

func openDatabase(c *cli.Context) (*scriptorium.Database, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.DataDir = dir
		cfg.BlobDir = filepath.Join(dir, "blobs")
	}
	db, err := scriptorium.Open(c.Context, cfg, databaseOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := db.Config().ProcessingOptions()
	if c.IsSet("chunk-size") {
		opts.ChunkSize = c.Int("chunk-size")
	}
	if c.Int("chunk-overlap") >= 0 {
		opts.ChunkOverlap = c.Int("chunk-overlap")
	}
	opts.ExtractTables = !c.Bool("no-tables")
	opts.ExtractImages = c.Bool("images")
	if err := opts.Validate(); err != nil {
		return err
	}

	out := c.App.Writer
	failed := 0
	for _, path := range c.Args().Slice() {
		doc, err := ingestFile(c.Context, db, path, opts)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "%s: document %d, %d chunks in %s\n",
			path, doc.Id, doc.ChunkCount, doc.ProcessingTime.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func ingestFile(ctx context.Context, db *scriptorium.Database, path string, opts core.ProcessingOptions) (*core.Document, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := db.Pipeline().Ingest(ctx, filepath.Base(path), buf, opts)
	if err != nil {
		return nil, err
	}
	if err := db.Pipeline().Process(ctx, doc.Id, opts); err != nil {
		return nil, err
	}
	return db.Documents().Get(ctx, doc.Id)
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	resp, err := db.Engine().Search(c.Context, query, search.SearchOptions{
		Limit:      c.Int("limit"),
		DocumentID: core.ID(c.Uint64("document")),
		Threshold:  float32(c.Float64("threshold")),
	})
	if err != nil {
		return err
	}
	printResults(c.App.Writer, resp)
	return nil
}

func hybridCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("query is required")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	resp, err := db.Engine().HybridSearch(c.Context, query, search.HybridOptions{
		Limit:      c.Int("limit"),
		DocumentID: core.ID(c.Uint64("document")),
		Alpha:      float32(c.Float64("alpha")),
	})
	if err != nil {
		return err
	}
	printResults(c.App.Writer, resp)
	return nil
}

func printResults(w io.Writer, resp *search.Response) {
	fmt.Fprintf(w, "Found %d hits in %s\n", len(resp.Results), resp.ExecutionTime.Round(time.Microsecond))
	for i, hit := range resp.Results {
		name := "?"
		if hit.Document != nil {
			name = hit.Document.FileName
		}
		fmt.Fprintf(w, "%d: [%0.3f] %s#%d (chunk %d)\n   %s\n",
			i+1, hit.Score, name, hit.Chunk.ChunkIndex, hit.Chunk.Id, snippet(hit.Chunk.Content, 160))
	}
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one document id is required")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", c.Args().First())
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	doc, err := db.Documents().Get(c.Context, core.ID(id))
	if err != nil {
		return err
	}
	out := c.App.Writer
	fmt.Fprintf(out, "Document %d: %s\n", doc.Id, doc.FileName)
	fmt.Fprintf(out, "  type:     %s (%s)\n", doc.FileType, humanize.IBytes(uint64(doc.FileSize)))
	fmt.Fprintf(out, "  status:   %s\n", doc.Status)
	fmt.Fprintf(out, "  chunks:   %d\n", doc.ChunkCount)
	fmt.Fprintf(out, "  uploaded: %s\n", humanize.Time(doc.CreatedAt))
	if doc.Error != "" {
		fmt.Fprintf(out, "  error:    %s\n", doc.Error)
	}

	job, err := db.Jobs().Get(c.Context, doc.Id)
	if err != nil {
		fmt.Fprintln(out, "  job:      none")
		return nil
	}
	fmt.Fprintf(out, "  job:      %s %d%%\n", job.Stage, job.Progress)
	return nil
}

func reembedCommand(c *cli.Context) error {
	cfg := &reembed.Config{
		BatchSize:         c.Int("batch-size"),
		ReportInterval:    c.Int("report-interval"),
		MaxRetries:        c.Int("max-retries"),
		RetryDelay:        c.Duration("retry-delay"),
		OnlyModelMismatch: c.Bool("only-mismatch"),
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	out := c.App.ErrWriter
	fmt.Fprintf(out, "Database: %s\n", db.Config().DataDir)
	fmt.Fprintf(out, "Embedding model: %s\n", db.Embedder().Model())
	fmt.Fprintln(out)

	n, err := reembed.NewReembedder(db.Chunks(), db.Embedder(), cfg, out).Run(c.Context)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Re-embedded %d chunks\n", n)
	return nil
}

func serveCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := db.Config()
	addr := cfg.ListenAddr
	if c.String("addr") != "" {
		addr = c.String("addr")
	}
	server, err := api.NewServer(api.Dependencies{
		Ingester:  db.Pipeline(),
		Searcher:  db.Engine(),
		Documents: db.Documents(),
		Jobs:      db.Jobs(),
		Options:   cfg.ProcessingOptions(),
	}, api.WithAddr(addr), api.WithCORSOrigins(cfg.CORSOrigins...))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Duration("shutdown-timeout"))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

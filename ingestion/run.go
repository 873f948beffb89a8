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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/scriptorium/core"
	"golang.org/x/sync/errgroup"
)

// run is the state of one pipeline invocation for one document.
type run struct {
	p      *Pipeline
	doc    *core.Document
	opts   core.ProcessingOptions
	stage  core.Stage
	logger *slog.Logger
}

type runResult struct {
	chunkCount int
	metadata   map[string]string
}

func newRun(p *Pipeline, doc *core.Document, opts core.ProcessingOptions) *run {
	return &run{
		p:      p,
		doc:    doc,
		opts:   opts,
		stage:  core.StagePending,
		logger: p.logger.With("document", doc.Id),
	}
}

// advance moves the run to next and persists the stage's progress checkpoint.
func (r *run) advance(ctx context.Context, next core.Stage) error {
	if !r.stage.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", core.ErrIllegalTransition, r.stage, next)
	}
	if err := r.p.deps.Jobs.UpdateProgress(ctx, r.doc.Id, next, next.Progress()); err != nil {
		return err
	}
	r.logger.Debug("stage", "from", r.stage, "to", next, "progress", next.Progress())
	r.stage = next
	return nil
}

func (r *run) execute(ctx context.Context) (*runResult, error) {
	deps := r.p.deps

	if err := r.advance(ctx, core.StageDownloading); err != nil {
		return nil, err
	}
	buf, err := deps.Blobs.Get(ctx, r.doc.BlobRef)
	if err != nil {
		return nil, &core.StoreError{Op: "get blob " + r.doc.BlobRef, Cause: err}
	}
	info, err := deps.Resolver.Validate(buf, r.doc.FileName, r.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}

	if err := r.advance(ctx, core.StageParsing); err != nil {
		return nil, err
	}
	parsed, err := deps.Parsers.Parse(ctx, info.MimeType, buf, r.opts)
	if err != nil {
		return nil, err
	}

	if err := r.advance(ctx, core.StageChunking); err != nil {
		return nil, err
	}
	chunks := deps.Chunker.Chunk(parsed, r.opts)
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	for _, c := range chunks {
		c.DocumentID = r.doc.Id
	}

	if err := r.advance(ctx, core.StageEmbedding); err != nil {
		return nil, err
	}
	multimodal := parsed.HasImages() && len(chunks) <= r.p.multimodalChunkCap
	if err := deps.Batcher.EmbedChunks(ctx, chunks, parsed.Images, multimodal); err != nil {
		return nil, err
	}

	if err := r.advance(ctx, core.StageStoring); err != nil {
		return nil, err
	}
	if err := r.store(ctx, chunks); err != nil {
		return nil, err
	}

	meta := stringMetadata(parsed.Metadata)
	meta["mime_type"] = info.MimeType
	meta["embedding_model"] = deps.Batcher.Model()
	if multimodal {
		meta["multimodal"] = "true"
	}
	return &runResult{chunkCount: len(chunks), metadata: meta}, nil
}

// store writes chunks in fixed-size batches. Writes within a batch run in
// parallel; batches run one after another.
func (r *run) store(ctx context.Context, chunks []*core.Chunk) error {
	size := r.p.storeBatchSize
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		g, gctx := errgroup.WithContext(ctx)
		for _, chunk := range chunks[start:end] {
			g.Go(func() error {
				stored, err := r.p.deps.Chunks.Create(gctx, chunk)
				if err != nil {
					return err
				}
				chunk.Id = stored.Id
				chunk.CreatedAt = stored.CreatedAt
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			var se *core.StoreError
			if errors.As(err, &se) {
				return err
			}
			return &core.StoreError{Op: "store chunks", Cause: err}
		}
		r.logger.Debug("stored chunk batch", "from", start, "to", end, "total", len(chunks))
	}
	return nil
}

func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in)+3)
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case time.Time:
			out[k] = t.Format(time.RFC3339)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

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


// Package embedding turns lists of texts into vectors with bounded batching and concurrency.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/scriptorium/ai"
	"github.com/poiesic/scriptorium/core"
	"golang.org/x/time/rate"
)

// Defaults applied by NewBatcher.
const (
	DefaultBatchSize       = 128
	DefaultConcurrency     = 4
	DefaultCallTimeout     = 60 * time.Second
	DefaultMultimodalLimit = 10
)

// Batcher splits embedding work into fixed-size batches and runs them on a
// bounded worker pool. The pool size is the in-flight cap for the embedder.
type Batcher struct {
	embedder        ai.Embedder
	batchSize       int
	concurrency     int
	callTimeout     time.Duration
	multimodalLimit int
	limiter         *rate.Limiter
	pool            *ants.Pool
	logger          *slog.Logger
}

// Option configures a Batcher.
type Option func(*Batcher) error

// WithBatchSize sets how many texts go into a single embedder call.
// Default is 128.
func WithBatchSize(size int) Option {
	return func(b *Batcher) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		b.batchSize = size
		return nil
	}
}

// WithConcurrency sets the maximum number of embedder calls in flight.
// Default is 4.
func WithConcurrency(n int) Option {
	return func(b *Batcher) error {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
		return nil
	}
}

// WithRequestRate paces embedder calls to rps requests per second with the given burst.
// Default is unlimited.
func WithRequestRate(rps float64, burst int) Option {
	return func(b *Batcher) error {
		if rps <= 0 {
			b.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithCallTimeout bounds each embedder call.
// Default is 60s.
func WithCallTimeout(timeout time.Duration) Option {
	return func(b *Batcher) error {
		if timeout > 0 {
			b.callTimeout = timeout
		}
		return nil
	}
}

// WithMultimodalLimit sets how many leading chunks are paired with page images.
// Default is 10.
func WithMultimodalLimit(n int) Option {
	return func(b *Batcher) error {
		if n < 0 {
			n = 0
		}
		b.multimodalLimit = n
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Batcher) error {
		if logger != nil {
			b.logger = logger
		}
		return nil
	}
}

// NewBatcher creates a Batcher around embedder.
func NewBatcher(embedder ai.Embedder, opts ...Option) (*Batcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Batcher{
		embedder:        embedder,
		batchSize:       DefaultBatchSize,
		concurrency:     DefaultConcurrency,
		callTimeout:     DefaultCallTimeout,
		multimodalLimit: DefaultMultimodalLimit,
		limiter:         rate.NewLimiter(rate.Inf, 1),
		logger:          slog.Default().With("component", "embedding-batcher"),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(b.concurrency)
	if err != nil {
		return nil, err
	}
	b.pool = pool
	return b, nil
}

// Model returns the model name of the wrapped embedder.
func (b *Batcher) Model() string {
	return b.embedder.Model()
}

// Embedder returns the wrapped embedder.
func (b *Batcher) Embedder() ai.Embedder {
	return b.embedder
}

// Close releases the worker pool.
func (b *Batcher) Close() {
	b.pool.Release()
}

// Embed returns one vector per text in input order. If any batch fails the
// whole call fails with a *core.EmbeddingError naming the first failed batch,
// the remaining batches are cancelled and no vectors are returned.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	numBatches := (len(texts) + b.batchSize - 1) / b.batchSize
	results := make([][][]float32, numBatches)
	errs := make([]error, numBatches)

	var (
		wg     sync.WaitGroup
		once   sync.Once
		failed = -1
	)
	fail := func(index int, err error) {
		errs[index] = err
		once.Do(func() {
			failed = index
			cancel()
		})
	}

	for i := 0; i < numBatches; i++ {
		start := i * b.batchSize
		end := min(start+b.batchSize, len(texts))
		batch := texts[start:end]
		index := i

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()
			vectors, err := b.embedBatch(ctx, batch)
			if err != nil {
				fail(index, err)
				return
			}
			results[index] = vectors
		})
		if err != nil {
			wg.Done()
			fail(index, err)
		}
	}
	wg.Wait()

	if failed >= 0 {
		b.logger.Error("embedding batch failed", "batch", failed, "batches", numBatches, "err", errs[failed])
		return nil, &core.EmbeddingError{Batch: failed, Cause: errs[failed]}
	}

	vectors := make([][]float32, 0, len(texts))
	for _, r := range results {
		vectors = append(vectors, r...)
	}
	if err := checkDimensions(vectors); err != nil {
		return nil, &core.EmbeddingError{Batch: -1, Cause: err}
	}

	b.logger.Debug("embedded texts", "texts", len(texts), "batches", numBatches)
	return vectors, nil
}

// EmbedQuery embeds a single text. It shares the worker pool and rate limit
// with Embed, so queries count against the same in-flight cap as ingestion.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := b.do(func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		v, err := b.embedder.EmbedText(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ErrEmptyVector
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, &core.EmbeddingError{Batch: 0, Cause: err}
	}
	return vector, nil
}

// do runs fn on the worker pool and waits for it. Submit blocks while every
// worker is busy.
func (b *Batcher) do(fn func() error) error {
	done := make(chan error, 1)
	if err := b.pool.Submit(func() { done <- fn() }); err != nil {
		return err
	}
	return <-done
}

func (b *Batcher) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	vectors, err := b.embedder.EmbedTexts(callCtx, batch)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("got %d vectors for %d texts: %w", len(vectors), len(batch), ai.ErrEmbeddingCountMismatch)
	}
	return vectors, nil
}

// EmbedChunks fills Embedding, EmbeddingModel and EmbeddingDimension on every chunk.
//
// With multimodal set and images present, the first chunks (up to the
// multimodal limit) are embedded together with a page image when the embedder
// supports it. The remaining chunks, or all chunks when multimodal is not
// available, go through the text path.
func (b *Batcher) EmbedChunks(ctx context.Context, chunks []*core.Chunk, images []core.PageImage, multimodal bool) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors := make([][]float32, len(chunks))
	textStart := 0

	if multimodal && len(images) > 0 && b.multimodalLimit > 0 {
		mm, ok := b.embedder.(ai.MultimodalEmbedder)
		if ok && mm.SupportsMultimodal() {
			n := min(b.multimodalLimit, len(chunks))
			inputs := make([]ai.MultimodalInput, n)
			for i := 0; i < n; i++ {
				img := pairImage(chunks[i], i, images)
				inputs[i] = ai.MultimodalInput{Text: chunks[i].Content, ImageURL: img.URL}
			}

			mmVectors, err := b.embedMultimodal(ctx, mm, inputs)
			if err != nil {
				return &core.EmbeddingError{Batch: 0, Cause: err}
			}
			for i := 0; i < n; i++ {
				vectors[i] = mmVectors[i]
				if chunks[i].Metadata == nil {
					chunks[i].Metadata = map[string]string{}
				}
				chunks[i].Metadata["image_url"] = inputs[i].ImageURL
			}
			textStart = n
			b.logger.Debug("embedded chunks with page images", "chunks", n, "images", len(images))
		} else {
			b.logger.Info("embedder has no multimodal support, using text embeddings", "model", b.embedder.Model())
		}
	}

	if textStart < len(chunks) {
		texts := make([]string, 0, len(chunks)-textStart)
		for _, c := range chunks[textStart:] {
			texts = append(texts, c.Content)
		}
		textVectors, err := b.Embed(ctx, texts)
		if err != nil {
			return err
		}
		copy(vectors[textStart:], textVectors)
	}

	if err := checkDimensions(vectors); err != nil {
		return &core.EmbeddingError{Batch: -1, Cause: err}
	}

	model := b.embedder.Model()
	for i, c := range chunks {
		c.Embedding = vectors[i]
		c.EmbeddingModel = model
		c.EmbeddingDimension = len(vectors[i])
	}
	return nil
}

func (b *Batcher) embedMultimodal(ctx context.Context, mm ai.MultimodalEmbedder, inputs []ai.MultimodalInput) ([][]float32, error) {
	var vectors [][]float32
	err := b.do(func() error {
		if err := b.limiter.Wait(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		v, err := mm.EmbedMultimodal(callCtx, inputs)
		if err != nil {
			return err
		}
		if len(v) != len(inputs) {
			return fmt.Errorf("got %d vectors for %d inputs: %w", len(v), len(inputs), ai.ErrEmbeddingCountMismatch)
		}
		vectors = v
		return nil
	})
	return vectors, err
}

// pairImage picks the image on the chunk's page when the chunk records one,
// otherwise the image at the same position, otherwise the last image.
func pairImage(chunk *core.Chunk, index int, images []core.PageImage) core.PageImage {
	if page, err := strconv.Atoi(chunk.Metadata["page"]); err == nil {
		for _, img := range images {
			if img.Page == page {
				return img
			}
		}
	}
	if index < len(images) {
		return images[index]
	}
	return images[len(images)-1]
}

func checkDimensions(vectors [][]float32) error {
	dim := -1
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("vector %d: %w", i, ErrEmptyVector)
		}
		if dim == -1 {
			dim = len(v)
			continue
		}
		if len(v) != dim {
			return fmt.Errorf("vector %d has %d dimensions, expected %d: %w", i, len(v), dim, ErrDimensionMismatch)
		}
	}
	return nil
}

// IsEmbeddingError reports whether err came from a failed embedding call.
func IsEmbeddingError(err error) bool {
	var target *core.EmbeddingError
	return errors.As(err, &target)
}

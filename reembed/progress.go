package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker prints a single, overwritten progress line while chunks are re-embedded.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu sync.Mutex

	out      io.Writer
	total    int
	every    int
	done     int
	reported int
	start    time.Time
	running  bool
}

// NewProgressTracker reports to out every `every` chunks out of total.
func NewProgressTracker(out io.Writer, total, every int) *ProgressTracker {
	return &ProgressTracker{out: out, total: total, every: max(every, 1)}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	p.start = time.Now()
	p.running = true
	p.done, p.reported = 0, 0
	p.mu.Unlock()
}

// Update sets the absolute number of chunks done.
func (p *ProgressTracker) Update(done int) {
	p.advance(func() { p.done = done })
}

// Increment adds delta chunks.
func (p *ProgressTracker) Increment(delta int) {
	p.advance(func() { p.done += delta })
}

func (p *ProgressTracker) advance(step func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	step()
	p.done = min(p.done, p.total)
	if p.done-p.reported >= p.every {
		p.print()
		p.reported = p.done
	}
}

// Finish prints the final line, counting every chunk as done.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.done = p.total
	p.print()
	fmt.Fprintln(p.out)
}

// Elapsed returns the time since Start, or zero before it.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return 0
	}
	return time.Since(p.start)
}

// print writes the progress line. p.mu must be held.
func (p *ProgressTracker) print() {
	elapsed := time.Since(p.start)
	var rate, pct float64
	if elapsed > 0 {
		rate = float64(p.done) / elapsed.Seconds()
	}
	if p.total > 0 {
		pct = 100 * float64(p.done) / float64(p.total)
	}

	line := fmt.Sprintf("\rProgress: %d/%d chunks (%.1f%%) - %.1f chunks/s", p.done, p.total, pct, rate)
	if remaining := p.total - p.done; remaining > 0 && rate > 0 {
		eta := time.Duration(float64(remaining) / rate * float64(time.Second))
		line += fmt.Sprintf(", eta %s", eta.Round(time.Second))
	}
	fmt.Fprint(p.out, line)
}

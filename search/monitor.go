package search

import (
	"github.com/poiesic/scriptorium/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, mode core.SearchMode)
	AfterQueryEmbedding(dimension int)
	AfterVectorSearch(candidates []*core.ScoredChunk)
	AfterKeywordSearch(matches []*core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchMode)       {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)               {}
func (n *noopMonitor) AfterVectorSearch(_ []*core.ScoredChunk) {}
func (n *noopMonitor) AfterKeywordSearch(_ []*core.Chunk)      {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)           {}

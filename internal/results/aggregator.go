// Package results collects scored candidates and exports them.
package results

import (
	"fmt"
	"sync"

	"github.com/spigell/resume-ranker/internal/candidate"
)

// Attachment names of the exports.
const (
	ExportFilename     = "resume_analysis_results.csv"
	ExportFilenameXLSX = "resume_analysis_results.xlsx"
)

// Aggregator keeps scored candidates in arrival order. It never re-sorts.
type Aggregator struct {
	mu    sync.RWMutex
	items []*candidate.Analysis
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Replace swaps the whole collection for batch. A batch with duplicate or empty
// filenames is rejected and the collection is left untouched.
func (a *Aggregator) Replace(batch []*candidate.Analysis) error {
	if err := checkBatch(batch, nil); err != nil {
		return err
	}

	items := make([]*candidate.Analysis, len(batch))
	copy(items, batch)

	a.mu.Lock()
	a.items = items
	a.mu.Unlock()
	return nil
}

// Add appends one candidate. Its filename must not be present yet.
func (a *Aggregator) Add(item *candidate.Analysis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := checkBatch([]*candidate.Analysis{item}, a.items); err != nil {
		return err
	}
	a.items = append(a.items, item)
	return nil
}

// All returns the candidates in arrival order. The slice is a copy.
func (a *Aggregator) All() []*candidate.Analysis {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*candidate.Analysis, len(a.items))
	copy(out, a.items)
	return out
}

// Len returns the number of candidates.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Reset drops every candidate.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.items = nil
	a.mu.Unlock()
}

// Find looks a candidate up by filename.
func (a *Aggregator) Find(filename string) (*candidate.Analysis, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, item := range a.items {
		if item.Filename == filename {
			return item, true
		}
	}
	return nil, false
}

func checkBatch(batch, existing []*candidate.Analysis) error {
	seen := make(map[string]struct{}, len(batch)+len(existing))
	for _, item := range existing {
		seen[item.Filename] = struct{}{}
	}

	for i, item := range batch {
		if item == nil {
			return fmt.Errorf("candidate %d is nil", i)
		}
		if item.Filename == "" {
			return fmt.Errorf("candidate %d has no filename", i)
		}
		if _, dup := seen[item.Filename]; dup {
			return fmt.Errorf("duplicate candidate %q", item.Filename)
		}
		seen[item.Filename] = struct{}{}
	}
	return nil
}

package intake

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/resume-ranker/internal/resume"
)

type duplicatesFilter struct{}

// NewDuplicates creates a filter that keeps only the first resume for each
// file name. Batches require unique names.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(string) {}

func (f *duplicatesFilter) IsEnabled() bool { return true }

func (f *duplicatesFilter) Apply(_ context.Context, docs []*resume.Document) ([]*resume.Document, Step, error) {
	seen := make(map[string]struct{}, len(docs))
	kept, removed := exclude(docs, func(d *resume.Document) bool {
		if _, ok := seen[d.Name]; ok {
			return true
		}
		seen[d.Name] = struct{}{}
		return false
	})
	return kept, Step{Initial: len(docs), Dropped: len(removed), Left: len(kept)}, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes resumes listed in the exclude
// file. An empty path keeps every resume.
func NewExcludeFile(path string) Filter {
	return &excludeFileFilter{path: path}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Apply(_ context.Context, docs []*resume.Document) ([]*resume.Document, Step, error) {
	if f.path == "" {
		return docs, Step{Initial: len(docs), Left: len(docs)}, nil
	}

	excluded, err := LoadExcluded(f.path)
	if err != nil {
		return docs, Step{}, fmt.Errorf("getting excluded resumes from file: %w", err)
	}

	names := make(map[string]struct{}, len(excluded.Items))
	for _, n := range excluded.Names() {
		names[n] = struct{}{}
	}
	kept, removed := exclude(docs, func(d *resume.Document) bool {
		_, ok := names[d.Name]
		return ok
	})

	return kept, Step{Initial: len(docs), Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type limitFilter struct {
	max      int
	disabled bool
	reason   string
}

// NewLimit creates a filter that caps the batch at max resumes. Zero disables it.
func NewLimit(max int) Filter {
	f := &limitFilter{max: max}
	if max <= 0 {
		f.Disable("no limit configured")
	}
	return f
}

func (f *limitFilter) Name() string { return "limit" }

func (f *limitFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *limitFilter) IsEnabled() bool { return !f.disabled }

func (f *limitFilter) Apply(_ context.Context, docs []*resume.Document) ([]*resume.Document, Step, error) {
	if len(docs) <= f.max {
		return docs, Step{Initial: len(docs), Left: len(docs)}, nil
	}
	return docs[:f.max], Step{Initial: len(docs), Dropped: len(docs) - f.max, Left: f.max}, nil
}

func (f *limitFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"max": strconv.Itoa(f.max)},
	}
}

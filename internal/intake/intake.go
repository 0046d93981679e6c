// Package intake collects resume files and narrows them down to the batch that
// is sent for analysis.
package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/logger"
	"github.com/spigell/resume-ranker/internal/resume"
)

// Filter is a single intake step applied to the collected resumes.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, docs []*resume.Document) ([]*resume.Document, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// Run executes the supplied filters sequentially and returns what is left.
func Run(ctx context.Context, log *zap.Logger, steps []Filter, docs []*resume.Document) ([]*resume.Document, error) {
	log = logger.OrNop(log)

	for _, step := range steps {
		if !step.IsEnabled() {
			log.Info("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		log.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		docs = next
	}

	return docs, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}
		statuses = append(statuses, Status{Name: step.Name(), Enabled: step.IsEnabled()})
	}
	return statuses
}

// Collect loads resumes from files and directories. Directories are read one
// level deep in name order. Files of unsupported types are skipped.
func Collect(paths []string, log *zap.Logger) ([]*resume.Document, error) {
	log = logger.OrNop(log)

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(p, name))
		}
	}

	docs := make([]*resume.Document, 0, len(files))
	for _, f := range files {
		doc, err := resume.Load(f)
		if errors.Is(err, resume.ErrUnsupported) || errors.Is(err, resume.ErrEmpty) {
			log.Warn("skipping file", zap.String("path", f), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// Names lists the document names in order.
func Names(docs []*resume.Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names
}

func exclude(docs []*resume.Document, drop func(*resume.Document) bool) ([]*resume.Document, []string) {
	kept := make([]*resume.Document, 0, len(docs))
	var removed []string
	for _, d := range docs {
		if drop(d) {
			removed = append(removed, d.Name)
			continue
		}
		kept = append(kept, d)
	}
	return kept, removed
}

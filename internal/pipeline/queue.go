package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-ranker/internal/analysis"
	"github.com/spigell/resume-ranker/internal/resume"
)

// QueueResume adds doc to the next batch. Queue changes are allowed while a
// call is in flight; they only affect the next submission.
func (o *Orchestrator) QueueResume(doc *resume.Document) error {
	if doc == nil || doc.Name == "" {
		return fmt.Errorf("%w: resume file is required", analysis.ErrValidation)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, queued := range o.queue {
		if queued.Name == doc.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateResume, doc.Name)
		}
	}
	o.queue = append(o.queue, doc)
	o.logger.Debug("resume queued", zap.String("file", doc.Name), zap.String("mime", doc.MIMEType))
	return nil
}

// RemoveResume drops a queued resume by name and reports whether it was queued.
func (o *Orchestrator) RemoveResume(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, queued := range o.queue {
		if queued.Name == name {
			o.queue = append(o.queue[:i:i], o.queue[i+1:]...)
			return true
		}
	}
	return false
}

// QueuedResumes lists the queued file names in submission order.
func (o *Orchestrator) QueuedResumes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.queue))
	for _, doc := range o.queue {
		names = append(names, doc.Name)
	}
	return names
}

// ClearQueue drops every queued resume.
func (o *Orchestrator) ClearQueue() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = nil
}

// dropSubmitted removes the submitted files from queue and keeps anything
// queued while the batch was in flight.
func dropSubmitted(queue, submitted []*resume.Document) []*resume.Document {
	sent := make(map[string]bool, len(submitted))
	for _, doc := range submitted {
		sent[doc.Name] = true
	}

	var kept []*resume.Document
	for _, doc := range queue {
		if !sent[doc.Name] {
			kept = append(kept, doc)
		}
	}
	return kept
}

package intake

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spigell/resume-ranker/internal/candidate"
)

// Excluded is the content of an exclude file.
type Excluded struct {
	Items []*ExcludedResume
}

// ExcludedResume records an already analyzed resume.
type ExcludedResume struct {
	Name               string
	Candidate          string
	SemanticPercentage int
	ExcludedAt         time.Time
}

// FromCandidates builds exclude entries for scored candidates.
func FromCandidates(items []*candidate.Analysis) *Excluded {
	excluded := &Excluded{}
	for _, a := range items {
		excluded.Items = append(excluded.Items, &ExcludedResume{
			Name:               a.Filename,
			Candidate:          a.Name(),
			SemanticPercentage: a.SemanticPercentage,
			ExcludedAt:         time.Now().UTC(),
		})
	}
	return excluded
}

// LoadExcluded reads an exclude file. A missing or empty file yields an empty list.
func LoadExcluded(path string) (*Excluded, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Excluded{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Excluded{}, nil
	}

	var excluded Excluded
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// Append adds entries whose names are not listed yet.
func (e *Excluded) Append(other *Excluded) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.Name] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := seen[item.Name]; ok {
			continue
		}
		seen[item.Name] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

// Names lists the excluded file names.
func (e *Excluded) Names() []string {
	names := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		names = append(names, item.Name)
	}
	return names
}

// ToFile overwrites path with the list.
func (e *Excluded) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

package results

import (
	"encoding/json"
	"os"

	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/scoring"
)

// BandReport groups candidate names by the band of their semantic percentage.
type BandReport map[scoring.Band][]string

// ReportByBand buckets items by semantic band, keeping their order.
func ReportByBand(items []*candidate.Analysis, t scoring.Thresholds) BandReport {
	report := BandReport{}
	for _, a := range items {
		band := t.Band(a.SemanticPercentage)
		report[band] = append(report[band], a.Name())
	}
	return report
}

// DumpToTmpFile writes items as indented JSON into a new temporary file and
// returns its name.
func DumpToTmpFile(items []*candidate.Analysis) (string, error) {
	file, err := os.CreateTemp("", "resume_analysis_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return "", err
	}
	return file.Name(), nil
}

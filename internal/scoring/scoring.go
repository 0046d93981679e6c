// Package scoring turns requirement verdicts into percentages and bands.
package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/resume-ranker/internal/candidate"
)

// Band is the coarse quality classification used for display and export.
type Band string

const (
	BandStrong   Band = "strong"
	BandModerate Band = "moderate"
	BandWeak     Band = "weak"
)

// Thresholds are the inclusive lower bounds of the strong and moderate bands.
type Thresholds struct {
	Strong   int `mapstructure:"strong" json:"strong"`
	Moderate int `mapstructure:"moderate" json:"moderate"`
}

// DefaultThresholds are 80 and 60.
var DefaultThresholds = Thresholds{Strong: 80, Moderate: 60}

// Validate requires 0 <= Moderate < Strong <= 100.
func (t Thresholds) Validate() error {
	if t.Moderate < 0 || t.Strong > 100 || t.Moderate >= t.Strong {
		return fmt.Errorf("invalid score thresholds strong=%d moderate=%d: need 0 <= moderate < strong <= 100", t.Strong, t.Moderate)
	}
	return nil
}

// Band classifies a percentage.
func (t Thresholds) Band(pct int) Band {
	switch {
	case pct >= t.Strong:
		return BandStrong
	case pct >= t.Moderate:
		return BandModerate
	default:
		return BandWeak
	}
}

// BandFor classifies a percentage with DefaultThresholds.
func BandFor(pct int) Band {
	return DefaultThresholds.Band(pct)
}

// Percentage returns matched/total as a whole percentage rounded half away from
// zero. Zero total yields zero.
func Percentage(matched, total int) int {
	if total <= 0 {
		return 0
	}
	return Clamp(int(math.Round(float64(matched) * 100 / float64(total))))
}

// Clamp bounds a percentage to 0..100.
func Clamp(pct int) int {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// Qualitative maps a free-text label to a band. The lower-cased label is
// searched for "high" or "strong" first, then "medium" or "moderate"; anything
// else is weak.
func Qualitative(label string) Band {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "high"), strings.Contains(l, "strong"):
		return BandStrong
	case strings.Contains(l, "medium"), strings.Contains(l, "moderate"):
		return BandModerate
	default:
		return BandWeak
	}
}

// Section is the scored view of one requirement section.
type Section struct {
	Name       string `json:"name"`
	Matched    int    `json:"matched"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Band       Band   `json:"band"`
}

// Section names in display order.
const (
	SectionTechnicalSkills      = "technical_skills"
	SectionExperience           = "experience"
	SectionQualifications       = "qualifications"
	SectionCoreResponsibilities = "core_responsibilities"
	SectionAdditionalSkills     = "additional_skills"
	SectionExtraQualifications  = "extra_qualifications"
	SectionBonusExperience      = "bonus_experience"
	SectionScreening            = "additional_screening_criteria"
)

// Sections scores every requirement section in a fixed order.
func Sections(m candidate.RequirementMatch, t Thresholds) []Section {
	sets := []struct {
		name string
		set  candidate.MatchSet
	}{
		{SectionTechnicalSkills, m.MustHave.TechnicalSkills},
		{SectionExperience, m.MustHave.Experience},
		{SectionQualifications, m.MustHave.Qualifications},
		{SectionCoreResponsibilities, m.MustHave.CoreResponsibilities},
		{SectionAdditionalSkills, m.GoodToHave.AdditionalSkills},
		{SectionExtraQualifications, m.GoodToHave.ExtraQualifications},
		{SectionBonusExperience, m.GoodToHave.BonusExperience},
		{SectionScreening, m.AdditionalScreeningCriteria},
	}

	out := make([]Section, 0, len(sets))
	for _, s := range sets {
		pct := Percentage(s.set.Matched(), s.set.Total())
		out = append(out, Section{
			Name:       s.name,
			Matched:    s.set.Matched(),
			Total:      s.set.Total(),
			Percentage: pct,
			Band:       t.Band(pct),
		})
	}
	return out
}

// Fraction is a matched/total pair rendered as "X/Y".
type Fraction struct {
	Matched int
	Total   int
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Matched, f.Total)
}

// Percentage converts the fraction with Percentage.
func (f Fraction) Percentage() int {
	return Percentage(f.Matched, f.Total)
}

// ParseFraction reads "X/Y". Malformed input yields a zero fraction and an error.
func ParseFraction(s string) (Fraction, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Fraction{}, fmt.Errorf("fraction %q: missing '/'", s)
	}
	matched, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction %q: %w", s, err)
	}
	total, err := strconv.Atoi(strings.TrimSpace(den))
	if err != nil {
		return Fraction{}, fmt.Errorf("fraction %q: %w", s, err)
	}
	if matched < 0 || total < 0 {
		return Fraction{}, fmt.Errorf("fraction %q: negative component", s)
	}
	return Fraction{Matched: matched, Total: total}, nil
}

// Quantitative counts satisfied items across every section.
func Quantitative(m candidate.RequirementMatch) Fraction {
	var f Fraction
	for _, s := range Sections(m, DefaultThresholds) {
		f.Matched += s.Matched
		f.Total += s.Total
	}
	return f
}

// FallbackSemantic estimates a semantic score when the service did not provide
// one: 70 for a positive recommendation, 30 otherwise, adjusted by
// transferability (high +15, medium +5, low -10).
func FallbackSemantic(a *candidate.Analysis) int {
	score := 30
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.FinalRecommendation)), "yes") {
		score = 70
	}

	transfer := strings.ToLower(a.QualitativeAssessment.TransferabilityToRole)
	switch {
	case strings.Contains(transfer, "high"):
		score += 15
	case strings.Contains(transfer, "medium"), strings.Contains(transfer, "moderate"):
		score += 5
	case strings.Contains(transfer, "low"):
		score -= 10
	}
	return Clamp(score)
}

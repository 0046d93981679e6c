package pipeline

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Stage is one step of the hiring pipeline. Stages are ordered.
type Stage int

const (
	StageModelSelection Stage = iota
	StageJobAnalysis
	StageRequirementsReview
	StageResumeAnalysis
)

var stageNames = [...]string{
	StageModelSelection:     "model_selection",
	StageJobAnalysis:        "job_analysis",
	StageRequirementsReview: "requirements_review",
	StageResumeAnalysis:     "resume_analysis",
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	return s >= StageModelSelection && s <= StageResumeAnalysis
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage resolves a stage name.
func ParseStage(raw string) (Stage, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for i, name := range stageNames {
		if name == raw {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", raw)
}

// Models selects the model identifiers used by the analysis calls. Primary
// drives job analysis and requirement parsing, Reasoning scores resumes.
type Models struct {
	Primary   string `json:"primary" mapstructure:"primary-model" validate:"required"`
	Reasoning string `json:"reasoning" mapstructure:"reasoning-model" validate:"required"`
}

var validate = validator.New()

// Normalize trims both identifiers.
func (m Models) Normalize() Models {
	return Models{
		Primary:   strings.TrimSpace(m.Primary),
		Reasoning: strings.TrimSpace(m.Reasoning),
	}
}

// Validate requires both identifiers.
func (m Models) Validate() error {
	if err := validate.Struct(m.Normalize()); err != nil {
		return fmt.Errorf("invalid model selection: %w", err)
	}
	return nil
}

// Package candidate holds the per-resume analysis produced by the analysis service.
package candidate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/resume-ranker/internal/requirements"
)

// Analysis is the assessment of one resume against the current job requirements.
type Analysis struct {
	Filename              string                `json:"filename" validate:"required"`
	ContactInfo           ContactInfo           `json:"contact_info"`
	RequirementMatch      RequirementMatch      `json:"requirement_match"`
	QualitativeAssessment QualitativeAssessment `json:"qualitative_assessment"`
	FinalRecommendation   string                `json:"final_recommendation"`
	SummaryOfKeyFactors   []string              `json:"summary_of_key_factors"`

	SemanticPercentage     int `json:"semantic_percentage" validate:"min=0,max=100"`
	QuantitativePercentage int `json:"quantitative_percentage" validate:"min=0,max=100"`
}

// ContactInfo is informational only; every field is optional except the name,
// which may still be empty when the resume does not state it.
type ContactInfo struct {
	FullName            string   `json:"full_name"`
	Email               string   `json:"email,omitempty"`
	Phone               string   `json:"phone,omitempty"`
	Location            string   `json:"location,omitempty"`
	LinkedIn            string   `json:"linkedin,omitempty"`
	OtherLinks          []string `json:"other_links,omitempty"`
	TotalWorkExperience string   `json:"total_work_experience,omitempty"`
	LastPosition        string   `json:"last_position,omitempty"`
}

// RequirementMatch mirrors requirements.JobRequirements with boolean verdicts.
type RequirementMatch struct {
	MustHave                    MustHaveMatch   `json:"must_have_requirements"`
	GoodToHave                  GoodToHaveMatch `json:"good_to_have_requirements"`
	AdditionalScreeningCriteria MatchSet        `json:"additional_screening_criteria"`
}

// MustHaveMatch holds verdicts for the must-have section.
type MustHaveMatch struct {
	TechnicalSkills      MatchSet `json:"technical_skills"`
	Experience           MatchSet `json:"experience"`
	Qualifications       MatchSet `json:"qualifications"`
	CoreResponsibilities MatchSet `json:"core_responsibilities"`
}

// GoodToHaveMatch holds verdicts for the preferred section.
type GoodToHaveMatch struct {
	AdditionalSkills    MatchSet `json:"additional_skills"`
	ExtraQualifications MatchSet `json:"extra_qualifications"`
	BonusExperience     MatchSet `json:"bonus_experience"`
}

// QualitativeAssessment is the recruiter-style judgement. The categorical labels
// are free text such as "High" or "Moderate experience".
type QualitativeAssessment struct {
	InferredSkills         []string `json:"inferred_skills_from_projects"`
	ProjectGravity         string   `json:"project_gravity"`
	OwnershipAndInitiative string   `json:"ownership_and_initiative"`
	TransferabilityToRole  string   `json:"transferability_to_role"`
	RecruiterStyleSummary  string   `json:"recruiter_style_summary"`
	Strengths              []string `json:"strengths"`
	Weaknesses             []string `json:"weaknesses"`
}

//go:embed schema/candidate_analysis.json
var schemaJSON string

var (
	compiledSchema = requirements.MustCompileSchema(schemaJSON)
	validate       = validator.New()
)

// Schema returns the JSON Schema a single resume analysis payload must satisfy.
func Schema() string {
	return schemaJSON
}

// ParseJSON validates a service payload against Schema and decodes it. The
// filename is always taken from the caller, never from the payload.
func ParseJSON(filename string, data []byte) (*Analysis, error) {
	if err := requirements.ValidateAgainst(compiledSchema, data); err != nil {
		return nil, err
	}

	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode candidate analysis: %w", err)
	}
	a.Filename = strings.TrimSpace(filename)

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the identifier and the percentage bounds.
func (a *Analysis) Validate() error {
	if a == nil {
		return fmt.Errorf("candidate analysis is required")
	}
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid candidate analysis %q: %w", a.Filename, err)
	}
	return nil
}

// Name returns the candidate's full name, falling back to the file name.
func (a *Analysis) Name() string {
	if name := strings.TrimSpace(a.ContactInfo.FullName); name != "" {
		return name
	}
	return a.Filename
}

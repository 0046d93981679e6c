// Package requirements holds the canonical structured job requirements and the
// fixed text grammar used when a recruiter edits them by hand.
package requirements

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/resume-ranker/internal/utils"
)

// JobRequirements is the structured summary extracted from a job description.
// Every list keeps the order it was produced in.
type JobRequirements struct {
	OriginalJobDescription      string     `json:"original_job_description"`
	MustHave                    MustHave   `json:"must_have_requirements"`
	GoodToHave                  GoodToHave `json:"good_to_have_requirements"`
	AdditionalScreeningCriteria []string   `json:"additional_screening_criteria" validate:"dive,required,singleline"`
}

// MustHave lists the requirements a candidate has to meet.
type MustHave struct {
	TechnicalSkills      []string `json:"technical_skills" validate:"dive,required,singleline"`
	Experience           string   `json:"experience" validate:"singleline"`
	Qualifications       []string `json:"qualifications" validate:"dive,required,singleline"`
	CoreResponsibilities []string `json:"core_responsibilities" validate:"dive,required,singleline"`
}

// GoodToHave lists the preferred, non-blocking requirements.
type GoodToHave struct {
	AdditionalSkills    []string `json:"additional_skills" validate:"dive,required,singleline"`
	ExtraQualifications []string `json:"extra_qualifications" validate:"dive,required,singleline"`
	BonusExperience     []string `json:"bonus_experience" validate:"dive,required,singleline"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), "\r\n")
	})
	return v
}

// Validate checks that every item is a non-empty single line.
func (r *JobRequirements) Validate() error {
	if r == nil {
		return fmt.Errorf("job requirements are required")
	}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid job requirements: %w", err)
	}
	return nil
}

// Normalize flattens every item to a single trimmed line, drops empty ones and replaces nil lists with empty
// lists so the requirements never serialize lists as null.
func (r *JobRequirements) Normalize() {
	if r == nil {
		return
	}
	r.MustHave.TechnicalSkills = normalizeList(r.MustHave.TechnicalSkills)
	r.MustHave.Experience = singleLine(r.MustHave.Experience)
	r.MustHave.Qualifications = normalizeList(r.MustHave.Qualifications)
	r.MustHave.CoreResponsibilities = normalizeList(r.MustHave.CoreResponsibilities)
	r.GoodToHave.AdditionalSkills = normalizeList(r.GoodToHave.AdditionalSkills)
	r.GoodToHave.ExtraQualifications = normalizeList(r.GoodToHave.ExtraQualifications)
	r.GoodToHave.BonusExperience = normalizeList(r.GoodToHave.BonusExperience)
	r.AdditionalScreeningCriteria = normalizeList(r.AdditionalScreeningCriteria)
}

func normalizeList(items []string) []string {
	flattened := make([]string, 0, len(items))
	for _, item := range items {
		flattened = append(flattened, singleLine(item))
	}
	return utils.CleanList(flattened)
}

// singleLine collapses every whitespace run, line breaks included, into one space.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Clone returns a deep copy.
func (r *JobRequirements) Clone() *JobRequirements {
	if r == nil {
		return nil
	}
	c := *r
	c.MustHave.TechnicalSkills = cloneList(r.MustHave.TechnicalSkills)
	c.MustHave.Qualifications = cloneList(r.MustHave.Qualifications)
	c.MustHave.CoreResponsibilities = cloneList(r.MustHave.CoreResponsibilities)
	c.GoodToHave.AdditionalSkills = cloneList(r.GoodToHave.AdditionalSkills)
	c.GoodToHave.ExtraQualifications = cloneList(r.GoodToHave.ExtraQualifications)
	c.GoodToHave.BonusExperience = cloneList(r.GoodToHave.BonusExperience)
	c.AdditionalScreeningCriteria = cloneList(r.AdditionalScreeningCriteria)
	return &c
}

// Empty returns requirements with every list present and empty.
func Empty() *JobRequirements {
	r := &JobRequirements{}
	r.Normalize()
	return r
}

// Count returns the number of individual requirement items, counting a
// non-empty experience as one.
func (r *JobRequirements) Count() int {
	if r == nil {
		return 0
	}
	n := len(r.MustHave.TechnicalSkills) + len(r.MustHave.Qualifications) + len(r.MustHave.CoreResponsibilities) +
		len(r.GoodToHave.AdditionalSkills) + len(r.GoodToHave.ExtraQualifications) + len(r.GoodToHave.BonusExperience) +
		len(r.AdditionalScreeningCriteria)
	if r.MustHave.Experience != "" {
		n++
	}
	return n
}

func cloneList(items []string) []string {
	if items == nil {
		return nil
	}
	return append(make([]string, 0, len(items)), items...)
}

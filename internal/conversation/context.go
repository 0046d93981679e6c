// Package conversation drives the chat-assisted job description authoring flow.
package conversation

import (
	"fmt"
	"strings"

	"github.com/spigell/resume-ranker/internal/utils"
)

// Step is the authoring progress reported by the analysis service.
type Step string

const (
	StepJobTitle         Step = "job_title"
	StepCompany          Step = "company"
	StepDepartment       Step = "department"
	StepRequirements     Step = "requirements"
	StepResponsibilities Step = "responsibilities"
	StepBenefits         Step = "benefits"
	StepExperience       Step = "experience"
	StepSkills           Step = "skills"
	StepDone             Step = "done"
)

var stepOrder = []Step{
	StepJobTitle,
	StepCompany,
	StepDepartment,
	StepRequirements,
	StepResponsibilities,
	StepBenefits,
	StepExperience,
	StepSkills,
	StepDone,
}

// Index returns the position of the step in the authoring order, or -1.
func (s Step) Index() int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	return s.Index() >= 0
}

// ParseStep reads a wire value.
func ParseStep(raw string) (Step, error) {
	s := Step(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown conversation step %q", raw)
	}
	return s, nil
}

// Context is what the session knows about the role being described. Keys match
// what chat clients send.
type Context struct {
	Step             Step     `json:"step"`
	JobTitle         string   `json:"jobTitle"`
	Company          string   `json:"company"`
	Department       string   `json:"department"`
	Experience       string   `json:"experience"`
	CompanyOverview  string   `json:"companyOverview,omitempty"`
	Requirements     []string `json:"requirements"`
	Responsibilities []string `json:"responsibilities"`
	Benefits         []string `json:"benefits"`
	Skills           []string `json:"skills"`
}

// NewContext returns the context every session starts with.
func NewContext() Context {
	return Context{
		Step:             StepJobTitle,
		Requirements:     []string{},
		Responsibilities: []string{},
		Benefits:         []string{},
		Skills:           []string{},
	}
}

// Clone returns a deep copy.
func (c Context) Clone() Context {
	out := c
	out.Requirements = append([]string{}, c.Requirements...)
	out.Responsibilities = append([]string{}, c.Responsibilities...)
	out.Benefits = append([]string{}, c.Benefits...)
	out.Skills = append([]string{}, c.Skills...)
	return out
}

// Merge folds a context returned by the service into c. The step only moves
// forward, scalar fields are kept once set and lists only grow.
func (c Context) Merge(next Context) Context {
	out := c.Clone()

	if next.Step.Index() > out.Step.Index() {
		out.Step = next.Step
	}

	out.JobTitle = sticky(out.JobTitle, next.JobTitle)
	out.Company = sticky(out.Company, next.Company)
	out.Department = sticky(out.Department, next.Department)
	out.Experience = sticky(out.Experience, next.Experience)
	out.CompanyOverview = sticky(out.CompanyOverview, next.CompanyOverview)

	out.Requirements = utils.AppendDistinct(out.Requirements, next.Requirements...)
	out.Responsibilities = utils.AppendDistinct(out.Responsibilities, next.Responsibilities...)
	out.Benefits = utils.AppendDistinct(out.Benefits, next.Benefits...)
	out.Skills = utils.AppendDistinct(out.Skills, next.Skills...)

	return out
}

func sticky(current, next string) string {
	if strings.TrimSpace(current) != "" {
		return current
	}
	return strings.TrimSpace(next)
}

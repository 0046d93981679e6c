package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spigell/resume-ranker/internal/candidate"
)

// Columns is the CSV header row.
var Columns = []string{
	"filename",
	"semantic_percentage",
	"quantitative_percentage",
	"full_name",
	"email",
	"phone",
	"location",
	"linkedin",
	"other_links",
	"total_work_experience",
	"last_position",
	"final_recommendation",
	"project_gravity",
	"ownership_and_initiative",
	"transferability_to_role",
	"recruiter_style_summary",
	"core_responsibilities",
	"additional_skills",
	"additional_screening_criteria",
	"inferred_skills_from_projects",
	"strengths",
	"weaknesses",
	"summary_of_key_factors",
}

// Row flattens one candidate into Columns order. Absent values are empty strings.
func Row(a *candidate.Analysis) []string {
	c := a.ContactInfo
	q := a.QualitativeAssessment
	m := a.RequirementMatch

	return []string{
		a.Filename,
		strconv.Itoa(a.SemanticPercentage),
		strconv.Itoa(a.QuantitativePercentage),
		c.FullName,
		c.Email,
		c.Phone,
		c.Location,
		c.LinkedIn,
		joinList(c.OtherLinks),
		c.TotalWorkExperience,
		c.LastPosition,
		a.FinalRecommendation,
		q.ProjectGravity,
		q.OwnershipAndInitiative,
		q.TransferabilityToRole,
		q.RecruiterStyleSummary,
		m.MustHave.CoreResponsibilities.String(),
		m.GoodToHave.AdditionalSkills.String(),
		m.AdditionalScreeningCriteria.String(),
		joinList(q.InferredSkills),
		joinList(q.Strengths),
		joinList(q.Weaknesses),
		joinList(a.SummaryOfKeyFactors),
	}
}

// WriteCSV writes the header and one row per candidate in the given order.
func WriteCSV(w io.Writer, items []*candidate.Analysis) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, item := range items {
		if err := cw.Write(Row(item)); err != nil {
			return fmt.Errorf("write csv row %q: %w", item.Filename, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func joinList(items []string) string {
	return strings.Join(items, ", ")
}

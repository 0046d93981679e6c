package candidate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "contact_info": {"full_name": "Ada Lovelace", "email": "ada@example.com", "other_links": ["https://github.com/ada"]},
  "requirement_match": {
    "must_have_requirements": {
      "technical_skills": {"Go": true, "PostgreSQL": false, "Docker": true},
      "experience": true,
      "qualifications": {"BSc Computer Science": true},
      "core_responsibilities": {"Design APIs": true, "Mentor engineers": false}
    },
    "good_to_have_requirements": {
      "additional_skills": {"Kubernetes": false},
      "extra_qualifications": null,
      "bonus_experience": {}
    },
    "additional_screening_criteria": {"Jakarta based": true}
  },
  "qualitative_assessment": {
    "inferred_skills_from_projects": ["distributed systems"],
    "project_gravity": "High",
    "ownership_and_initiative": "Moderate",
    "transferability_to_role": "High",
    "recruiter_style_summary": "Solid backend engineer.",
    "strengths": ["Go"],
    "weaknesses": null
  },
  "final_recommendation": "Yes",
  "summary_of_key_factors": ["Strong Go background"]
}`

func TestParseJSON(t *testing.T) {
	a, err := ParseJSON(" ada.pdf ", []byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, "ada.pdf", a.Filename)
	assert.Equal(t, "Ada Lovelace", a.Name())
	assert.Equal(t, []string{"https://github.com/ada"}, a.ContactInfo.OtherLinks)

	skills := a.RequirementMatch.MustHave.TechnicalSkills
	assert.Equal(t, MatchSet{{"Go", true}, {"PostgreSQL", false}, {"Docker", true}}, skills)
	assert.Equal(t, 2, skills.Matched())
	assert.Equal(t, 3, skills.Total())

	assert.Equal(t, MatchSet{{Matched: true}}, a.RequirementMatch.MustHave.Experience)
	assert.Equal(t, MatchSet{}, a.RequirementMatch.GoodToHave.ExtraQualifications)
	assert.Equal(t, MatchSet{}, a.RequirementMatch.GoodToHave.BonusExperience)
	assert.Equal(t, "High", a.QualitativeAssessment.ProjectGravity)
	assert.Nil(t, a.QualitativeAssessment.Weaknesses)
}

func TestParseJSONRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing requirement match": `{"contact_info": {}, "qualitative_assessment": {}, "final_recommendation": "No"}`,
		"non boolean verdict":       `{"contact_info": {}, "requirement_match": {"must_have_requirements": {"technical_skills": {"Go": "yes"}}}, "qualitative_assessment": {}, "final_recommendation": "No"}`,
		"list as match set":         `{"contact_info": {}, "requirement_match": {"must_have_requirements": {"technical_skills": ["Go"]}}, "qualitative_assessment": {}, "final_recommendation": "No"}`,
	}

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON("x.pdf", []byte(payload))
			require.Error(t, err)
		})
	}
}

func TestParseJSONRequiresFilename(t *testing.T) {
	_, err := ParseJSON("  ", []byte(samplePayload))
	require.Error(t, err)
}

func TestValidatePercentageBounds(t *testing.T) {
	a := &Analysis{Filename: "a.pdf", SemanticPercentage: 100, QuantitativePercentage: 0}
	require.NoError(t, a.Validate())

	a.SemanticPercentage = 101
	require.Error(t, a.Validate())

	a.SemanticPercentage = 50
	a.QuantitativePercentage = -1
	require.Error(t, a.Validate())
}

func TestMatchSetKeepsOrder(t *testing.T) {
	in := `{"Zeta":true,"Alpha":false,"Mu":true}`

	var set MatchSet
	require.NoError(t, json.Unmarshal([]byte(in), &set))
	assert.Equal(t, MatchSet{{"Zeta", true}, {"Alpha", false}, {"Mu", true}}, set)

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
	assert.Equal(t, in, string(out))
	assert.Equal(t, "Zeta: true, Alpha: false, Mu: true", set.String())
}

func TestMatchSetBareBoolean(t *testing.T) {
	var set MatchSet
	require.NoError(t, json.Unmarshal([]byte("false"), &set))
	assert.Equal(t, MatchSet{{Matched: false}}, set)
	assert.Equal(t, 0, set.Matched())
	assert.Equal(t, 1, set.Total())

	out, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t, "false", string(out))
	assert.Equal(t, "false", set.String())
}

func TestMatchSetRejectsArrays(t *testing.T) {
	var set MatchSet
	require.Error(t, json.Unmarshal([]byte(`[true]`), &set))
}

func TestAnalysisRoundTrip(t *testing.T) {
	a, err := ParseJSON("ada.pdf", []byte(samplePayload))
	require.NoError(t, err)
	a.SemanticPercentage = 72
	a.QuantitativePercentage = 63

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var back Analysis
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a.RequirementMatch, back.RequirementMatch)
	assert.Equal(t, 72, back.SemanticPercentage)
	assert.Equal(t, "ada.pdf", back.Filename)
}

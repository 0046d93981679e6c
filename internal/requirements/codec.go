package requirements

import (
	"strings"
)

// Section headers of the editable text form.
const (
	HeaderTechnicalSkills      = "Technical Skills"
	HeaderExperience           = "Experience"
	HeaderQualifications       = "Qualifications"
	HeaderCoreResponsibilities = "Core Responsibilities"
	HeaderAdditionalSkills     = "Additional Skills"
	HeaderExtraQualifications  = "Extra Qualifications"
	HeaderBonusExperience      = "Bonus Experience"

	bulletPrefix = "- "
)

// Sections is the editable text form of JobRequirements: three independent blocks.
type Sections struct {
	MustHave   string `json:"must_have_text"`
	Preferred  string `json:"preferred_text"`
	Additional string `json:"additional_text"`
}

type block struct {
	header string
	items  []string
}

// Encode renders requirements into the three editable text blocks. Headers are
// always written, even for empty lists. A nil value encodes as empty requirements.
func Encode(r *JobRequirements) Sections {
	if r == nil {
		r = Empty()
	}

	mustHave := renderBlocks([]block{
		{header: HeaderTechnicalSkills, items: r.MustHave.TechnicalSkills},
		{header: HeaderExperience, items: []string{r.MustHave.Experience}},
		{header: HeaderQualifications, items: r.MustHave.Qualifications},
		{header: HeaderCoreResponsibilities, items: r.MustHave.CoreResponsibilities},
	})

	preferred := renderBlocks([]block{
		{header: HeaderAdditionalSkills, items: r.GoodToHave.AdditionalSkills},
		{header: HeaderExtraQualifications, items: r.GoodToHave.ExtraQualifications},
		{header: HeaderBonusExperience, items: r.GoodToHave.BonusExperience},
	})

	lines := make([]string, 0, len(r.AdditionalScreeningCriteria))
	for _, item := range r.AdditionalScreeningCriteria {
		lines = append(lines, bulletPrefix+item)
	}

	return Sections{
		MustHave:   mustHave,
		Preferred:  preferred,
		Additional: strings.Join(lines, "\n"),
	}
}

func renderBlocks(blocks []block) string {
	lines := make([]string, 0)
	for i, b := range blocks {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, b.header+":")
		for _, item := range b.items {
			lines = append(lines, bulletPrefix+item)
		}
	}
	return strings.Join(lines, "\n")
}

// Decode parses the three text blocks back into requirements. Lines starting with
// "- " are items of the most recent header, lines ending with ":" are headers.
// Unknown headers, stray lines and bullets before any header are ignored. Several
// experience bullets are joined with "; ".
func Decode(s Sections) (*JobRequirements, error) {
	r := Empty()

	mustHave := parseBlocks(s.MustHave)
	r.MustHave.TechnicalSkills = append(r.MustHave.TechnicalSkills, mustHave[key(HeaderTechnicalSkills)]...)
	r.MustHave.Experience = strings.Join(mustHave[key(HeaderExperience)], "; ")
	r.MustHave.Qualifications = append(r.MustHave.Qualifications, mustHave[key(HeaderQualifications)]...)
	r.MustHave.CoreResponsibilities = append(r.MustHave.CoreResponsibilities, mustHave[key(HeaderCoreResponsibilities)]...)

	preferred := parseBlocks(s.Preferred)
	r.GoodToHave.AdditionalSkills = append(r.GoodToHave.AdditionalSkills, preferred[key(HeaderAdditionalSkills)]...)
	r.GoodToHave.ExtraQualifications = append(r.GoodToHave.ExtraQualifications, preferred[key(HeaderExtraQualifications)]...)
	r.GoodToHave.BonusExperience = append(r.GoodToHave.BonusExperience, preferred[key(HeaderBonusExperience)]...)

	for _, line := range strings.Split(s.Additional, "\n") {
		if item, ok := bullet(line); ok && item != "" {
			r.AdditionalScreeningCriteria = append(r.AdditionalScreeningCriteria, item)
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func parseBlocks(text string) map[string][]string {
	parsed := make(map[string][]string)
	current := ""
	for _, line := range strings.Split(text, "\n") {
		if item, ok := bullet(line); ok {
			if current != "" && item != "" {
				parsed[current] = append(parsed[current], item)
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasSuffix(trimmed, ":") {
			current = key(strings.TrimSuffix(trimmed, ":"))
		}
	}
	return parsed
}

// bullet reports whether the line is an item line and returns its text.
// A lone "-" is an empty item.
func bullet(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "-" {
		return "", true
	}
	if !strings.HasPrefix(trimmed, bulletPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(trimmed, bulletPrefix)), true
}

func key(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(header)), "_")
}

package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

func prompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		panic(fmt.Sprintf("missing prompt %q: %v", name, err))
	}
	return string(data)
}

var (
	jobAnalysisSystem    = prompt("job_analysis_system")
	jobAnalysisUser      = prompt("job_analysis_user")
	resumeAnalysisSystem = prompt("resume_analysis_system")
	resumeAnalysisUser   = prompt("resume_analysis_user")
	semanticScoreSystem  = prompt("semantic_score_system")
	semanticScoreUser    = prompt("semantic_score_user")
	chatSystem           = prompt("chat_system")
	chatUser             = prompt("chat_user")
)

// fill replaces {{KEY}} placeholders in template.
func fill(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}

package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spigell/resume-ranker/internal/requirements"
)

const (
	markerMustHave   = "##### MUST HAVE #####"
	markerPreferred  = "##### PREFERRED #####"
	markerAdditional = "##### ADDITIONAL #####"

	defaultEditor = "vi"
)

// renderSections joins the three blocks into one editable document.
func renderSections(s requirements.Sections) string {
	var b strings.Builder
	for _, part := range []struct{ marker, text string }{
		{markerMustHave, s.MustHave},
		{markerPreferred, s.Preferred},
		{markerAdditional, s.Additional},
	} {
		b.WriteString(part.marker)
		b.WriteString("\n")
		if text := strings.TrimSpace(part.text); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseSections splits a document written by renderSections. Text before the
// first marker is ignored.
func parseSections(doc string) (requirements.Sections, error) {
	blocks := map[string]*strings.Builder{}
	var current *strings.Builder
	for _, line := range strings.Split(doc, "\n") {
		switch marker := strings.TrimSpace(line); marker {
		case markerMustHave, markerPreferred, markerAdditional:
			if _, ok := blocks[marker]; ok {
				return requirements.Sections{}, fmt.Errorf("section %q appears twice", marker)
			}
			current = &strings.Builder{}
			blocks[marker] = current
			continue
		}
		if current != nil {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	for _, marker := range []string{markerMustHave, markerPreferred, markerAdditional} {
		if _, ok := blocks[marker]; !ok {
			return requirements.Sections{}, fmt.Errorf("section %q is missing", marker)
		}
	}

	return requirements.Sections{
		MustHave:   strings.TrimSpace(blocks[markerMustHave].String()),
		Preferred:  strings.TrimSpace(blocks[markerPreferred].String()),
		Additional: strings.TrimSpace(blocks[markerAdditional].String()),
	}, nil
}

// editSections opens the sections in the user's editor and returns the result.
func editSections(s requirements.Sections) (requirements.Sections, error) {
	text, err := editText("requirements_*.txt", renderSections(s))
	if err != nil {
		return requirements.Sections{}, err
	}
	return parseSections(text)
}

// editText opens text in $VISUAL or $EDITOR and returns what was saved.
func editText(pattern, text string) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(text); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = defaultEditor
	}

	fields := strings.Fields(editor)
	cmd := exec.Command(fields[0], append(fields[1:], file.Name())...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running editor %q: %w", editor, err)
	}

	data, err := os.ReadFile(file.Name())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Package resume loads candidate resume files and extracts their text.
package resume

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
)

var (
	// ErrEmpty is returned for zero-length files.
	ErrEmpty = errors.New("resume file is empty")
	// ErrUnsupported is returned for files that are not PDF, DOCX or plain text.
	ErrUnsupported = errors.New("unsupported resume type")
)

// Document is one resume queued for analysis. Data holds the original bytes;
// Text holds whatever plain text could be extracted from them.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
	Text     string
}

// FromBytes sniffs the content type and extracts text. Text extraction failures
// for PDF leave Text empty; the raw bytes are still usable by providers that
// accept PDF input.
func FromBytes(name string, data []byte) (*Document, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("resume name is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmpty)
	}

	doc := &Document{Name: name, Data: data}
	detected := mimetype.Detect(data)

	switch {
	case detected.Is(MIMEPDF):
		doc.MIMEType = MIMEPDF
		doc.Text = pdfText(data)
	case detected.Is(MIMEDOCX), detected.Is("application/zip") && strings.EqualFold(filepath.Ext(name), ".docx"):
		text, err := docxText(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		doc.MIMEType = MIMEDOCX
		doc.Text = text
	case isText(detected):
		doc.MIMEType = MIMEText
		doc.Text = strings.TrimSpace(string(data))
	default:
		return nil, fmt.Errorf("%s (%s): %w", name, detected.String(), ErrUnsupported)
	}

	return doc, nil
}

// Load reads a resume from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume %q: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// IsBinary reports whether the document has to be sent as an attachment rather
// than as text.
func (d *Document) IsBinary() bool {
	return d.MIMEType != MIMEText
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(MIMEText) {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func docxText(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	return wordText(r.Editable().GetContent())
}

// wordText flattens WordprocessingML into plain text: one line per paragraph,
// tabs and breaks preserved.
func wordText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx body: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}

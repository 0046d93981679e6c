package results

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-ranker/internal/candidate"
	"github.com/spigell/resume-ranker/internal/scoring"
)

const (
	resultsSheet  = "Results"
	sectionsSheet = "Sections"
)

var bandColors = map[scoring.Band]string{
	scoring.BandStrong:   "C6EFCE",
	scoring.BandModerate: "FFEB9C",
	scoring.BandWeak:     "FFC7CE",
}

// WriteXLSX renders a workbook with a Results sheet (same columns as the CSV,
// percentage cells coloured by band) and a Sections sheet with per-section
// scores.
func WriteXLSX(w io.Writer, items []*candidate.Analysis, t scoring.Thresholds) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sectionsSheet); err != nil {
		return fmt.Errorf("create %s sheet: %w", sectionsSheet, err)
	}

	styles, header, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeResults(f, items, t, styles, header); err != nil {
		return fmt.Errorf("fill %s sheet: %w", resultsSheet, err)
	}
	if err := writeSections(f, items, t, styles, header); err != nil {
		return fmt.Errorf("fill %s sheet: %w", sectionsSheet, err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newStyles(f *excelize.File) (map[scoring.Band]int, int, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("header style: %w", err)
	}

	styles := make(map[scoring.Band]int, len(bandColors))
	for band, color := range bandColors {
		id, err := f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: border,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("%s style: %w", band, err)
		}
		styles[band] = id
	}
	return styles, header, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeResults(f *excelize.File, items []*candidate.Analysis, t scoring.Thresholds, styles map[scoring.Band]int, header int) error {
	if err := writeHeader(f, resultsSheet, Columns, header); err != nil {
		return err
	}

	for i, item := range items {
		rowNum := i + 2
		cells := Row(item)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		row[1] = item.SemanticPercentage
		row[2] = item.QuantitativePercentage

		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &row); err != nil {
			return err
		}

		for col, pct := range map[int]int{2: item.SemanticPercentage, 3: item.QuantitativePercentage} {
			ref, err := excelize.CoordinatesToCellName(col, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(resultsSheet, ref, ref, styles[t.Band(pct)]); err != nil {
				return err
			}
		}
	}

	if len(items) > 0 {
		last, err := excelize.CoordinatesToCellName(len(Columns), len(items)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(resultsSheet, "A1:"+last, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func writeSections(f *excelize.File, items []*candidate.Analysis, t scoring.Thresholds, styles map[scoring.Band]int, header int) error {
	headers := []string{"filename", "section", "matched", "total", "percentage", "band"}
	if err := writeHeader(f, sectionsSheet, headers, header); err != nil {
		return err
	}

	rowNum := 2
	for _, item := range items {
		for _, s := range scoring.Sections(item.RequirementMatch, t) {
			row := []interface{}{item.Filename, s.Name, s.Matched, s.Total, s.Percentage, string(s.Band)}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sectionsSheet, cell, &row); err != nil {
				return err
			}

			from, _ := excelize.CoordinatesToCellName(5, rowNum)
			to, _ := excelize.CoordinatesToCellName(6, rowNum)
			if err := f.SetCellStyle(sectionsSheet, from, to, styles[s.Band]); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

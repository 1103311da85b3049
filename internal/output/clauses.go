package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jackzampolin/charter/internal/extract"
	"github.com/jackzampolin/charter/internal/providers"
)

const clauseSheet = "Clauses"

// RawResponse is the merged clause list before the output transform.
type RawResponse struct {
	Clauses []providers.Clause `json:"clauses" yaml:"clauses"`
}

// WriteClauses encodes the final clause list in format.
func WriteClauses(w io.Writer, format Format, clauses []extract.Clause) error {
	if clauses == nil {
		clauses = []extract.Clause{}
	}
	if format == FormatXLSX {
		return writeClausesXLSX(w, clauses)
	}
	return Write(w, format, clauses)
}

// SaveClauses writes the final clause list to path.
func SaveClauses(path string, format Format, clauses []extract.Clause) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteClauses(w, format, clauses)
	})
}

// SaveRaw writes the merged clauses as {"clauses": [...]} JSON.
func SaveRaw(path string, merged []providers.Clause) error {
	if merged == nil {
		merged = []providers.Clause{}
	}
	return writeFile(path, func(w io.Writer) error {
		return Write(w, FormatJSON, RawResponse{Clauses: merged})
	})
}

func writeClausesXLSX(w io.Writer, clauses []extract.Clause) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", clauseSheet); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	headers := []string{"ID", "Title", "Text"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(clauseSheet, cell, h)
	}

	for i, c := range clauses {
		row := i + 2
		for col, v := range []string{c.ID, c.Title, c.Text} {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellStr(clauseSheet, cell, v)
		}
	}

	wrap, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	_ = f.SetColWidth(clauseSheet, "A", "A", 10)  // id
	_ = f.SetColWidth(clauseSheet, "B", "B", 36)  // title
	_ = f.SetColWidth(clauseSheet, "C", "C", 100) // text
	_ = f.SetColStyle(clauseSheet, "A:C", wrap)
	_ = f.SetPanes(clauseSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

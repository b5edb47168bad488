// CLAUDE:SUMMARY Local XLSX adapter: sharedStrings + per-sheet cell extraction to tabular rows.
package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// xlsxConverter reads the OOXML spreadsheet parts directly. Each sheet
// becomes one Sheet of string rows; cell values are resolved through
// sharedStrings when indexed. Formulas are not evaluated, only their
// cached values are read.
type xlsxConverter struct{}

func (x *xlsxConverter) Convert(ctx context.Context, data []byte, mode Mode) (*Conversion, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return nil, err
	}
	names, err := readSheetNames(zr)
	if err != nil {
		return nil, err
	}

	conv := &Conversion{}
	for i := 0; ; i++ {
		rc, err := openZipFile(zr, fmt.Sprintf("xl/worksheets/sheet%d.xml", i+1))
		if err != nil {
			break
		}
		rows, perr := readSheetRows(rc, shared)
		rc.Close()
		if perr != nil {
			return nil, fmt.Errorf("sheet %d: %w", i+1, perr)
		}
		name := fmt.Sprintf("Sheet%d", i+1)
		if i < len(names) {
			name = names[i]
		}
		conv.Sheets = append(conv.Sheets, Sheet{Name: name, Rows: rows})
	}
	if len(conv.Sheets) == 0 {
		return nil, fmt.Errorf("no worksheets in archive")
	}
	return conv, nil
}

// readSharedStrings parses xl/sharedStrings.xml; a missing part means the
// workbook uses only inline values.
func readSharedStrings(zr *zip.Reader) ([]string, error) {
	rc, err := openZipFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil
	}
	defer rc.Close()

	var doc struct {
		SI []struct {
			T string `xml:"t"`
			R []struct {
				T string `xml:"t"`
			} `xml:"r"`
		} `xml:"si"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse sharedStrings.xml: %w", err)
	}
	out := make([]string, 0, len(doc.SI))
	for _, si := range doc.SI {
		if si.T != "" || len(si.R) == 0 {
			out = append(out, si.T)
			continue
		}
		var b strings.Builder
		for _, run := range si.R {
			b.WriteString(run.T)
		}
		out = append(out, b.String())
	}
	return out, nil
}

// readSheetNames parses the workbook sheet list, in declaration order.
func readSheetNames(zr *zip.Reader) ([]string, error) {
	rc, err := openZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil, nil
	}
	defer rc.Close()

	var doc struct {
		Sheets struct {
			Sheet []struct {
				Name string `xml:"name,attr"`
			} `xml:"sheet"`
		} `xml:"sheets"`
	}
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse workbook.xml: %w", err)
	}
	names := make([]string, 0, len(doc.Sheets.Sheet))
	for _, s := range doc.Sheets.Sheet {
		names = append(names, s.Name)
	}
	return names, nil
}

type xlsxCell struct {
	R  string `xml:"r,attr"`
	T  string `xml:"t,attr"`
	V  string `xml:"v"`
	IS struct {
		T string `xml:"t"`
	} `xml:"is"`
}

// readSheetRows extracts cell values row by row, padding to the declared
// column of each cell so sparse rows keep their shape.
func readSheetRows(r io.Reader, shared []string) ([][]string, error) {
	var doc struct {
		SheetData struct {
			Row []struct {
				C []xlsxCell `xml:"c"`
			} `xml:"row"`
		} `xml:"sheetData"`
	}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse worksheet: %w", err)
	}

	var rows [][]string
	for _, row := range doc.SheetData.Row {
		var cells []string
		for _, c := range row.C {
			col := columnIndex(c.R)
			for len(cells) < col {
				cells = append(cells, "")
			}
			cells = append(cells, cellValue(c, shared))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func cellValue(c xlsxCell, shared []string) string {
	switch c.T {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		return c.IS.T
	default:
		return c.V
	}
}

// columnIndex converts the column letters of a cell reference like "BC12"
// to a zero-based index.
func columnIndex(ref string) int {
	col := 0
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
	}
	if col == 0 {
		return 0
	}
	return col - 1
}

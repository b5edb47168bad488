package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"strings"
	"testing"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

const docxDocument = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Quarterly Report</w:t></w:r>
    </w:p>
    <w:p><w:r><w:t>First paragraph of the report.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph, with </w:t></w:r><w:r><w:t>two runs.</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestDocxText(t *testing.T) {
	data := buildZip(t, map[string]string{"word/document.xml": docxDocument})
	conv, err := NewRegistry().Convert(context.Background(), KindDocx, data, ModeText)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !strings.Contains(conv.Text, "# Quarterly Report") {
		t.Errorf("heading not rendered: %q", conv.Text)
	}
	if !strings.Contains(conv.Text, "Second paragraph, with two runs.") {
		t.Errorf("runs not joined: %q", conv.Text)
	}
	paras := strings.Split(conv.Text, "\n\n")
	if len(paras) != 3 {
		t.Errorf("got %d paragraphs, want 3 (empty one dropped): %q", len(paras), conv.Text)
	}
}

func TestDocxMissingDocument(t *testing.T) {
	data := buildZip(t, map[string]string{"other.xml": "<x/>"})
	_, err := NewRegistry().Convert(context.Background(), KindDocx, data, ModeText)
	if err == nil || !strings.Contains(err.Error(), "document.xml") {
		t.Fatalf("expected missing document.xml error, got %v", err)
	}
}

func TestDocxImages(t *testing.T) {
	data := buildZip(t, map[string]string{
		"word/document.xml":     docxDocument,
		"word/media/image1.png": "\x89PNGfake",
	})
	conv, err := NewRegistry().Convert(context.Background(), KindDocx, data, ModeAll)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(conv.Images) != 1 || conv.Images[0].ID != "image1.png" {
		t.Fatalf("images: %+v", conv.Images)
	}
}

const xlsxWorkbook = `<?xml version="1.0"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheets>
    <sheet name="Budget" sheetId="1"/>
    <sheet name="Notes" sheetId="2"/>
  </sheets>
</workbook>`

const xlsxShared = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">
  <si><t>item</t></si>
  <si><t>amount</t></si>
</sst>`

const xlsxSheet1 = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1" t="s"><v>1</v></c>
    </row>
    <row r="2">
      <c r="A2" t="inlineStr"><is><t>widgets</t></is></c>
      <c r="C2"><v>41.5</v></c>
    </row>
  </sheetData>
</worksheet>`

const xlsxSheet2 = `<?xml version="1.0"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1"><c r="A1" t="inlineStr"><is><t>reviewed</t></is></c></row>
  </sheetData>
</worksheet>`

func TestXlsxSheets(t *testing.T) {
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":          xlsxWorkbook,
		"xl/sharedStrings.xml":     xlsxShared,
		"xl/worksheets/sheet1.xml": xlsxSheet1,
		"xl/worksheets/sheet2.xml": xlsxSheet2,
	})
	conv, err := NewRegistry().Convert(context.Background(), KindXlsx, data, ModeText)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(conv.Sheets) != 2 {
		t.Fatalf("got %d sheets, want 2", len(conv.Sheets))
	}
	if conv.Sheets[0].Name != "Budget" || conv.Sheets[1].Name != "Notes" {
		t.Errorf("sheet names: %+v", conv.Sheets)
	}
	rows := conv.Sheets[0].Rows
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "item" || rows[0][1] != "amount" {
		t.Errorf("shared strings not resolved: %v", rows[0])
	}
	// A2 inline, B2 missing (padded), C2 numeric.
	if len(rows[1]) != 3 || rows[1][0] != "widgets" || rows[1][1] != "" || rows[1][2] != "41.5" {
		t.Errorf("row 2: %v", rows[1])
	}
	if conv.Sheets[1].Rows[0][0] != "reviewed" {
		t.Errorf("sheet 2: %v", conv.Sheets[1].Rows)
	}
}

func TestConvertUnknownKindAndMode(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Convert(context.Background(), Kind("odt"), nil, ModeText); err == nil {
		t.Error("unknown kind should fail")
	}
	if _, err := r.Convert(context.Background(), KindDocx, nil, Mode("metadata")); err == nil {
		t.Error("unknown mode should fail")
	}
}

type stubConverter struct{ text string }

func (s *stubConverter) Convert(ctx context.Context, data []byte, mode Mode) (*Conversion, error) {
	return &Conversion{Text: s.text}, nil
}

func TestRegisterReplacesAdapter(t *testing.T) {
	r := NewRegistry()
	r.Register(KindPDF, &stubConverter{text: "ocr output"})
	conv, err := r.Convert(context.Background(), KindPDF, []byte("not a pdf"), ModeText)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Text != "ocr output" {
		t.Errorf("injected converter not used: %q", conv.Text)
	}
}

func TestKindFor(t *testing.T) {
	cases := []struct {
		ct, name string
		want     Kind
		ok       bool
	}{
		{"application/pdf", "", KindPDF, true},
		{"application/octet-stream", "scan.PDF", KindPDF, true},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "", KindDocx, true},
		{"application/octet-stream", "r.docx", KindDocx, true},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "", KindXlsx, true},
		{"text/plain", "a.txt", "", false},
	}
	for _, tc := range cases {
		got, ok := KindFor(tc.ct, tc.name)
		if got != tc.want || ok != tc.ok {
			t.Errorf("KindFor(%q,%q) = %q,%v", tc.ct, tc.name, got, ok)
		}
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n(Hello ) Tj\n[(content) -20 (stream)] TJ\nT*\n(second line) Tj\nET\n")
	got := extractTextFromStream(stream)
	if !strings.Contains(got, "Hello contentstream") {
		t.Errorf("Tj/TJ text: %q", got)
	}
	if !strings.Contains(got, "second line") {
		t.Errorf("T* line: %q", got)
	}
}

func TestDecodePDFString(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`octal\040space`, "octal space"},
		{`back\\slash`, `back\slash`},
	}
	for _, tc := range cases {
		if got := decodePDFString([]byte(tc.in)); got != tc.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanPDFText(t *testing.T) {
	got := cleanPDFText("  a\n\n b\t\tc  ")
	if got != "a b c" {
		t.Errorf("cleanPDFText: %q", got)
	}
}

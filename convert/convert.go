// CLAUDE:SUMMARY Closed converter boundary: pdf/docx/xlsx dispatch over injectable adapters.
// Package convert is the boundary to document conversion. The set of
// supported formats is closed; dispatch is an exhaustive switch so a new
// Kind cannot be added without the compiler-visible cases below. Default
// adapters run locally; callers may inject replacements (a cloud OCR
// service, typically) per kind.
package convert

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Kind names a convertible document format.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDocx Kind = "docx"
	KindXlsx Kind = "xlsx"
)

// Mode selects what a conversion should produce.
type Mode string

const (
	ModeText   Mode = "text"
	ModeImages Mode = "images"
	ModeAll    Mode = "all"
)

// Image is an extracted embedded image with a stable id.
type Image struct {
	ID   string
	Data []byte
}

// Sheet is one tabular extract of a spreadsheet.
type Sheet struct {
	Name string
	Rows [][]string
}

// Conversion is the result of converting one document. Text feeds the
// chunking engine; Sheets are tabular and are not segmented.
type Conversion struct {
	Text   string
	Sheets []Sheet
	Images []Image
}

// Converter converts one format. Implementations must be safe for
// concurrent use.
type Converter interface {
	Convert(ctx context.Context, data []byte, mode Mode) (*Conversion, error)
}

// Registry maps kinds to converters. The zero value is unusable; NewRegistry
// installs the local default adapters.
type Registry struct {
	converters map[Kind]Converter
}

func NewRegistry() *Registry {
	return &Registry{converters: map[Kind]Converter{
		KindPDF:  &pdfConverter{},
		KindDocx: &docxConverter{},
		KindXlsx: &xlsxConverter{},
	}}
}

// Register replaces the converter for a kind.
func (r *Registry) Register(kind Kind, c Converter) {
	r.converters[kind] = c
}

// Convert dispatches to the registered converter for kind. Unknown kinds
// and modes fail before any data is touched.
func (r *Registry) Convert(ctx context.Context, kind Kind, data []byte, mode Mode) (*Conversion, error) {
	switch kind {
	case KindPDF, KindDocx, KindXlsx:
	default:
		return nil, fmt.Errorf("convert: unsupported kind %q", kind)
	}
	switch mode {
	case ModeText, ModeImages, ModeAll:
	default:
		return nil, fmt.Errorf("convert: unsupported mode %q", mode)
	}
	c, ok := r.converters[kind]
	if !ok {
		return nil, fmt.Errorf("convert: no converter registered for %q", kind)
	}
	conv, err := c.Convert(ctx, data, mode)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", kind, err)
	}
	return conv, nil
}

// KindFor maps a declared content type and filename to a convertible
// Kind. The second return is false when the document is not convertible.
func KindFor(contentType, filename string) (Kind, bool) {
	ct := strings.ToLower(contentType)
	ext := strings.ToLower(path.Ext(filename))
	switch {
	case ct == "application/pdf" || ext == ".pdf":
		return KindPDF, true
	case strings.Contains(ct, "wordprocessingml") || ext == ".docx":
		return KindDocx, true
	case strings.Contains(ct, "spreadsheetml") || ext == ".xlsx":
		return KindXlsx, true
	}
	return "", false
}

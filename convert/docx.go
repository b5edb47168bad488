// CLAUDE:SUMMARY Local DOCX adapter: word/document.xml stream parse to markdown paragraphs.
package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// docxConverter reads word/document.xml out of the OOXML archive and
// renders paragraphs as markdown, mapping heading styles to # levels.
// Styles it does not recognize degrade to plain paragraphs.
type docxConverter struct{}

func (d *docxConverter) Convert(ctx context.Context, data []byte, mode Mode) (*Conversion, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	conv := &Conversion{}
	if mode == ModeText || mode == ModeAll {
		text, err := docxText(zr)
		if err != nil {
			return nil, err
		}
		conv.Text = text
	}
	if mode == ModeImages || mode == ModeAll {
		images, err := docxImages(zr)
		if err != nil {
			return nil, err
		}
		conv.Images = images
	}
	return conv, nil
}

func docxText(zr *zip.Reader) (string, error) {
	rc, err := openZipFile(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	style := ""

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current.Reset()
				style = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case t.Name.Local == "tab" && inParagraph:
				current.WriteByte('\t')
			case t.Name.Local == "br" && inParagraph:
				current.WriteByte('\n')
			}

		case xml.CharData:
			if inParagraph {
				current.Write(t)
			}

		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := strings.TrimSpace(current.String())
				if text == "" {
					continue
				}
				if level := headingLevel(style); level > 0 {
					text = strings.Repeat("#", level) + " " + text
				}
				paragraphs = append(paragraphs, text)
			}
		}
	}

	if len(paragraphs) == 0 {
		return "", errors.New("no text content in document")
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// docxImages collects embedded media in archive order.
func docxImages(zr *zip.Reader) ([]Image, error) {
	var images []Image
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		images = append(images, Image{
			ID:   strings.TrimPrefix(f.Name, "word/media/"),
			Data: data,
		})
	}
	return images, nil
}

func openZipFile(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// headingLevel maps a paragraph style name to a heading level, 0 for body.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

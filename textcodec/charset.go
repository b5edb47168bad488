// CLAUDE:SUMMARY Charset resolution: declared first, chardet sniffing second, lossless ISO-8859-1 last.
package textcodec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// decodeCharset turns raw bytes into a string per the resolution cascade:
// declared charset, sniffed charset, ISO-8859-1 best effort.
func decodeCharset(raw []byte, declared string) (Result, error) {
	declared = strings.ToLower(strings.TrimSpace(declared))

	if declared != "" {
		if text, err := decodeAs(raw, declared); err == nil {
			return Result{Text: text, Charset: declared}, nil
		}
		// Declared charset failed to decode cleanly; fall through to sniffing.
	}

	if name, ok := sniffCharset(raw); ok {
		if text, err := decodeAs(raw, name); err == nil {
			return Result{Text: text, Charset: name, Sniffed: true}, nil
		}
	}

	// Terminal fallback: ISO-8859-1 maps every byte to a rune, so nothing
	// is lost even when we guessed wrong.
	text, _ := charmap.ISO8859_1.NewDecoder().String(string(raw))
	return Result{Text: text, Charset: "iso-8859-1", Sniffed: declared == "", BestEffort: true}, nil
}

// decodeAs decodes raw with the named charset, failing when the data does
// not decode cleanly (so the caller can fall back).
func decodeAs(raw []byte, name string) (string, error) {
	switch name {
	case "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("invalid utf-8")
		}
		return string(raw), nil
	case "us-ascii", "ascii":
		for _, b := range raw {
			if b >= 0x80 {
				return "", fmt.Errorf("byte 0x%02x outside us-ascii", b)
			}
		}
		return string(raw), nil
	}

	enc, err := lookupEncoding(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	// x/text decoders substitute U+FFFD for undecodable input instead of
	// erroring; treat substitution as failure unless the input already
	// contained the replacement rune.
	if strings.ContainsRune(string(out), utf8.RuneError) && !strings.ContainsRune(string(raw), utf8.RuneError) {
		return "", fmt.Errorf("charset %q: undecodable bytes", name)
	}
	return string(out), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unknown charset %q", name)
	}
	return enc, nil
}

// sniffCharset runs statistical detection over the payload. Never fails;
// a miss just reports ok=false.
func sniffCharset(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	res, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil || res == nil || res.Charset == "" {
		return "", false
	}
	return strings.ToLower(res.Charset), true
}

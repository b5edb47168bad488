// CLAUDE:SUMMARY Transfer decoding (base64, QP, uuencode, binhex) and charset resolution with sniffing fallback.
// Package textcodec decodes MIME part payloads: transfer-encoding first,
// then character set.
//
// Transfer decoding is strict — malformed base64 or quoted-printable data
// fails with a *DecodeError instead of silently truncating. Charset
// resolution prefers the declared charset, falls back to statistical
// sniffing, and as a documented last resort decodes as ISO-8859-1 (which
// cannot fail and preserves every byte) with Result.BestEffort set.
package textcodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/quotedprintable"
	"strings"
)

// Result is a decoded text payload plus how it was obtained.
type Result struct {
	Text       string
	Charset    string // charset actually used for decoding
	Sniffed    bool   // charset came from content sniffing, not declaration
	BestEffort bool   // terminal ISO-8859-1 fallback was used
}

// DecodeError reports a transfer-decoding or charset failure.
type DecodeError struct {
	Stage    string // "transfer" or "charset"
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %q: %v", e.Stage, e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode applies the declared transfer encoding, then resolves the
// character set per the package rules. declaredCharset and
// transferEncoding may be empty.
func Decode(payload []byte, declaredCharset, transferEncoding string) (Result, error) {
	raw, err := DecodeTransfer(payload, transferEncoding)
	if err != nil {
		return Result{}, err
	}
	return decodeCharset(raw, declaredCharset)
}

// DecodeTransfer applies only the transfer decoding and returns raw bytes.
// Binary parts (attachments, images) go through here; charset handling
// does not apply to them.
func DecodeTransfer(payload []byte, transferEncoding string) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(transferEncoding))
	switch enc {
	case "", "7bit", "8bit", "binary":
		return payload, nil

	case "base64":
		cleaned := stripWhitespace(payload)
		out := make([]byte, base64.StdEncoding.DecodedLen(len(cleaned)))
		n, err := base64.StdEncoding.Decode(out, cleaned)
		if err != nil {
			return nil, &DecodeError{Stage: "transfer", Encoding: enc, Err: err}
		}
		return out[:n], nil

	case "quoted-printable":
		out, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(payload)))
		if err != nil {
			return nil, &DecodeError{Stage: "transfer", Encoding: enc, Err: err}
		}
		return out, nil

	case "uuencode", "x-uuencode", "uue", "x-uue":
		out, err := uudecode(payload)
		if err != nil {
			return nil, &DecodeError{Stage: "transfer", Encoding: enc, Err: err}
		}
		return out, nil

	case "binhex", "binhex40", "x-binhex40", "mac-binhex40", "mac-binhex":
		out, err := binhexDecode(payload)
		if err != nil {
			return nil, &DecodeError{Stage: "transfer", Encoding: enc, Err: err}
		}
		return out, nil

	default:
		return nil, &DecodeError{Stage: "transfer", Encoding: enc, Err: fmt.Errorf("unknown transfer encoding")}
	}
}

func stripWhitespace(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for _, c := range b {
		switch c {
		case ' ', '\t', '\r', '\n':
		default:
			out = append(out, c)
		}
	}
	return out
}

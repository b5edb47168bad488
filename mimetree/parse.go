// CLAUDE:SUMMARY Strict recursive MIME parser — raw bytes to Part tree, payloads kept transfer-encoded.
package mimetree

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"github.com/hazyhaar/mailsift/idgen"
)

// DefaultMaxDepth bounds MIME nesting. Real mail rarely exceeds depth 5;
// anything past this ceiling is treated as adversarial.
const DefaultMaxDepth = 16

// ParseOptions configures Parse. Zero values select production defaults.
type ParseOptions struct {
	// MaxDepth is the nesting ceiling; <= 0 selects DefaultMaxDepth.
	MaxDepth int
	// NewID mints the message ID; nil selects idgen.Default with "msg_" prefix.
	NewID idgen.Generator
	// Now supplies the creation timestamp; nil selects time.Now.
	Now func() time.Time
}

func (o *ParseOptions) normalize() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.NewID == nil {
		o.NewID = idgen.Prefixed("msg_", idgen.Default)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Parse parses a raw message into an immutable Message. The payloads of
// leaf parts stay transfer-encoded; decoding is the extractor's job.
// Malformed structure returns a *StructureError.
func Parse(raw []byte, opts ParseOptions) (*Message, error) {
	opts.normalize()

	headers, body, err := splitHeaderBody(raw)
	if err != nil {
		return nil, &StructureError{Kind: StructureMalformed, Err: err}
	}

	hv := func(name string) string {
		for _, h := range headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
		return ""
	}

	root, err := parsePart(hv, body, 1, "1", opts.MaxDepth)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        opts.NewID(),
		Headers:   headers,
		Root:      root,
		CreatedAt: opts.Now().UTC(),
	}, nil
}

// splitHeaderBody separates the header block from the body, preserving
// header order and unfolding continuation lines. CRLF and bare LF are
// both accepted.
func splitHeaderBody(raw []byte) ([]Header, []byte, error) {
	var headers []Header
	rest := raw

	for {
		line, tail, ok := cutLine(rest)
		if !ok && len(line) == 0 {
			// Headers ran to EOF with no body.
			rest = nil
			break
		}
		rest = tail
		if len(line) == 0 {
			// Blank line: body follows.
			break
		}
		if line[0] == ' ' || line[0] == '\t' {
			// Continuation of the previous header.
			if len(headers) == 0 {
				return nil, nil, fmt.Errorf("continuation line before first header")
			}
			headers[len(headers)-1].Value += " " + strings.TrimSpace(string(line))
			continue
		}
		idx := bytes.IndexByte(line, ':')
		if idx <= 0 {
			return nil, nil, fmt.Errorf("header line without field name: %q", truncateForError(line))
		}
		name := strings.TrimSpace(string(line[:idx]))
		value := strings.TrimSpace(string(line[idx+1:]))
		headers = append(headers, Header{Name: name, Value: value})
	}
	return headers, rest, nil
}

// cutLine returns the next line without its terminator, the remainder, and
// whether a terminator was found.
func cutLine(b []byte) (line, rest []byte, found bool) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return b, nil, false
	}
	line = b[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, b[idx+1:], true
}

func truncateForError(line []byte) string {
	const max = 60
	if len(line) > max {
		return string(line[:max]) + "..."
	}
	return string(line)
}

// parsePart builds one Part (and recursively its children) from a header
// lookup function and the raw body bytes.
func parsePart(get func(string) string, body []byte, depth int, path string, maxDepth int) (*Part, error) {
	if depth > maxDepth {
		return nil, &StructureError{Kind: StructureTooDeep, Path: path, Depth: depth}
	}

	p := &Part{Params: map[string]string{}}

	ctRaw := get("Content-Type")
	if ctRaw == "" {
		// RFC 2045 default.
		p.ContentType = "text/plain"
		p.Params["charset"] = "us-ascii"
	} else {
		mediatype, params, err := mime.ParseMediaType(ctRaw)
		if err != nil {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(ctRaw)), "multipart/") {
				// A broken multipart declaration means we cannot locate
				// boundaries; that is fatal, not something to paper over.
				return nil, &StructureError{Kind: StructureMalformed, Path: path, Err: fmt.Errorf("content-type %q: %w", ctRaw, err)}
			}
			p.ContentType = "text/plain"
		} else {
			p.ContentType = strings.ToLower(mediatype)
			for k, v := range params {
				p.Params[strings.ToLower(k)] = v
			}
		}
	}

	p.TransferEncoding = strings.ToLower(strings.TrimSpace(get("Content-Transfer-Encoding")))

	if cd := get("Content-Disposition"); cd != "" {
		disp, dparams, err := mime.ParseMediaType(cd)
		if err == nil {
			p.Disposition = strings.ToLower(disp)
			if fn, ok := dparams["filename"]; ok {
				p.Filename = decodeHeaderWord(fn)
			}
		} else {
			// Tolerate junk dispositions; classification falls back to
			// content-type heuristics.
			p.Disposition = strings.ToLower(strings.TrimSpace(strings.Split(cd, ";")[0]))
		}
	}
	if p.Filename == "" {
		if name, ok := p.Params["name"]; ok {
			p.Filename = decodeHeaderWord(name)
		}
	}

	if cid := get("Content-ID"); cid != "" {
		p.ContentID = strings.Trim(strings.TrimSpace(cid), "<>")
	}

	switch {
	case p.IsMultipart():
		boundary := p.Params["boundary"]
		if boundary == "" {
			return nil, &StructureError{Kind: StructureMalformed, Path: path, Err: fmt.Errorf("multipart without boundary")}
		}
		if err := parseChildren(p, body, boundary, depth, path, maxDepth); err != nil {
			return nil, err
		}

	case p.IsMessage():
		inner, err := parseEmbedded(body, depth+1, path+".1", maxDepth)
		if err != nil {
			return nil, err
		}
		p.Children = []*Part{inner}

	default:
		p.Raw = body
	}
	return p, nil
}

// parseChildren reads the children of a multipart container in declaration
// order. NextRawPart keeps payloads transfer-encoded.
func parseChildren(parent *Part, body []byte, boundary string, depth int, path string, maxDepth int) error {
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for i := 1; ; i++ {
		childPath := fmt.Sprintf("%s.%d", path, i)
		raw, err := mr.NextRawPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &StructureError{Kind: StructureMalformed, Path: childPath, Err: err}
		}
		payload, err := io.ReadAll(raw)
		if err != nil {
			return &StructureError{Kind: StructureMalformed, Path: childPath, Err: err}
		}
		child, err := parsePart(mimeHeaderGet(raw.Header), payload, depth+1, childPath, maxDepth)
		if err != nil {
			return err
		}
		parent.Children = append(parent.Children, child)
	}
}

// parseEmbedded parses a message/rfc822 payload into its root part.
func parseEmbedded(body []byte, depth int, path string, maxDepth int) (*Part, error) {
	if depth > maxDepth {
		return nil, &StructureError{Kind: StructureTooDeep, Path: path, Depth: depth}
	}
	headers, inner, err := splitHeaderBody(body)
	if err != nil {
		return nil, &StructureError{Kind: StructureMalformed, Path: path, Err: err}
	}
	get := func(name string) string {
		for _, h := range headers {
			if strings.EqualFold(h.Name, name) {
				return h.Value
			}
		}
		return ""
	}
	return parsePart(get, inner, depth, path, maxDepth)
}

func mimeHeaderGet(h textproto.MIMEHeader) func(string) string {
	return func(name string) string { return h.Get(name) }
}

// decodeHeaderWord decodes RFC 2047 encoded-words in filenames using the
// stdlib decoder (UTF-8, ISO-8859-1, US-ASCII). Anything it cannot decode
// is kept verbatim; the name is untrusted metadata either way.
func decodeHeaderWord(s string) string {
	if !strings.Contains(s, "=?") {
		return s
	}
	dec := new(mime.WordDecoder)
	out, err := dec.DecodeHeader(s)
	if err != nil {
		return s
	}
	return out
}

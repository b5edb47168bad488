// CLAUDE:SUMMARY Defines Message, Part, and StructureError types for the MIME tree model.
// Package mimetree parses raw RFC 2822 / MIME messages into an explicit
// part tree and walks it in declaration order.
//
// The parser is deliberately strict: payloads are kept transfer-encoded
// (textcodec owns decoding), malformed structure fails with a typed
// *StructureError, and recursion is bounded by a configurable depth
// ceiling so adversarial nesting cannot blow the stack.
package mimetree

import (
	"fmt"
	"strings"
	"time"
)

// Header is one raw header field. Order of appearance is preserved on the
// Message; lookups are case-insensitive.
type Header struct {
	Name  string
	Value string
}

// Message is the root entity for one parsed email. Immutable once parsed.
type Message struct {
	ID        string
	Headers   []Header
	Root      *Part
	CreatedAt time.Time
}

// Get returns the first header value for name (case-insensitive), or "".
func (m *Message) Get(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Part is one node of the MIME tree. Leaves carry the still
// transfer-encoded payload in Raw; containers carry Children.
// A Part is owned exclusively by its Message and shares its lifetime.
type Part struct {
	ContentType      string            // media type, e.g. "text/plain"
	Params           map[string]string // content-type parameters (charset, boundary, name)
	TransferEncoding string            // declared Content-Transfer-Encoding, lower-cased
	Disposition      string            // "attachment", "inline" or ""
	Filename         string            // declared filename (untrusted)
	ContentID        string            // Content-ID with angle brackets stripped
	Raw              []byte            // transfer-encoded payload (leaves only)
	Children         []*Part           // nested parts (containers only)
}

// Charset returns the declared charset parameter, or "".
func (p *Part) Charset() string {
	return p.Params["charset"]
}

// IsMultipart reports whether the part is a multipart container.
func (p *Part) IsMultipart() bool {
	return strings.HasPrefix(p.ContentType, "multipart/")
}

// IsMessage reports whether the part embeds a full message (message/rfc822).
func (p *Part) IsMessage() bool {
	return p.ContentType == "message/rfc822" || p.ContentType == "message/global"
}

// IsText reports whether the part declares a text media type.
func (p *Part) IsText() bool {
	return strings.HasPrefix(p.ContentType, "text/")
}

// PartRef is one entry of a Walk result: the part plus its position in the
// depth-first declaration-order traversal. Path is dotted 1-based
// ("1.2.1"), stable across reprocessing of the same input.
type PartRef struct {
	Part  *Part
	Index int
	Depth int
	Path  string
}

// StructureErrorKind classifies structure failures.
type StructureErrorKind string

const (
	// StructureMalformed marks unparseable MIME structure.
	StructureMalformed StructureErrorKind = "malformed"
	// StructureTooDeep marks nesting past the configured depth ceiling.
	StructureTooDeep StructureErrorKind = "too_deep"
)

// StructureError reports a malformed or adversarial MIME tree.
// Fatal to the whole document.
type StructureError struct {
	Kind  StructureErrorKind
	Path  string // dotted part path, "" for the top level
	Depth int
	Err   error
}

func (e *StructureError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "message"
	}
	if e.Err != nil {
		return fmt.Sprintf("mime structure %s at %s: %v", e.Kind, loc, e.Err)
	}
	return fmt.Sprintf("mime structure %s at %s (depth %d)", e.Kind, loc, e.Depth)
}

func (e *StructureError) Unwrap() error { return e.Err }

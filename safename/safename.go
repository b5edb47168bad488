// CLAUDE:SUMMARY Collision-free, traversal-safe filename allocation with stable original→secure mapping.
// Package safename turns untrusted declared filenames into collision-free,
// path-safe names for materialization.
//
// Allocation is deterministic per call order: re-running extraction on the
// same input with the same part ordering yields the same secure names,
// which idempotent reprocessing depends on. The collision suffix is a
// sequence token, not a timestamp or random value, for the same reason.
package safename

import (
	"fmt"
	"mime"
	"path"
	"strings"
)

// Name is one allocated original→secure pair. Original is untrusted and
// kept only as metadata.
type Name struct {
	Secure   string `json:"secure"`
	Original string `json:"original,omitempty"`
}

// Allocator allocates secure names scoped to one processing result.
// Not safe for concurrent use; scope one Allocator per document.
type Allocator struct {
	seq      int
	used     map[string]struct{}
	counters map[string]int
	names    []Name
}

// New returns an empty Allocator.
func New() *Allocator {
	return &Allocator{
		used:     make(map[string]struct{}),
		counters: make(map[string]int),
	}
}

// Allocate produces a secure name for the given untrusted original name.
// An empty or fully-stripped original is synthesized from the content type
// and an allocation counter.
func (a *Allocator) Allocate(original, contentType string) Name {
	a.seq++
	base := Sanitize(original)
	if base == "" {
		base = fmt.Sprintf("part_%03d%s", a.seq, extensionFor(contentType))
	}

	key := strings.ToLower(base)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	secure := base
	for {
		if _, taken := a.used[strings.ToLower(secure)]; !taken {
			break
		}
		a.counters[key]++
		secure = fmt.Sprintf("%s_%02d%s", stem, a.counters[key], ext)
	}
	a.used[strings.ToLower(secure)] = struct{}{}

	name := Name{Secure: secure, Original: original}
	a.names = append(a.names, name)
	return name
}

// Names returns all allocations in order.
func (a *Allocator) Names() []Name {
	out := make([]Name, len(a.names))
	copy(out, a.names)
	return out
}

// Mapping returns the original→secure map. Nameless allocations are
// keyed by their secure name; a re-allocated original keeps its latest
// secure name. Names preserves the full history.
func (a *Allocator) Mapping() map[string]string {
	out := make(map[string]string, len(a.names))
	for _, n := range a.names {
		key := n.Original
		if key == "" {
			key = n.Secure
		}
		out[key] = n.Secure
	}
	return out
}

// Sanitize strips path separators, traversal tokens, control characters,
// and anything outside a conservative allow-set. Returns "" when nothing
// usable remains.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// Keep only the final path element, whatever separator convention the
	// sender used.
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.ReplaceAll(name, "..", "")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('_')
		default:
			// Anything else (control chars, unicode tricks, shell
			// metacharacters) collapses to underscore.
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "._")
	if out == "" || allUnderscores(out) {
		return ""
	}
	return out
}

func allUnderscores(s string) bool {
	for _, r := range s {
		if r != '_' {
			return false
		}
	}
	return true
}

// extensionFor maps a content type to a filename extension for
// synthesized names.
func extensionFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if semi := strings.IndexByte(ct, ';'); semi >= 0 {
		ct = strings.TrimSpace(ct[:semi])
	}
	switch ct {
	case "text/plain", "":
		return ".txt"
	case "text/html":
		return ".html"
	case "message/rfc822":
		return ".eml"
	}
	if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
		// ExtensionsByType is sorted; taking the first keeps allocation
		// deterministic.
		return exts[0]
	}
	return ".bin"
}

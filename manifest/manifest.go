// CLAUDE:SUMMARY Manifest aggregate: builder with global invariant validation and deterministic JSON.
// Package manifest assembles one document's extraction and chunking
// results into a single serializable record. The Builder is the last line
// of defense before persistence: it validates global invariants that the
// upstream stages should never violate, and an InvariantError from it
// means a bug, not bad input.
package manifest

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hazyhaar/mailsift/chunk"
	"github.com/hazyhaar/mailsift/extract"
)

// Status of a processed document.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
)

// ChunkRecord is one stored chunk with its provenance.
type ChunkRecord struct {
	Index      int    `json:"index"`
	DocumentID string `json:"document_id"`
	Strategy   string `json:"strategy"`
	Units      string `json:"units"`
	Length     int    `json:"length"`
	Overlap    int    `json:"overlap"`
	Text       string `json:"text"`
}

// NamePair maps an untrusted original filename to its secure name.
type NamePair struct {
	Original string `json:"original"`
	Secure   string `json:"secure"`
}

// Stats summarizes one processing run. Timestamps are RFC3339 UTC.
type Stats struct {
	Components int    `json:"components"`
	Chunks     int    `json:"chunks"`
	Failures   int    `json:"failures"`
	InputBytes int64  `json:"input_bytes"`
	BodyChars  int    `json:"body_chars"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// Manifest is the complete record of one document. Never mutated after
// Build returns it.
type Manifest struct {
	DocumentID  string              `json:"document_id"`
	Status      string              `json:"status"`
	Salvaged    bool                `json:"salvaged,omitempty"`
	Components  []extract.Component `json:"components"`
	Chunks      []ChunkRecord       `json:"chunks,omitempty"`
	FilenameMap []NamePair          `json:"filename_map,omitempty"`
	Failures    []extract.Failure   `json:"failures,omitempty"`
	Stats       Stats               `json:"stats"`
}

// JSON serializes the manifest. Field order is fixed by the struct, so
// identical manifests serialize to identical bytes.
func (m *Manifest) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// InvariantError reports a violated global invariant.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("manifest invariant %s: %s", e.Rule, e.Detail)
}

// Builder accumulates one document's results. Not safe for concurrent use;
// one builder per document.
type Builder struct {
	m       Manifest
	now     func() time.Time
	started time.Time
}

// NewBuilder starts a manifest for documentID. now may be nil for the wall
// clock; tests inject a fixed clock for byte-identical output.
func NewBuilder(documentID string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	b := &Builder{
		m:   Manifest{DocumentID: documentID},
		now: now,
	}
	b.started = now()
	return b
}

func (b *Builder) SetInputBytes(n int64) {
	b.m.Stats.InputBytes = n
}

// AddOutcome merges an extraction outcome: components, the filename map,
// and any per-part failures.
func (b *Builder) AddOutcome(out *extract.Outcome) {
	b.m.Components = append(b.m.Components, out.Components...)
	for _, n := range out.Names {
		b.m.FilenameMap = append(b.m.FilenameMap, NamePair{Original: n.Original, Secure: n.Secure})
	}
	b.m.Failures = append(b.m.Failures, out.Failures...)
	if out.Salvaged {
		b.m.Salvaged = true
	}
}

// AddFailure records a document-level problem that processing survived.
func (b *Builder) AddFailure(f extract.Failure) {
	b.m.Failures = append(b.m.Failures, f)
}

// AddChunks appends the chunks of one split run.
func (b *Builder) AddChunks(strategy, units string, chunks []chunk.Chunk) {
	for _, c := range chunks {
		b.m.Chunks = append(b.m.Chunks, ChunkRecord{
			Index:      len(b.m.Chunks),
			DocumentID: b.m.DocumentID,
			Strategy:   strategy,
			Units:      units,
			Length:     c.UnitCount,
			Overlap:    c.OverlapPrev,
			Text:       c.Text,
		})
	}
}

// Build validates the global invariants and seals the manifest.
func (b *Builder) Build() (*Manifest, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	m := b.m
	m.Status = StatusSuccess
	if len(m.Failures) > 0 {
		m.Status = StatusPartial
	}
	m.Stats.Components = len(m.Components)
	m.Stats.Chunks = len(m.Chunks)
	m.Stats.Failures = len(m.Failures)
	if body := bodyOf(m.Components); body != nil {
		m.Stats.BodyChars = utf8.RuneCountInString(body.Text)
	}
	m.Stats.StartedAt = b.started.UTC().Format(time.RFC3339)
	m.Stats.FinishedAt = b.now().UTC().Format(time.RFC3339)
	return &m, nil
}

func (b *Builder) validate() error {
	ids := make(map[string]bool, len(b.m.Components))
	secure := make(map[string]bool, len(b.m.Components))
	for _, c := range b.m.Components {
		if ids[c.ID] {
			return &InvariantError{Rule: "component_id_unique", Detail: fmt.Sprintf("duplicate id %q", c.ID)}
		}
		ids[c.ID] = true
		if c.SecureName != "" {
			if secure[c.SecureName] {
				return &InvariantError{Rule: "secure_name_unique", Detail: fmt.Sprintf("duplicate secure name %q", c.SecureName)}
			}
			secure[c.SecureName] = true
		}
		if err := validateRefs(c); err != nil {
			return err
		}
	}

	mapped := make(map[string]bool, len(b.m.FilenameMap))
	for _, p := range b.m.FilenameMap {
		if mapped[p.Secure] {
			return &InvariantError{Rule: "filename_map_bijective", Detail: fmt.Sprintf("secure name %q mapped twice", p.Secure)}
		}
		mapped[p.Secure] = true
	}

	for i, c := range b.m.Chunks {
		if c.Index != i {
			return &InvariantError{Rule: "chunk_contiguity", Detail: fmt.Sprintf("chunk %d carries index %d", i, c.Index)}
		}
	}
	return nil
}

func validateRefs(c extract.Component) error {
	if len(c.Refs) == 0 {
		return nil
	}
	limit := utf8.RuneCountInString(c.Text)
	prev := 0
	for _, r := range c.Refs {
		if r.Offset < 0 || r.Offset > limit {
			return &InvariantError{
				Rule:   "ref_offset_bounds",
				Detail: fmt.Sprintf("component %s references offset %d outside [0,%d]", c.ID, r.Offset, limit),
			}
		}
		if r.Offset < prev {
			return &InvariantError{
				Rule:   "ref_offset_order",
				Detail: fmt.Sprintf("component %s offsets decrease at %d", c.ID, r.Offset),
			}
		}
		prev = r.Offset
	}
	return nil
}

func bodyOf(components []extract.Component) *extract.Component {
	for i := range components {
		if components[i].Kind == extract.KindBodyText {
			return &components[i]
		}
	}
	return nil
}

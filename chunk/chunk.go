// CLAUDE:SUMMARY Text chunking with fixed, semantic and hybrid strategies over char or token units.
// Package chunk splits extracted text into overlapping chunks for
// downstream embedding. Three strategies are available: fixed size,
// structure-aware (semantic), and hybrid (semantic with a hard cap).
// Sizes are measured in units, either characters (runes) or
// whitespace-delimited tokens. Every chunk is a contiguous slice of the
// input, so concatenating the chunks (minus overlap prefixes) yields the
// input byte for byte.
package chunk

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Strategy selects the splitting algorithm.
type Strategy string

const (
	// StrategyFixed cuts at exact unit budgets regardless of structure.
	StrategyFixed Strategy = "fixed"
	// StrategySemantic cuts at paragraph, sentence and word boundaries.
	// Atomic blocks (fenced code, tables) are never split, so a chunk
	// may exceed the budget.
	StrategySemantic Strategy = "semantic"
	// StrategyHybrid runs semantic splitting, then re-splits any
	// oversized chunk with the fixed algorithm. Chunks never exceed
	// the budget.
	StrategyHybrid Strategy = "hybrid"
)

// Unit selects how sizes are measured.
type Unit string

const (
	UnitChars  Unit = "chars"
	UnitTokens Unit = "tokens"
)

const (
	DefaultMaxUnits     = 2000
	DefaultOverlapUnits = 200
)

// Options configures a split. Zero values take the defaults above; the
// zero Strategy is semantic and the zero Unit is chars. OverlapUnits
// defaults only when MaxUnits is also unset, so an explicit max with
// zero overlap keeps zero overlap.
type Options struct {
	Strategy     Strategy `yaml:"strategy"`
	Units        Unit     `yaml:"units"`
	MaxUnits     int      `yaml:"max_units"`
	OverlapUnits int      `yaml:"overlap_units"`
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategySemantic
	}
	if o.Units == "" {
		o.Units = UnitChars
	}
	if o.MaxUnits == 0 {
		o.MaxUnits = DefaultMaxUnits
		if o.OverlapUnits == 0 {
			o.OverlapUnits = DefaultOverlapUnits
		}
	}
	return o
}

// Validate reports whether the options (after defaulting) are usable.
// Callers wiring options from configuration should fail on this before
// any document is processed.
func (o Options) Validate() error {
	return o.withDefaults().validate()
}

// ConfigError reports an invalid Options combination before any text is
// touched.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("chunk config %s: %s", e.Field, e.Detail)
}

func (o Options) validate() error {
	switch o.Strategy {
	case StrategyFixed, StrategySemantic, StrategyHybrid:
	default:
		return &ConfigError{Field: "strategy", Detail: fmt.Sprintf("unknown strategy %q", o.Strategy)}
	}
	switch o.Units {
	case UnitChars, UnitTokens:
	default:
		return &ConfigError{Field: "units", Detail: fmt.Sprintf("unknown unit %q", o.Units)}
	}
	if o.MaxUnits < 1 {
		return &ConfigError{Field: "max_units", Detail: "must be positive"}
	}
	if o.OverlapUnits < 0 {
		return &ConfigError{Field: "overlap_units", Detail: "must not be negative"}
	}
	if o.OverlapUnits >= o.MaxUnits {
		return &ConfigError{Field: "overlap_units", Detail: fmt.Sprintf("overlap %d must be smaller than max %d", o.OverlapUnits, o.MaxUnits)}
	}
	return nil
}

// Chunk is one piece of the split text. Indices are contiguous from 0.
// OverlapPrev is how many leading units repeat the tail of the previous
// chunk, byte for byte.
type Chunk struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	UnitCount   int    `json:"unit_count"`
	OverlapPrev int    `json:"overlap_prev"`
}

// Split divides text into chunks. Empty input yields nil chunks; an
// invalid configuration fails before the text is examined.
func Split(text string, opts Options) ([]Chunk, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	switch opts.Strategy {
	case StrategyFixed:
		return fixedSplit(text, opts, 0), nil
	case StrategySemantic:
		return semanticSplit(text, opts), nil
	default:
		return hybridSplit(text, opts), nil
	}
}

// CountTokens counts whitespace-delimited tokens.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// EstimateTokens approximates subword token counts for budget planning,
// roughly four characters per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text) / 4
	if n < 1 && text != "" {
		return 1
	}
	return n
}

// ---- unit indexing ----

// unitStarts returns the byte offset of every unit in text, in order.
// For tokens, whitespace between units belongs to the preceding span.
func unitStarts(text string, unit Unit) []int {
	var starts []int
	if unit == UnitChars {
		starts = make([]int, 0, len(text))
		for i := range text {
			starts = append(starts, i)
		}
		return starts
	}
	inTok := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inTok = false
			continue
		}
		if !inTok {
			starts = append(starts, i)
			inTok = true
		}
	}
	return starts
}

func countUnits(s string, unit Unit) int {
	if unit == UnitChars {
		return utf8.RuneCountInString(s)
	}
	return len(strings.Fields(s))
}

// suffixUnits returns the byte suffix of s covering its last k units.
func suffixUnits(s string, k int, unit Unit) string {
	starts := unitStarts(s, unit)
	if len(starts) <= k {
		return s
	}
	return s[starts[len(starts)-k]:]
}

// ---- fixed ----

// fixedSplit cuts text into spans of at most max units, each non-first
// span starting overlap units before the previous end. Spans extend to
// the next unit's start (or the end of text), so the chunks cover every
// byte of the input. firstOverlap marks how many units of the first
// chunk repeat external text; hybridSplit uses it when re-splitting an
// already-overlapping chunk.
func fixedSplit(text string, opts Options, firstOverlap int) []Chunk {
	starts := unitStarts(text, opts.Units)
	total := len(starts)
	if total == 0 {
		return []Chunk{{Text: text, OverlapPrev: firstOverlap}}
	}
	var chunks []Chunk
	a := 0
	b := min(opts.MaxUnits, total)
	for {
		overlap := opts.OverlapUnits
		startByte := starts[a]
		if len(chunks) == 0 {
			overlap = firstOverlap
			startByte = 0
		}
		endByte := len(text)
		if b < total {
			endByte = starts[b]
		}
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Text:        text[startByte:endByte],
			UnitCount:   b - a,
			OverlapPrev: overlap,
		})
		if b == total {
			return chunks
		}
		a = b - opts.OverlapUnits
		b = min(a+opts.MaxUnits, total)
	}
}

// ---- semantic ----

// piece is a contiguous byte range of the source, at most the content
// budget in size unless it came from an atomic block. Pieces tile the
// input without gaps.
type piece struct {
	start, end int
}

// semanticSplit assembles pieces into chunks of at most MaxUnits. Each
// chunk is a slice of the source; a non-first chunk starts OverlapUnits
// before the previous chunk's end, so its leading units repeat the
// previous tail byte for byte. Only an atomic block can push a chunk
// past the budget.
func semanticSplit(text string, opts Options) []Chunk {
	pieces := buildPieces(text, opts)
	if len(pieces) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	curUnits := 0
	overlap := 0
	hasPiece := false

	for _, p := range pieces {
		pu := countUnits(text[p.start:p.end], opts.Units)
		if hasPiece && curUnits+pu > opts.MaxUnits {
			cut := p.start
			chunkText := text[start:cut]
			chunks = append(chunks, Chunk{
				Index:       len(chunks),
				Text:        chunkText,
				UnitCount:   curUnits,
				OverlapPrev: overlap,
			})
			start = cut
			curUnits = 0
			overlap = 0
			if opts.OverlapUnits > 0 {
				tail := suffixUnits(chunkText, opts.OverlapUnits, opts.Units)
				start = cut - len(tail)
				curUnits = countUnits(tail, opts.Units)
				overlap = curUnits
			}
			hasPiece = false
		}
		curUnits += pu
		hasPiece = true
	}
	chunks = append(chunks, Chunk{
		Index:       len(chunks),
		Text:        text[start:],
		UnitCount:   curUnits,
		OverlapPrev: overlap,
	})
	return chunks
}

// buildPieces segments text into chunk-assembly pieces no larger than
// the content budget (max minus overlap, so a chunk opened with an
// overlap prefix still fits), except atomic blocks which pass through
// whole. Separator bytes count against the budget like any others.
func buildPieces(text string, opts Options) []piece {
	budget := opts
	budget.MaxUnits = opts.MaxUnits - opts.OverlapUnits
	var pieces []piece
	for _, s := range segment(text) {
		st := text[s.start:s.end]
		if s.atomic || countUnits(st, opts.Units) <= budget.MaxUnits {
			pieces = append(pieces, piece{start: s.start, end: s.end})
			continue
		}
		cursor := s.start
		for _, part := range splitOversized(st, budget) {
			pieces = append(pieces, piece{start: cursor, end: cursor + len(part)})
			cursor += len(part)
		}
	}
	return pieces
}

// splitOversized breaks a paragraph down the cascade: sentence groups,
// then word groups, then hard unit cuts. Every returned part fits the
// budget, and concatenating the parts reproduces the input exactly.
func splitOversized(s string, opts Options) []string {
	var out []string
	for _, group := range packPieces(splitSentences(s), opts) {
		if countUnits(group, opts.Units) <= opts.MaxUnits {
			out = append(out, group)
			continue
		}
		for _, wg := range packPieces(splitWords(group), opts) {
			if countUnits(wg, opts.Units) <= opts.MaxUnits {
				out = append(out, wg)
				continue
			}
			out = append(out, hardCut(wg, opts)...)
		}
	}
	return out
}

// packPieces greedily concatenates adjacent parts while they fit the
// budget. Parts are contiguous slices, so concatenation is exact.
func packPieces(parts []string, opts Options) []string {
	var out []string
	var cur strings.Builder
	curUnits := 0
	for _, part := range parts {
		pu := countUnits(part, opts.Units)
		if cur.Len() > 0 && curUnits+pu > opts.MaxUnits {
			out = append(out, cur.String())
			cur.Reset()
			curUnits = 0
		}
		cur.WriteString(part)
		curUnits += pu
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// splitSentences cuts s after sentence terminators, keeping each
// sentence's trailing whitespace so the slices concatenate back to s.
func splitSentences(s string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '.' || c == '!' || c == '?' {
			j := i + 1
			for j < len(s) && (s[j] == c || s[j] == ')' || s[j] == '"') {
				j++
			}
			if j < len(s) && isSpaceByte(s[j]) {
				for j < len(s) && isSpaceByte(s[j]) {
					j++
				}
				out = append(out, s[start:j])
				start = j
				i = j
				continue
			}
			i = j
			continue
		}
		i++
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// splitWords cuts s after whitespace runs, keeping each word's trailing
// whitespace.
func splitWords(s string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(s) {
		if isSpaceByte(s[i]) {
			for i < len(s) && isSpaceByte(s[i]) {
				i++
			}
			out = append(out, s[start:i])
			start = i
			continue
		}
		i++
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// hardCut slices s into contiguous runs of at most MaxUnits units. Each
// cut extends to the next unit's start, so the runs concatenate back
// to s.
func hardCut(s string, opts Options) []string {
	starts := unitStarts(s, opts.Units)
	var out []string
	prev := 0
	for a := 0; a < len(starts); a += opts.MaxUnits {
		b := a + opts.MaxUnits
		end := len(s)
		if b < len(starts) {
			end = starts[b]
		}
		out = append(out, s[prev:end])
		prev = end
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// ---- segmentation ----

// seg is a byte range of the source. Ranges tile the input: each
// segment carries the separator bytes (blank lines) that preceded it,
// and the last segment carries any trailing separator.
type seg struct {
	start, end int
	atomic     bool
}

// segment splits text into paragraphs and atomic blocks. Fenced code
// (``` or ~~~) and markdown tables (consecutive |-prefixed lines) are
// atomic. Whitespace-only input becomes a single segment.
func segment(text string) []seg {
	lines := strings.Split(text, "\n")
	offs := make([]int, len(lines)+1)
	for i, l := range lines {
		offs[i+1] = offs[i] + len(l) + 1
	}
	lineEnd := func(i int) int { return offs[i] + len(lines[i]) }

	var segs []seg
	pending := 0  // where the next segment's range opens
	paraEnd := -1 // last line of the open paragraph, -1 when none

	flushPara := func() {
		if paraEnd < 0 {
			return
		}
		segs = append(segs, seg{start: pending, end: lineEnd(paraEnd)})
		pending = lineEnd(paraEnd)
		paraEnd = -1
	}

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			flushPara()
			marker := trimmed[:3]
			j := i + 1
			for ; j < len(lines); j++ {
				if strings.HasPrefix(strings.TrimSpace(lines[j]), marker) {
					break
				}
			}
			if j == len(lines) {
				// unterminated fence runs to the end
				j = len(lines) - 1
			}
			segs = append(segs, seg{start: pending, end: lineEnd(j), atomic: true})
			pending = lineEnd(j)
			i = j
			continue
		}

		if strings.HasPrefix(trimmed, "|") {
			j := i
			for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), "|") {
				j++
			}
			if j-i >= 2 {
				flushPara()
				segs = append(segs, seg{start: pending, end: lineEnd(j - 1), atomic: true})
				pending = lineEnd(j - 1)
				i = j - 1
				continue
			}
		}

		if trimmed == "" {
			flushPara()
			continue
		}
		paraEnd = i
	}
	flushPara()

	if len(segs) == 0 {
		if text == "" {
			return nil
		}
		return []seg{{start: 0, end: len(text)}}
	}
	if last := &segs[len(segs)-1]; last.end < len(text) {
		last.end = len(text)
	}
	return segs
}

// ---- hybrid ----

func hybridSplit(text string, opts Options) []Chunk {
	sem := semanticSplit(text, opts)
	var out []Chunk
	for _, c := range sem {
		if c.UnitCount <= opts.MaxUnits {
			c.Index = len(out)
			out = append(out, c)
			continue
		}
		for _, sub := range fixedSplit(c.Text, opts, c.OverlapPrev) {
			sub.Index = len(out)
			out = append(out, sub)
		}
	}
	return out
}

// CLAUDE:SUMMARY Part classification and component extraction with positional reference tracking.
// Package extract classifies walked MIME parts into body text, attachments
// and inline images, decodes them, allocates secure filenames, and tracks
// where each extracted object was referenced in the final body text. A
// single bad part is recorded as a failure and never aborts its siblings.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jhillyerd/enmime"

	"github.com/hazyhaar/mailsift/htmltext"
	"github.com/hazyhaar/mailsift/idgen"
	"github.com/hazyhaar/mailsift/mimetree"
	"github.com/hazyhaar/mailsift/partshield"
	"github.com/hazyhaar/mailsift/safename"
	"github.com/hazyhaar/mailsift/textcodec"
)

// Kind tags an extracted component.
type Kind string

const (
	KindBodyText    Kind = "body_text"
	KindAttachment  Kind = "attachment"
	KindInlineImage Kind = "inline_image"
)

// Ref records that a component was referenced at a rune offset within the
// owning body text. Offsets never exceed the body's rune length.
type Ref struct {
	ComponentID string `json:"component_id"`
	Offset      int    `json:"offset"`
}

// Component is one extracted object. Text is set for body text, Data for
// attachments and inline images. Refs is populated only on the primary
// body text component.
type Component struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	SecureName   string `json:"secure_name"`
	OriginalName string `json:"original_name,omitempty"`
	ContentType  string `json:"content_type"`
	PartPath     string `json:"part_path,omitempty"`
	Size         int    `json:"size"`
	Text         string `json:"text,omitempty"`
	Data         []byte `json:"-"`
	BestEffort   bool   `json:"best_effort,omitempty"`
	Refs         []Ref  `json:"refs,omitempty"`
}

// Failure records a per-part problem that did not stop extraction.
type Failure struct {
	PartPath string `json:"part_path"`
	Check    string `json:"check"`
	Reason   string `json:"reason"`
}

// Outcome aggregates one document's extraction.
type Outcome struct {
	Components []Component
	Names      []safename.Name
	Failures   []Failure
	Salvaged   bool
	// BodyDecodeFailed reports that a body text candidate was lost to a
	// decoding problem. When Body() is also nil the document has no
	// readable text at all; the caller may retry with Salvage.
	BodyDecodeFailed bool
}

// Body returns the primary body text component, or nil.
func (o *Outcome) Body() *Component {
	for i := range o.Components {
		if o.Components[i].Kind == KindBodyText {
			return &o.Components[i]
		}
	}
	return nil
}

// Partial reports whether any part failed while others succeeded.
func (o *Outcome) Partial() bool {
	return len(o.Failures) > 0 && len(o.Components) > 0
}

// Config controls extraction. Zero values take defaults.
type Config struct {
	Limits partshield.Limits
	// PreferHTML selects text/html over text/plain in
	// multipart/alternative trees.
	PreferHTML bool
	NewID      idgen.Generator
	Logger     *slog.Logger
}

// Extractor turns walked parts into an Outcome. Safe for concurrent use.
type Extractor struct {
	cfg     Config
	reducer *htmltext.Reducer
}

func New(cfg Config) *Extractor {
	if cfg.NewID == nil {
		cfg.NewID = idgen.Prefixed("cmp_", idgen.Default)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{cfg: cfg, reducer: htmltext.NewReducer()}
}

// binRef tracks an extracted binary component until body offsets are known.
type binRef struct {
	comp      int // index into Components
	walkIndex int
	contentID string
}

// Extract classifies and decodes parts in walk order. Failed parts are
// recorded; the returned Outcome always reflects everything that could be
// extracted.
func (e *Extractor) Extract(refs []mimetree.PartRef) *Outcome {
	out := &Outcome{}
	alloc := safename.New()
	skip := e.alternativeLosers(refs)

	var (
		bodyText      string
		bodyComp      = -1
		bodyWalkIndex = 0
		bodyCids      []htmltext.CidRef
		bins          []binRef
	)

	for _, ref := range refs {
		part := ref.Part
		if part.IsMultipart() || part.IsMessage() || skip[part] {
			continue
		}
		kind := e.classify(part)
		switch kind {
		case KindBodyText:
			comp, text, cids, ok := e.extractBody(ref, alloc, out)
			if !ok {
				continue
			}
			out.Components = append(out.Components, comp)
			if bodyComp < 0 {
				bodyComp = len(out.Components) - 1
				bodyText = text
				bodyWalkIndex = ref.Index
				bodyCids = cids
			}
		default:
			comp, ok := e.extractBinary(ref, kind, alloc, out)
			if !ok {
				continue
			}
			out.Components = append(out.Components, comp)
			bins = append(bins, binRef{
				comp:      len(out.Components) - 1,
				walkIndex: ref.Index,
				contentID: part.ContentID,
			})
		}
	}

	if bodyComp >= 0 && len(bins) > 0 {
		out.Components[bodyComp].Refs = e.positionRefs(out, bins, bodyText, bodyWalkIndex, bodyCids)
	}
	out.Names = alloc.Names()
	return out
}

// classify applies the priority order: attachment, inline image, body
// text. Anything binary that fits nowhere else is an attachment.
func (e *Extractor) classify(part *mimetree.Part) Kind {
	if part.Disposition == "attachment" || (part.Filename != "" && !part.IsText()) {
		return KindAttachment
	}
	image := strings.HasPrefix(part.ContentType, "image/")
	if image && (part.ContentID != "" || part.Disposition == "inline") {
		return KindInlineImage
	}
	if part.IsText() {
		return KindBodyText
	}
	return KindAttachment
}

// alternativeLosers marks the text children of each multipart/alternative
// that lose against the configured preference. The walker enumerates all
// alternatives; choosing the best representation happens here.
func (e *Extractor) alternativeLosers(refs []mimetree.PartRef) map[*mimetree.Part]bool {
	preferred := "text/plain"
	if e.cfg.PreferHTML {
		preferred = "text/html"
	}
	skip := make(map[*mimetree.Part]bool)
	for _, ref := range refs {
		if ref.Part.ContentType != "multipart/alternative" {
			continue
		}
		found := false
		for _, child := range ref.Part.Children {
			if child.ContentType == preferred {
				found = true
				break
			}
		}
		if !found {
			continue
		}
		for _, child := range ref.Part.Children {
			if child.IsText() && child.ContentType != preferred {
				skip[child] = true
			}
		}
	}
	return skip
}

func (e *Extractor) extractBody(ref mimetree.PartRef, alloc *safename.Allocator, out *Outcome) (Component, string, []htmltext.CidRef, bool) {
	part := ref.Part
	res, err := textcodec.Decode(part.Raw, part.Charset(), part.TransferEncoding)
	if err != nil {
		out.BodyDecodeFailed = true
		e.fail(out, ref.Path, "decode", err)
		return Component{}, "", nil, false
	}
	text := res.Text
	// Body text is materialized like any other part, so the part size
	// ceiling applies to it too. The name and extension checks are
	// attachment policy and stay out of this path.
	if err := partshield.ValidatePart("", part.ContentType, []byte(text), e.cfg.Limits); err != nil {
		e.fail(out, ref.Path, "security", err)
		return Component{}, "", nil, false
	}
	var cids []htmltext.CidRef
	if part.ContentType == "text/html" {
		md, rerr := e.reducer.Reduce(text)
		if rerr != nil {
			out.BodyDecodeFailed = true
			e.fail(out, ref.Path, "decode", rerr)
			return Component{}, "", nil, false
		}
		text = md
		cids = htmltext.CidRefs(md)
	}
	name := alloc.Allocate(part.Filename, part.ContentType)
	return Component{
		ID:           e.cfg.NewID(),
		Kind:         KindBodyText,
		SecureName:   name.Secure,
		OriginalName: part.Filename,
		ContentType:  part.ContentType,
		PartPath:     ref.Path,
		Size:         len(text),
		Text:         text,
		BestEffort:   res.BestEffort,
	}, text, cids, true
}

func (e *Extractor) extractBinary(ref mimetree.PartRef, kind Kind, alloc *safename.Allocator, out *Outcome) (Component, bool) {
	part := ref.Part
	decoded, err := textcodec.DecodeTransfer(part.Raw, part.TransferEncoding)
	if err != nil {
		e.fail(out, ref.Path, "decode", err)
		return Component{}, false
	}
	if err := partshield.ValidatePart(part.Filename, part.ContentType, decoded, e.cfg.Limits); err != nil {
		e.fail(out, ref.Path, "security", err)
		return Component{}, false
	}
	name := alloc.Allocate(part.Filename, part.ContentType)
	return Component{
		ID:           e.cfg.NewID(),
		Kind:         kind,
		SecureName:   name.Secure,
		OriginalName: part.Filename,
		ContentType:  part.ContentType,
		PartPath:     ref.Path,
		Size:         len(decoded),
		Data:         decoded,
	}, true
}

// positionRefs computes where each binary component was referenced in the
// body. Inline images referenced by cid land at the reference's offset in
// the reduced text; everything else lands at 0 when it preceded the body
// part and at the body's end when it followed it.
func (e *Extractor) positionRefs(out *Outcome, bins []binRef, bodyText string, bodyWalkIndex int, cids []htmltext.CidRef) []Ref {
	bodyRunes := utf8.RuneCountInString(bodyText)
	cidOffset := make(map[string]int, len(cids))
	for _, c := range cids {
		if _, ok := cidOffset[c.ContentID]; !ok {
			cidOffset[c.ContentID] = c.Offset
		}
	}
	refs := make([]Ref, 0, len(bins))
	for _, b := range bins {
		offset := 0
		if b.contentID != "" {
			if off, ok := cidOffset[b.contentID]; ok {
				refs = append(refs, Ref{ComponentID: out.Components[b.comp].ID, Offset: off})
				continue
			}
		}
		if b.walkIndex > bodyWalkIndex {
			offset = bodyRunes
		}
		refs = append(refs, Ref{ComponentID: out.Components[b.comp].ID, Offset: offset})
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Offset < refs[j].Offset })
	return refs
}

func (e *Extractor) fail(out *Outcome, path, check string, err error) {
	e.cfg.Logger.Warn("extract: part failed", "path", path, "check", check, "error", err)
	out.Failures = append(out.Failures, Failure{PartPath: path, Check: check, Reason: err.Error()})
}

// ErrNoContent is returned by Salvage when not even a lenient parse finds
// any text.
var ErrNoContent = errors.New("no text content recovered")

// Salvage reads a message that failed strict parsing with a lenient
// parser and recovers a single best-effort body text component. The
// structural problem itself is recorded as a failure by the caller.
func (e *Extractor) Salvage(raw []byte) (*Outcome, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("lenient parse: %w", err)
	}
	text := strings.TrimSpace(env.Text)
	if text == "" && env.HTML != "" {
		md, rerr := e.reducer.Reduce(env.HTML)
		if rerr == nil {
			text = md
		}
	}
	if text == "" {
		return nil, ErrNoContent
	}
	alloc := safename.New()
	name := alloc.Allocate("", "text/plain")
	return &Outcome{
		Components: []Component{{
			ID:          e.cfg.NewID(),
			Kind:        KindBodyText,
			SecureName:  name.Secure,
			ContentType: "text/plain",
			Size:        len(text),
			Text:        text,
			BestEffort:  true,
		}},
		Names:    alloc.Names(),
		Salvaged: true,
	}, nil
}

// CLAUDE:SUMMARY Document processing orchestration: parse, extract, convert, chunk, manifest.
// Package pipeline ties the stages together: MIME parse and walk,
// component extraction, optional attachment conversion, chunking, and
// manifest assembly. Process is pure with respect to its inputs; batch
// runs are isolated per document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/mailsift/chunk"
	"github.com/hazyhaar/mailsift/convert"
	"github.com/hazyhaar/mailsift/extract"
	"github.com/hazyhaar/mailsift/idgen"
	"github.com/hazyhaar/mailsift/manifest"
	"github.com/hazyhaar/mailsift/mimetree"
	"github.com/hazyhaar/mailsift/partshield"
)

// Pipeline processes raw documents into manifests. Safe for concurrent
// use; all mutable state is per-call.
type Pipeline struct {
	cfg        *Config
	extractor  *extract.Extractor
	converters *convert.Registry
	newDocID   idgen.Generator
	now        func() time.Time
	logger     *slog.Logger
}

// New validates cfg and builds a Pipeline. A chunking misconfiguration
// fails here, before any document is touched.
func New(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newDocID := cfg.NewDocID
	if newDocID == nil {
		newDocID = idgen.Prefixed("doc_", idgen.Default)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg: cfg,
		extractor: extract.New(extract.Config{
			Limits:     cfg.Limits,
			PreferHTML: cfg.PreferHTML,
			NewID:      cfg.NewComponentID,
			Logger:     logger,
		}),
		converters: convert.NewRegistry(),
		newDocID:   newDocID,
		now:        now,
		logger:     logger,
	}, nil
}

// Converters exposes the registry so callers can inject replacement
// adapters (a cloud OCR service, typically) before processing.
func (p *Pipeline) Converters() *convert.Registry { return p.converters }

// Process runs one document end to end. Per-part problems are recorded in
// the manifest; only document-level failures (oversized input, hopeless
// structure, invariant violations) return an error.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (*manifest.Manifest, error) {
	if err := partshield.ValidateMessage(int64(len(raw)), p.cfg.Limits); err != nil {
		return nil, err
	}

	docID := p.newDocID()
	log := p.logger.With("document_id", docID)
	b := manifest.NewBuilder(docID, p.now)
	b.SetInputBytes(int64(len(raw)))

	out, err := p.extractAll(raw, log)
	if err != nil {
		return nil, err
	}
	// A message whose only body candidate failed to decode has no
	// readable text at all; that is a document-level problem, not a
	// skippable part. Retry leniently before giving up.
	if out.Body() == nil && out.BodyDecodeFailed {
		log.Warn("pipeline: body decode failed, trying salvage")
		sal, serr := p.extractor.Salvage(raw)
		if serr != nil {
			return nil, fmt.Errorf("body decode failed, salvage recovered nothing: %w", serr)
		}
		out.Components = append(out.Components, sal.Components...)
		out.Names = append(out.Names, sal.Names...)
		out.Salvaged = true
	}
	b.AddOutcome(out)

	if p.cfg.Chunk {
		if body := out.Body(); body != nil && body.Text != "" {
			chunks, err := chunk.Split(body.Text, p.cfg.Chunking)
			if err != nil {
				return nil, fmt.Errorf("chunk body: %w", err)
			}
			b.AddChunks(string(p.cfg.Chunking.Strategy), string(p.cfg.Chunking.Units), chunks)
		}
	}

	if p.cfg.ConvertAttachments {
		p.convertAttachments(ctx, out, b, log)
	}

	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	log.Info("pipeline: document processed",
		"status", m.Status,
		"components", m.Stats.Components,
		"chunks", m.Stats.Chunks,
		"failures", m.Stats.Failures)
	return m, nil
}

// extractAll parses strictly and extracts; a structure failure falls back
// to a lenient salvage read. Only a salvage that recovers nothing is
// fatal.
func (p *Pipeline) extractAll(raw []byte, log *slog.Logger) (*extract.Outcome, error) {
	msg, err := mimetree.Parse(raw, mimetree.ParseOptions{
		MaxDepth: p.cfg.Limits.MaxDepth,
		Now:      p.now,
	})
	if err == nil {
		var refs []mimetree.PartRef
		refs, err = mimetree.Walk(msg.Root, p.cfg.Limits.MaxDepth)
		if err == nil {
			return p.extractor.Extract(refs), nil
		}
	}

	log.Warn("pipeline: strict parse failed, trying salvage", "error", err)
	out, serr := p.extractor.Salvage(raw)
	if serr != nil {
		return nil, fmt.Errorf("structure failure, salvage failed (%v): %w", serr, err)
	}
	out.Failures = append(out.Failures, extract.Failure{
		PartPath: "1",
		Check:    "structure",
		Reason:   "strict parse failed, body salvaged leniently",
	})
	return out, nil
}

// convertAttachments runs eligible attachments through the registry and
// chunks the converted text. Conversion failures are per-part failures.
func (p *Pipeline) convertAttachments(ctx context.Context, out *extract.Outcome, b *manifest.Builder, log *slog.Logger) {
	for i := range out.Components {
		c := &out.Components[i]
		if c.Kind != extract.KindAttachment {
			continue
		}
		kind, ok := convert.KindFor(c.ContentType, c.OriginalName)
		if !ok || kind == convert.KindXlsx {
			// tabular extracts are not segmented
			continue
		}
		conv, err := p.converters.Convert(ctx, kind, c.Data, convert.ModeText)
		if err != nil {
			log.Warn("pipeline: attachment conversion failed", "part", c.PartPath, "kind", kind, "error", err)
			b.AddFailure(extract.Failure{PartPath: c.PartPath, Check: "convert", Reason: err.Error()})
			continue
		}
		if !p.cfg.Chunk || conv.Text == "" {
			continue
		}
		chunks, err := chunk.Split(conv.Text, p.cfg.Chunking)
		if err != nil {
			b.AddFailure(extract.Failure{PartPath: c.PartPath, Check: "convert", Reason: err.Error()})
			continue
		}
		b.AddChunks(string(p.cfg.Chunking.Strategy), string(p.cfg.Chunking.Units), chunks)
	}
}

// Result is one document's outcome in a batch run.
type Result struct {
	Index    int
	Manifest *manifest.Manifest
	Err      error
}

// ProcessBatch runs documents through a bounded worker pool. One
// document's fatal failure never aborts its siblings; each Result carries
// either a manifest or an error. Results are ordered by input index.
func (p *Pipeline) ProcessBatch(ctx context.Context, docs [][]byte) []Result {
	results := make([]Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, raw := range docs {
		g.Go(func() error {
			m, err := p.Process(gctx, raw)
			results[i] = Result{Index: i, Manifest: m, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

package htmltext

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestReduceBasicDocument(t *testing.T) {
	r := NewReducer()
	md, err := r.Reduce(`<html><body><h1>Report</h1><p>First paragraph.</p><p>Second paragraph.</p></body></html>`)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !strings.Contains(md, "Report") {
		t.Fatalf("heading text lost: %q", md)
	}
	if !strings.Contains(md, "First paragraph.") || !strings.Contains(md, "Second paragraph.") {
		t.Fatalf("paragraph text lost: %q", md)
	}
	if strings.Contains(md, "<p>") || strings.Contains(md, "<h1>") {
		t.Fatalf("tags leaked into markdown: %q", md)
	}
}

func TestReduceStripsScript(t *testing.T) {
	r := NewReducer()
	md, err := r.Reduce(`<p>safe</p><script>alert("xss")</script>`)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if strings.Contains(md, "alert") || strings.Contains(md, "script") {
		t.Fatalf("script content survived: %q", md)
	}
	if !strings.Contains(md, "safe") {
		t.Fatalf("content lost: %q", md)
	}
}

func TestReduceKeepsCidImages(t *testing.T) {
	r := NewReducer()
	md, err := r.Reduce(`<p>before</p><img src="cid:logo@example.com" alt="logo"><p>after</p>`)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !strings.Contains(md, "cid:logo@example.com") {
		t.Fatalf("cid reference stripped: %q", md)
	}
}

func TestReduceEmpty(t *testing.T) {
	r := NewReducer()
	md, err := r.Reduce("   \n ")
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if md != "" {
		t.Fatalf("expected empty output, got %q", md)
	}
}

func TestPlainText(t *testing.T) {
	text, err := PlainText(`<html><head><title>skip</title><style>p{}</style></head><body><p>one</p><p>two</p></body></html>`)
	if err != nil {
		t.Fatalf("PlainText: %v", err)
	}
	if strings.Contains(text, "skip") || strings.Contains(text, "p{}") {
		t.Fatalf("head content leaked: %q", text)
	}
	if !strings.Contains(text, "one") || !strings.Contains(text, "two") {
		t.Fatalf("body text lost: %q", text)
	}
	if !strings.Contains(text, "\n") {
		t.Fatalf("block boundary missing: %q", text)
	}
}

func TestCidRefs(t *testing.T) {
	md := "intro ![logo](cid:logo@x) middle [doc](cid:doc@x) end"
	refs := CidRefs(md)
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[0].ContentID != "logo@x" || refs[1].ContentID != "doc@x" {
		t.Fatalf("wrong ids: %+v", refs)
	}
	if refs[0].Offset >= refs[1].Offset {
		t.Fatalf("refs out of order: %+v", refs)
	}
	// Offset points at the "](cid:" closing bracket.
	if md[byteAt(md, refs[0].Offset)] != ']' {
		t.Fatalf("offset does not land on bracket: %+v", refs[0])
	}
}

func TestCidRefsRuneOffsets(t *testing.T) {
	md := "über ![x](cid:a@b)"
	refs := CidRefs(md)
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	// "über ![x" is 8 runes, so the bracket sits at rune 8.
	if refs[0].Offset != 8 {
		t.Fatalf("expected rune offset 8, got %d", refs[0].Offset)
	}
}

func TestCidRefsNone(t *testing.T) {
	if refs := CidRefs("no links here [x](https://example.com)"); refs != nil {
		t.Fatalf("expected nil, got %+v", refs)
	}
}

func TestNormalizeCollapsesBlankRuns(t *testing.T) {
	got := normalize("a  \n\n\n\nb\t\nc")
	if got != "a\n\nb\nc" {
		t.Fatalf("normalize: %q", got)
	}
}

// byteAt converts a rune offset to a byte offset.
func byteAt(s string, runeOff int) int {
	i := 0
	for n := 0; n < runeOff; n++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

package mimetree

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/mailsift/idgen"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

func testOpts() ParseOptions {
	return ParseOptions{
		NewID: idgen.Sequenced("msg_"),
		Now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func TestParse_SimpleText(t *testing.T) {
	raw := crlf(`From: alice@example.com
To: bob@example.com
Subject: hello
Content-Type: text/plain; charset=utf-8

Hello Bob.
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if msg.ID != "msg_000001" {
		t.Errorf("ID = %q", msg.ID)
	}
	if got := msg.Get("subject"); got != "hello" {
		t.Errorf("Get(subject) = %q", got)
	}
	if msg.Root.ContentType != "text/plain" {
		t.Errorf("content type = %q", msg.Root.ContentType)
	}
	if msg.Root.Charset() != "utf-8" {
		t.Errorf("charset = %q", msg.Root.Charset())
	}
	if !strings.Contains(string(msg.Root.Raw), "Hello Bob.") {
		t.Errorf("raw payload = %q", msg.Root.Raw)
	}
}

func TestParse_HeaderOrderAndFolding(t *testing.T) {
	raw := crlf(`Received: from a.example.com
Received: from b.example.com
Subject: a folded
 subject line
From: x@example.com

body
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Headers[0].Value != "from a.example.com" || msg.Headers[1].Value != "from b.example.com" {
		t.Errorf("header order not preserved: %+v", msg.Headers[:2])
	}
	if msg.Get("Subject") != "a folded subject line" {
		t.Errorf("folded subject = %q", msg.Get("Subject"))
	}
}

func TestParse_DefaultContentType(t *testing.T) {
	raw := crlf(`From: x@example.com

plain body
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Root.ContentType != "text/plain" {
		t.Errorf("default content type = %q", msg.Root.ContentType)
	}
	if msg.Root.Charset() != "us-ascii" {
		t.Errorf("default charset = %q", msg.Root.Charset())
	}
}

const mixedMsg = `From: alice@example.com
Subject: report
Content-Type: multipart/mixed; boundary="BOUND"

--BOUND
Content-Type: text/plain; charset=utf-8

See the attachment.
--BOUND
Content-Type: application/pdf; name="report.pdf"
Content-Disposition: attachment; filename="report.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--BOUND--
`

func TestParse_MultipartMixed(t *testing.T) {
	msg, err := Parse(crlf(mixedMsg), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	root := msg.Root
	if !root.IsMultipart() {
		t.Fatal("root should be multipart")
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	body, att := root.Children[0], root.Children[1]
	if body.ContentType != "text/plain" {
		t.Errorf("child[0] type = %q", body.ContentType)
	}
	if att.Disposition != "attachment" || att.Filename != "report.pdf" {
		t.Errorf("child[1] disposition=%q filename=%q", att.Disposition, att.Filename)
	}
	if att.TransferEncoding != "base64" {
		t.Errorf("child[1] cte = %q", att.TransferEncoding)
	}
	// Payload must stay transfer-encoded.
	if !strings.Contains(string(att.Raw), "JVBERi0xLjQK") {
		t.Errorf("attachment raw = %q", att.Raw)
	}
}

func TestParse_NestedMessage(t *testing.T) {
	raw := crlf(`From: fwd@example.com
Content-Type: message/rfc822

From: orig@example.com
Content-Type: text/plain

original body
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Root.IsMessage() {
		t.Fatal("root should be message/rfc822")
	}
	if len(msg.Root.Children) != 1 {
		t.Fatalf("embedded children = %d", len(msg.Root.Children))
	}
	inner := msg.Root.Children[0]
	if !strings.Contains(string(inner.Raw), "original body") {
		t.Errorf("inner raw = %q", inner.Raw)
	}
}

func TestParse_MultipartWithoutBoundary(t *testing.T) {
	raw := crlf(`Content-Type: multipart/mixed

--x--
`)
	_, err := Parse(raw, testOpts())
	var se *StructureError
	if !errors.As(err, &se) || se.Kind != StructureMalformed {
		t.Fatalf("expected malformed StructureError, got %v", err)
	}
}

func TestParse_DepthCeiling(t *testing.T) {
	// Build nesting deeper than the ceiling via message/rfc822 recursion.
	inner := "Content-Type: text/plain\n\nleaf\n"
	for i := 0; i < 6; i++ {
		inner = "Content-Type: message/rfc822\n\n" + inner
	}
	opts := testOpts()
	opts.MaxDepth = 4
	_, err := Parse(crlf(inner), opts)
	var se *StructureError
	if !errors.As(err, &se) || se.Kind != StructureTooDeep {
		t.Fatalf("expected too_deep StructureError, got %v", err)
	}
}

func TestWalk_DeclarationOrder(t *testing.T) {
	msg, err := Parse(crlf(mixedMsg), testOpts())
	if err != nil {
		t.Fatal(err)
	}
	refs, err := Walk(msg.Root, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 3 {
		t.Fatalf("refs = %d, want 3 (container + 2 leaves)", len(refs))
	}
	wantPaths := []string{"1", "1.1", "1.2"}
	for i, r := range refs {
		if r.Index != i {
			t.Errorf("refs[%d].Index = %d", i, r.Index)
		}
		if r.Path != wantPaths[i] {
			t.Errorf("refs[%d].Path = %q, want %q", i, r.Path, wantPaths[i])
		}
	}
	if refs[1].Part.ContentType != "text/plain" {
		t.Errorf("first leaf = %q", refs[1].Part.ContentType)
	}
}

func TestWalk_AlternativeEnumeratesAll(t *testing.T) {
	raw := crlf(`Content-Type: multipart/alternative; boundary="ALT"

--ALT
Content-Type: text/plain

plain version
--ALT
Content-Type: text/html

<p>html version</p>
--ALT--
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	refs, err := Walk(msg.Root, 0)
	if err != nil {
		t.Fatal(err)
	}
	var texts int
	for _, r := range refs {
		if r.Part.IsText() {
			texts++
		}
	}
	if texts != 2 {
		t.Fatalf("alternative leaves = %d, want both enumerated", texts)
	}
}

func TestParse_ContentIDTrimmed(t *testing.T) {
	raw := crlf(`Content-Type: image/png
Content-ID: <logo@example.com>
Content-Transfer-Encoding: base64

aGk=
`)
	msg, err := Parse(raw, testOpts())
	if err != nil {
		t.Fatal(err)
	}
	if msg.Root.ContentID != "logo@example.com" {
		t.Errorf("content-id = %q", msg.Root.ContentID)
	}
}

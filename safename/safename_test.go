package safename

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\boot.ini", "boot.ini"},
		{"/abs/path/file.txt", "file.txt"},
		{"white space.doc", "white_space.doc"},
		{"weird$na%me!.png", "weird_na_me_.png"},
		{"...", ""},
		{"", ""},
		{"   ", ""},
		{".hidden", "hidden"},
		{"résumé.pdf", "r_sum_.pdf"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAllocate_NoCollisions(t *testing.T) {
	a := New()
	inputs := []string{
		"report.pdf", "report.pdf", "REPORT.PDF", "report.pdf",
		"", "", "../evil", "../evil",
	}
	seen := make(map[string]struct{})
	for _, in := range inputs {
		n := a.Allocate(in, "application/octet-stream")
		if _, dup := seen[strings.ToLower(n.Secure)]; dup {
			t.Fatalf("duplicate secure name %q for input %q", n.Secure, in)
		}
		seen[strings.ToLower(n.Secure)] = struct{}{}
		if strings.ContainsAny(n.Secure, "/\\") || strings.Contains(n.Secure, "..") {
			t.Fatalf("unsafe secure name %q", n.Secure)
		}
	}
}

func TestAllocate_SynthesizedFromContentType(t *testing.T) {
	a := New()
	n := a.Allocate("", "text/html")
	if n.Secure != "part_001.html" {
		t.Errorf("synthesized name = %q", n.Secure)
	}
	n = a.Allocate("", "text/plain")
	if n.Secure != "part_002.txt" {
		t.Errorf("second synthesized name = %q", n.Secure)
	}
}

func TestAllocate_Deterministic(t *testing.T) {
	run := func() []string {
		a := New()
		var out []string
		for _, in := range []string{"a.txt", "a.txt", "", "b/../c.png", "a.txt"} {
			out = append(out, a.Allocate(in, "image/png").Secure)
		}
		return out
	}
	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("allocation %d diverged: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestNames_OrderedMapping(t *testing.T) {
	a := New()
	a.Allocate("x.txt", "text/plain")
	a.Allocate("x.txt", "text/plain")
	names := a.Names()
	if len(names) != 2 {
		t.Fatalf("names = %d", len(names))
	}
	if names[0].Original != "x.txt" || names[1].Original != "x.txt" {
		t.Errorf("originals = %+v", names)
	}
	if names[0].Secure == names[1].Secure {
		t.Errorf("secure names collide: %q", names[0].Secure)
	}
}

func TestMapping(t *testing.T) {
	a := New()
	a.Allocate("report.pdf", "application/pdf")
	nameless := a.Allocate("", "image/png")

	m := a.Mapping()
	if m["report.pdf"] != "report.pdf" {
		t.Errorf("mapping: %v", m)
	}
	if m[nameless.Secure] != nameless.Secure {
		t.Errorf("nameless keyed by secure name: %v", m)
	}
}

package textcodec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecodeTransfer_Identity(t *testing.T) {
	for _, enc := range []string{"", "7bit", "8bit", "binary", "7BIT"} {
		out, err := DecodeTransfer([]byte("hello"), enc)
		if err != nil {
			t.Fatalf("%q: %v", enc, err)
		}
		if string(out) != "hello" {
			t.Errorf("%q: got %q", enc, out)
		}
	}
}

func TestDecodeTransfer_Base64(t *testing.T) {
	out, err := DecodeTransfer([]byte("aGVs\r\nbG8="), "base64")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "hello" {
		t.Errorf("got %q", out)
	}
}

func TestDecodeTransfer_Base64Malformed(t *testing.T) {
	_, err := DecodeTransfer([]byte("!!!not-base64!!!"), "base64")
	var de *DecodeError
	if !errors.As(err, &de) || de.Stage != "transfer" {
		t.Fatalf("expected transfer DecodeError, got %v", err)
	}
}

func TestDecodeTransfer_QuotedPrintable(t *testing.T) {
	out, err := DecodeTransfer([]byte("Caf=C3=A9"), "quoted-printable")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Caf\xc3\xa9" {
		t.Errorf("got %q", out)
	}
}

func TestDecodeTransfer_Unknown(t *testing.T) {
	_, err := DecodeTransfer([]byte("x"), "rot13")
	if err == nil {
		t.Fatal("expected error for unknown transfer encoding")
	}
}

func TestDecodeTransfer_UUEncode(t *testing.T) {
	payload := []byte("begin 644 test.txt\r\n#0V%T\r\n`\r\nend\r\n")
	out, err := DecodeTransfer(payload, "x-uuencode")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Cat" {
		t.Errorf("got %q, want Cat", out)
	}
}

func TestDecodeTransfer_UUEncodeMissingFraming(t *testing.T) {
	if _, err := DecodeTransfer([]byte("#0V%T\n"), "uuencode"); err == nil {
		t.Error("expected error for missing begin line")
	}
	if _, err := DecodeTransfer([]byte("begin 644 f\n#0V%T\n"), "uuencode"); err == nil {
		t.Error("expected error for missing end line")
	}
}

func TestBinhexDecode_RoundTrip(t *testing.T) {
	// Hand-assembled stream: header for a 3-byte data fork named "f",
	// then "Cat" as the fork; CRCs zeroed (not verified).
	var raw bytes.Buffer
	raw.WriteByte(1)                         // name length
	raw.WriteString("f")                     // name
	raw.WriteByte(0)                         // version
	raw.WriteString("TEXT")                  // type
	raw.WriteString("ttxt")                  // creator
	raw.Write([]byte{0, 0})                  // flags
	raw.Write([]byte{0, 0, 0, 3})            // data fork length
	raw.Write([]byte{0, 0, 0, 0})            // resource fork length
	raw.Write([]byte{0, 0})                  // header CRC
	raw.WriteString("Cat")                   // data fork
	raw.Write([]byte{0, 0})                  // data CRC

	var encoded bytes.Buffer
	encoded.WriteByte(':')
	var acc uint32
	var bits uint
	for _, b := range raw.Bytes() {
		acc = acc<<8 | uint32(b)
		bits += 8
		for bits >= 6 {
			bits -= 6
			encoded.WriteByte(binhexAlphabet[(acc>>bits)&0x3f])
		}
	}
	if bits > 0 {
		encoded.WriteByte(binhexAlphabet[(acc<<(6-bits))&0x3f])
	}
	encoded.WriteByte(':')

	out, err := binhexDecode(encoded.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Cat" {
		t.Errorf("data fork = %q, want Cat", out)
	}
}

func TestDecode_DeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1.
	res, err := Decode([]byte{'c', 'a', 'f', 0xe9}, "iso-8859-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "café" {
		t.Errorf("text = %q", res.Text)
	}
	if res.Sniffed || res.BestEffort {
		t.Errorf("unexpected flags: %+v", res)
	}
}

func TestDecode_DeclaredUTF8(t *testing.T) {
	res, err := Decode([]byte("grüße"), "utf-8", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "grüße" || res.Charset != "utf-8" {
		t.Errorf("got %+v", res)
	}
}

func TestDecode_SniffFallback(t *testing.T) {
	// Valid multi-byte UTF-8 with no declared charset must survive intact.
	input := "héllo wörld — ünïcode prose for the detector to chew on"
	res, err := Decode([]byte(input), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != input {
		t.Errorf("text = %q", res.Text)
	}
}

func TestDecode_DeclaredCharsetWrong(t *testing.T) {
	// Declared us-ascii but content is 8-bit: declaration must not win.
	res, err := Decode([]byte{'a', 0xe9, 'b'}, "us-ascii", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.ContainsRune(res.Text, '�') {
		t.Errorf("replacement rune leaked into %q", res.Text)
	}
	if !res.Sniffed && !res.BestEffort {
		t.Errorf("expected sniff or best-effort fallback, got %+v", res)
	}
}

func TestDecode_BestEffortOnEmptySniff(t *testing.T) {
	res, err := Decode(nil, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.BestEffort || res.Charset != "iso-8859-1" {
		t.Errorf("expected terminal fallback, got %+v", res)
	}
}

func TestDecode_TransferThenCharset(t *testing.T) {
	// base64("caf\xe9") with iso-8859-1 declared.
	res, err := Decode([]byte("Y2Fm6Q=="), "iso-8859-1", "base64")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "café" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestDecodeHeader(t *testing.T) {
	got := DecodeHeader("=?utf-8?B?Z3LDvMOfZQ==?= report")
	if got != "grüße report" {
		t.Errorf("got %q", got)
	}
	// Plain values pass through.
	if DecodeHeader("plain subject") != "plain subject" {
		t.Error("plain value mangled")
	}
}

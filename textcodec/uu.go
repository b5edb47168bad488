// CLAUDE:SUMMARY Strict uuencode decoder — begin/end framing, per-line length validation.
package textcodec

import (
	"bytes"
	"fmt"
)

// uudecode decodes a uuencoded payload. The body must carry the classic
// "begin <mode> <name>" ... "end" framing; anything else fails fast. No
// third-party decoder for this format exists in the ecosystem we build on,
// so the 4-to-3 expansion is implemented here.
func uudecode(payload []byte) ([]byte, error) {
	lines := bytes.Split(payload, []byte{'\n'})
	var out []byte
	started, ended := false, false

	for ln, line := range lines {
		line = bytes.TrimRight(line, "\r")
		if !started {
			if bytes.HasPrefix(line, []byte("begin ")) {
				started = true
			}
			continue
		}
		trimmed := bytes.TrimSpace(line)
		if bytes.Equal(trimmed, []byte("end")) {
			ended = true
			break
		}
		if len(line) == 0 {
			continue
		}
		// First byte encodes the decoded length of this line.
		n := int(line[0]-0x20) & 0x3f
		if n == 0 {
			// "`" (or space) length marker: terminator line before "end".
			continue
		}
		data := line[1:]
		if len(data)*3/4 < n {
			return nil, fmt.Errorf("uuencode line %d: %d encoded bytes cannot yield %d decoded", ln+1, len(data), n)
		}
		decoded := make([]byte, 0, n)
		for i := 0; i+3 < len(data) && len(decoded) < n; i += 4 {
			c0 := (data[i] - 0x20) & 0x3f
			c1 := (data[i+1] - 0x20) & 0x3f
			c2 := (data[i+2] - 0x20) & 0x3f
			c3 := (data[i+3] - 0x20) & 0x3f
			decoded = append(decoded, c0<<2|c1>>4)
			if len(decoded) < n {
				decoded = append(decoded, c1<<4|c2>>2)
			}
			if len(decoded) < n {
				decoded = append(decoded, c2<<6|c3)
			}
		}
		if len(decoded) != n {
			return nil, fmt.Errorf("uuencode line %d: truncated group", ln+1)
		}
		out = append(out, decoded...)
	}

	if !started {
		return nil, fmt.Errorf("uuencode: missing begin line")
	}
	if !ended {
		return nil, fmt.Errorf("uuencode: missing end line")
	}
	return out, nil
}

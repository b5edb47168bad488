// CLAUDE:SUMMARY RFC 2047 header word decoding backed by the package charset resolver.
package textcodec

import (
	"io"
	"mime"
	"strings"
)

// DecodeHeader decodes RFC 2047 encoded-words ("=?utf-8?B?...?=") in a
// header value, using the same charset table as payload decoding. Values
// that fail to decode are returned verbatim; header text is display
// metadata, not structure.
func DecodeHeader(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	dec := mime.WordDecoder{
		CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
			raw, err := io.ReadAll(input)
			if err != nil {
				return nil, err
			}
			text, err := decodeAs(raw, strings.ToLower(charset))
			if err != nil {
				return nil, err
			}
			return strings.NewReader(text), nil
		},
	}
	out, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return out
}

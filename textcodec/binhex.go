// CLAUDE:SUMMARY BinHex 4.0 decoder — 6-bit alphabet, RLE expansion, data fork extraction.
package textcodec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// binhexAlphabet is the 64-character BinHex 4.0 table.
const binhexAlphabet = "!\"#$%&'()*+,-012345689@ABCDEFGHIJKLMNPQRSTUVXYZ[`abcdefhijklmpqr"

// binhexDecode decodes a BinHex 4.0 payload and returns the data fork.
// The resource fork is Mac-only metadata and is discarded. CRCs are not
// verified; length fields are, and truncation fails fast.
func binhexDecode(payload []byte) ([]byte, error) {
	start := bytes.IndexByte(payload, ':')
	if start < 0 {
		return nil, fmt.Errorf("binhex: no stream start marker")
	}
	end := bytes.LastIndexByte(payload, ':')
	if end <= start {
		return nil, fmt.Errorf("binhex: no stream end marker")
	}
	stream := payload[start+1 : end]

	var rev [256]int16
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < len(binhexAlphabet); i++ {
		rev[binhexAlphabet[i]] = int16(i)
	}

	// 6-bit groups to bytes.
	var packed []byte
	var acc uint32
	var bits uint
	for _, c := range stream {
		switch c {
		case '\r', '\n', ' ', '\t':
			continue
		}
		v := rev[c]
		if v < 0 {
			return nil, fmt.Errorf("binhex: invalid character %q", c)
		}
		acc = acc<<6 | uint32(v)
		bits += 6
		if bits >= 8 {
			bits -= 8
			packed = append(packed, byte(acc>>bits))
		}
	}

	// RLE expansion: 0x90 is the marker; a following count of 0 means a
	// literal 0x90, count n means the previous byte repeated to n total.
	var data []byte
	for i := 0; i < len(packed); i++ {
		b := packed[i]
		if b != 0x90 {
			data = append(data, b)
			continue
		}
		if i+1 >= len(packed) {
			return nil, fmt.Errorf("binhex: dangling RLE marker")
		}
		i++
		count := int(packed[i])
		if count == 0 {
			data = append(data, 0x90)
			continue
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("binhex: RLE repeat with no preceding byte")
		}
		last := data[len(data)-1]
		for j := 1; j < count; j++ {
			data = append(data, last)
		}
	}

	// Header: nameLen, name, version, type(4), creator(4), flags(2),
	// dataLen(4), rsrcLen(4), headerCRC(2), then the forks.
	if len(data) < 1 {
		return nil, fmt.Errorf("binhex: empty stream")
	}
	nameLen := int(data[0])
	headerLen := 1 + nameLen + 1 + 4 + 4 + 2 + 4 + 4 + 2
	if len(data) < headerLen {
		return nil, fmt.Errorf("binhex: truncated header")
	}
	dlenOff := 1 + nameLen + 1 + 4 + 4 + 2
	dataLen := int(binary.BigEndian.Uint32(data[dlenOff : dlenOff+4]))
	forkStart := headerLen
	if len(data) < forkStart+dataLen {
		return nil, fmt.Errorf("binhex: data fork truncated: have %d, want %d", len(data)-forkStart, dataLen)
	}
	return data[forkStart : forkStart+dataLen], nil
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Tag identifies which on-disk layout a serialized table uses, matching
// the original's 13-byte identifiers verbatim (§6): 12 ASCII characters
// followed by a terminating NUL byte.
type Tag string

const (
	// TagSH9A marks the approximate-existence (bloom) layout.
	TagSH9A Tag = "STRINGHASH9A\x00"
	// TagSH5 marks the exact-match layout. Note the space before the NUL:
	// both tags carry 12 characters ahead of the NUL, and "STRINGHASH5"
	// is one character short without it.
	TagSH5 Tag = "STRINGHASH5 \x00"
)

const tagLen = 13

// Header is the fixed on-disk header following the 13-byte tag: a
// log2-sized bucket count and a 32-bit hash seed, both little-endian
// (§6 "On-disk state-table format").
type Header struct {
	Log2Size uint32
	HashSeed uint32
}

// idealLog2Size mirrors the original's auto-reduce writer formula:
// ceil(log2(20 * records)) + 1.
func idealLog2Size(records uint64) uint32 {
	n := idealBits(records)
	log2 := uint32(0)
	for (uint64(1) << log2) < n {
		log2++
	}
	return log2
}

// WriteBloom serializes a BloomTable in the STRINGHASH9A layout: tag,
// header, raw bit array.
func WriteBloom(w io.Writer, t *BloomTable) error {
	if err := writeTag(w, TagSH9A); err != nil {
		return err
	}
	log2 := uint32(0)
	for (uint64(1) << log2) < t.numBits {
		log2++
	}
	hdr := Header{Log2Size: log2, HashSeed: t.hashSeed}
	if err := writeHeader(w, hdr); err != nil {
		return err
	}
	raw, err := t.bits.MarshalBinary()
	if err != nil {
		return fmt.Errorf("statetable: marshal bloom bitset: %w", err)
	}
	_, err = w.Write(raw)
	return err
}

// ReadBloom deserializes a STRINGHASH9A-tagged table. On a partial read
// (truncated file) it returns the error unchanged; per §7 ("Partial file
// I/O on state-table load") the caller is expected to log it and start
// with a fresh empty table, never to propagate it as a hard failure
// unless the table was opened readonly.
func ReadBloom(r io.Reader) (*BloomTable, error) {
	tag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	if tag != TagSH9A {
		return nil, fmt.Errorf("statetable: unexpected tag %q, want %q", tag, TagSH9A)
	}
	hdr, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	t := NewBloom(0, 3, hdr.HashSeed)
	t.numBits = uint64(1) << hdr.Log2Size
	raw := make([]byte, (t.numBits+7)/8+8) // bitset.MarshalBinary prefixes a length word
	n, err := io.ReadFull(r, raw)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	if err := t.bits.UnmarshalBinary(raw[:n]); err != nil {
		return nil, fmt.Errorf("statetable: unmarshal bloom bitset: %w", err)
	}
	return t, nil
}

func writeTag(w io.Writer, tag Tag) error {
	b := []byte(tag)
	if len(b) != tagLen {
		return fmt.Errorf("statetable: tag %q is not %d bytes", tag, tagLen)
	}
	_, err := w.Write(b)
	return err
}

func readTag(r io.Reader) (Tag, error) {
	buf := make([]byte, tagLen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return Tag(buf), nil
}

func writeHeader(w io.Writer, hdr Header) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], hdr.Log2Size)
	binary.LittleEndian.PutUint32(buf[4:8], hdr.HashSeed)
	_, err := w.Write(buf)
	return err
}

func readHeader(r io.Reader) (Header, error) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, err
	}
	return Header{
		Log2Size: binary.LittleEndian.Uint32(buf[0:4]),
		HashSeed: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

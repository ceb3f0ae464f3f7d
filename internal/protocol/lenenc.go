package protocol

import "io"

// lenencNullSentinel is the single byte that represents SQL NULL in a
// length-encoded column value (text protocol rows only).
const lenencNullSentinel = 0xFB

// ReadLengthEncodedInt decodes a lenenc-int per spec.md §4.1 from the front
// of b, returning the value, whether it was the NULL sentinel, and the
// number of bytes consumed.
func ReadLengthEncodedInt(b []byte) (value uint64, isNull bool, n int, err error) {
	if len(b) == 0 {
		return 0, false, 0, io.ErrUnexpectedEOF
	}
	switch first := b[0]; {
	case first < 0xFB:
		return uint64(first), false, 1, nil
	case first == 0xFB:
		return 0, true, 1, nil
	case first == 0xFC:
		if len(b) < 3 {
			return 0, false, 0, io.ErrUnexpectedEOF
		}
		return uint64(b[1]) | uint64(b[2])<<8, false, 3, nil
	case first == 0xFD:
		if len(b) < 4 {
			return 0, false, 0, io.ErrUnexpectedEOF
		}
		return uint64(b[1]) | uint64(b[2])<<8 | uint64(b[3])<<16, false, 4, nil
	case first == 0xFE:
		if len(b) < 9 {
			return 0, false, 0, io.ErrUnexpectedEOF
		}
		v := uint64(0)
		for i := 0; i < 8; i++ {
			v |= uint64(b[1+i]) << (8 * i)
		}
		return v, false, 9, nil
	}
	return 0, false, 0, io.ErrUnexpectedEOF
}

// AppendLengthEncodedInt appends the lenenc-int encoding of v to dst.
func AppendLengthEncodedInt(dst []byte, v uint64) []byte {
	switch {
	case v < 251:
		return append(dst, byte(v))
	case v < 1<<16:
		return append(dst, 0xFC, byte(v), byte(v>>8))
	case v < 1<<24:
		return append(dst, 0xFD, byte(v), byte(v>>8), byte(v>>16))
	default:
		dst = append(dst, 0xFE)
		for i := 0; i < 8; i++ {
			dst = append(dst, byte(v>>(8*i)))
		}
		return dst
	}
}

// AppendLengthEncodedNull appends the lenenc-int NULL sentinel.
func AppendLengthEncodedNull(dst []byte) []byte {
	return append(dst, lenencNullSentinel)
}

// ReadLengthEncodedString decodes a lenenc-string (lenenc-int length
// followed by that many raw bytes) from the front of b.
func ReadLengthEncodedString(b []byte) (value []byte, isNull bool, n int, err error) {
	length, isNull, hn, err := ReadLengthEncodedInt(b)
	if err != nil {
		return nil, false, 0, err
	}
	if isNull {
		return nil, true, hn, nil
	}
	total := hn + int(length)
	if len(b) < total {
		return nil, false, 0, io.ErrUnexpectedEOF
	}
	return b[hn:total], false, total, nil
}

// AppendLengthEncodedString appends a lenenc-string.
func AppendLengthEncodedString(dst []byte, s []byte) []byte {
	dst = AppendLengthEncodedInt(dst, uint64(len(s)))
	return append(dst, s...)
}

// ReadNullTerminatedString reads bytes up to (and consuming) the next NUL.
func ReadNullTerminatedString(b []byte) (value []byte, n int, err error) {
	for i, c := range b {
		if c == 0 {
			return b[:i], i + 1, nil
		}
	}
	return nil, 0, io.ErrUnexpectedEOF
}

// Uint16/Uint24/Uint32/Uint64 are little-endian fixed-width readers, the
// other primitive the wire format needs beyond lenenc integers.

func ReadUint16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func ReadUint24(b []byte) uint32 { return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 }

func ReadUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func ReadUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func AppendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

func AppendUint24(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16))
}

func AppendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func AppendUint64(dst []byte, v uint64) []byte {
	for i := 0; i < 8; i++ {
		dst = append(dst, byte(v>>(8*i)))
	}
	return dst
}

// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package storage

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/google/uuid"
)

// Keys and values are built from tuples. Every component encoding keeps
// byte order equal to the natural order of the component, so tuples of
// the same shape sort like their components.
//
//	string:  bytes with 0x00 escaped as 0x00 0xFF, terminated by 0x00 0x01
//	uuid:    16 raw bytes
//	int64:   8 bytes big-endian with the sign bit flipped
//	float64: 8 bytes big-endian, negative values fully inverted
//	bool:    one byte

const (
	escapeByte     = 0x00
	escapedZero    = 0xFF
	terminatorByte = 0x01
)

// AppendString appends an order preserving encoding of s.
func (key Key) AppendString(s string) Key {
	for i := 0; i < len(s); i++ {
		if s[i] == escapeByte {
			key = append(key, escapeByte, escapedZero)
			continue
		}
		key = append(key, s[i])
	}
	return append(key, escapeByte, terminatorByte)
}

// AppendUUID appends the raw bytes of id.
func (key Key) AppendUUID(id uuid.UUID) Key {
	return append(key, id[:]...)
}

// AppendInt64 appends an order preserving encoding of v.
func (key Key) AppendInt64(v int64) Key {
	return binary.BigEndian.AppendUint64(key, uint64(v)^(1<<63))
}

// AppendFloat64 appends an order preserving encoding of v.
func (key Key) AppendFloat64(v float64) Key {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return binary.BigEndian.AppendUint64(key, bits)
}

// AppendBool appends v as a single byte.
func (key Key) AppendBool(v bool) Key {
	if v {
		return append(key, 1)
	}
	return append(key, 0)
}

// KeyReader decodes tuples created with the Key.Append* methods.
//
// The first decoding failure is kept in Err and every later read returns
// a zero value.
type KeyReader struct {
	rest []byte
	err  error
}

// NewKeyReader returns a reader for key.
func NewKeyReader(key []byte) *KeyReader {
	return &KeyReader{rest: key}
}

// ReadString decodes a string component.
func (r *KeyReader) ReadString() string {
	if r.err != nil {
		return ""
	}

	var out []byte
	for i := 0; i < len(r.rest); i++ {
		if r.rest[i] != escapeByte {
			continue
		}
		if i+1 >= len(r.rest) {
			break
		}
		switch r.rest[i+1] {
		case terminatorByte:
			out = append(out, r.rest[:i]...)
			r.rest = r.rest[i+2:]
			return string(out)
		case escapedZero:
			out = append(out, r.rest[:i]...)
			out = append(out, escapeByte)
			r.rest = r.rest[i+2:]
			i = -1
		default:
			r.err = Error.New("invalid string escape 0x%02x", r.rest[i+1])
			return ""
		}
	}

	r.err = Error.New("unterminated string component")
	return ""
}

// ReadUUID decodes a uuid component.
func (r *KeyReader) ReadUUID() uuid.UUID {
	var id uuid.UUID
	if r.err != nil {
		return id
	}
	if len(r.rest) < len(id) {
		r.err = Error.New("short uuid component: %d bytes", len(r.rest))
		return id
	}
	copy(id[:], r.rest)
	r.rest = r.rest[len(id):]
	return id
}

// ReadInt64 decodes an int64 component.
func (r *KeyReader) ReadInt64() int64 {
	v, ok := r.read8()
	if !ok {
		return 0
	}
	return int64(v ^ (1 << 63))
}

// ReadFloat64 decodes a float64 component.
func (r *KeyReader) ReadFloat64() float64 {
	bits, ok := r.read8()
	if !ok {
		return 0
	}
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits)
}

// ReadBool decodes a bool component.
func (r *KeyReader) ReadBool() bool {
	if r.err != nil {
		return false
	}
	if len(r.rest) < 1 {
		r.err = Error.New("short bool component")
		return false
	}
	v := r.rest[0]
	r.rest = r.rest[1:]
	return v != 0
}

func (r *KeyReader) read8() (uint64, bool) {
	if r.err != nil {
		return 0, false
	}
	if len(r.rest) < 8 {
		r.err = Error.New("short 8 byte component: %d bytes", len(r.rest))
		return 0, false
	}
	v := binary.BigEndian.Uint64(r.rest)
	r.rest = r.rest[8:]
	return v, true
}

// Done returns whether every byte was consumed.
func (r *KeyReader) Done() bool { return r.err == nil && len(r.rest) == 0 }

// Err returns the first decoding error.
func (r *KeyReader) Err() error { return r.err }

// HasPrefix returns whether key starts with prefix.
func (key Key) HasPrefix(prefix Key) bool { return bytes.HasPrefix(key, prefix) }

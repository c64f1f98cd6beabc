// Package osc implements the wire codec for component S: OSC-style
// messages over UDP. A message is an address string, a type-tag string
// (",ifsb…"), and one 4-byte-aligned argument block per tag. No bundle
// support is implemented — ScintillatorSynth's client protocol never
// bundles, so #bundle packets are rejected as malformed.
//
// Every address this server accepts must carry the six-byte /scin_ prefix,
// reserved to distinguish control messages here from an audio server
// sharing the same host; Decode enforces it so a stray datagram from some
// other protocol is rejected before Dispatch ever sees it.
package osc

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// AddressPrefix is the mandatory six-byte address prefix.
const AddressPrefix = "/scin_"

// ArgKind tags one decoded argument's Go type.
type ArgKind int

const (
	ArgInt32 ArgKind = iota
	ArgFloat32
	ArgString
	ArgBlob
)

// Arg is one decoded, typed argument.
type Arg struct {
	Kind  ArgKind
	Int   int32
	Float float32
	Str   string
	Blob  []byte
}

// Message is a fully decoded OSC message: an address (always /scin_-
// prefixed, per Decode) and its typed argument list.
type Message struct {
	Address string
	Args    []Arg
}

// Command returns the address suffix following the /scin_ prefix, e.g.
// "status" for "/scin_status" — the string the dispatcher's command table
// is keyed on.
func (m Message) Command() string {
	return m.Address[len(AddressPrefix):]
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}

// readPaddedString reads a NUL-terminated string padded to a 4-byte
// boundary (the total consumed length, including padding, is a multiple of
// 4, and at least 4 bytes since the terminator itself counts).
func readPaddedString(data []byte, offset int) (string, int, error) {
	end := offset
	for end < len(data) && data[end] != 0 {
		end++
	}
	if end >= len(data) {
		return "", 0, fmt.Errorf("osc: unterminated string at offset %d", offset)
	}
	s := string(data[offset:end])
	consumed := roundUp4(end - offset + 1)
	if offset+consumed > len(data) {
		return "", 0, fmt.Errorf("osc: string padding overruns buffer at offset %d", offset)
	}
	return s, offset + consumed, nil
}

// Decode parses one UDP datagram into a Message. A malformed datagram, a
// missing /scin_ prefix, or a #bundle packet all yield a Protocol-kind
// error; the caller drops the datagram without a reply unless its
// error-reply policy is "all".
func Decode(data []byte) (Message, error) {
	if len(data) >= 8 && string(data[:7]) == "#bundle" {
		return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: bundles are not supported"))
	}

	address, offset, err := readPaddedString(data, 0)
	if err != nil {
		return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: reading address: %w", err))
	}
	if len(address) < len(AddressPrefix) || address[:len(AddressPrefix)] != AddressPrefix {
		return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: address %q missing %s prefix", address, AddressPrefix))
	}

	if offset >= len(data) {
		// No type-tag string at all: treat as a zero-argument message, the
		// same as an empty ",".
		return Message{Address: address}, nil
	}

	tags, offset, err := readPaddedString(data, offset)
	if err != nil {
		return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: reading type tags: %w", err))
	}
	if len(tags) == 0 || tags[0] != ',' {
		return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: type-tag string %q missing leading comma", tags))
	}
	tags = tags[1:]

	args := make([]Arg, 0, len(tags))
	for _, tag := range tags {
		switch tag {
		case 'i':
			if offset+4 > len(data) {
				return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: truncated int32 argument"))
			}
			v := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
			args = append(args, Arg{Kind: ArgInt32, Int: v})
			offset += 4

		case 'f':
			if offset+4 > len(data) {
				return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: truncated float32 argument"))
			}
			bits := binary.BigEndian.Uint32(data[offset : offset+4])
			args = append(args, Arg{Kind: ArgFloat32, Float: math.Float32frombits(bits)})
			offset += 4

		case 's':
			s, next, err := readPaddedString(data, offset)
			if err != nil {
				return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: reading string argument: %w", err))
			}
			args = append(args, Arg{Kind: ArgString, Str: s})
			offset = next

		case 'b':
			if offset+4 > len(data) {
				return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: truncated blob length"))
			}
			n := int(binary.BigEndian.Uint32(data[offset : offset+4]))
			offset += 4
			if n < 0 || offset+n > len(data) {
				return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: blob length %d overruns buffer", n))
			}
			blob := make([]byte, n)
			copy(blob, data[offset:offset+n])
			args = append(args, Arg{Kind: ArgBlob, Blob: blob})
			offset += roundUp4(n)

		default:
			return Message{}, core.NewError(core.KindProtocol, fmt.Errorf("osc: unsupported type tag %q", tag))
		}
	}

	return Message{Address: address, Args: args}, nil
}

// Encode serializes m back into a wire datagram, for sending replies.
func Encode(m Message) ([]byte, error) {
	var buf []byte
	buf = appendPaddedString(buf, m.Address)

	tags := make([]byte, 0, len(m.Args)+1)
	tags = append(tags, ',')
	for _, a := range m.Args {
		switch a.Kind {
		case ArgInt32:
			tags = append(tags, 'i')
		case ArgFloat32:
			tags = append(tags, 'f')
		case ArgString:
			tags = append(tags, 's')
		case ArgBlob:
			tags = append(tags, 'b')
		default:
			return nil, fmt.Errorf("osc: unknown argument kind %d", a.Kind)
		}
	}
	buf = appendPaddedString(buf, string(tags))

	for _, a := range m.Args {
		switch a.Kind {
		case ArgInt32:
			buf = appendInt32(buf, a.Int)
		case ArgFloat32:
			buf = appendFloat32(buf, a.Float)
		case ArgString:
			buf = appendPaddedString(buf, a.Str)
		case ArgBlob:
			buf = appendBlob(buf, a.Blob)
		}
	}
	return buf, nil
}

func appendPaddedString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	buf = append(buf, 0)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func appendFloat32(buf []byte, v float32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	return append(buf, b[:]...)
}

func appendBlob(buf []byte, blob []byte) []byte {
	buf = appendInt32(buf, int32(len(blob)))
	buf = append(buf, blob...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

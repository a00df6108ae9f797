// Package dnsname implements the L1 label codec: parsing and serializing
// RFC 1035 §4.1.4 DNS names, including pointer compression with the
// recursion and self-loop guards spec.md §4.2 requires.
//
// This is grounded on the teacher repo's internal/message/name.go parser
// (length-prefixed segment loop, bounds checks, WireFormatError shapes)
// but generalized from the teacher's compression-free encoder into a
// compressing one, and simplified to copy segments on parse rather than
// borrow — an explicitly allowed simplification per spec.md §9's design
// notes ("copy on parse (simplest)").
package dnsname

import (
	"strings"
	"unicode/utf8"

	"github.com/mtlynch/mdnscore/internal/errors"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

// Label is an ordered sequence of name segments representing "a.b.c" for
// segments (a, b, c). The trailing root dot is never stored. Segments
// compare case-sensitively per spec.md §9's stated default.
type Label struct {
	segments []string
}

// New builds a Label from a dotted string such as "_http._tcp.local". The
// empty string yields the empty label (zero segments). A trailing '.' is
// rejected as a ValidationError per spec.md §4.2's invariant.
func New(name string) (Label, error) {
	if name == "" {
		return Label{}, nil
	}
	if strings.HasSuffix(name, ".") {
		return Label{}, &errors.ValidationError{
			Field:   "name",
			Value:   name,
			Message: "label must not end with a trailing dot",
		}
	}

	segs := strings.Split(name, ".")
	wireLen := 1 // terminating zero byte
	for _, s := range segs {
		if s == "" {
			return Label{}, &errors.ValidationError{
				Field:   "name",
				Value:   name,
				Message: "empty segment (consecutive dots)",
			}
		}
		if len(s) > protocol.MaxLabelLength {
			return Label{}, &errors.ValidationError{
				Field:   "name",
				Value:   name,
				Message: "segment exceeds maximum label length",
			}
		}
		if !utf8.ValidString(s) {
			return Label{}, &errors.ValidationError{
				Field:   "name",
				Value:   name,
				Message: "segment is not valid UTF-8",
			}
		}
		wireLen += 1 + len(s)
	}
	if wireLen > protocol.MaxNameLength {
		return Label{}, &errors.ValidationError{
			Field:   "name",
			Value:   name,
			Message: "encoded name exceeds maximum wire length",
		}
	}

	return Label{segments: segs}, nil
}

// MustNew is New, panicking on error. Reserved for constructing constants
// (e.g. "local") from literals known to be valid at compile time.
func MustNew(name string) Label {
	l, err := New(name)
	if err != nil {
		panic(err)
	}
	return l
}

// Segments returns the label's segments in order. The returned slice must
// not be mutated.
func (l Label) Segments() []string { return l.segments }

// Len returns the number of segments.
func (l Label) Len() int { return len(l.segments) }

// IsEmpty reports whether the label has zero segments.
func (l Label) IsEmpty() bool { return len(l.segments) == 0 }

// String renders the label as a dotted string with no trailing dot.
func (l Label) String() string { return strings.Join(l.segments, ".") }

// Equal reports whether two labels have the same segments in the same
// order, compared case-sensitively.
func (l Label) Equal(other Label) bool {
	if len(l.segments) != len(other.segments) {
		return false
	}
	for i := range l.segments {
		if l.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// Prepend returns a new label with instance's segments placed before l's
// segments — the DNS-SD "instance._service._proto.local" construction of
// spec.md §3.
func (l Label) Prepend(instance Label) Label {
	out := make([]string, 0, len(instance.segments)+len(l.segments))
	out = append(out, instance.segments...)
	out = append(out, l.segments...)
	return Label{segments: out}
}

// Parse reads a DNS name starting at offset within msg, following
// compression pointers as needed. msg is the entire original packet:
// compression pointers are offsets into it.
//
// Pointer handling follows spec.md §4.2: the destination must lie within
// msg, the two bytes at the destination must differ from the two bytes at
// the current position (a trivial self-loop guard), and no more than
// protocol.MaxPointerRecursion jumps are followed.
func Parse(msg []byte, offset int) (Label, int, error) {
	if len(msg) == 0 {
		return Label{}, offset, &errors.ValidationError{
			Field:   "context",
			Message: "label parse context must not be empty",
		}
	}
	if offset < 0 || offset >= len(msg) {
		return Label{}, offset, &errors.WireFormatError{
			Operation: "parse label",
			Offset:    offset,
			Message:   "offset out of bounds",
		}
	}

	var segments []string
	pos := offset
	newOffset := -1
	jumpsRemaining := protocol.MaxPointerRecursion

	for {
		if pos >= len(msg) {
			return Label{}, offset, &errors.WireFormatError{
				Operation: "parse label",
				Offset:    pos,
				Message:   "unexpected end of message while parsing label",
			}
		}

		length := msg[pos]

		if length&protocol.CompressionMask == protocol.CompressionMask {
			if pos+1 >= len(msg) {
				return Label{}, offset, &errors.WireFormatError{
					Operation: "parse label",
					Offset:    pos,
					Message:   "truncated compression pointer",
				}
			}
			ptr := int(length&^protocol.CompressionMask)<<8 | int(msg[pos+1])
			if ptr < 0 || ptr >= len(msg) {
				return Label{}, offset, &errors.WireFormatError{
					Operation: "parse label",
					Offset:    pos,
					Message:   "compression pointer out of range",
				}
			}
			if ptr+1 < len(msg) && msg[ptr] == msg[pos] && msg[ptr+1] == msg[pos+1] {
				return Label{}, offset, &errors.WireFormatError{
					Operation: "parse label",
					Offset:    pos,
					Message:   "compression pointer forms a trivial self-loop",
				}
			}
			if jumpsRemaining <= 0 {
				return Label{}, offset, &errors.WireFormatError{
					Operation: "parse label",
					Offset:    pos,
					Message:   "too many compression pointer jumps",
				}
			}
			jumpsRemaining--

			if newOffset < 0 {
				newOffset = pos + 2
			}
			pos = ptr
			continue
		}

		if length == 0 {
			if newOffset < 0 {
				newOffset = pos + 1
			}
			break
		}

		if int(length) > protocol.MaxLabelLength {
			return Label{}, offset, &errors.WireFormatError{
				Operation: "parse label",
				Offset:    pos,
				Message:   "label length exceeds maximum",
			}
		}
		if pos+1+int(length) > len(msg) {
			return Label{}, offset, &errors.WireFormatError{
				Operation: "parse label",
				Offset:    pos,
				Message:   "truncated label",
			}
		}

		seg := msg[pos+1 : pos+1+int(length)]
		if !utf8.Valid(seg) {
			return Label{}, offset, &errors.WireFormatError{
				Operation: "parse label",
				Offset:    pos,
				Message:   "label is not valid UTF-8",
			}
		}
		segments = append(segments, string(seg))
		pos += 1 + int(length)
	}

	return Label{segments: segments}, newOffset, nil
}

// Serialize writes l in RFC 1035 §4.1.4 wire format, replacing the
// longest suffix already present in w's label memo with a two-byte
// compression pointer, and recording every new suffix it writes for
// future compression.
func (l Label) Serialize(w *wirebuf.Writer) {
	segs := l.segments
	for i := 0; i < len(segs); i++ {
		suffix := strings.Join(segs[i:], ".")
		if off, ok := w.FindLabel(suffix); ok {
			w.WriteU16(0xC000 | uint16(off))
			return
		}
		w.PushLabel(suffix, 0)
		w.WriteU8(byte(len(segs[i])))
		w.Write([]byte(segs[i]))
	}
	w.WriteU8(0)
}

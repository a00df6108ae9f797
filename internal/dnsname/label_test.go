package dnsname

import (
	"testing"

	"github.com/mtlynch/mdnscore/internal/errors"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

func TestNew_SplitsOnDots(t *testing.T) {
	l, err := New("_http._tcp.local")
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	want := []string{"_http", "_tcp", "local"}
	got := l.Segments()
	if len(got) != len(want) {
		t.Fatalf("Segments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Segments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if l.String() != "_http._tcp.local" {
		t.Errorf("String() = %q, want %q", l.String(), "_http._tcp.local")
	}
}

func TestNew_Empty(t *testing.T) {
	l, err := New("")
	if err != nil {
		t.Fatalf("New(\"\") = %v", err)
	}
	if !l.IsEmpty() {
		t.Error("New(\"\").IsEmpty() = false, want true")
	}
}

func TestNew_RejectsTrailingDot(t *testing.T) {
	_, err := New("example.com.")
	if err == nil {
		t.Fatal("New(\"example.com.\") = nil error, want ValidationError")
	}
	var verr *errors.ValidationError
	if !goerrorsAs(err, &verr) {
		t.Fatalf("error type = %T, want *errors.ValidationError", err)
	}
}

func TestNew_RejectsEmptySegment(t *testing.T) {
	if _, err := New("a..b"); err == nil {
		t.Fatal("New(\"a..b\") = nil error, want error")
	}
}

func TestPrepend(t *testing.T) {
	svc := MustNew("_http._tcp.local")
	instance := MustNew("My Printer")
	full := svc.Prepend(instance)
	if full.String() != "My Printer._http._tcp.local" {
		t.Errorf("Prepend() = %q, want %q", full.String(), "My Printer._http._tcp.local")
	}
}

func TestEqual(t *testing.T) {
	a := MustNew("example.com")
	b := MustNew("example.com")
	c := MustNew("Example.com")
	if !a.Equal(b) {
		t.Error("Equal() = false for identical labels, want true")
	}
	if a.Equal(c) {
		t.Error("Equal() = true for differently-cased labels, want false (case-sensitive)")
	}
}

// Scenario 1 from spec.md §8: parse the question name "example.com" at
// offset 12 (after a zeroed 12-byte header) and confirm its segments and
// the returned end offset.
func TestParse_SimpleName(t *testing.T) {
	// 07 "example" 03 "com" 00
	msg := append([]byte{}, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0) // 12-byte header filler, offset 12 is the name
	msg = append(msg, 7)
	msg = append(msg, "example"...)
	msg = append(msg, 3)
	msg = append(msg, "com"...)
	msg = append(msg, 0)

	l, newOffset, err := Parse(msg, 12)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if l.String() != "example.com" {
		t.Errorf("Parse() label = %q, want %q", l.String(), "example.com")
	}
	if newOffset != len(msg) {
		t.Errorf("Parse() newOffset = %d, want %d", newOffset, len(msg))
	}
}

// Scenario 2: a name encoded as a pointer to an earlier name resolves to
// the same segments, and parsing resumes right after the 2-byte pointer.
func TestParse_CompressionPointer(t *testing.T) {
	msg := []byte{}
	msg = append(msg, 7)
	msg = append(msg, "example"...)
	msg = append(msg, 3)
	msg = append(msg, "com"...)
	msg = append(msg, 0) // offset 0..11, name ends at 12
	pointerOffset := len(msg)
	msg = append(msg, 0xC0, 0x00) // pointer to offset 0

	l, newOffset, err := Parse(msg, pointerOffset)
	if err != nil {
		t.Fatalf("Parse() = %v", err)
	}
	if l.String() != "example.com" {
		t.Errorf("Parse() via pointer = %q, want %q", l.String(), "example.com")
	}
	if newOffset != pointerOffset+2 {
		t.Errorf("Parse() newOffset = %d, want %d", newOffset, pointerOffset+2)
	}
}

func TestSerialize_UsesCompressionForRepeatedSuffix(t *testing.T) {
	buf := make([]byte, 64)
	w := wirebuf.NewWriter(buf, 8)

	first := MustNew("example.com")
	first.Serialize(w)
	firstEnd := w.Position()

	second := MustNew("www.example.com")
	second.Serialize(w)

	out := w.Bytes()
	// The second name should end in a 2-byte pointer back to offset 0,
	// not a full repeat of "example.com".
	if len(out) >= firstEnd+4+12 {
		t.Fatalf("serialized output looks uncompressed: %d bytes", len(out))
	}

	// Round-trip: reparsing the second name from its start offset yields
	// the original segments.
	secondStart := firstEnd
	parsed, _, err := Parse(out, secondStart)
	if err != nil {
		t.Fatalf("Parse() of serialized name = %v", err)
	}
	if !parsed.Equal(second) {
		t.Errorf("round-tripped label = %q, want %q", parsed.String(), second.String())
	}
}

func TestParse_RejectsTrivialSelfLoop(t *testing.T) {
	// A pointer at offset 0 whose 2 bytes equal the 2 bytes at its own
	// target (itself) must be rejected rather than looping.
	msg := []byte{0xC0, 0x00}
	if _, _, err := Parse(msg, 0); err == nil {
		t.Fatal("Parse() on self-pointing pointer = nil error, want error")
	}
}

func TestParse_RejectsDeepPointerChain(t *testing.T) {
	// Build a chain of back-to-back 2-byte pointers, each pointing to the
	// previous pointer, exceeding the depth-4 recursion bound before ever
	// reaching a terminator.
	msg := make([]byte, 0, 32)
	msg = append(msg, 0) // offset 0: terminator, valid target but we won't reach it due to depth bound
	offsets := []int{}
	for i := 0; i < 10; i++ {
		offsets = append(offsets, len(msg))
		target := 0
		if i > 0 {
			target = offsets[i-1]
		}
		msg = append(msg, 0xC0|byte(target>>8), byte(target&0xFF))
	}
	start := offsets[len(offsets)-1]

	if _, _, err := Parse(msg, start); err == nil {
		t.Fatal("Parse() on deep pointer chain = nil error, want error")
	}
}

func TestParse_EmptyContextRejected(t *testing.T) {
	if _, _, err := Parse(nil, 0); err == nil {
		t.Fatal("Parse(nil, 0) = nil error, want ValidationError")
	}
}

func TestParse_BoundedTimeOnRandomBytes(t *testing.T) {
	// Pointer-loop safety: parsing must terminate and never panic for any
	// input, per spec.md §8.
	inputs := [][]byte{
		{0xC0},
		{0xC0, 0xC0},
		{0xFF, 0xFF, 0xFF, 0xFF},
		make([]byte, 2048),
	}
	for i, msg := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("input %d: Parse panicked: %v", i, r)
				}
			}()
			_, _, _ = Parse(msg, 0)
		}()
	}
}

// goerrorsAs avoids importing the standard "errors" package under the
// name "errors", which already refers to this project's internal package.
func goerrorsAs(err error, target interface{}) bool {
	switch t := target.(type) {
	case **errors.ValidationError:
		if v, ok := err.(*errors.ValidationError); ok {
			*t = v
			return true
		}
	}
	return false
}

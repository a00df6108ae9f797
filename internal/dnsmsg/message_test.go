package dnsmsg

import (
	"testing"

	"github.com/mtlynch/mdnscore/internal/dnsname"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

// Scenario 1 from spec.md §8: an A-record question round-trips through
// serialize then parse.
func TestMessage_RequestRoundTrip(t *testing.T) {
	m := NewRequest(0x1234, 4)
	name := dnsname.MustNew("example.local")
	if err := m.Queries.Push(Query{Name: name, QType: protocol.QTypeA, QClass: protocol.ClassIN}); err != nil {
		t.Fatalf("Queries.Push() = %v", err)
	}

	buf := make([]byte, 512)
	w := wirebuf.NewWriter(buf, 8)
	m.Serialize(w)
	if w.Overflow() {
		t.Fatal("Serialize() overflowed")
	}

	parsed, err := ParseMessage(w.Bytes(), 4, 4)
	if err != nil {
		t.Fatalf("ParseMessage() = %v", err)
	}
	if parsed.IsResponse {
		t.Error("parsed.IsResponse = true, want false")
	}
	if parsed.ID != 0x1234 {
		t.Errorf("parsed.ID = %#x, want 0x1234", parsed.ID)
	}
	if parsed.Queries.Len() != 1 {
		t.Fatalf("parsed.Queries.Len() = %d, want 1", parsed.Queries.Len())
	}
	got := parsed.Queries.At(0)
	if !got.Name.Equal(name) || got.QType != protocol.QTypeA || got.QClass != protocol.ClassIN {
		t.Errorf("parsed query = %+v, want name=%q type=A class=IN", got, name.String())
	}
}

func TestMessage_ResponseRoundTrip_AllRecordTypes(t *testing.T) {
	m := NewResponse(0, 0, 8)

	host := dnsname.MustNew("myhost.local")
	svc := dnsname.MustNew("_http._tcp.local")
	instance := dnsname.MustNew("My Service._http._tcp.local")

	answers := []Answer{
		{Name: host, AType: protocol.QTypeA, AClass: protocol.ClassMulticast, TTL: protocol.TTLHostname, Record: NewA([4]byte{192, 168, 1, 5})},
		{Name: host, AType: protocol.QTypeAAAA, AClass: protocol.ClassMulticast, TTL: protocol.TTLHostname, Record: NewAAAA([16]byte{0x20, 0x01})},
		{Name: svc, AType: protocol.QTypePTR, AClass: protocol.ClassIN, TTL: protocol.TTLService, Record: NewPTR(instance)},
		{Name: instance, AType: protocol.QTypeSRV, AClass: protocol.ClassMulticast, TTL: protocol.TTLService, Record: NewSRV(0, 0, 8080, host)},
		{Name: instance, AType: protocol.QTypeTXT, AClass: protocol.ClassMulticast, TTL: protocol.TTLService, Record: NewTXT("path=/")},
	}
	for _, a := range answers {
		if err := m.Answers.Push(a); err != nil {
			t.Fatalf("Answers.Push(%+v) = %v", a, err)
		}
	}

	buf := make([]byte, 1024)
	w := wirebuf.NewWriter(buf, 16)
	m.Serialize(w)
	if w.Overflow() {
		t.Fatal("Serialize() overflowed")
	}

	parsed, err := ParseMessage(w.Bytes(), 0, 8)
	if err != nil {
		t.Fatalf("ParseMessage() = %v", err)
	}
	if !parsed.IsResponse {
		t.Fatal("parsed.IsResponse = false, want true")
	}
	if parsed.Answers.Len() != len(answers) {
		t.Fatalf("parsed.Answers.Len() = %d, want %d", parsed.Answers.Len(), len(answers))
	}

	for i, want := range answers {
		got := parsed.Answers.At(i)
		if !got.Name.Equal(want.Name) {
			t.Errorf("answer %d name = %q, want %q", i, got.Name.String(), want.Name.String())
		}
		if got.AType != want.AType || got.AClass != want.AClass || got.TTL != want.TTL {
			t.Errorf("answer %d fields = %+v, want matching %+v", i, got, want)
		}
		switch want.AType {
		case protocol.QTypeA:
			if got.Record.Addr4 != want.Record.Addr4 {
				t.Errorf("answer %d A addr = %v, want %v", i, got.Record.Addr4, want.Record.Addr4)
			}
		case protocol.QTypeAAAA:
			if got.Record.Addr16 != want.Record.Addr16 {
				t.Errorf("answer %d AAAA addr = %v, want %v", i, got.Record.Addr16, want.Record.Addr16)
			}
		case protocol.QTypePTR:
			if !got.Record.PTR.Equal(want.Record.PTR) {
				t.Errorf("answer %d PTR = %q, want %q", i, got.Record.PTR.String(), want.Record.PTR.String())
			}
		case protocol.QTypeSRV:
			if got.Record.SRVPort != want.Record.SRVPort || !got.Record.SRVTarget.Equal(want.Record.SRVTarget) {
				t.Errorf("answer %d SRV = %+v, want matching %+v", i, got.Record, want.Record)
			}
		case protocol.QTypeTXT:
			if got.Record.TXT != want.Record.TXT {
				t.Errorf("answer %d TXT = %q, want %q", i, got.Record.TXT, want.Record.TXT)
			}
		}
	}
}

func TestParseMessage_RejectsTruncatedHeader(t *testing.T) {
	if _, err := ParseMessage([]byte{0, 1, 2}, 4, 4); err == nil {
		t.Fatal("ParseMessage() on 3-byte input = nil error, want error")
	}
}

func TestParseMessage_RejectsAnswerWithUnknownType(t *testing.T) {
	m := NewResponse(0, 0, 1)
	_ = m.Answers.Push(Answer{
		Name:   dnsname.MustNew("x.local"),
		AType:  protocol.QTypeA,
		AClass: protocol.ClassIN,
		TTL:    1,
		Record: NewA([4]byte{1, 2, 3, 4}),
	})
	buf := make([]byte, 256)
	w := wirebuf.NewWriter(buf, 4)
	m.Serialize(w)
	out := w.Bytes()

	// Overwrite the answer's TYPE field (bytes immediately following the
	// two-segment name 01 "x" 05 "local" 00, i.e. header(12) + name(9) =
	// offset 21) with QTypeANY (255) to simulate an attacker-controlled or
	// malformed answer.
	typeOffset := 12 + len("x") + 1 + len("local") + 1 + 1
	out[typeOffset] = 0
	out[typeOffset+1] = byte(protocol.QTypeANY)

	if _, err := ParseMessage(out, 0, 1); err == nil {
		t.Fatal("ParseMessage() with ANY-typed answer = nil error, want error")
	}
}

func TestMessage_OverflowQuestionCapacity(t *testing.T) {
	m := NewRequest(0, 1)
	name := dnsname.MustNew("a.local")
	if err := m.Queries.Push(Query{Name: name, QType: protocol.QTypeA, QClass: protocol.ClassIN}); err != nil {
		t.Fatal(err)
	}
	if err := m.Queries.Push(Query{Name: name, QType: protocol.QTypeA, QClass: protocol.ClassIN}); err == nil {
		t.Fatal("second Push on capacity-1 Queries = nil, want CapacityError")
	}
}

func TestParseMessage_RejectsQuestionCountExceedingCapacity(t *testing.T) {
	m := NewRequest(0, 4)
	for _, n := range []string{"a.local", "b.local", "c.local"} {
		_ = m.Queries.Push(Query{Name: dnsname.MustNew(n), QType: protocol.QTypeA, QClass: protocol.ClassIN})
	}
	buf := make([]byte, 256)
	w := wirebuf.NewWriter(buf, 8)
	m.Serialize(w)

	if _, err := ParseMessage(w.Bytes(), 2, 4); err == nil {
		t.Fatal("ParseMessage() with qlen smaller than QDCOUNT = nil error, want error")
	}
}

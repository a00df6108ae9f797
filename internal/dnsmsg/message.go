package dnsmsg

import (
	"encoding/binary"

	"github.com/mtlynch/mdnscore/internal/dnsname"
	"github.com/mtlynch/mdnscore/internal/errors"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

const headerLength = 12

// Query is a single question-section entry: a name plus the record type
// and class being asked about.
type Query struct {
	Name   dnsname.Label
	QType  protocol.QType
	QClass protocol.QClass
}

// Answer is a single answer-section entry: a name, its declared type and
// class (with the RFC 6762 cache-flush bit folded into QClass), a TTL, and
// the decoded record payload.
type Answer struct {
	Name   dnsname.Label
	AType  protocol.QType
	AClass protocol.QClass
	TTL    uint32
	Record Record
}

// Message is a parsed or to-be-serialized mDNS packet: the 12-byte header
// plus a bounded question section and, for responses, a bounded answer
// section. The NSCOUNT/ARCOUNT header fields are ignored and their sections
// are never parsed or serialized, per spec.md §4.4 — this core has no use
// for authority or additional records.
type Message struct {
	ID         uint16
	Flags      uint16
	IsResponse bool
	Queries    *wirebuf.Seq[Query]
	Answers    *wirebuf.Seq[Answer] // empty/unused for a request
}

// NewRequest builds an empty outgoing query message with the given
// question capacity.
func NewRequest(id uint16, qlen int) *Message {
	return &Message{
		ID:      id,
		Flags:   protocol.StandardRequestFlags,
		Queries: wirebuf.NewSeq[Query]("queries", qlen),
		Answers: wirebuf.NewSeq[Answer]("answers", 0),
	}
}

// NewResponse builds an empty outgoing response message with the given
// question and answer capacities.
func NewResponse(id uint16, qlen, alen int) *Message {
	return &Message{
		ID:         id,
		Flags:      protocol.StandardResponseFlags,
		IsResponse: true,
		Queries:    wirebuf.NewSeq[Query]("queries", qlen),
		Answers:    wirebuf.NewSeq[Answer]("answers", alen),
	}
}

// ParseMessage reads a complete mDNS message from msg, dispatching on the
// QR bit per spec.md §4.4: a query (QR=0) yields only its question section
// into a Seq of capacity qlen; a response (QR=1) yields both its question
// section (capacity qlen) and its answer section (capacity alen). The
// NSCOUNT/ARCOUNT header fields are not read, and bytes after the answer
// section (authority and additional records) are never consumed.
func ParseMessage(msg []byte, qlen, alen int) (*Message, error) {
	if len(msg) < headerLength {
		return nil, &errors.WireFormatError{
			Operation: "parse message",
			Offset:    0,
			Message:   "message shorter than the 12-byte header",
		}
	}

	id := binary.BigEndian.Uint16(msg[0:2])
	flags := binary.BigEndian.Uint16(msg[2:4])
	qdcount := int(binary.BigEndian.Uint16(msg[4:6]))
	ancount := int(binary.BigEndian.Uint16(msg[6:8]))

	isResponse := protocol.IsResponse(flags)

	m := &Message{
		ID:         id,
		Flags:      flags,
		IsResponse: isResponse,
		Queries:    wirebuf.NewSeq[Query]("queries", qlen),
		Answers:    wirebuf.NewSeq[Answer]("answers", alen),
	}

	pos := headerLength
	for i := 0; i < qdcount; i++ {
		q, next, err := parseQuery(msg, pos)
		if err != nil {
			return nil, err
		}
		if err := m.Queries.Push(q); err != nil {
			return nil, err
		}
		pos = next
	}

	if !isResponse {
		return m, nil
	}

	for i := 0; i < ancount; i++ {
		a, next, err := parseAnswer(msg, pos)
		if err != nil {
			return nil, err
		}
		if err := m.Answers.Push(a); err != nil {
			return nil, err
		}
		pos = next
	}

	return m, nil
}

func parseQuery(msg []byte, pos int) (Query, int, error) {
	name, next, err := dnsname.Parse(msg, pos)
	if err != nil {
		return Query{}, pos, err
	}
	if next+4 > len(msg) {
		return Query{}, pos, &errors.WireFormatError{
			Operation: "parse question",
			Offset:    next,
			Message:   "truncated question (missing QTYPE/QCLASS)",
		}
	}
	qtype := protocol.QType(binary.BigEndian.Uint16(msg[next : next+2]))
	qclass := protocol.QClass(binary.BigEndian.Uint16(msg[next+2 : next+4]))
	return Query{Name: name, QType: qtype, QClass: qclass}, next + 4, nil
}

func parseAnswer(msg []byte, pos int) (Answer, int, error) {
	name, next, err := dnsname.Parse(msg, pos)
	if err != nil {
		return Answer{}, pos, err
	}
	if next+10 > len(msg) {
		return Answer{}, pos, &errors.WireFormatError{
			Operation: "parse answer",
			Offset:    next,
			Message:   "truncated answer (missing TYPE/CLASS/TTL/RDLENGTH)",
		}
	}
	atype := protocol.QType(binary.BigEndian.Uint16(msg[next : next+2]))
	aclass := protocol.QClass(binary.BigEndian.Uint16(msg[next+2 : next+4]))
	ttl := binary.BigEndian.Uint32(msg[next+4 : next+8])
	rdlength := int(binary.BigEndian.Uint16(msg[next+8 : next+10]))
	rdataStart := next + 10
	if rdataStart+rdlength > len(msg) {
		return Answer{}, pos, &errors.WireFormatError{
			Operation: "parse answer",
			Offset:    rdataStart,
			Message:   "truncated RDATA",
		}
	}

	record, err := parseRDATA(msg, atype, rdataStart, rdlength)
	if err != nil {
		return Answer{}, pos, err
	}

	return Answer{Name: name, AType: atype, AClass: aclass, TTL: ttl, Record: record}, rdataStart + rdlength, nil
}

// Serialize writes m into w: the 12-byte header (with QDCOUNT/ANCOUNT
// reflecting the sequence lengths actually written and NSCOUNT/ARCOUNT
// always zero), the question section, and — for responses — the answer
// section.
func (m *Message) Serialize(w *wirebuf.Writer) {
	w.WriteU16(m.ID)
	w.WriteU16(m.Flags)
	w.WriteU16(uint16(m.Queries.Len()))
	if m.IsResponse {
		w.WriteU16(uint16(m.Answers.Len()))
	} else {
		w.WriteU16(0)
	}
	w.WriteU16(0) // NSCOUNT
	w.WriteU16(0) // ARCOUNT

	for _, q := range m.Queries.All() {
		q.Name.Serialize(w)
		w.WriteU16(uint16(q.QType))
		w.WriteU16(uint16(q.QClass))
	}

	if !m.IsResponse {
		return
	}

	for _, a := range m.Answers.All() {
		a.Name.Serialize(w)
		w.WriteU16(uint16(a.AType))
		w.WriteU16(uint16(a.AClass))
		w.WriteU32(a.TTL)
		a.Record.serializeRDATA(w)
	}
}

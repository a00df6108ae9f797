// Package dnsmsg implements the L1 record and message codec: the DNS-SD
// record subset (A, AAAA, PTR, TXT, SRV), the question/answer records that
// carry them, and the top-level message parse/serialize with QR-bit demux.
//
// Grounded on the teacher repo's internal/message package (message.go's
// field layout, parser.go's bounds-checked reads, builder.go's RDLENGTH
// handling) but generalized to support AAAA, name compression via
// internal/wirebuf.Writer, and the spec's single-blob TXT model instead of
// the teacher's RFC 6763 key=value TXT split.
package dnsmsg

import (
	"encoding/binary"

	"github.com/mtlynch/mdnscore/internal/dnsname"
	"github.com/mtlynch/mdnscore/internal/errors"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

// Record is a tagged union over the DNS-SD record subset per spec.md §3:
// A, AAAA, PTR, TXT, SRV. Type selects which of the payload fields is
// meaningful.
type Record struct {
	Type protocol.QType

	Addr4  [4]byte       // valid when Type == QTypeA
	Addr16 [16]byte      // valid when Type == QTypeAAAA
	PTR    dnsname.Label // valid when Type == QTypePTR

	TXT string // valid when Type == QTypeTXT; treated as a single opaque blob per spec.md §4.3

	SRVPriority uint16        // valid when Type == QTypeSRV
	SRVWeight   uint16        // valid when Type == QTypeSRV
	SRVPort     uint16        // valid when Type == QTypeSRV
	SRVTarget   dnsname.Label // valid when Type == QTypeSRV
}

// NewA builds an A record.
func NewA(addr [4]byte) Record { return Record{Type: protocol.QTypeA, Addr4: addr} }

// NewAAAA builds an AAAA record.
func NewAAAA(addr [16]byte) Record { return Record{Type: protocol.QTypeAAAA, Addr16: addr} }

// NewPTR builds a PTR record.
func NewPTR(name dnsname.Label) Record { return Record{Type: protocol.QTypePTR, PTR: name} }

// NewTXT builds a TXT record carrying text as its single opaque rdata blob.
func NewTXT(text string) Record { return Record{Type: protocol.QTypeTXT, TXT: text} }

// NewSRV builds an SRV record.
func NewSRV(priority, weight, port uint16, target dnsname.Label) Record {
	return Record{Type: protocol.QTypeSRV, SRVPriority: priority, SRVWeight: weight, SRVPort: port, SRVTarget: target}
}

// serializeRDATA writes the RDLENGTH field followed by the type-specific
// RDATA, per spec.md §4.3. PTR and SRV reserve the RDLENGTH field and
// back-patch it once their (possibly compressed) name has been written.
func (r Record) serializeRDATA(w *wirebuf.Writer) {
	switch r.Type {
	case protocol.QTypeA:
		w.WriteU16(4)
		w.Write(r.Addr4[:])

	case protocol.QTypeAAAA:
		w.WriteU16(16)
		w.Write(r.Addr16[:])

	case protocol.QTypeTXT:
		w.WriteU16(uint16(len(r.TXT)))
		w.Write([]byte(r.TXT))

	case protocol.QTypePTR:
		res := w.Reserve(2)
		r.PTR.Serialize(w)
		patchRDLength(w, res)

	case protocol.QTypeSRV:
		res := w.Reserve(2)
		w.WriteU16(r.SRVPriority)
		w.WriteU16(r.SRVWeight)
		w.WriteU16(r.SRVPort)
		r.SRVTarget.Serialize(w)
		patchRDLength(w, res)
	}
}

func patchRDLength(w *wirebuf.Writer, res wirebuf.Reservation) {
	dist := w.DistanceFromReservation(res)
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(dist))
	w.WriteReservation(res, b[:])
}

// parseRDATA parses the RDATA of an answer whose fixed fields (NAME, TYPE,
// CLASS, TTL, RDLENGTH) have already been consumed. msg is the entire
// packet (needed so PTR/SRV names can follow compression pointers);
// start is the absolute offset of RDATA's first byte and rdlength its
// declared length.
//
// ANY and any QType outside the known record set fail with a
// WireFormatError, per spec.md §3's Answer invariant.
func parseRDATA(msg []byte, atype protocol.QType, start, rdlength int) (Record, error) {
	switch atype {
	case protocol.QTypeA:
		if rdlength != 4 || start+4 > len(msg) {
			return Record{}, &errors.WireFormatError{
				Operation: "parse A record",
				Offset:    start,
				Message:   "A record RDATA must be exactly 4 bytes",
			}
		}
		var addr [4]byte
		copy(addr[:], msg[start:start+4])
		return NewA(addr), nil

	case protocol.QTypeAAAA:
		if rdlength != 16 || start+16 > len(msg) {
			return Record{}, &errors.WireFormatError{
				Operation: "parse AAAA record",
				Offset:    start,
				Message:   "AAAA record RDATA must be exactly 16 bytes",
			}
		}
		var addr [16]byte
		copy(addr[:], msg[start:start+16])
		return NewAAAA(addr), nil

	case protocol.QTypeTXT:
		if start+rdlength > len(msg) {
			return Record{}, &errors.WireFormatError{
				Operation: "parse TXT record",
				Offset:    start,
				Message:   "truncated TXT RDATA",
			}
		}
		return NewTXT(string(msg[start : start+rdlength])), nil

	case protocol.QTypePTR:
		name, _, err := dnsname.Parse(msg, start)
		if err != nil {
			return Record{}, err
		}
		return NewPTR(name), nil

	case protocol.QTypeSRV:
		if start+6 > len(msg) {
			return Record{}, &errors.WireFormatError{
				Operation: "parse SRV record",
				Offset:    start,
				Message:   "truncated SRV RDATA",
			}
		}
		priority := binary.BigEndian.Uint16(msg[start : start+2])
		weight := binary.BigEndian.Uint16(msg[start+2 : start+4])
		port := binary.BigEndian.Uint16(msg[start+4 : start+6])
		target, _, err := dnsname.Parse(msg, start+6)
		if err != nil {
			return Record{}, err
		}
		return NewSRV(priority, weight, port, target), nil

	default:
		return Record{}, &errors.WireFormatError{
			Operation: "parse answer",
			Offset:    start,
			Message:   "unsupported record type in answer (ANY and unknown types are rejected)",
		}
	}
}

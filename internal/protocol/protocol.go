// Package protocol centralizes the wire constants, capacity bounds, and
// scheduling intervals that the rest of the core is built against, the way
// the teacher repo's internal/protocol package centralized its own RFC 6762
// constants. Nothing in this package owns a socket or a clock; it only
// names the numbers spec.md requires everywhere else to agree on.
package protocol

import "time"

// mDNS transport constants per RFC 6762 §5. The core never dials these
// itself — spec.md §1 places socket and multicast-group ownership with the
// host — but Cast values reference them so the host knows where to send.
const (
	// Port is the mDNS port (5353).
	Port = 5353

	// MulticastAddrIPv4 is the mDNS IPv4 multicast group (224.0.0.251).
	MulticastAddrIPv4 = "224.0.0.251"

	// MulticastAddrIPv6 is the mDNS IPv6 multicast group (ff02::fb).
	MulticastAddrIPv6 = "ff02::fb"
)

// QType identifies a DNS query/record type per RFC 1035 §3.2.2, extended
// with the DNS-SD SRV type (RFC 2782) and the mDNS ANY wildcard (RFC 6762
// §8.1).
type QType uint16

// Supported and recognized QType values. ANY and any value outside this set
// (Unknown) may appear in a Query but are rejected when read from an
// Answer, per spec.md §3.
const (
	QTypeA    QType = 1
	QTypePTR  QType = 12
	QTypeTXT  QType = 16
	QTypeAAAA QType = 28
	QTypeSRV  QType = 33
	QTypeANY  QType = 255
)

// String returns the human-readable record type name.
func (t QType) String() string {
	switch t {
	case QTypeA:
		return "A"
	case QTypeAAAA:
		return "AAAA"
	case QTypePTR:
		return "PTR"
	case QTypeTXT:
		return "TXT"
	case QTypeSRV:
		return "SRV"
	case QTypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// IsKnownRecordType reports whether t names one of the record variants this
// core parses into a typed Record (A, AAAA, PTR, TXT, SRV). ANY and unknown
// values return false: spec.md §3 requires Answer parsing to reject them.
func (t QType) IsKnownRecordType() bool {
	switch t {
	case QTypeA, QTypeAAAA, QTypePTR, QTypeTXT, QTypeSRV:
		return true
	default:
		return false
	}
}

// QClass identifies a DNS query/record class per RFC 1035 §3.2.4, with the
// RFC 6762 §10.2 cache-flush bit folded into a distinct named value since
// this core treats "IN with cache-flush" as its own class rather than a
// bit to mask out everywhere it appears.
type QClass uint16

const (
	// ClassIN is the plain Internet class, used on questions and on
	// responses to unicast queries.
	ClassIN QClass = 1

	// ClassCacheFlushMask is the RFC 6762 §10.2 cache-flush bit (bit 15 of
	// the wire CLASS field).
	ClassCacheFlushMask QClass = 0x8000

	// ClassMulticast is IN with the cache-flush bit set — the class this
	// core emits on advertise answers and on responses to multicast
	// queries.
	ClassMulticast QClass = ClassIN | ClassCacheFlushMask
)

// HasCacheFlush reports whether the cache-flush bit is set.
func (c QClass) HasCacheFlush() bool { return c&ClassCacheFlushMask != 0 }

// Base returns the class with the cache-flush bit cleared.
func (c QClass) Base() QClass { return c &^ ClassCacheFlushMask }

// DNS header flag bits per RFC 1035 §4.1.1.
const (
	FlagQR     uint16 = 1 << 15 // Query (0) / Response (1)
	FlagAA     uint16 = 1 << 10 // Authoritative Answer
	FlagTC     uint16 = 1 << 9  // Truncated
	FlagRD     uint16 = 1 << 8  // Recursion Desired
	FlagRA     uint16 = 1 << 7  // Recursion Available
	opcodeMask uint16 = 0x0F
	rcodeMask  uint16 = 0x000F
)

// StandardRequestFlags is the flags word for an outgoing query per
// spec.md §3: QR=0, Opcode=Query, RD=1.
const StandardRequestFlags uint16 = FlagRD

// StandardResponseFlags is the flags word for an outgoing response per
// spec.md §3: QR=1, Opcode=Query, AA=1, RA=0.
const StandardResponseFlags uint16 = FlagQR | FlagAA

// IsResponse reports whether the QR bit of flags is set.
func IsResponse(flags uint16) bool { return flags&FlagQR != 0 }

// Opcode extracts bits 11-14 of flags.
func Opcode(flags uint16) uint8 { return uint8((flags >> 11) & opcodeMask) }

// RCode extracts bits 0-3 of flags.
func RCode(flags uint16) uint8 { return uint8(flags & rcodeMask) }

// DNS name constraints per RFC 1035 §3.1.
const (
	// MaxLabelLength is the maximum length of a single label segment (63 bytes).
	MaxLabelLength = 63

	// MaxNameLength is the maximum wire-format length of a name (255 bytes).
	MaxNameLength = 255

	// CompressionMask identifies a compression pointer: the high two bits
	// of the length byte are both set.
	CompressionMask byte = 0xC0

	// MaxPointerRecursion bounds compression-pointer chasing per spec.md
	// §4.2: at most 4 jumps are followed before parsing fails.
	MaxPointerRecursion = 4
)

// Resource record TTLs per RFC 6762 §10, used by serviceinfo's answer
// emission.
const (
	// TTLService is the TTL for SRV, TXT, and address (A/AAAA) records.
	TTLService uint32 = 120

	// TTLHostname is the TTL for the PTR record naming a service's instances.
	TTLHostname uint32 = 4500
)

// Server scheduling constants per spec.md §6.
const (
	AdvertiseInterval = 15000 * time.Millisecond
	QueryInterval     = 19000 * time.Millisecond
	AdvertiseDelay    = 3000 * time.Millisecond
	QueryDelay        = 5000 * time.Millisecond
)

// Package mdnscore implements the L3 layer: the sans-I/O server that
// periodically advertises local services, periodically queries for remote
// instances, answers incoming requests, and classifies incoming responses
// — all driven by explicit inputs and returning explicit outputs, owning
// no socket, timer, or thread.
//
// Grounded on the teacher repo's internal/state package for the shape of a
// pull-driven scheduler, but rebuilt around a single synchronous Handle
// entry point instead of goroutines and context.Context, per this core's
// sans-I/O requirement.
package mdnscore

import (
	"net"

	"github.com/mtlynch/mdnscore/mdnstime"
	"github.com/mtlynch/mdnscore/serviceinfo"
)

// Input is one event delivered to Server.Handle: either a clock reading or
// an inbound datagram.
type Input struct {
	kind   inputKind
	Now    mdnstime.Time
	Packet []byte
	From   net.IP
}

type inputKind int

const (
	inputTimeout inputKind = iota
	inputPacket
)

// Timeout builds an Input reporting the host's current clock reading.
func Timeout(now mdnstime.Time) Input { return Input{kind: inputTimeout, Now: now} }

// PacketInput builds an Input delivering a datagram received from from.
func PacketInput(data []byte, from net.IP) Input {
	return Input{kind: inputPacket, Packet: data, From: from}
}

// Cast identifies how an outgoing packet should be routed.
type Cast struct {
	Multicast bool
	From      net.IP
	Target    net.IP // meaningful only when Multicast is false
}

// CastMulti requests sending to the mDNS multicast group via the interface
// bound to from.
func CastMulti(from net.IP) Cast { return Cast{Multicast: true, From: from} }

// CastUni requests sending directly to target via the interface bound to
// from.
func CastUni(from, target net.IP) Cast { return Cast{Multicast: false, From: from, Target: target} }

// Output is the result of a single Handle call: a packet ready to send, a
// deadline to wake up at, or a discovered remote service.
type Output struct {
	kind    outputKind
	Length  int
	Cast    Cast
	Wake    mdnstime.Time
	Service serviceinfo.ServiceInfo
}

type outputKind int

const (
	outputPacket outputKind = iota
	outputTimeout
	outputRemote
)

// IsPacket reports whether o carries a packet to send, and if so its
// length in the caller's out buffer and routing.
func (o Output) IsPacket() (length int, cast Cast, ok bool) {
	return o.Length, o.Cast, o.kind == outputPacket
}

// IsTimeout reports whether o is a wake-up deadline.
func (o Output) IsTimeout() (wake mdnstime.Time, ok bool) {
	return o.Wake, o.kind == outputTimeout
}

// IsRemote reports whether o carries a newly discovered service.
func (o Output) IsRemote() (serviceinfo.ServiceInfo, bool) {
	return o.Service, o.kind == outputRemote
}

func outputPacketResult(length int, cast Cast) Output {
	return Output{kind: outputPacket, Length: length, Cast: cast}
}

func outputTimeoutResult(wake mdnstime.Time) Output {
	return Output{kind: outputTimeout, Wake: wake}
}

func outputRemoteResult(s serviceinfo.ServiceInfo) Output {
	return Output{kind: outputRemote, Service: s}
}

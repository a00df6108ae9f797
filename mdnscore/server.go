package mdnscore

import (
	"log/slog"
	"net"
	"time"

	"github.com/mtlynch/mdnscore/internal/dnsmsg"
	"github.com/mtlynch/mdnscore/internal/dnsname"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
	"github.com/mtlynch/mdnscore/mdnstime"
	"github.com/mtlynch/mdnscore/serviceinfo"
)

// Config carries the fixed capacities and buffer sizing a Server is built
// with: QLEN/ALEN bound the questions and answers parsed from or built
// into any one message; SLEN bounds the configured-service and derived
// local-interface sets; LabelMemoCapacity is the compression memo size (LK)
// each outgoing message's Writer is given.
type Config struct {
	QLEN              int
	ALEN              int
	SLEN              int
	LabelMemoCapacity int
}

// Server is the sans-I/O mDNS/DNS-SD engine: advertise/query scheduling,
// request answering, and response classification, driven entirely through
// Handle.
type Server struct {
	cfg Config
	log *slog.Logger

	services *wirebuf.Seq[serviceinfo.ServiceInfo]
	localIPs *wirebuf.Seq[serviceinfo.LocalIP]

	lastNow mdnstime.Time

	nextAdvertise    mdnstime.Time
	nextAdvertiseIdx int
	nextQuery        mdnstime.Time
	nextQueryIdx     int

	txidQuery uint16
	nextTxid  uint16
}

// Option configures optional Server construction parameters.
type Option func(*Server)

// WithLogger overrides the Server's diagnostic logger. A Server never
// creates its own logger; it defaults to slog.Default() when no
// WithLogger option is given.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// New builds a Server advertising and querying for the given services, per
// §4.6's construction rules: next_advertise fires at +3000ms, next_query at
// +5000ms, both relative to the host's own epoch (so the first Timeout a
// host should deliver is Timeout(0)).
func New(services []serviceinfo.ServiceInfo, cfg Config, opts ...Option) *Server {
	return newServer(services, cfg, int64(protocol.AdvertiseDelay/time.Millisecond), int64(protocol.QueryDelay/time.Millisecond), opts...)
}

// NewDiscoveryOnly builds a Server that queries for the given targets'
// service types but never advertises them — the query-without-advertise
// variant of §8 scenario 6. targets need only ServiceType, IPAddress, and
// Netmask populated; incomplete entries are never included in an
// advertisement.
func NewDiscoveryOnly(targets []serviceinfo.ServiceInfo, cfg Config, opts ...Option) *Server {
	return newServer(targets, cfg, int64(protocol.AdvertiseDelay/time.Millisecond), 0, opts...)
}

func newServer(services []serviceinfo.ServiceInfo, cfg Config, advertiseDelayMs, queryDelayMs int64, opts ...Option) *Server {
	svcSeq := wirebuf.NewSeq[serviceinfo.ServiceInfo]("services", cfg.SLEN)
	svcSeq.ExtendFromSlice(services)

	s := &Server{
		cfg:           cfg,
		log:           slog.Default(),
		services:      svcSeq,
		localIPs:      serviceinfo.DeriveLocalIPs(svcSeq.All(), cfg.SLEN),
		nextAdvertise: mdnstime.Time(advertiseDelayMs),
		nextQuery:     mdnstime.Time(queryDelayMs),
		nextTxid:      1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle is the Server's single entry point: a Timeout or Packet input
// produces exactly one Output (a packet to send, a wake-up deadline, or a
// newly discovered service). out is the caller-owned buffer an outgoing
// packet, if any, is serialized into.
func (s *Server) Handle(input Input, out []byte) Output {
	switch input.kind {
	case inputTimeout:
		return s.handleTimeout(input.Now, out)
	case inputPacket:
		return s.handlePacket(input.Packet, input.From, out)
	default:
		return outputTimeoutResult(s.pollTimeout())
	}
}

func (s *Server) handleTimeout(now mdnstime.Time, out []byte) Output {
	s.lastNow = now
	if !now.Before(s.nextAdvertise) {
		return s.advertise(now, out)
	}
	if !now.Before(s.nextQuery) {
		return s.query(now, out)
	}
	return outputTimeoutResult(s.pollTimeout())
}

// advertise emits one advertisement packet for the local IP at the current
// round-robin position, advancing the index and — once every local IP has
// been visited — rescheduling next_advertise 15s out.
func (s *Server) advertise(now mdnstime.Time, out []byte) Output {
	if s.localIPs.Len() == 0 {
		s.nextAdvertise = now.Add(int64(protocol.AdvertiseInterval / time.Millisecond))
		return outputTimeoutResult(s.pollTimeout())
	}

	local := s.localIPs.At(s.nextAdvertiseIdx)
	s.nextAdvertiseIdx++
	if s.nextAdvertiseIdx >= s.localIPs.Len() {
		s.nextAdvertiseIdx = 0
		s.nextAdvertise = now.Add(int64(protocol.AdvertiseInterval / time.Millisecond))
	}

	msg := dnsmsg.NewResponse(0, 0, s.cfg.ALEN)
	for _, svc := range s.services.All() {
		if !isFullyConfigured(svc) || !onLocalIP(svc, local) {
			continue
		}
		if err := svc.AsAnswers(protocol.ClassMulticast, msg.Answers); err != nil {
			break
		}
	}
	if msg.Answers.Len() == 0 {
		return outputTimeoutResult(s.pollTimeout())
	}

	w := wirebuf.NewWriter(out, s.cfg.LabelMemoCapacity)
	msg.Serialize(w)
	return outputPacketResult(w.Position(), CastMulti(local.Addr))
}

// query emits one PTR-query packet for the local IP at the current
// round-robin position, recording the outgoing transaction id so the
// server's own loopback echo of this query is suppressed by the request
// handler.
func (s *Server) query(now mdnstime.Time, out []byte) Output {
	if s.localIPs.Len() == 0 {
		s.nextQuery = now.Add(int64(protocol.QueryInterval / time.Millisecond))
		return outputTimeoutResult(s.pollTimeout())
	}

	local := s.localIPs.At(s.nextQueryIdx)
	s.nextQueryIdx++
	if s.nextQueryIdx >= s.localIPs.Len() {
		s.nextQueryIdx = 0
		s.nextQuery = now.Add(int64(protocol.QueryInterval / time.Millisecond))
	}

	id := s.allocTxid()
	msg := dnsmsg.NewRequest(id, s.cfg.QLEN)
	for _, svc := range s.services.All() {
		if !onLocalIP(svc, local) {
			continue
		}
		if err := msg.Queries.Push(dnsmsg.Query{Name: svc.ServiceType, QType: protocol.QTypePTR, QClass: protocol.ClassIN}); err != nil {
			break
		}
	}
	s.txidQuery = id

	w := wirebuf.NewWriter(out, s.cfg.LabelMemoCapacity)
	msg.Serialize(w)
	return outputPacketResult(w.Position(), CastMulti(local.Addr))
}

func (s *Server) allocTxid() uint16 {
	id := s.nextTxid
	s.nextTxid++
	if s.nextTxid == 0 {
		s.nextTxid = 1 // skip 0: txidQuery's zero value means "no query sent yet"
	}
	return id
}

func (s *Server) handlePacket(data []byte, from net.IP, out []byte) Output {
	msg, err := dnsmsg.ParseMessage(data, s.cfg.QLEN, s.cfg.ALEN)
	if err != nil {
		return outputTimeoutResult(s.pollTimeout())
	}
	if msg.IsResponse {
		return s.handleResponse(msg)
	}
	return s.handleRequest(msg, from, out)
}

// handleRequest answers an incoming query per §4.6: self-echoes and
// empty-question requests are ignored, PTR queries matching a configured
// service whose subnet contains from are answered, and the outgoing
// question section echoes the request's queries verbatim.
func (s *Server) handleRequest(request *dnsmsg.Message, from net.IP, out []byte) Output {
	if request.Queries.Len() == 0 {
		return outputTimeoutResult(s.pollTimeout())
	}
	if request.ID == s.txidQuery {
		return outputTimeoutResult(s.pollTimeout())
	}

	qclass := request.Queries.At(0).QClass

	response := dnsmsg.NewResponse(request.ID, s.cfg.QLEN, s.cfg.ALEN)
	for _, q := range request.Queries.All() {
		if q.QType != protocol.QTypePTR {
			continue
		}
		for _, svc := range s.services.All() {
			if !isFullyConfigured(svc) || !q.Name.Equal(svc.ServiceType) {
				continue
			}
			if !serviceinfo.SameSubnet(svc.IPAddress, svc.Netmask, from) {
				continue
			}
			if err := svc.AsAnswers(qclass, response.Answers); err != nil {
				break
			}
		}
	}
	if response.Answers.Len() == 0 {
		return outputTimeoutResult(s.pollTimeout())
	}

	for _, q := range request.Queries.All() {
		if err := response.Queries.Push(q); err != nil {
			break
		}
	}

	sendFrom := from
	for _, local := range s.localIPs.All() {
		if serviceinfo.SameSubnet(local.Addr, local.Netmask, from) {
			sendFrom = local.Addr
			break
		}
	}

	w := wirebuf.NewWriter(out, s.cfg.LabelMemoCapacity)
	response.Serialize(w)

	if qclass == protocol.ClassIN {
		return outputPacketResult(w.Position(), CastUni(sendFrom, from))
	}
	return outputPacketResult(w.Position(), CastMulti(sendFrom))
}

// handleResponse classifies an incoming response per §4.5/§4.6: it
// reassembles ServiceInfo values from the answers, keeps those matching a
// locally configured service type that are not the server's own identity,
// logs a diagnostic if more than one survives, and surfaces the first.
func (s *Server) handleResponse(response *dnsmsg.Message) Output {
	scratch := wirebuf.NewSeq[serviceinfo.ServiceInfo]("response assembly", s.cfg.SLEN)
	if err := serviceinfo.AssembleFromAnswers(response.Answers.All(), scratch); err != nil {
		return outputTimeoutResult(s.pollTimeout())
	}

	survivors := wirebuf.NewSeq[serviceinfo.ServiceInfo]("response survivors", s.cfg.SLEN)
	for _, cand := range scratch.All() {
		if !s.matchesConfiguredServiceType(cand.ServiceType) {
			continue
		}
		if s.isSelf(cand) {
			continue
		}
		if err := survivors.Push(cand); err != nil {
			break
		}
	}

	if survivors.Len() == 0 {
		return outputTimeoutResult(s.pollTimeout())
	}
	if survivors.Len() > 1 {
		s.log.Warn("multiple candidate services survived response classification",
			"count", survivors.Len(), "chosen", survivors.At(0).InstanceName.String())
	}
	return outputRemoteResult(survivors.At(0))
}

func (s *Server) matchesConfiguredServiceType(t dnsname.Label) bool {
	for _, svc := range s.services.All() {
		if svc.ServiceType.Equal(t) {
			return true
		}
	}
	return false
}

func (s *Server) isSelf(cand serviceinfo.ServiceInfo) bool {
	for _, svc := range s.services.All() {
		if cand.InstanceName.Equal(svc.InstanceName) && cand.IPAddress.Equal(svc.IPAddress) && cand.Port == svc.Port {
			return true
		}
	}
	return false
}

// pollTimeout returns the earlier of the two scheduled deadlines.
func (s *Server) pollTimeout() mdnstime.Time {
	if s.nextAdvertise.Before(s.nextQuery) {
		return s.nextAdvertise
	}
	return s.nextQuery
}

func isFullyConfigured(s serviceinfo.ServiceInfo) bool {
	return !s.InstanceName.IsEmpty() && !s.HostName.IsEmpty() && s.Port != 0
}

func onLocalIP(svc serviceinfo.ServiceInfo, local serviceinfo.LocalIP) bool {
	return svc.IPAddress.Equal(local.Addr) && svc.Netmask.Equal(local.Netmask)
}

// Package serviceinfo implements the L2 layer: a DNS-SD service record
// (type, instance, host, address, port), its emission as the four-record
// answer set a responder advertises, and its reassembly from a set of
// answers received across one or more mDNS responses.
//
// Grounded on the teacher repo's responder/service.go (the service-identity
// fields and RFC 6763 §4 naming convention) and querier/records.go (reading
// PTR/SRV/A/TXT back out of answers), generalized to the spec's flat
// service model and to both address families.
package serviceinfo

import (
	"net"

	"github.com/mtlynch/mdnscore/internal/dnsmsg"
	"github.com/mtlynch/mdnscore/internal/dnsname"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

// ServiceInfo describes one advertised or discovered DNS-SD service
// instance: "instance._service._proto.local" resolving to host:port at an
// address, per RFC 6763 §4.
type ServiceInfo struct {
	ServiceType  dnsname.Label // "_service._proto.local"
	InstanceName dnsname.Label // "instance._service._proto.local"
	HostName     dnsname.Label // "host.local"
	IPAddress    net.IP
	Netmask      net.IP // defaults to an all-ones mask for the address family when unknown
	Port         uint16
}

// New builds a ServiceInfo from raw strings and primitive address/port
// values. instanceName is prepended to serviceType per the DNS-SD
// instance-name convention; netmask defaults to an all-ones mask for
// ip's address family when nil.
func New(serviceType, instanceName, hostName string, ip, netmask net.IP, port uint16) (ServiceInfo, error) {
	svcLabel, err := dnsname.New(serviceType)
	if err != nil {
		return ServiceInfo{}, err
	}
	instLabel, err := dnsname.New(instanceName)
	if err != nil {
		return ServiceInfo{}, err
	}
	hostLabel, err := dnsname.New(hostName)
	if err != nil {
		return ServiceInfo{}, err
	}
	if netmask == nil {
		netmask = allOnesMask(ip)
	}
	return ServiceInfo{
		ServiceType:  svcLabel,
		InstanceName: svcLabel.Prepend(instLabel),
		HostName:     hostLabel,
		IPAddress:    ip,
		Netmask:      netmask,
		Port:         port,
	}, nil
}

// LocalIP is a deduplicated (address, netmask) pair derived from a set of
// ServiceInfo values — the interface a Server round-robins its advertise
// and query schedule over.
type LocalIP struct {
	Addr    net.IP
	Netmask net.IP
}

// DeriveLocalIPs deduplicates the (IPAddress, Netmask) pairs of services in
// insertion order, up to capacity entries.
func DeriveLocalIPs(services []ServiceInfo, capacity int) *wirebuf.Seq[LocalIP] {
	out := wirebuf.NewSeq[LocalIP]("local ips", capacity)
	for _, s := range services {
		dup := false
		for _, existing := range out.All() {
			if existing.Addr.Equal(s.IPAddress) && existing.Netmask.Equal(s.Netmask) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if err := out.Push(LocalIP{Addr: s.IPAddress, Netmask: s.Netmask}); err != nil {
			break
		}
	}
	return out
}

// SameSubnet reports whether addr falls in the subnet defined by (base,
// mask): (base & mask) == (addr & mask). Mixed address families never
// match.
func SameSubnet(base, mask, addr net.IP) bool {
	b4, bIsV4 := normalize(base)
	a4, aIsV4 := normalize(addr)
	if bIsV4 != aIsV4 {
		return false
	}
	m, _ := normalize(mask)
	if len(b4) != len(m) || len(a4) != len(m) {
		return false
	}
	for i := range m {
		if b4[i]&m[i] != a4[i]&m[i] {
			return false
		}
	}
	return true
}

// normalize reduces ip to its shortest canonical form (4 bytes for IPv4, 16
// for IPv6) and reports whether it is an IPv4 address.
func normalize(ip net.IP) (net.IP, bool) {
	if v4 := ip.To4(); v4 != nil {
		return v4, true
	}
	return ip.To16(), false
}

// allOnesMask returns an all-ones netmask sized for ip's address family.
func allOnesMask(ip net.IP) net.IP {
	if ip.To4() != nil {
		return net.IP(net.IPv4Mask(255, 255, 255, 255))
	}
	mask := make(net.IP, net.IPv6len)
	for i := range mask {
		mask[i] = 0xff
	}
	return mask
}

// AsAnswers emits the four-record answer set of §4.5: PTR, SRV, TXT, and
// A-or-AAAA (by IPAddress's family), appending each to out. aclass is
// carried on SRV, TXT, and the address record; the PTR answer always uses
// plain IN, matching the convention that pointer records are never
// cache-flush entries.
func (s ServiceInfo) AsAnswers(aclass protocol.QClass, out *wirebuf.Seq[dnsmsg.Answer]) error {
	if err := out.Push(dnsmsg.Answer{
		Name:   s.ServiceType,
		AType:  protocol.QTypePTR,
		AClass: protocol.ClassIN,
		TTL:    protocol.TTLHostname,
		Record: dnsmsg.NewPTR(s.InstanceName),
	}); err != nil {
		return err
	}

	if err := out.Push(dnsmsg.Answer{
		Name:   s.InstanceName,
		AType:  protocol.QTypeSRV,
		AClass: aclass,
		TTL:    protocol.TTLService,
		Record: dnsmsg.NewSRV(0, 0, s.Port, s.HostName),
	}); err != nil {
		return err
	}

	if err := out.Push(dnsmsg.Answer{
		Name:   s.InstanceName,
		AType:  protocol.QTypeTXT,
		AClass: aclass,
		TTL:    protocol.TTLService,
		Record: dnsmsg.NewTXT("\x00"),
	}); err != nil {
		return err
	}

	if v4 := s.IPAddress.To4(); v4 != nil {
		var addr [4]byte
		copy(addr[:], v4)
		return out.Push(dnsmsg.Answer{
			Name:   s.HostName,
			AType:  protocol.QTypeA,
			AClass: aclass,
			TTL:    protocol.TTLService,
			Record: dnsmsg.NewA(addr),
		})
	}

	var addr [16]byte
	copy(addr[:], s.IPAddress.To16())
	return out.Push(dnsmsg.Answer{
		Name:   s.HostName,
		AType:  protocol.QTypeAAAA,
		AClass: aclass,
		TTL:    protocol.TTLService,
		Record: dnsmsg.NewAAAA(addr),
	})
}

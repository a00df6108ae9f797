package serviceinfo

import (
	"net"

	"github.com/mtlynch/mdnscore/internal/dnsmsg"
	"github.com/mtlynch/mdnscore/internal/protocol"
	"github.com/mtlynch/mdnscore/internal/wirebuf"
)

// AssembleFromAnswers reconstructs ServiceInfo values from a response's
// answer records in three linear passes per §4.5: PTR answers seed stubs,
// SRV answers fill in host/port, A/AAAA answers fill in address/netmask.
// Only stubs with every field populated (non-empty labels, a non-zero IP,
// a non-zero port) are appended to out.
func AssembleFromAnswers(answers []dnsmsg.Answer, out *wirebuf.Seq[ServiceInfo]) error {
	scratch := wirebuf.NewSeq[ServiceInfo]("service assembly", out.Cap())

	for _, a := range answers {
		if a.AType != protocol.QTypePTR {
			continue
		}
		if err := scratch.Push(ServiceInfo{ServiceType: a.Name, InstanceName: a.Record.PTR}); err != nil {
			break // up to SLEN stubs; further PTR answers are dropped
		}
	}

	for _, a := range answers {
		if a.AType != protocol.QTypeSRV {
			continue
		}
		for i := 0; i < scratch.Len(); i++ {
			st := scratch.At(i)
			if !st.InstanceName.Equal(a.Name) {
				continue
			}
			st.HostName = a.Record.SRVTarget
			st.Port = a.Record.SRVPort
			scratch.Set(i, st)
		}
	}

	for _, a := range answers {
		var ip, mask net.IP
		switch a.AType {
		case protocol.QTypeA:
			addr := a.Record.Addr4
			ip = net.IP(addr[:])
			mask = net.IP(net.IPv4Mask(255, 255, 255, 255))
		case protocol.QTypeAAAA:
			addr := a.Record.Addr16
			ip = net.IP(addr[:])
			mask = allOnesMask(net.IP(addr[:]))
		default:
			continue
		}
		for i := 0; i < scratch.Len(); i++ {
			st := scratch.At(i)
			if !st.HostName.Equal(a.Name) {
				continue
			}
			st.IPAddress = ip
			st.Netmask = mask
			scratch.Set(i, st)
		}
	}

	for _, st := range scratch.All() {
		if st.ServiceType.IsEmpty() || st.InstanceName.IsEmpty() || st.HostName.IsEmpty() {
			continue
		}
		if isZeroIP(st.IPAddress) || st.Port == 0 {
			continue
		}
		if err := out.Push(st); err != nil {
			return err
		}
	}
	return nil
}

func isZeroIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	for _, b := range ip {
		if b != 0 {
			return false
		}
	}
	return true
}

package capture

import (
	"fmt"
	"io"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ExportPCAP writes the current buffer to w as a pcap capture file, one
// fake Ethernet/IPv4/TCP frame per packet (packets of UDP-based protocols
// are wrapped in a TCP segment as well), so the capture can be
// opened in Wireshark alongside the always-available JSON export. It uses
// pcapgo rather than cgo-bound libpcap since this is a writer, not a live
// capture.
func (c *Capturer) ExportPCAP(w io.Writer) error {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("capture: pcap header: %w", err)
	}

	for _, p := range c.Packets() {
		frame, err := syntheticFrame(p.PacketEvent)
		if err != nil {
			return fmt.Errorf("capture: pcap frame seq=%d: %w", p.Seq, err)
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     p.Timestamp,
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		if err := writer.WritePacket(ci, frame); err != nil {
			return fmt.Errorf("capture: pcap write seq=%d: %w", p.Seq, err)
		}
	}
	return nil
}

// syntheticFrame wraps a PacketEvent's raw payload in a minimal Ethernet +
// IPv4 + TCP envelope so generic pcap tooling can dissect it; simhub's own
// protocol addresses are not real link-layer addresses, so source/dest
// ports and IPs are carried through but the MACs are zero.
func syntheticFrame(evt PacketEvent) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       make([]byte, 6),
		DstMAC:       make([]byte, 6),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    parseIPOrZero(evt.SrcAddr),
		DstIP:    parseIPOrZero(evt.DstAddr),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(evt.SrcPort),
		DstPort: layers.TCPPort(evt.DstPort),
		Seq:     uint32(evt.Seq),
		ACK:     true,
		PSH:     true,
		Window:  65535,
	}
	if err := tcp.SetNetworkLayerForChecksum(ip); err != nil {
		return nil, err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, tcp, gopacket.Payload(evt.Payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseIPOrZero(addr string) net.IP {
	if ip := net.ParseIP(addr); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return net.IPv4zero
}

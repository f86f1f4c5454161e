package disco

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
)

const (
	typeA   = 1
	typePTR = 12
	classIN = 1

	// QU bit: request a unicast response (RFC 6762 5.4). The bridge answers
	// unicast when the query does not originate from port 5353.
	classUnicastResponse = 0x8000
)

var errTruncated = errors.New("dns: truncated packet")

// buildQuery assembles a DNS-SD browse query: one PTR question of class IN
// with the unicast-response bit set, no answer sections.
func buildQuery(id uint16, service string) ([]byte, error) {
	name, err := encodeName(service)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 12, 12+len(name)+4)
	binary.BigEndian.PutUint16(buf[0:2], id)
	binary.BigEndian.PutUint16(buf[4:6], 1) // QDCOUNT
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint16(buf, typePTR)
	buf = binary.BigEndian.AppendUint16(buf, classIN|classUnicastResponse)
	return buf, nil
}

func encodeName(name string) ([]byte, error) {
	out := make([]byte, 0, len(name)+2)
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if label == "" {
			return nil, fmt.Errorf("dns: empty label in name %q", name)
		}
		if len(label) > 63 {
			return nil, fmt.Errorf("dns: label %q exceeds 63 octets", label)
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	return append(out, 0), nil
}

type question struct {
	name  string
	qtype uint16
	class uint16
}

type record struct {
	name  string
	rtype uint16
	class uint16
	ttl   uint32
	data  []byte
}

type packet struct {
	id          uint16
	questions   []question
	answers     []record
	additionals []record
}

// parsePacket decodes an arbitrary received datagram. A local network
// broadcasts plenty of unrelated DNS traffic, so any malformed input is a
// recoverable error for the caller, never a panic.
func parsePacket(b []byte) (*packet, error) {
	if len(b) < 12 {
		return nil, errTruncated
	}

	p := &packet{id: binary.BigEndian.Uint16(b[0:2])}
	qdCount := int(binary.BigEndian.Uint16(b[4:6]))
	anCount := int(binary.BigEndian.Uint16(b[6:8]))
	nsCount := int(binary.BigEndian.Uint16(b[8:10]))
	arCount := int(binary.BigEndian.Uint16(b[10:12]))

	off := 12
	for i := 0; i < qdCount; i++ {
		name, next, err := decodeName(b, off)
		if err != nil {
			return nil, err
		}
		if next+4 > len(b) {
			return nil, errTruncated
		}
		p.questions = append(p.questions, question{
			name:  name,
			qtype: binary.BigEndian.Uint16(b[next : next+2]),
			class: binary.BigEndian.Uint16(b[next+2 : next+4]),
		})
		off = next + 4
	}

	var err error
	if p.answers, off, err = decodeRecords(b, off, anCount); err != nil {
		return nil, err
	}
	// authority records are skipped but must still be walked
	if _, off, err = decodeRecords(b, off, nsCount); err != nil {
		return nil, err
	}
	if p.additionals, _, err = decodeRecords(b, off, arCount); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeRecords(b []byte, off, count int) ([]record, int, error) {
	var records []record
	for i := 0; i < count; i++ {
		name, next, err := decodeName(b, off)
		if err != nil {
			return nil, 0, err
		}
		if next+10 > len(b) {
			return nil, 0, errTruncated
		}
		r := record{
			name:  name,
			rtype: binary.BigEndian.Uint16(b[next : next+2]),
			class: binary.BigEndian.Uint16(b[next+2 : next+4]),
			ttl:   binary.BigEndian.Uint32(b[next+4 : next+8]),
		}
		length := int(binary.BigEndian.Uint16(b[next+8 : next+10]))
		next += 10
		if next+length > len(b) {
			return nil, 0, errTruncated
		}
		r.data = b[next : next+length]
		records = append(records, r)
		off = next + length
	}
	return records, off, nil
}

// decodeName reads a possibly compressed domain name starting at off and
// returns the dotted name plus the offset just past it.
func decodeName(b []byte, off int) (string, int, error) {
	var labels []string
	next := 0
	hops := 0
	for {
		if off >= len(b) {
			return "", 0, errTruncated
		}
		length := int(b[off])
		switch {
		case length == 0:
			if next == 0 {
				next = off + 1
			}
			return strings.Join(labels, "."), next, nil
		case length&0xC0 == 0xC0:
			if off+2 > len(b) {
				return "", 0, errTruncated
			}
			hops++
			if hops > 32 {
				return "", 0, errors.New("dns: compression pointer loop")
			}
			if next == 0 {
				next = off + 2
			}
			off = int(binary.BigEndian.Uint16(b[off:off+2]) & 0x3FFF)
		case length&0xC0 != 0:
			return "", 0, fmt.Errorf("dns: unsupported label type 0x%x", length&0xC0)
		default:
			if off+1+length > len(b) {
				return "", 0, errTruncated
			}
			labels = append(labels, string(b[off+1:off+1+length]))
			off += 1 + length
		}
	}
}

// validateResponse applies the accept-by-content policy: the header id must
// match the query, at least one answer must be a PTR record for the queried
// service, and the bridge address is the first A record of the additional
// section (RFC 6763 12.1). Content-based matching stays correct when the
// reply arrives from an unexpected interface, at the cost of parsing every
// datagram fully.
func validateResponse(b []byte, service string, id uint16) (net.IP, bool) {
	p, err := parsePacket(b)
	if err != nil {
		return nil, false
	}
	if p.id != id {
		return nil, false
	}

	related := false
	for _, answer := range p.answers {
		if answer.rtype == typePTR && answer.name == service {
			related = true
			break
		}
	}
	if !related {
		return nil, false
	}

	for _, rr := range p.additionals {
		if rr.rtype == typeA && len(rr.data) == net.IPv4len {
			return net.IPv4(rr.data[0], rr.data[1], rr.data[2], rr.data[3]), true
		}
	}
	return nil, false
}

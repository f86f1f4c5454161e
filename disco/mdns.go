package disco

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// ServiceName is the DNS-SD service Hue bridges advertise.
const ServiceName = "_hue._tcp.local"

const mdnsTimeout = 3 * time.Second

var mdnsGroup = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}

// DiscoverMDNS performs a oneshot "legacy" mDNS browse for service and
// returns the address of the first bridge that answers with a valid
// response. The receive loop is bounded by a 3 second deadline, tightened
// by the context deadline when that one is earlier.
//
// The query goes out on a single unspecified-address socket. On multi-homed
// hosts a bridge reachable only through a non-default interface will not be
// found; run discovery from the right network instead.
func DiscoverMDNS(ctx context.Context, service string) (net.IP, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("mdns: bind socket: %w", err)
	}
	defer conn.Close()

	// closing the socket unblocks the receive loop when the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	id := uint16(rand.Uint32())
	query, err := buildQuery(id, service)
	if err != nil {
		return nil, fmt.Errorf("mdns: build query: %w", err)
	}

	if _, err := conn.WriteToUDP(query, mdnsGroup); err != nil {
		return nil, fmt.Errorf("mdns: send query: %w", err)
	}

	deadline := time.Now().Add(mdnsTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("mdns: set deadline: %w", err)
	}

	buf := make([]byte, 4096)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil, fmt.Errorf("mdns: no response within %s", mdnsTimeout)
			}
			return nil, fmt.Errorf("mdns: receive: %w", err)
		}

		ip, ok := validateResponse(buf[:n], service, id)
		if !ok {
			// unrelated multicast traffic, keep listening
			continue
		}
		log.Debug().Stringer("bridge", ip).Stringer("from", from).Msg("Valid mDNS response")
		return ip, nil
	}
}

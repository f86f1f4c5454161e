// Package disco locates a Hue bridge on the local network.
//
// Discovery follows the order recommended by the Hue application design
// guidance: a oneshot mDNS-SD browse first, then the meethue.com nUPnP
// portal as fallback. The mDNS path is a from-scratch implementation over a
// raw UDP socket, so no mDNS daemon has to be running on the host.
package disco

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog/log"
)

// ErrNoBridgeFound is returned when every discovery method has been
// exhausted. The individual failures are logged, not wrapped: callers only
// branch on discovery failing as a whole.
var ErrNoBridgeFound = errors.New("could not discover bridge")

// Bridge is a discovery result. ID is only populated when the discovery
// method supplies one (nUPnP does, mDNS does not).
type Bridge struct {
	IP net.IP
	ID string
}

// Coordinator chains the two discovery methods with a single exit. Both
// attempts run to completion sequentially, never concurrently, and neither
// is retried.
type Coordinator struct {
	MDNS  func(ctx context.Context) (Bridge, error)
	NUPNP func(ctx context.Context) (Bridge, error)
}

// Discover runs mDNS, falls back to nUPnP on any mDNS failure, and reports
// ErrNoBridgeFound once both have failed.
func (c Coordinator) Discover(ctx context.Context) (Bridge, error) {
	bridge, mdnsErr := c.MDNS(ctx)
	if mdnsErr == nil {
		log.Info().Stringer("bridge", bridge.IP).Msg("Discovered bridge via mDNS")
		return bridge, nil
	}
	log.Debug().Err(mdnsErr).Msg("mDNS discovery failed, falling back to nUPnP")

	bridge, nupnpErr := c.NUPNP(ctx)
	if nupnpErr == nil {
		log.Info().Stringer("bridge", bridge.IP).Str("id", bridge.ID).Msg("Discovered bridge via nUPnP")
		return bridge, nil
	}
	log.Debug().Err(nupnpErr).Msg("nUPnP discovery failed")

	return Bridge{}, ErrNoBridgeFound
}

// Discover locates a bridge using the default method chain.
func Discover(ctx context.Context) (Bridge, error) {
	return Coordinator{
		MDNS: func(ctx context.Context) (Bridge, error) {
			ip, err := DiscoverMDNS(ctx, ServiceName)
			return Bridge{IP: ip}, err
		},
		NUPNP: DiscoverNUPNP,
	}.Discover(ctx)
}

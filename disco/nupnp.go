package disco

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const nupnpEndpoint = "https://discovery.meethue.com/"

var nupnpClient = &http.Client{Timeout: 10 * time.Second}

// DiscoverNUPNP asks the meethue.com discovery portal for bridges visible
// from this network and returns the first one. The portal replies with a
// JSON array of objects carrying at least "id" and "internalipaddress".
func DiscoverNUPNP(ctx context.Context) (Bridge, error) {
	return discoverNUPNP(ctx, nupnpEndpoint, nupnpClient)
}

func discoverNUPNP(ctx context.Context, endpoint string, client *http.Client) (Bridge, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Bridge{}, fmt.Errorf("nupnp: build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Bridge{}, fmt.Errorf("nupnp: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Bridge{}, fmt.Errorf("nupnp: unexpected status code: %d", resp.StatusCode)
	}

	var entries []struct {
		ID                string `json:"id"`
		InternalIPAddress string `json:"internalipaddress"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return Bridge{}, fmt.Errorf("nupnp: decode response: %w", err)
	}
	if len(entries) == 0 {
		return Bridge{}, errors.New("nupnp: expected non-empty array")
	}

	entry := entries[0]
	if entry.InternalIPAddress == "" {
		return Bridge{}, errors.New("nupnp: expected internalipaddress")
	}
	ip := net.ParseIP(entry.InternalIPAddress)
	if ip == nil {
		return Bridge{}, fmt.Errorf("nupnp: invalid internalipaddress %q", entry.InternalIPAddress)
	}
	return Bridge{IP: ip, ID: entry.ID}, nil
}

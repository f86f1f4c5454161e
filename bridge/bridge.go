// Package bridge is a client for the Hue bridge control API. It speaks both
// API generations: the legacy /api envelope (registration) and the clip v2
// resource endpoints (everything else), and decodes the live event stream.
//
// Reads always fetch fresh state from the bridge; nothing is cached between
// calls. A Bridge handle is read-only after construction and safe for
// concurrent use.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/samber/lo"

	"github.com/dokzlo13/huelink/disco"
)

// UnauthBridge is a located bridge without an application key. It can
// register a new application or be upgraded with a stored key.
type UnauthBridge struct {
	Address string

	base   string
	client *http.Client
}

// New creates a client for the bridge at address (IP or hostname). The
// address is not validated; nothing guarantees a bridge actually lives
// there until the first call.
func New(address string) *UnauthBridge {
	return &UnauthBridge{
		Address: address,
		base:    "https://" + address,
		client:  newHTTPClient(),
	}
}

// Discover scans the local network for a bridge (mDNS, then nUPnP) and
// returns a client for the first one found.
func Discover(ctx context.Context) (*UnauthBridge, error) {
	found, err := disco.Discover(ctx)
	if err != nil {
		return nil, err
	}
	return New(found.IP.String()), nil
}

// WithKey upgrades to an authenticated Bridge using a previously registered
// application key.
func (u *UnauthBridge) WithKey(key string) *Bridge {
	return &Bridge{
		Address: u.Address,
		AppKey:  key,
		base:    u.base,
		client:  u.client,
		stream:  newStreamClient(),
	}
}

// Register registers a new application at the bridge under devicetype and
// returns an authenticated client. The bridge refuses with a BridgeError
// (code 101) unless its link button was pressed shortly before the call.
func (u *UnauthBridge) Register(ctx context.Context, devicetype string) (*Bridge, error) {
	payload, err := json.Marshal(map[string]string{"devicetype": devicetype})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+"/api", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := send(u.client, req)
	if err != nil {
		return nil, fmt.Errorf("register application: %w", err)
	}

	type registration struct {
		Success struct {
			Username string `json:"username"`
		} `json:"success"`
	}
	resp, err := decodeLegacy[registration](body)
	if err != nil {
		return nil, fmt.Errorf("register application: %w", err)
	}
	return u.WithKey(resp.Success.Username), nil
}

// Bridge is the authenticated access point to a Hue setup.
type Bridge struct {
	Address string
	AppKey  string

	base   string
	client *http.Client
	stream *http.Client
}

func (b *Bridge) request(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("hue-application-key", b.AppKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(b.client, req)
}

func send(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return io.ReadAll(resp.Body)
}

// getAll fetches one resource collection and returns it sorted by id.
func getAll[T resource](ctx context.Context, b *Bridge, rtype string) ([]T, error) {
	body, err := b.request(ctx, http.MethodGet, "/clip/v2/resource/"+rtype, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rtype, err)
	}
	items, err := decodeV2[T](body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rtype, err)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].resourceID() < items[j].resourceID()
	})
	return items, nil
}

func indexByID[T resource](items []T) map[string]T {
	return lo.KeyBy(items, func(item T) string { return item.resourceID() })
}

// GetAllDevices returns every device registered at the bridge, sorted by id.
func (b *Bridge) GetAllDevices(ctx context.Context) ([]Device, error) {
	return getAll[Device](ctx, b, "device")
}

// IndexDevices returns every device keyed by id.
func (b *Bridge) IndexDevices(ctx context.Context) (map[string]Device, error) {
	devices, err := b.GetAllDevices(ctx)
	if err != nil {
		return nil, err
	}
	return indexByID(devices), nil
}

// GetAllLights returns every light, sorted by id.
func (b *Bridge) GetAllLights(ctx context.Context) ([]Light, error) {
	return getAll[Light](ctx, b, "light")
}

// IndexLights returns every light keyed by id.
func (b *Bridge) IndexLights(ctx context.Context) (map[string]Light, error) {
	lights, err := b.GetAllLights(ctx)
	if err != nil {
		return nil, err
	}
	return indexByID(lights), nil
}

// GetAllRooms returns every room, sorted by id.
func (b *Bridge) GetAllRooms(ctx context.Context) ([]Room, error) {
	return getAll[Room](ctx, b, "room")
}

// GetAllZones returns every zone, sorted by id.
func (b *Bridge) GetAllZones(ctx context.Context) ([]Zone, error) {
	return getAll[Zone](ctx, b, "zone")
}

// GetAllScenes returns every scene, sorted by id.
func (b *Bridge) GetAllScenes(ctx context.Context) ([]Scene, error) {
	return getAll[Scene](ctx, b, "scene")
}

// GetAllSmartScenes returns every smart scene, sorted by id.
func (b *Bridge) GetAllSmartScenes(ctx context.Context) ([]SmartScene, error) {
	return getAll[SmartScene](ctx, b, "smart_scene")
}

// GetAllGroupedLights returns every grouped light, sorted by id.
func (b *Bridge) GetAllGroupedLights(ctx context.Context) ([]GroupedLight, error) {
	return getAll[GroupedLight](ctx, b, "grouped_light")
}

func (b *Bridge) put(ctx context.Context, rtype, id string, command any) error {
	payload, err := json.Marshal(command)
	if err != nil {
		return err
	}
	body, err := b.request(ctx, http.MethodPut, fmt.Sprintf("/clip/v2/resource/%s/%s", rtype, id), payload)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", rtype, id, err)
	}
	if _, err := decodeV2[json.RawMessage](body); err != nil {
		return fmt.Errorf("update %s %s: %w", rtype, id, err)
	}
	return nil
}

// SetLightState applies a sparse command to one light.
func (b *Bridge) SetLightState(ctx context.Context, id string, command LightCommand) error {
	return b.put(ctx, "light", id, command)
}

// SetGroupState applies a sparse command to one grouped light.
func (b *Bridge) SetGroupState(ctx context.Context, id string, command LightCommand) error {
	return b.put(ctx, "grouped_light", id, command)
}

// RecallScene activates a scene.
func (b *Bridge) RecallScene(ctx context.Context, id string) error {
	return b.put(ctx, "scene", id, sceneRecallCommand{Recall: sceneRecall{Action: "active"}})
}

// RecallSmartScene activates a smart scene. Smart scenes use a different
// recall verb than plain scenes.
func (b *Bridge) RecallSmartScene(ctx context.Context, id string) error {
	return b.put(ctx, "smart_scene", id, sceneRecallCommand{Recall: sceneRecall{Action: "activate"}})
}

package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// EventType classifies a bridge event. Anything the bridge sends beyond the
// known set decodes as EventUnknown instead of failing the batch.
type EventType string

const (
	EventUpdate  EventType = "update"
	EventAdd     EventType = "add"
	EventDelete  EventType = "delete"
	EventError   EventType = "error"
	EventUnknown EventType = "unknown"
)

func (t *EventType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch EventType(s) {
	case EventUpdate, EventAdd, EventDelete, EventError:
		*t = EventType(s)
	default:
		*t = EventUnknown
	}
	return nil
}

// Event is one entry of an event-stream message: a kind plus the affected
// resources.
type Event struct {
	Type EventType   `json:"type"`
	Data []EventData `json:"data"`
}

// EventData is one resource carried by an event, decoded by its type tag.
// Unknown resource types keep their tag but carry no decoded payload, for
// forward compatibility with bridge firmware that grows new types.
type EventData struct {
	Type string

	BridgeHome   *BridgeHome
	Device       *Device
	GroupedLight *GroupedLight
	Light        *Light
	Room         *Room
	Scene        *Scene
	SmartScene   *SmartScene
	Zone         *Zone
}

func (d *EventData) UnmarshalJSON(b []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return err
	}
	d.Type = tag.Type

	var dst any
	switch tag.Type {
	case "bridge_home":
		d.BridgeHome = &BridgeHome{}
		dst = d.BridgeHome
	case "device":
		d.Device = &Device{}
		dst = d.Device
	case "grouped_light":
		d.GroupedLight = &GroupedLight{}
		dst = d.GroupedLight
	case "light":
		d.Light = &Light{}
		dst = d.Light
	case "room":
		d.Room = &Room{}
		dst = d.Room
	case "scene":
		d.Scene = &Scene{}
		dst = d.Scene
	case "smart_scene":
		d.SmartScene = &SmartScene{}
		dst = d.SmartScene
	case "zone":
		d.Zone = &Zone{}
		dst = d.Zone
	default:
		return nil
	}
	return json.Unmarshal(b, dst)
}

// Known reports whether the payload decoded into one of the known resource
// variants.
func (d EventData) Known() bool {
	return d.Resource() != nil
}

// Resource returns the decoded resource, or nil for unknown types.
func (d EventData) Resource() any {
	switch {
	case d.BridgeHome != nil:
		return d.BridgeHome
	case d.Device != nil:
		return d.Device
	case d.GroupedLight != nil:
		return d.GroupedLight
	case d.Light != nil:
		return d.Light
	case d.Room != nil:
		return d.Room
	case d.Scene != nil:
		return d.Scene
	case d.SmartScene != nil:
		return d.SmartScene
	case d.Zone != nil:
		return d.Zone
	}
	return nil
}

// ResourceID returns the id of the decoded resource, or "" for unknown
// types.
func (d EventData) ResourceID() string {
	switch {
	case d.BridgeHome != nil:
		return d.BridgeHome.ID
	case d.Device != nil:
		return d.Device.ID
	case d.GroupedLight != nil:
		return d.GroupedLight.ID
	case d.Light != nil:
		return d.Light.ID
	case d.Room != nil:
		return d.Room.ID
	case d.Scene != nil:
		return d.Scene.ID
	case d.SmartScene != nil:
		return d.SmartScene.ID
	case d.Zone != nil:
		return d.Zone.ID
	}
	return ""
}

// StreamEvent is one element of the live feed: either a decoded batch or a
// failure description. A decode failure of an individual message lands here
// as Err and the feed keeps flowing; only stream-level failures end it.
type StreamEvent struct {
	Events []Event
	Err    string
}

// Events opens the /eventstream/clip/v2 feed and returns a channel of
// decoded batches. The feed never reconnects on its own: after a
// stream-level error one StreamEvent carrying the failure is emitted and
// the channel closes, and the retry decision is the caller's. Cancelling
// ctx stops the feed and releases the connection.
func (b *Bridge) Events(ctx context.Context) (<-chan StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+"/eventstream/clip/v2", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("hue-application-key", b.AppKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := b.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	log.Debug().Str("bridge", b.Address).Msg("Connected to event stream")

	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var data strings.Builder
		for scanner.Scan() {
			line := scanner.Text()

			// comment lines, including the ": hi" greeting
			if strings.HasPrefix(line, ":") {
				continue
			}

			// an empty line terminates one message
			if line == "" {
				if data.Len() > 0 {
					if !emit(ctx, out, decodeBatch(data.String())) {
						return
					}
					data.Reset()
				}
				continue
			}

			if after, ok := strings.CutPrefix(line, "data: "); ok {
				data.WriteString(after)
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			emit(ctx, out, StreamEvent{Err: fmt.Sprintf("event stream: %v", err)})
		}
	}()
	return out, nil
}

func decodeBatch(data string) StreamEvent {
	var events []Event
	if err := json.Unmarshal([]byte(data), &events); err != nil {
		return StreamEvent{Err: fmt.Sprintf("decode event batch: %v", err)}
	}
	return StreamEvent{Events: events}
}

func emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

package bridge

import (
	"context"

	"github.com/samber/lo"
)

// ResolvedRoom is a denormalized view of one room with its device children
// followed down to concrete lights. It is built fresh on every call and
// goes stale the moment the underlying collections change.
type ResolvedRoom struct {
	ID       string               `json:"id"`
	IDV1     string               `json:"id_v1,omitempty"`
	Metadata *Metadata            `json:"metadata,omitempty"`
	Children []Light              `json:"children"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

// ResolvedZone is the zone counterpart of ResolvedRoom.
type ResolvedZone struct {
	ID       string               `json:"id"`
	IDV1     string               `json:"id_v1,omitempty"`
	Metadata *Metadata            `json:"metadata,omitempty"`
	Children []Light              `json:"children"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

// ResolveRooms fetches rooms, devices and lights and joins room children
// through device membership down to lights. The three collections are
// fetched sequentially, not as a snapshot: a child whose device or light
// disappeared between fetches is dropped silently, and its siblings still
// resolve. Output order follows the sorted room fetch.
func (b *Bridge) ResolveRooms(ctx context.Context) ([]ResolvedRoom, error) {
	rooms, err := b.GetAllRooms(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := b.IndexDevices(ctx)
	if err != nil {
		return nil, err
	}
	lights, err := b.IndexLights(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(rooms, func(room Room, _ int) ResolvedRoom {
		return ResolvedRoom{
			ID:       room.ID,
			IDV1:     room.IDV1,
			Metadata: room.Metadata,
			Children: resolveRoomChildren(room.Children, devices, lights),
			Services: room.Services,
		}
	}), nil
}

func resolveRoomChildren(children []ResourceIdentifier, devices map[string]Device, lights map[string]Light) []Light {
	return lo.FlatMap(children, func(child ResourceIdentifier, _ int) []Light {
		device, ok := devices[child.RID]
		if !ok {
			return nil
		}
		return lo.FilterMap(device.LightServices(), func(id string, _ int) (Light, bool) {
			light, ok := lights[id]
			return light, ok
		})
	})
}

// ResolveZones is like ResolveRooms, except zone children reference lights
// directly, so no device index is needed.
func (b *Bridge) ResolveZones(ctx context.Context) ([]ResolvedZone, error) {
	zones, err := b.GetAllZones(ctx)
	if err != nil {
		return nil, err
	}
	lights, err := b.IndexLights(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(zones, func(zone Zone, _ int) ResolvedZone {
		return ResolvedZone{
			ID:       zone.ID,
			IDV1:     zone.IDV1,
			Metadata: zone.Metadata,
			Children: lo.FilterMap(zone.Children, func(child ResourceIdentifier, _ int) (Light, bool) {
				light, ok := lights[child.RID]
				return light, ok
			}),
			Services: zone.Services,
		}
	}), nil
}

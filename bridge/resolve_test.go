package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolutionServer(t *testing.T) *httptest.Server {
	t.Helper()

	responses := map[string]string{
		"/clip/v2/resource/room": `{"errors":[],"data":[
			{"id":"room-1","metadata":{"name":"Kitchen"},"children":[
				{"rid":"dev-1","rtype":"device"},
				{"rid":"dev-gone","rtype":"device"}
			]},
			{"id":"room-2","metadata":{"name":"Hall"},"children":[
				{"rid":"dev-2","rtype":"device"}
			]}
		]}`,
		"/clip/v2/resource/device": `{"errors":[],"data":[
			{"id":"dev-1","services":[
				{"rid":"light-1","rtype":"light"},
				{"rid":"zigbee-1","rtype":"zigbee_connectivity"},
				{"rid":"light-2","rtype":"light"}
			]},
			{"id":"dev-2","services":[
				{"rid":"light-gone","rtype":"light"}
			]}
		]}`,
		"/clip/v2/resource/light": `{"errors":[],"data":[
			{"id":"light-1","metadata":{"name":"Spot 1"}},
			{"id":"light-2","metadata":{"name":"Spot 2"}},
			{"id":"light-3","metadata":{"name":"Strip"}}
		]}`,
		"/clip/v2/resource/zone": `{"errors":[],"data":[
			{"id":"zone-1","metadata":{"name":"Downstairs"},"children":[
				{"rid":"light-3","rtype":"light"},
				{"rid":"light-gone","rtype":"light"}
			]}
		]}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveRooms(t *testing.T) {
	b := testBridge(resolutionServer(t))

	rooms, err := b.ResolveRooms(context.Background())
	if err != nil {
		t.Fatalf("ResolveRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("got %d rooms, want 2", len(rooms))
	}

	// room-1: dev-1 resolves to two lights in service order, dev-gone is
	// dropped without affecting its sibling
	kitchen := rooms[0]
	if kitchen.ID != "room-1" {
		t.Fatalf("rooms[0].ID = %q, want room-1 (sorted fetch order)", kitchen.ID)
	}
	if len(kitchen.Children) != 2 {
		t.Fatalf("kitchen has %d lights, want 2: %+v", len(kitchen.Children), kitchen.Children)
	}
	if kitchen.Children[0].ID != "light-1" || kitchen.Children[1].ID != "light-2" {
		t.Errorf("kitchen lights = [%s %s], want [light-1 light-2]",
			kitchen.Children[0].ID, kitchen.Children[1].ID)
	}

	// room-2: its only device exists but references a light that does not
	hall := rooms[1]
	if len(hall.Children) != 0 {
		t.Errorf("hall has %d lights, want 0 (missing light lookup dropped)", len(hall.Children))
	}
}

func TestResolveZones(t *testing.T) {
	b := testBridge(resolutionServer(t))

	zones, err := b.ResolveZones(context.Background())
	if err != nil {
		t.Fatalf("ResolveZones failed: %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("got %d zones, want 1", len(zones))
	}
	zone := zones[0]
	if len(zone.Children) != 1 {
		t.Fatalf("zone has %d lights, want 1: %+v", len(zone.Children), zone.Children)
	}
	if zone.Children[0].ID != "light-3" {
		t.Errorf("zone light = %q, want light-3", zone.Children[0].ID)
	}
}

func TestResolveRoomChildrenMissingDevice(t *testing.T) {
	devices := map[string]Device{
		"dev-1": {ID: "dev-1", Services: []ResourceIdentifier{
			{RID: "light-1", RType: "light"},
			{RID: "light-2", RType: "light"},
		}},
	}
	lights := map[string]Light{
		"light-1": {ID: "light-1"},
		"light-2": {ID: "light-2"},
	}
	children := []ResourceIdentifier{
		{RID: "dev-1", RType: "device"},
		{RID: "no-such-device", RType: "device"},
	}

	resolved := resolveRoomChildren(children, devices, lights)
	if len(resolved) != 2 {
		t.Fatalf("resolved %d lights, want 2", len(resolved))
	}
	if resolved[0].ID != "light-1" || resolved[1].ID != "light-2" {
		t.Errorf("resolved = [%s %s], want fetch order [light-1 light-2]",
			resolved[0].ID, resolved[1].ID)
	}
}

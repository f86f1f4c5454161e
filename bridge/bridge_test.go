package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testBridge points an authenticated client at a httptest server.
func testBridge(srv *httptest.Server) *Bridge {
	return &Bridge{
		Address: srv.Listener.Addr().String(),
		AppKey:  "test-app-key",
		base:    srv.URL,
		client:  srv.Client(),
		stream:  srv.Client(),
	}
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode registration payload: %v", err)
		}
		if payload["devicetype"] != "huelink#test" {
			t.Errorf("devicetype = %q, want %q", payload["devicetype"], "huelink#test")
		}
		w.Write([]byte(`[{"success":{"username":"generated-key"}}]`))
	}))
	defer srv.Close()

	u := &UnauthBridge{Address: "bridge", base: srv.URL, client: srv.Client()}
	b, err := u.Register(context.Background(), "huelink#test")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if b.AppKey != "generated-key" {
		t.Errorf("app key = %q, want %q", b.AppKey, "generated-key")
	}
}

func TestRegisterLinkButtonNotPressed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`))
	}))
	defer srv.Close()

	u := &UnauthBridge{Address: "bridge", base: srv.URL, client: srv.Client()}
	_, err := u.Register(context.Background(), "huelink#test")

	var bErr *BridgeError
	if !errors.As(err, &bErr) {
		t.Fatalf("err = %v, want *BridgeError", err)
	}
	if bErr.Code != 101 {
		t.Errorf("code = %d, want 101", bErr.Code)
	}
}

func TestGetAllLightsSortedByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/clip/v2/resource/light" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("hue-application-key"); got != "test-app-key" {
			t.Errorf("hue-application-key = %q, want %q", got, "test-app-key")
		}
		w.Write([]byte(`{"errors":[],"data":[{"id":"b"},{"id":"c"},{"id":"a"}]}`))
	}))
	defer srv.Close()

	lights, err := testBridge(srv).GetAllLights(context.Background())
	if err != nil {
		t.Fatalf("GetAllLights failed: %v", err)
	}
	if len(lights) != 3 {
		t.Fatalf("got %d lights, want 3", len(lights))
	}
	for i, want := range []string{"a", "b", "c"} {
		if lights[i].ID != want {
			t.Errorf("lights[%d].ID = %q, want %q", i, lights[i].ID, want)
		}
	}
}

func TestFetchSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"description":"internal bridge error"}],"data":[]}`))
	}))
	defer srv.Close()

	_, err := testBridge(srv).GetAllDevices(context.Background())
	var aErr *APIError
	if !errors.As(err, &aErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if aErr.Description != "internal bridge error" {
		t.Errorf("description = %q", aErr.Description)
	}
}

func TestFetchSurfacesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testBridge(srv).GetAllDevices(context.Background())
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if sErr.Code != http.StatusForbidden {
		t.Errorf("code = %d, want %d", sErr.Code, http.StatusForbidden)
	}
}

func TestSetLightStateSendsSparsePayload(t *testing.T) {
	var received map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/clip/v2/resource/light/l1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode command payload: %v", err)
		}
		w.Write([]byte(`{"errors":[],"data":[{"rid":"l1","rtype":"light"}]}`))
	}))
	defer srv.Close()

	err := testBridge(srv).SetLightState(context.Background(), "l1", LightCommand{}.WithOn())
	if err != nil {
		t.Fatalf("SetLightState failed: %v", err)
	}
	if len(received) != 1 {
		t.Errorf("wire payload has %d fields, want 1: %v", len(received), received)
	}
}

func TestRecallSceneActions(t *testing.T) {
	recalls := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Recall struct {
				Action string `json:"action"`
			} `json:"recall"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode recall payload: %v", err)
		}
		recalls[r.URL.Path] = payload.Recall.Action
		w.Write([]byte(`{"errors":[],"data":[]}`))
	}))
	defer srv.Close()

	b := testBridge(srv)
	if err := b.RecallScene(context.Background(), "s1"); err != nil {
		t.Fatalf("RecallScene failed: %v", err)
	}
	if err := b.RecallSmartScene(context.Background(), "s2"); err != nil {
		t.Fatalf("RecallSmartScene failed: %v", err)
	}

	if got := recalls["/clip/v2/resource/scene/s1"]; got != "active" {
		t.Errorf("scene recall action = %q, want %q", got, "active")
	}
	if got := recalls["/clip/v2/resource/smart_scene/s2"]; got != "activate" {
		t.Errorf("smart scene recall action = %q, want %q", got, "activate")
	}
}

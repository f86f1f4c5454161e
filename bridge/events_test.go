package bridge

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDecodeBatchKnownAndUnknown(t *testing.T) {
	body := `[
		{"type":"update","data":[{"type":"light","id":"light-1","on":{"on":true}}]},
		{"type":"mystery","data":[{"type":"mystery_resource","id":"m-1"}]}
	]`

	got := decodeBatch(body)
	if got.Err != "" {
		t.Fatalf("decodeBatch failed: %s", got.Err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(got.Events))
	}

	first := got.Events[0]
	if first.Type != EventUpdate {
		t.Errorf("events[0].Type = %q, want update", first.Type)
	}
	if len(first.Data) != 1 || first.Data[0].Light == nil {
		t.Fatalf("events[0] did not decode a light: %+v", first.Data)
	}
	if !first.Data[0].Light.On.On {
		t.Error("light on state lost in decoding")
	}

	second := got.Events[1]
	if second.Type != EventUnknown {
		t.Errorf("events[1].Type = %q, want unknown", second.Type)
	}
	if second.Data[0].Known() {
		t.Error("unknown resource type decoded as known")
	}
	if second.Data[0].Type != "mystery_resource" {
		t.Errorf("unknown resource kept type %q, want mystery_resource", second.Data[0].Type)
	}
}

func TestDecodeBatchMalformed(t *testing.T) {
	got := decodeBatch(`{not json`)
	if got.Err == "" {
		t.Fatal("malformed batch produced no error event")
	}
	if got.Events != nil {
		t.Errorf("malformed batch produced events: %+v", got.Events)
	}
}

func TestEventDataResourceAccessors(t *testing.T) {
	batch := decodeBatch(`[{"type":"add","data":[{"type":"scene","id":"scene-9"}]}]`)
	if batch.Err != "" {
		t.Fatalf("decodeBatch failed: %s", batch.Err)
	}
	data := batch.Events[0].Data[0]
	if data.ResourceID() != "scene-9" {
		t.Errorf("ResourceID = %q, want scene-9", data.ResourceID())
	}
	if _, ok := data.Resource().(*Scene); !ok {
		t.Errorf("Resource() = %T, want *Scene", data.Resource())
	}
}

func TestEventsFeedSurvivesMalformedMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eventstream/clip/v2" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("hue-application-key"); got != "test-app-key" {
			t.Errorf("hue-application-key = %q", got)
		}

		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)

		fmt.Fprint(w, ": hi\n\n")
		fmt.Fprint(w, "id: 1\ndata: [{\"type\":\"update\",\"data\":[{\"type\":\"light\",\"id\":\"l1\"}]}]\n\n")
		fmt.Fprint(w, "id: 2\ndata: this is not json\n\n")
		fmt.Fprint(w, "id: 3\ndata: [{\"type\":\"delete\",\"data\":[{\"type\":\"room\",\"id\":\"r1\"}]}]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	feed, err := testBridge(srv).Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	var got []StreamEvent
	for ev := range feed {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("received %d stream events, want 3: %+v", len(got), got)
	}

	if got[0].Err != "" || len(got[0].Events) != 1 || got[0].Events[0].Type != EventUpdate {
		t.Errorf("first message decoded wrong: %+v", got[0])
	}
	if got[1].Err == "" {
		t.Error("malformed message did not surface as a decode-error event")
	}
	if got[2].Err != "" || got[2].Events[0].Type != EventDelete {
		t.Errorf("feed did not keep flowing past the malformed message: %+v", got[2])
	}
}

func TestEventsRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testBridge(srv).Events(context.Background())
	if err == nil {
		t.Fatal("Events accepted a non-200 response")
	}
}

func TestEventsCancellationEndsFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": hi\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	feed, err := testBridge(srv).Events(ctx)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}

	cancel()
	select {
	case _, open := <-feed:
		if open {
			// a final error event is acceptable, but the channel must close
			if _, open := <-feed; open {
				t.Error("feed still open after cancellation")
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not end after cancellation")
	}
}

package journal

import (
	"path/filepath"
	"testing"

	"github.com/dokzlo13/huelink/bridge"
)

func TestRecordAndCount(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	batch := []bridge.Event{
		{
			Type: bridge.EventUpdate,
			Data: []bridge.EventData{
				{Type: "light", Light: &bridge.Light{ID: "light-1"}},
				{Type: "light", Light: &bridge.Light{ID: "light-2"}},
			},
		},
		{
			Type: bridge.EventDelete,
			Data: []bridge.EventData{
				{Type: "room", Room: &bridge.Room{ID: "room-1"}},
			},
		},
	}
	if err := j.Record(batch); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	total, err := j.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total rows = %d, want 3 (one per resource)", total)
	}

	updates, err := j.Count("update")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if updates != 2 {
		t.Errorf("update rows = %d, want 2", updates)
	}
}

func TestRecordUnknownResource(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer j.Close()

	// unknown resource types journal their tag with an empty payload
	batch := []bridge.Event{
		{Type: bridge.EventUnknown, Data: []bridge.EventData{{Type: "mystery_resource"}}},
	}
	if err := j.Record(batch); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	total, err := j.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 1 {
		t.Errorf("total rows = %d, want 1", total)
	}
}

package state

import (
	"path/filepath"
	"testing"

	"github.com/tentwatch/growmond/internal/db"
)

type fakeStage struct {
	Stage string `json:"stage"`
	Days  int    `json:"days"`
}

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestStore_GetSetVersioning(t *testing.T) {
	s := testStore(t)

	// Missing key returns empty without error.
	payload, version, err := s.Get("stage", "tent-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if payload != nil || version != 0 {
		t.Errorf("missing key: payload=%v version=%d, want nil/0", payload, version)
	}

	if err := s.Set("stage", "tent-a", []byte(`{"stage":"veg"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_, version, err = s.Get("stage", "tent-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if version != 1 {
		t.Errorf("version after first set = %d, want 1", version)
	}

	if err := s.Set("stage", "tent-a", []byte(`{"stage":"flower"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	payload, version, err = s.Get("stage", "tent-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if version != 2 {
		t.Errorf("version after update = %d, want 2", version)
	}
	if string(payload) != `{"stage":"flower"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestStore_KindIsolation(t *testing.T) {
	s := testStore(t)

	if err := s.Set("stage", "tent-a", []byte(`1`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("verdict", "tent-a", []byte(`2`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := s.Clear("stage"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	payload, _, err := s.Get("stage", "tent-a")
	if err != nil || payload != nil {
		t.Errorf("cleared kind should be empty: %s, %v", payload, err)
	}
	payload, _, err = s.Get("verdict", "tent-a")
	if err != nil || string(payload) != "2" {
		t.Errorf("other kind should survive: %s, %v", payload, err)
	}
}

func TestTypedStore_RoundTrip(t *testing.T) {
	ts := NewTypedStore[fakeStage](testStore(t), "stage")

	if _, found, err := ts.Get("tent-a"); err != nil || found {
		t.Errorf("missing key: found=%v err=%v", found, err)
	}

	if err := ts.Set("tent-a", fakeStage{Stage: "flower", Days: 12}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found, err := ts.Get("tent-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || got.Stage != "flower" || got.Days != 12 {
		t.Errorf("got %+v, found=%v", got, found)
	}

	if err := ts.Set("tent-b", fakeStage{Stage: "veg"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	all, err := ts.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 || all["tent-b"].Stage != "veg" {
		t.Errorf("GetAll = %+v", all)
	}

	if err := ts.Delete("tent-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := ts.Get("tent-a"); found {
		t.Error("deleted key should be gone")
	}
}

package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "dua.json")
	store := NewFileStore(path)

	// First boot: no record, not an error.
	_, ok, err := store.LoadDuaSettings()
	if err != nil {
		t.Fatalf("LoadDuaSettings() on empty store failed: %v", err)
	}
	if ok {
		t.Fatal("LoadDuaSettings() reported a record on first boot")
	}

	want := DuaSettings{
		InterfaceIdentifier: ip6.InterfaceIdentifier{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88},
		DadCounter:          5,
	}
	if err := store.StoreDuaSettings(want); err != nil {
		t.Fatalf("StoreDuaSettings() failed: %v", err)
	}

	got, ok, err := store.LoadDuaSettings()
	if err != nil {
		t.Fatalf("LoadDuaSettings() failed: %v", err)
	}
	if !ok {
		t.Fatal("LoadDuaSettings() found no record after store")
	}
	if got != want {
		t.Errorf("LoadDuaSettings() = %+v, want %+v", got, want)
	}
}

func TestFileStoreFixedFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dua.json")
	store := NewFileStore(path)

	want := DuaSettings{
		InterfaceIdentifier: ip6.InterfaceIdentifier{1, 2, 3, 4, 5, 6, 7, 8},
		Fixed:               true,
		DadCounter:          0,
	}
	if err := store.StoreDuaSettings(want); err != nil {
		t.Fatalf("StoreDuaSettings() failed: %v", err)
	}
	got, _, err := store.LoadDuaSettings()
	if err != nil {
		t.Fatalf("LoadDuaSettings() failed: %v", err)
	}
	if !got.Fixed {
		t.Error("Fixed flag not persisted")
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dua.json")
	store := NewFileStore(path)

	if err := store.Clear(); err != nil {
		t.Errorf("Clear() on missing file failed: %v", err)
	}

	if err := store.StoreDuaSettings(DuaSettings{InterfaceIdentifier: ip6.InterfaceIdentifier{1, 0, 0, 0, 0, 0, 0, 1}}); err != nil {
		t.Fatalf("StoreDuaSettings() failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	_, ok, err := store.LoadDuaSettings()
	if err != nil {
		t.Fatalf("LoadDuaSettings() failed: %v", err)
	}
	if ok {
		t.Error("record still present after Clear()")
	}
}

func TestMemStoreFailNext(t *testing.T) {
	store := NewMemStore()
	store.FailNext = true

	err := store.StoreDuaSettings(DuaSettings{DadCounter: 1})
	if !errors.Is(err, ErrStorage) {
		t.Errorf("StoreDuaSettings() error = %v, want ErrStorage", err)
	}

	// Failure is one-shot.
	if err := store.StoreDuaSettings(DuaSettings{DadCounter: 1}); err != nil {
		t.Errorf("second StoreDuaSettings() failed: %v", err)
	}
	got, ok, err := store.LoadDuaSettings()
	if err != nil || !ok {
		t.Fatalf("LoadDuaSettings() = (%v, %v)", ok, err)
	}
	if got.DadCounter != 1 {
		t.Errorf("DadCounter = %d, want 1", got.DadCounter)
	}
}

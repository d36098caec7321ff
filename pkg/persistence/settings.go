package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// SettingsVersion is the current version of the settings file format.
const SettingsVersion = 1

// ErrStorage wraps persist/restore I/O problems. Failure to persist is
// non-fatal to address operation; callers keep their in-memory state
// authoritative until the next successful store.
var ErrStorage = errors.New("settings storage failure")

// DuaSettings is the stable record for the DUA manager.
type DuaSettings struct {
	// InterfaceIdentifier is the chosen IID: the operator-fixed value
	// when Fixed is true, the last derived value otherwise.
	InterfaceIdentifier ip6.InterfaceIdentifier

	// Fixed indicates the IID was manually specified by an operator.
	Fixed bool

	// DadCounter counts duplicate-address collisions for derived IIDs.
	DadCounter uint8
}

// SettingsStore is the storage contract the DUA manager depends on.
type SettingsStore interface {
	// LoadDuaSettings reads the persisted record. The second return
	// value is false when no record exists; that is not an error.
	LoadDuaSettings() (DuaSettings, bool, error)

	// StoreDuaSettings persists the record.
	StoreDuaSettings(settings DuaSettings) error

	// Clear removes the record.
	Clear() error
}

// settingsFile is the JSON on-disk representation.
type settingsFile struct {
	Version             int       `json:"version"`
	SavedAt             time.Time `json:"saved_at"`
	InterfaceIdentifier string    `json:"interface_identifier"`
	Fixed               bool      `json:"fixed,omitempty"`
	DadCounter          uint8     `json:"dad_counter"`
}

// FileStore persists DUA settings to a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed settings store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadDuaSettings reads the persisted record from disk.
func (s *FileStore) LoadDuaSettings() (DuaSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return DuaSettings{}, false, nil
	}
	if err != nil {
		return DuaSettings{}, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var file settingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return DuaSettings{}, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	iid, err := ip6.ParseInterfaceIdentifier(file.InterfaceIdentifier)
	if err != nil {
		return DuaSettings{}, false, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return DuaSettings{
		InterfaceIdentifier: iid,
		Fixed:               file.Fixed,
		DadCounter:          file.DadCounter,
	}, true, nil
}

// StoreDuaSettings persists the record to disk.
func (s *FileStore) StoreDuaSettings(settings DuaSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	file := settingsFile{
		Version:             SettingsVersion,
		SavedAt:             time.Now(),
		InterfaceIdentifier: settings.InterfaceIdentifier.String(),
		Fixed:               settings.Fixed,
		DadCounter:          settings.DadCounter,
	}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// Clear removes the settings file.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// MemStore is an in-memory settings store for tests.
type MemStore struct {
	mu       sync.Mutex
	settings DuaSettings
	present  bool

	// FailNext makes the next store or load operation fail, to exercise
	// storage-error paths.
	FailNext bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// LoadDuaSettings returns the stored record, if any.
func (s *MemStore) LoadDuaSettings() (DuaSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext {
		s.FailNext = false
		return DuaSettings{}, false, ErrStorage
	}
	return s.settings, s.present, nil
}

// StoreDuaSettings records the settings in memory.
func (s *MemStore) StoreDuaSettings(settings DuaSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext {
		s.FailNext = false
		return ErrStorage
	}
	s.settings = settings
	s.present = true
	return nil
}

// Clear forgets the stored record.
func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = DuaSettings{}
	s.present = false
	return nil
}

// Compile-time interface satisfaction checks.
var (
	_ SettingsStore = (*FileStore)(nil)
	_ SettingsStore = (*MemStore)(nil)
)

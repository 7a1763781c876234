// Package truststore implements the persistent trust record store
// (spec §4.5): an in-memory map backed by a single JSON file, made
// safe for concurrent processes by an advisory file lock, atomic
// rename, and mtime-based external-change detection.
package truststore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/btps-org/btps-core/internal/core/domain"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// debounceWindow is how long a dirty store waits before flushing,
// coalescing bursts of mutations into a single write (spec §4.5).
const debounceWindow = 1 * time.Second

// FileStore is the file-backed ports.TrustStore implementation.
type FileStore struct {
	path       string
	entityName string // "" selects the bare-array file format

	mu       sync.Mutex
	records  map[string]domain.TrustRecord
	dirty    bool
	lastMtime time.Time
	timer    *time.Timer
	loaded   bool

	// pendingDeletes holds ids removed locally since the last
	// successful flush, so mergeFromDiskLocked doesn't resurrect them
	// from a disk copy a sibling process hasn't seen the deletion of.
	pendingDeletes map[string]bool
}

// NewFileStore returns a FileStore persisting to path. When
// entityName is non-empty, the file is a JSON object
// `{"<entityName>": [...]}`; otherwise it is a bare JSON array (spec
// §6).
func NewFileStore(path, entityName string) *FileStore {
	return &FileStore{
		path:           path,
		entityName:     entityName,
		records:        make(map[string]domain.TrustRecord),
		pendingDeletes: make(map[string]bool),
	}
}

// ensureLoadedLocked lazily creates an empty file on first use and loads all
// records into memory (spec §4.5 step 1). Caller must hold mu.
func (s *FileStore) ensureLoadedLocked() error {
	if s.loaded {
		return s.reloadIfChangedLocked()
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("trust store: create dir: %w", err)
		}
		if err := s.writeLocked(); err != nil {
			return err
		}
	}
	if err := s.loadFromDiskLocked(); err != nil {
		return err
	}
	s.loaded = true
	return nil
}

// reloadIfChangedLocked stats the file and, if its mtime differs from
// the last observed value, flushes pending writes and reloads (spec
// §4.5 step 4).
func (s *FileStore) reloadIfChangedLocked() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("trust store: stat: %w", err)
	}
	if info.ModTime().Equal(s.lastMtime) {
		return nil
	}
	if s.dirty {
		if err := s.writeLocked(); err != nil {
			return err
		}
	}
	return s.loadFromDiskLocked()
}

func (s *FileStore) loadFromDiskLocked() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("trust store: read: %w", err)
	}
	records, err := decodeFile(raw, s.entityName)
	if err != nil {
		return fmt.Errorf("trust store: corrupt file %s: %w", s.path, err)
	}
	s.records = make(map[string]domain.TrustRecord, len(records))
	for _, r := range records {
		s.records[r.ID] = r
	}
	info, err := os.Stat(s.path)
	if err == nil {
		s.lastMtime = info.ModTime()
	}
	s.dirty = false
	return nil
}

func decodeFile(raw []byte, entityName string) ([]domain.TrustRecord, error) {
	if entityName == "" {
		var records []domain.TrustRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	entity, ok := wrapper[entityName]
	if !ok {
		return nil, fmt.Errorf("missing entity %q", entityName)
	}
	var records []domain.TrustRecord
	if err := json.Unmarshal(entity, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// writeLocked implements spec §4.5 step 3: lock, merge in whatever
// another process may have committed since this process's last read,
// serialize, write to a temp file, atomically rename, record the new
// mtime, unlock. The merge step is what keeps disjoint concurrent
// creates from distinct processes from clobbering one another (spec
// §8 property 5): without it, this process's in-memory map — built
// from a read that predates a sibling process's flush — would
// overwrite the sibling's records on rename.
func (s *FileStore) writeLocked() error {
	lock, err := acquireLock(s.path + ".lock")
	if err != nil {
		return err
	}
	defer lock.release()

	if err := s.mergeFromDiskLocked(); err != nil {
		return err
	}

	records := make([]domain.TrustRecord, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}

	var out any = records
	if s.entityName != "" {
		out = map[string]any{s.entityName: records}
	}
	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("trust store: marshal: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0o600); err != nil {
		return fmt.Errorf("trust store: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("trust store: rename: %w", err)
	}

	info, err := os.Stat(s.path)
	if err == nil {
		s.lastMtime = info.ModTime()
	}
	s.dirty = false
	s.pendingDeletes = make(map[string]bool)
	return nil
}

// mergeFromDiskLocked folds any record present on disk but absent from
// s.records into s.records, called while writeLocked already holds the
// exclusive file lock so the read it performs cannot race a sibling
// process's own writeLocked. Records this process already holds win
// over the disk copy, since they may carry an in-flight mutation the
// disk hasn't seen yet; disk-only records (written by a sibling since
// this process's last load) are adopted as-is.
func (s *FileStore) mergeFromDiskLocked() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("trust store: read for merge: %w", err)
	}
	onDisk, err := decodeFile(raw, s.entityName)
	if err != nil {
		return fmt.Errorf("trust store: corrupt file %s: %w", s.path, err)
	}
	for _, r := range onDisk {
		if s.pendingDeletes[r.ID] {
			continue
		}
		if _, ok := s.records[r.ID]; !ok {
			s.records[r.ID] = r
		}
	}
	return nil
}

// markDirtyLocked sets the dirty flag and (re-)arms the debounce
// timer if one isn't already pending (spec §4.5 step 2).
func (s *FileStore) markDirtyLocked() {
	s.dirty = true
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(debounceWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.timer = nil
		if s.dirty {
			_ = s.writeLocked()
		}
	})
}

// GetByID returns the record for id, reloading from disk first if the
// file changed externally.
func (s *FileStore) GetByID(id string) (*domain.TrustRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, false, err
	}
	r, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

// Create inserts rec under id, failing with AlreadyExists if id is
// already present. If id is empty, it is derived deterministically
// from rec.SenderID/ReceiverID (spec §4.5).
func (s *FileStore) Create(rec domain.TrustRecord, id string) (*domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	if id == "" {
		id = domain.TrustRecordID(rec.SenderID, rec.ReceiverID)
	}
	if _, exists := s.records[id]; exists {
		return nil, btpserrors.NewTrustStoreConflict(id)
	}
	rec.ID = id
	s.records[id] = rec
	s.markDirtyLocked()
	return &rec, nil
}

// Update merges patch over the existing record for id, failing with
// NotFound if id is absent.
func (s *FileStore) Update(id string, patch map[string]any) (*domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, btpserrors.NewTrustStoreNotFound(id)
	}
	merged, err := mergePatch(rec, patch)
	if err != nil {
		return nil, fmt.Errorf("trust store: merge patch: %w", err)
	}
	s.records[id] = merged
	s.markDirtyLocked()
	return &merged, nil
}

// mergePatch decodes patch over a copy of rec using mapstructure, the
// same library viper uses internally to decode loosely-typed maps
// into structs.
func mergePatch(rec domain.TrustRecord, patch map[string]any) (domain.TrustRecord, error) {
	merged := rec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &merged,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return rec, err
	}
	if err := decoder.Decode(patch); err != nil {
		return rec, err
	}
	return merged, nil
}

// Delete removes the record for id.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return err
	}
	if _, ok := s.records[id]; !ok {
		return btpserrors.NewTrustStoreNotFound(id)
	}
	delete(s.records, id)
	s.pendingDeletes[id] = true
	s.markDirtyLocked()
	return nil
}

// GetAll returns every record, optionally filtered by ReceiverID.
func (s *FileStore) GetAll(receiverID string) ([]domain.TrustRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(); err != nil {
		return nil, err
	}
	out := make([]domain.TrustRecord, 0, len(s.records))
	for _, r := range s.records {
		if receiverID != "" && r.ReceiverID != receiverID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FlushNow forces an immediate persist of any pending writes.
func (s *FileStore) FlushNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		return nil
	}
	return s.writeLocked()
}

// FlushAndReload forces a flush of pending writes followed by a
// from-disk reload, discarding the loaded-cache short-circuit.
func (s *FileStore) FlushAndReload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.dirty {
		if err := s.writeLocked(); err != nil {
			return err
		}
	}
	return s.loadFromDiskLocked()
}

// Close flushes any pending writes synchronously, for use in a
// graceful shutdown hook (spec §4.5 step 5, §9).
func (s *FileStore) Close() error {
	return s.FlushNow()
}

package truststore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btps-org/btps-core/internal/core/domain"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	dir := t.TempDir()
	return NewFileStore(filepath.Join(dir, "trust-store.json"), "")
}

func sampleRecord() domain.TrustRecord {
	return domain.TrustRecord{
		SenderID:   "billing$vendor.example.org",
		ReceiverID: "accounts$buyer.example.com",
		Status:     domain.TrustRequested,
		IssuedAt:   time.Now().UTC(),
	}
}

func TestFileStore_CreateGetByID(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, ok, err := s.GetByID(rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, rec.SenderID, got.SenderID)
}

func TestFileStore_CreateDuplicateConflicts(t *testing.T) {
	s := newTestStore(t)
	id := domain.TrustRecordID("a$x.com", "b$y.com")
	_, err := s.Create(sampleRecord(), id)
	require.NoError(t, err)

	_, err = s.Create(sampleRecord(), id)
	assert.ErrorIs(t, err, btpserrors.ErrTrustStoreConflict)
}

func TestFileStore_UpdateMergesPatch(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)

	updated, err := s.Update(rec.ID, map[string]any{"status": string(domain.TrustAccepted)})
	require.NoError(t, err)
	assert.Equal(t, domain.TrustAccepted, updated.Status)
	assert.Equal(t, rec.SenderID, updated.SenderID)

	got, ok, err := s.GetByID(rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TrustAccepted, got.Status)
}

func TestFileStore_UpdateMissingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update("does-not-exist", map[string]any{"status": "accepted"})
	assert.ErrorIs(t, err, btpserrors.ErrTrustStoreNotFound)
}

func TestFileStore_Delete(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(rec.ID))

	_, ok, err := s.GetByID(rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Delete(rec.ID)
	assert.ErrorIs(t, err, btpserrors.ErrTrustStoreNotFound)
}

func TestFileStore_GetAllFiltersByReceiver(t *testing.T) {
	s := newTestStore(t)
	a := sampleRecord()
	a.ReceiverID = "accounts$buyer-a.example.com"
	b := sampleRecord()
	b.ReceiverID = "accounts$buyer-b.example.com"

	_, err := s.Create(a, "")
	require.NoError(t, err)
	_, err = s.Create(b, "")
	require.NoError(t, err)

	all, err := s.GetAll("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := s.GetAll("accounts$buyer-a.example.com")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "accounts$buyer-a.example.com", filtered[0].ReceiverID)
}

func TestFileStore_FlushNowPersistsToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust-store.json")
	s := NewFileStore(path, "")

	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)
	require.NoError(t, s.FlushNow())

	reopened := NewFileStore(path, "")
	got, ok, err := reopened.GetByID(rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.SenderID, got.SenderID)
}

func TestFileStore_CloseFlushes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust-store.json")
	s := NewFileStore(path, "")

	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := NewFileStore(path, "")
	_, ok, err := reopened.GetByID(rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestFileStore_ConcurrentProcessesShareOneFile simulates spec §8's S5
// scenario: several processes, each holding its own FileStore over the
// same on-disk file, concurrently create disjoint records. The
// advisory lock plus atomic rename must ensure no create is lost.
func TestFileStore_ConcurrentProcessesShareOneFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust-store.json")

	const numProcesses = 4
	const recordsPerProcess = 25

	var wg sync.WaitGroup
	for p := 0; p < numProcesses; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			store := NewFileStore(path, "")
			for i := 0; i < recordsPerProcess; i++ {
				rec := sampleRecord()
				rec.ReceiverID = fmt.Sprintf("accounts$buyer-%d-%d.example.com", p, i)
				_, err := store.Create(rec, fmt.Sprintf("proc-%d-rec-%d", p, i))
				assert.NoError(t, err)
			}
			assert.NoError(t, store.FlushNow())
		}(p)
	}
	wg.Wait()

	final := NewFileStore(path, "")
	require.NoError(t, final.FlushAndReload())
	all, err := final.GetAll("")
	require.NoError(t, err)
	assert.Len(t, all, numProcesses*recordsPerProcess)
}

func TestFileStore_EntityNameWrapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust-store.json")
	s := NewFileStore(path, "trustRecords")

	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)
	require.NoError(t, s.FlushNow())

	reopened := NewFileStore(path, "trustRecords")
	got, ok, err := reopened.GetByID(rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec.SenderID, got.SenderID)
}

// TestFileStore_DeleteThenOwnFlushDoesNotResurrect exercises the case
// mergeFromDiskLocked exists to guard: a delete followed by this same
// store's own debounced (or forced) flush must not fold the
// about-to-be-overwritten disk copy back in.
func TestFileStore_DeleteThenOwnFlushDoesNotResurrect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trust-store.json")

	s := NewFileStore(path, "")
	rec, err := s.Create(sampleRecord(), "")
	require.NoError(t, err)
	require.NoError(t, s.FlushNow())

	require.NoError(t, s.Delete(rec.ID))
	require.NoError(t, s.FlushNow())

	reopened := NewFileStore(path, "")
	_, ok, err := reopened.GetByID(rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

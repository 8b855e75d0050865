package marker

import (
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

func TestForCoordinates(t *testing.T) {
	assert.Equal(t, ForCoordinates(100, 5), "100_5")
	assert.Equal(t, ForCoordinates(-1003314084396, 3), "-1003314084396_3")
}

func storeContract(t *testing.T, s Store) {
	t.Helper()

	// Absent keys read as zero.
	got, err := s.Get("100_5")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(0))

	assert.NilError(t, s.Set("100_5", 1000))
	got, err = s.Get("100_5")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(1000))

	// Advancing overwrites.
	assert.NilError(t, s.Set("100_5", 1500))
	got, err = s.Get("100_5")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(1500))

	// Keys are independent.
	got, err = s.Get("100_6")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(0))

	assert.NilError(t, s.Delete("100_5"))
	got, err = s.Get("100_5")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(0))

	// Deleting an absent key is fine.
	assert.NilError(t, s.Delete("100_5"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "markers.db"))
	assert.NilError(t, err)
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.db")

	s, err := NewSQLiteStore(path)
	assert.NilError(t, err)
	assert.NilError(t, s.Set("100_5", 1000))
	assert.NilError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	assert.NilError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("100_5")
	assert.NilError(t, err)
	assert.Equal(t, got, int64(1000))
}

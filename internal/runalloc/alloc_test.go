package runalloc

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2025, 10, 13, 9, 30, 0, 0, time.UTC)

func TestAllocateFirstRunOfDay(t *testing.T) {
	base := t.TempDir()

	runID, runPath, err := New(base, 0).Allocate(testDay)
	require.NoError(t, err)

	assert.Equal(t, "2025-10-13_run_001", runID)
	assert.Equal(t, filepath.Join(base, runID), runPath)
	info, statErr := os.Stat(runPath)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestAllocateIncrementsPastExisting(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(base, "2025-10-13_run_001"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(base, "2025-10-13_run_004"), 0o755))
	// A different day must not affect today's sequence.
	require.NoError(t, os.Mkdir(filepath.Join(base, "2025-10-12_run_009"), 0o755))
	// A plain file with a matching name is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(base, "2025-10-13_run_002"), nil, 0o644))

	runID, _, err := New(base, 0).Allocate(testDay)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-13_run_005", runID)
}

func TestAllocateCreatesBase(t *testing.T) {
	base := filepath.Join(t.TempDir(), "nested", "output")

	runID, _, err := New(base, 0).Allocate(testDay)
	require.NoError(t, err)
	assert.Equal(t, "2025-10-13_run_001", runID)
}

func TestAllocateSecondRunSameDay(t *testing.T) {
	base := t.TempDir()
	a := New(base, 0)

	first, firstPath, err := a.Allocate(testDay)
	require.NoError(t, err)
	second, _, err := a.Allocate(testDay)
	require.NoError(t, err)

	assert.Equal(t, "2025-10-13_run_001", first)
	assert.Equal(t, "2025-10-13_run_002", second)
	// The earlier run directory is untouched.
	_, statErr := os.Stat(firstPath)
	assert.NoError(t, statErr)
}

func TestAllocateConcurrentUnique(t *testing.T) {
	base := t.TempDir()

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runID, _, err := New(base, 0).Allocate(testDay)
			assert.NoError(t, err)
			ids[i] = runID
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate run id %s", id)
		seen[id] = struct{}{}
	}
}

func TestAllocateExhausted(t *testing.T) {
	base := t.TempDir()
	// With a single attempt, an entry created between the scan and the
	// mkdir exhausts the allocator. The scan counts only directories, so a
	// plain file named like the next candidate stays invisible to it while
	// still making the exclusive mkdir collide.
	a := New(base, 1)
	a2 := New(base, 1)

	_, _, err := a.Allocate(testDay)
	require.NoError(t, err)

	// Second allocator with one attempt scans, sees run_001, targets
	// run_002; a plain file of that name forces the collision.
	require.NoError(t, os.WriteFile(filepath.Join(base, "2025-10-13_run_002"), nil, 0o644))
	_, _, err = a2.Allocate(testDay)
	assert.ErrorIs(t, err, ErrExhausted)
}

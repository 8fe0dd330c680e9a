package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnathan/pagestore/storage"
)

func newPolicyTestFile(t *testing.T, pages int) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "policy.db")
	require.NoError(t, storage.Create(name))
	fs, err := storage.Open(name)
	require.NoError(t, err)
	require.NoError(t, fs.EnsureCapacity(pages))
	require.NoError(t, fs.Close())
	return name
}

func TestLRUKPrefersFramesBelowWindow(t *testing.T) {
	name := newPolicyTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRUK, 2)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)

	// Page 1 is accessed a second time, crossing the K=2 window; pages 2
	// and 3 remain below it and are preferred victims (scored 0).
	pinUnpin(t, bm, 1)

	h, err := bm.PinPage(4)
	require.NoError(t, err)
	require.NoError(t, bm.UnpinPage(h))

	contents := bm.GetFrameContents()
	assert.Contains(t, contents, PageNumber(1))
	assert.Contains(t, contents, PageNumber(4))
}

func TestLRUKCustomWindow(t *testing.T) {
	name := newPolicyTestFile(t, 11)
	bm, err := InitBufferPool(name, 2, LRUK, 3)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()
	assert.Equal(t, 3, bm.k)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "FIFO", FIFO.String())
	assert.Equal(t, "LRU", LRU.String())
	assert.Equal(t, "LFU", LFU.String())
	assert.Equal(t, "LRU-K", LRUK.String())
	assert.Equal(t, "CLOCK", Clock.String())
}

func TestEmptyFramesPreemptScoring(t *testing.T) {
	name := newPolicyTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	// Two frames remain empty; page 2 must land in one of them rather
	// than evicting the resident page 1.
	pinUnpin(t, bm, 2)

	assert.ElementsMatch(t, []PageNumber{1, 2, NoPage}, bm.GetFrameContents())
}

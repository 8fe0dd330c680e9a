package bufferpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pnathan/pagestore/storage"
)

func newTestFile(t *testing.T, pages int) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "pages.db")
	require.NoError(t, storage.Create(name))
	fs, err := storage.Open(name)
	require.NoError(t, err)
	require.NoError(t, fs.EnsureCapacity(pages))
	require.NoError(t, fs.Close())
	return name
}

func pinUnpin(t *testing.T, bm *BufferPool, page PageNumber) {
	t.Helper()
	h, err := bm.PinPage(page)
	require.NoError(t, err)
	require.NoError(t, bm.UnpinPage(h))
}

func TestHitMissStats(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, FIFO, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)

	assert.EqualValues(t, 3, bm.GetNumReadIO())
	assert.EqualValues(t, 0, bm.GetNumWriteIO())
	assert.ElementsMatch(t, []PageNumber{1, 2, 3}, bm.GetFrameContents())
}

func TestDirtyEvictionWritesThrough(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 1, FIFO, nil)
	require.NoError(t, err)

	h, err := bm.PinPage(0)
	require.NoError(t, err)
	copy(h.Data, []byte("A"))
	require.NoError(t, bm.MarkDirty(h))
	require.NoError(t, bm.UnpinPage(h))

	pinUnpin(t, bm, 1)

	assert.EqualValues(t, 1, bm.GetNumWriteIO())
	require.NoError(t, bm.ShutdownBufferPool())

	fs, err := storage.Open(name)
	require.NoError(t, err)
	defer fs.Close()
	buf := make([]byte, storage.PageSize)
	require.NoError(t, fs.ReadBlock(0, buf))
	assert.Equal(t, byte('A'), buf[0])
}

func TestClockRotor(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, Clock, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)
	pinUnpin(t, bm, 4)

	contents := bm.GetFrameContents()
	assert.Equal(t, PageNumber(4), contents[0])

	pinUnpin(t, bm, 5)
	contents = bm.GetFrameContents()
	assert.Equal(t, PageNumber(5), contents[1])
}

func TestLRURecency(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)
	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 4)

	assert.ElementsMatch(t, []PageNumber{1, 3, 4}, bm.GetFrameContents())
}

func TestFIFOEvictsOldest(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, FIFO, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)
	pinUnpin(t, bm, 4)

	assert.ElementsMatch(t, []PageNumber{2, 3, 4}, bm.GetFrameContents())
}

func TestLFUTiesBreakOnIndex(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LFU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 3)
	pinUnpin(t, bm, 4)

	assert.ElementsMatch(t, []PageNumber{2, 3, 4}, bm.GetFrameContents())
}

func TestPinIdempotenceOfView(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	h1, err := bm.PinPage(1)
	require.NoError(t, err)
	h2, err := bm.PinPage(1)
	require.NoError(t, err)

	assert.Same(t, &h1.Data[0], &h2.Data[0])
	assert.Equal(t, 2, bm.GetFixCounts()[bm.index[1]])

	require.NoError(t, bm.UnpinPage(h1))
	require.NoError(t, bm.UnpinPage(h2))
}

func TestUnpinAndMarkDirtyOnNonResidentPage(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	err = bm.UnpinPage(&PageHandle{PageNum: 9})
	require.Error(t, err)
	assert.Equal(t, CodeReadNonExistingPage, ErrCode(err))

	err = bm.MarkDirty(&PageHandle{PageNum: 9})
	require.Error(t, err)
	assert.Equal(t, CodeReadNonExistingPage, ErrCode(err))
}

func TestAllFramesPinnedFailsToSelectVictim(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 2, LRU, nil)
	require.NoError(t, err)
	defer func() {
		h1, _ := bm.PinPage(0)
		bm.UnpinPage(h1)
		h2, _ := bm.PinPage(1)
		bm.UnpinPage(h2)
		bm.ShutdownBufferPool()
	}()

	_, err = bm.PinPage(0)
	require.NoError(t, err)
	_, err = bm.PinPage(1)
	require.NoError(t, err)

	_, err = bm.PinPage(2)
	require.Error(t, err)
	assert.Equal(t, CodeWriteFailed, ErrCode(err))
}

func TestShutdownWithPinnedPageErrors(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 2, LRU, nil)
	require.NoError(t, err)

	h, err := bm.PinPage(0)
	require.NoError(t, err)

	err = bm.ShutdownBufferPool()
	require.Error(t, err)
	assert.Equal(t, CodeFileHandleNotInit, ErrCode(err))

	require.NoError(t, bm.UnpinPage(h))
	require.NoError(t, bm.ShutdownBufferPool())
}

func TestForceFlushPoolClearsDirtyBits(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	for i := PageNumber(0); i < 3; i++ {
		h, err := bm.PinPage(i)
		require.NoError(t, err)
		copy(h.Data, []byte("X"))
		require.NoError(t, bm.MarkDirty(h))
		require.NoError(t, bm.UnpinPage(h))
	}

	require.NoError(t, bm.ForceFlushPool())
	for _, dirty := range bm.GetDirtyFlags() {
		assert.False(t, dirty)
	}
	assert.EqualValues(t, 3, bm.GetNumWriteIO())
}

func TestEnsureCapacityLawViaRawStore(t *testing.T) {
	name := filepath.Join(t.TempDir(), "cap.db")
	require.NoError(t, storage.Create(name))
	fs, err := storage.Open(name)
	require.NoError(t, err)
	require.NoError(t, fs.EnsureCapacity(5))
	assert.Equal(t, 5, fs.TotalNumPages())
	require.NoError(t, fs.EnsureCapacity(3))
	assert.Equal(t, 5, fs.TotalNumPages())
	require.NoError(t, fs.Close())

	raw, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), 4+5*storage.PageSize)
}

func TestRecentlyUsedReflectsTouchOrder(t *testing.T) {
	name := newTestFile(t, 11)
	bm, err := InitBufferPool(name, 3, LRU, nil)
	require.NoError(t, err)
	defer bm.ShutdownBufferPool()

	pinUnpin(t, bm, 1)
	pinUnpin(t, bm, 2)
	pinUnpin(t, bm, 1)

	assert.Equal(t, []PageNumber{1, 2}, bm.RecentlyUsed())
}

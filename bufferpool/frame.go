package bufferpool

import "github.com/pnathan/pagestore/storage"

// PageNumber re-exports storage's page identifier so callers never need to
// import storage directly just to name a page.
type PageNumber = storage.PageNumber

// NoPage is the sentinel meaning "no page resident in this frame".
const NoPage = storage.NoPage

// frame is one slot in the buffer pool. Its data buffer is allocated once,
// at pool init, and reused in place across every page that ever occupies
// the slot.
type frame struct {
	pageNum        PageNumber
	data           []byte
	dirty          bool
	fixCount       int
	loadTime       int64
	lastAccessTime int64
	accessCount    int64
	// history is LRU-K's bounded ring of the last k access timestamps,
	// oldest first. Populated under every strategy, consulted only under
	// LRUK.
	history []int64
}

func newFrame() *frame {
	return &frame{
		pageNum: NoPage,
		data:    make([]byte, storage.PageSize),
	}
}

func (f *frame) empty() bool { return f.pageNum == NoPage }

// reset clears bookkeeping for a frame about to host a freshly-loaded page.
// The data buffer itself is left alone - the caller overwrites it in place.
func (f *frame) reset(pageNum PageNumber, now int64) {
	f.pageNum = pageNum
	f.dirty = false
	f.fixCount = 1
	f.loadTime = now
	f.lastAccessTime = now
	f.accessCount = 1
	f.history = f.history[:0]
}

// recordHit updates per-strategy bookkeeping for a pin that hit an
// already-resident page. LRU-K's history is maintained unconditionally so a
// pool can be switched between LRU-K and another strategy without losing
// the accumulated window (cheap: at most k int64s per frame).
func (f *frame) recordHit(now int64, k int) {
	f.fixCount++
	f.lastAccessTime = now
	f.accessCount++
	f.pushHistory(now, k)
}

func (f *frame) pushHistory(now int64, k int) {
	if k <= 0 {
		k = defaultLRUK
	}
	f.history = append(f.history, now)
	if len(f.history) > k {
		f.history = f.history[len(f.history)-k:]
	}
}

// lruKScore is history[0] once the window is full (k distinct accesses
// observed), else 0 - frames that haven't yet accumulated k accesses are
// preferred victims.
func (f *frame) lruKScore(k int) int64 {
	if k <= 0 {
		k = defaultLRUK
	}
	if len(f.history) >= k {
		return f.history[0]
	}
	return 0
}

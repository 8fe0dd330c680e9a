package bufferpool

import "fmt"

// Strategy selects which replacement policy a BufferPool uses to pick an
// eviction victim among unpinned, resident frames. All five obey the
// universal rule that a pinned frame (fixCount > 0) is never selected.
type Strategy int

const (
	FIFO Strategy = iota
	LRU
	LFU
	LRUK
	Clock
)

func (s Strategy) String() string {
	switch s {
	case FIFO:
		return "FIFO"
	case LRU:
		return "LRU"
	case LFU:
		return "LFU"
	case LRUK:
		return "LRU-K"
	case Clock:
		return "CLOCK"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// defaultLRUK is the K used when InitBufferPool's stratData is nil or not a
// positive int.
const defaultLRUK = 2

// selectVictim picks an eviction candidate: an empty unpinned frame wins
// outright; otherwise the unpinned frame with the minimum policy score
// wins, ties broken by lowest index; if every frame is pinned, selection
// fails. It performs no I/O.
func (bm *BufferPool) selectVictim() (int, bool) {
	if bm.strategy == Clock {
		return bm.selectClockVictim()
	}

	best := -1
	var bestScore int64
	for i, f := range bm.frames {
		if f.fixCount > 0 {
			continue
		}
		if f.empty() {
			return i, true
		}
		score := bm.score(f)
		if best == -1 || score < bestScore {
			best, bestScore = i, score
		}
	}
	if best == -1 {
		return -1, false
	}
	return best, true
}

func (bm *BufferPool) score(f *frame) int64 {
	switch bm.strategy {
	case FIFO:
		return f.loadTime
	case LRU:
		return f.lastAccessTime
	case LFU:
		return f.accessCount
	case LRUK:
		return f.lruKScore(bm.k)
	default:
		return 0
	}
}

// selectClockVictim is a reference-bit-free CLOCK rotor: starting at
// clockHand, the first unpinned frame encountered while scanning
// circularly becomes the victim; an empty frame short-circuits the scan
// per the universal empty-frame-first rule. The rotor always advances to
// one past the selected frame, preserving the invariant that a
// fully-pinned pool leaves the hand untouched.
func (bm *BufferPool) selectClockVictim() (int, bool) {
	n := len(bm.frames)
	for i, f := range bm.frames {
		if f.empty() && f.fixCount == 0 {
			bm.clockHand = (i + 1) % n
			return i, true
		}
	}
	for step := 0; step < n; step++ {
		i := (bm.clockHand + step) % n
		f := bm.frames[i]
		if f.fixCount > 0 {
			continue
		}
		bm.clockHand = (i + 1) % n
		return i, true
	}
	return -1, false
}

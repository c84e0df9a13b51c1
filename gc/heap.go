package gc

import (
	"fmt"

	"github.com/jimbxb/plasma/logging"
)

// HeapStats summarises a heap's state, extending the bare collection
// counter spec.md §8.2 scenario 4 names with the additional counters
// original_source/runtime/pz_gc_util.cpp exposes (SPEC_FULL.md §3.3).
type HeapStats struct {
	Collections   int
	LiveWords     int
	LastFreedCells int
	Blocks        int
}

// Heap is the mark/sweep, non-moving, block-structured heap (spec.md
// §4.2). All runtime allocation goes through it, gated by a Capability
// chain (spec.md §4.3).
type Heap struct {
	chunks  []*bopChunk
	fit     []*fitChunk
	zealous bool
	poison  bool
	log     logging.Logger

	collections    int
	lastFreedCells int
}

// Option configures a Heap at construction.
type Option func(*Heap)

// WithZealousGC forces a collection before every allocation whenever the
// heap is non-empty and the allocating capability may collect
// (spec.md §4.2 alloc step 1) — a development aid for
// shaking out missing roots.
func WithZealousGC(zealous bool) Option {
	return func(h *Heap) { h.zealous = zealous }
}

// WithPoisoning overwrites a swept cell's payload words so a stale pointer
// into freed memory reads garbage instead of its last live value.
func WithPoisoning(poison bool) Option {
	return func(h *Heap) { h.poison = poison }
}

// WithLogger attaches a structured logger; defaults to logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(h *Heap) { h.log = logging.OrNop(l) }
}

// NewHeap constructs an empty heap with one initial BOP chunk and one fit
// chunk (spec.md §4.2).
func NewHeap(opts ...Option) *Heap {
	h := &Heap{
		chunks: []*bopChunk{newBOPChunk()},
		fit:    []*fitChunk{newFitChunk()},
		log:    logging.Nop,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Heap) sizeWords() int {
	total := 0
	for _, ch := range h.chunks {
		for _, b := range ch.allBlocks() {
			live, _ := b.Occupancy()
			total += live * b.cellWords
		}
	}
	return total
}

// Alloc allocates size_in_words words of storage, gated by cap
// (spec.md §4.2 "alloc(size_in_words, cap, opts)"). On exhaustion it
// collects (only if cap.CanGCNow()) and retries once before invoking cap's
// OOM policy.
func (h *Heap) Alloc(sizeWords int, cap *Capability) (uintptr, error) {
	if sizeWords < GCMinCellSize {
		sizeWords = GCMinCellSize
	}

	if h.zealous && h.sizeWords() > 0 && cap.CanGCNow() {
		h.Collect(cap)
	}

	if addr, ok := h.tryAllocate(sizeWords); ok {
		return addr, nil
	}

	if cap.CanGCNow() {
		h.Collect(cap)
		if addr, ok := h.tryAllocate(sizeWords); ok {
			return addr, nil
		}
	}

	cap.OOMPolicy(sizeWords)
	return 0, fmt.Errorf("gc: out of memory allocating %d words", sizeWords)
}

// tryAllocate implements spec.md §4.2 "try_allocate(size_in_words)".
func (h *Heap) tryAllocate(sizeWords int) (uintptr, bool) {
	var best *Block
	bestCellWords := -1
	for _, ch := range h.chunks {
		for cw, blocks := range ch.classes {
			if cw < sizeWords {
				continue
			}
			for _, b := range blocks {
				if b.freeHead >= 0 || b.wildern < b.numCells {
					if bestCellWords == -1 || cw < bestCellWords {
						best, bestCellWords = b, cw
					}
				}
			}
		}
	}
	if best != nil {
		return best.TryAllocate()
	}

	for _, ch := range h.chunks {
		if nb := ch.growBlock(sizeWords); nb != nil {
			return nb.TryAllocate()
		}
	}

	ch := newBOPChunk()
	h.chunks = append(h.chunks, ch)
	if nb := ch.growBlock(sizeWords); nb != nil {
		return nb.TryAllocate()
	}
	return 0, false
}

// Collect performs one full mark/sweep cycle rooted at cap
// (spec.md §4.2 "collect(cap)"). Callers must have already checked
// cap.CanGCNow(); Collect itself does not re-check, since Alloc is the
// only internal caller and it gates both its zealous pre-collection and
// its retry path on CanGCNow.
func (h *Heap) Collect(cap *Capability) HeapStats {
	cap.DoTrace(h)

	freed := 0
	blocks := 0
	for _, ch := range h.chunks {
		for _, b := range ch.allBlocks() {
			freed += b.Sweep(h.poison)
			blocks++
		}
	}

	h.collections++
	h.lastFreedCells = freed

	stats := h.Stats()
	h.log.Info("gc: collection complete",
		"collections", h.collections,
		"freed_cells", freed,
		"live_words", stats.LiveWords,
		"blocks", blocks,
	)
	return stats
}

// Stats reports the heap's current counters (SPEC_FULL.md §3.3).
func (h *Heap) Stats() HeapStats {
	blocks := 0
	for _, ch := range h.chunks {
		blocks += len(ch.allBlocks())
	}
	return HeapStats{
		Collections:    h.collections,
		LiveWords:      h.sizeWords(),
		LastFreedCells: h.lastFreedCells,
		Blocks:         blocks,
	}
}

// GetCollections mirrors the original runtime's heap_get_collections
// (spec.md §8.2 scenario 4).
func (h *Heap) GetCollections() int { return h.collections }

// GetSize mirrors heap_get_size: the total live payload, in words
// (spec.md §8.2 scenario 4).
func (h *Heap) GetSize() int { return h.sizeWords() }

// markRoot masks tag bits from a candidate pointer, snaps it to its
// containing cell via the block bitmap (interior-pointer tolerance,
// spec.md §4.2, §9), and if that cell is a live, unmarked object, marks it
// and recurses into every word of its payload.
func (h *Heap) markRoot(p uintptr) {
	if p == 0 {
		return
	}
	addr := p &^ uintptr((1<<TagBits)-1)

	b, idx := h.findCell(addr)
	if b == nil {
		return
	}
	if !b.isLiveCellStart(idx) {
		return
	}
	if b.isMarked(idx) {
		return
	}
	b.setMarked(idx)

	base := idx * b.cellWords
	for j := 0; j < b.cellWords; j++ {
		h.markRoot(b.words[base+j])
	}
}

// findCell locates the block containing addr and the cell index that addr
// snaps to, or (nil, 0) if addr is not inside any block this heap owns.
func (h *Heap) findCell(addr uintptr) (*Block, int) {
	for _, ch := range h.chunks {
		for _, blocks := range ch.classes {
			for _, b := range blocks {
				if b.contains(addr) {
					return b, b.cellIndexForAddr(addr)
				}
			}
		}
	}
	return nil, 0
}

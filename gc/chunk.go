package gc

import "fmt"

// GCChunkSize is the nominal size, in bytes, of one OS-mapped chunk
// (spec.md §4.2 "GC_Chunk_Size"). Blocks are carved out of a chunk's
// budget until it is exhausted.
const GCChunkSize = 1 << 20 // 1 MiB

// GCMinCellSize is the minimum cell size, in words, any block may hold
// (spec.md §4.2 "GC_Min_Cell_Size").
const GCMinCellSize = 1

// cellsPerNewBlock bounds how many cells a freshly grown block gets, so a
// single size class grows incrementally rather than claiming the whole
// chunk budget on first use.
const cellsPerNewBlock = 256

// bopChunk is a fixed-budget arena partitioned into same-cell-size blocks,
// one size class per distinct cell size a caller has requested
// (spec.md §4.2 "BOP chunk").
type bopChunk struct {
	budgetWords int // remaining word budget for this chunk
	classes     map[int][]*Block
}

func newBOPChunk() *bopChunk {
	return &bopChunk{budgetWords: GCChunkSize / WordSize, classes: make(map[int][]*Block)}
}

// growBlock allocates a new block of the given cell size if the chunk's
// budget allows it (spec.md §4.2 try_allocate step 4: "request a new block
// from the chunk; if the chunk is full, return nullptr").
func (c *bopChunk) growBlock(cellWords int) *Block {
	need := cellWords * cellsPerNewBlock
	if need > c.budgetWords {
		need = c.budgetWords
	}
	cells := need / cellWords
	if cells <= 0 {
		return nil
	}
	b := NewBlock(cellWords, cells)
	c.budgetWords -= cellWords * cells
	c.classes[cellWords] = append(c.classes[cellWords], b)
	return b
}

func (c *bopChunk) blocksFor(cellWords int) []*Block {
	return c.classes[cellWords]
}

func (c *bopChunk) allBlocks() []*Block {
	var all []*Block
	for _, bs := range c.classes {
		all = append(all, bs...)
	}
	return all
}

// fitChunk is a secondary arena reserved for future large-object
// allocation (spec.md §4.2 "Fit chunk"). Plasma's core language has no
// large-object path yet; this type exists so the heap's chunk-kind
// vocabulary matches spec.md, and so a future large-object allocator has
// somewhere to live without changing the Heap's shape.
type fitChunk struct {
	budgetWords int
}

func newFitChunk() *fitChunk {
	return &fitChunk{budgetWords: GCChunkSize / WordSize}
}

func (c *fitChunk) String() string {
	return fmt.Sprintf("fitChunk{budget=%d words}", c.budgetWords)
}

package gc

import "testing"

// TestGCSmoke covers spec.md §8.2 scenario 4: allocate N cells, drop
// references to half, force a collection; the collection counter
// increments by exactly one and the heap's live size does not increase.
func TestGCSmoke(t *testing.T) {
	h := NewHeap()
	root := NewRootCapability("root")
	mut := root.NewCanGCCapability("mutator")

	const n = 20
	addrs := make([]uintptr, n)
	for i := 0; i < n; i++ {
		addr, err := h.Alloc(2, mut)
		if err != nil {
			t.Fatalf("alloc %d: %v", i, err)
		}
		addrs[i] = addr
	}

	// Root only the even-indexed half.
	roots := make([]uintptr, 0, n/2)
	for i := 0; i < n; i += 2 {
		roots = append(roots, addrs[i])
	}
	for i := range roots {
		mut.AddRoot(&roots[i])
	}

	sizeBefore := h.GetSize()
	collectionsBefore := h.GetCollections()

	h.Collect(mut)

	if got := h.GetCollections(); got != collectionsBefore+1 {
		t.Fatalf("collections = %d, want %d", got, collectionsBefore+1)
	}
	if got := h.GetSize(); got > sizeBefore {
		t.Fatalf("size grew after collection: %d > %d", got, sizeBefore)
	}
	if got := h.GetSize(); got != n/2*2 {
		t.Fatalf("size after collection = %d, want %d", got, n/2*2)
	}
}

// TestHeapBitConsistency checks the invariant from spec.md §8.1: after an
// alloc/collect pair, every cell is either live (rooted), on the free
// list, or untouched wilderness — never both allocated and unrooted after
// a sweep.
func TestHeapBitConsistency(t *testing.T) {
	h := NewHeap()
	root := NewRootCapability("root")
	mut := root.NewCanGCCapability("mutator")

	var kept uintptr
	kept, _ = h.Alloc(1, mut)
	_, _ = h.Alloc(1, mut) // dropped
	_, _ = h.Alloc(1, mut) // dropped

	mut.AddRoot(&kept)
	h.Collect(mut)

	b, idx := h.findCell(kept)
	if b == nil {
		t.Fatal("kept object not found in any block")
	}
	if !b.isLiveCellStart(idx) {
		t.Fatal("kept object lost its VALID|ALLOCATED bits")
	}
	if b.isMarked(idx) {
		t.Fatal("mark bit should be cleared after sweep")
	}

	if h.GetSize() != 1 {
		t.Fatalf("size after collect = %d, want 1", h.GetSize())
	}
}

// TestNoGCScopeForbidsCollection checks that a CANNOT_GC ancestor makes
// CanGCNow false regardless of chain position (spec.md §4.3, §8.1).
func TestNoGCScopeForbidsCollection(t *testing.T) {
	root := NewRootCapability("root")
	canGC := root.NewCanGCCapability("mutator")
	scope := EnterNoGCScope(canGC, "loader")
	child := scope.NewCanGCCapability("nested")

	if child.CanGCNow() {
		t.Fatal("CanGCNow should be false with a NoGCScope ancestor")
	}
	scope.Close()
}

// TestNoGCScopeAbortsOnUnacknowledgedOOM checks spec.md §4.3: an OOM
// recorded inside a NoGCScope and never acknowledged aborts on Close.
func TestNoGCScopeAbortsOnUnacknowledgedOOM(t *testing.T) {
	root := NewRootCapability("root")
	scope := EnterNoGCScope(root, "test-scope")

	scope.OOMPolicy(4) // simulate a failed allocation being recorded

	defer func() {
		if recover() == nil {
			t.Fatal("expected Close to abort on unacknowledged OOM")
		}
	}()
	scope.Close()
}

// TestNoGCScopeAcknowledgedOOMDoesNotAbort checks the escape hatch: a
// caller that calls IsOOM() before Close does not trigger an abort.
func TestNoGCScopeAcknowledgedOOMDoesNotAbort(t *testing.T) {
	root := NewRootCapability("root")
	scope := EnterNoGCScope(root, "test-scope")

	scope.OOMPolicy(4)
	if !scope.IsOOM() {
		t.Fatal("IsOOM should report the recorded OOM")
	}
	scope.Close() // must not panic
}

// TestRootScanCompleteness verifies transitive reachability through a
// chain of objects survives collection (spec.md §8.1).
func TestRootScanCompleteness(t *testing.T) {
	h := NewHeap()
	root := NewRootCapability("root")
	mut := root.NewCanGCCapability("mutator")

	a, _ := h.Alloc(1, mut)
	b, _ := h.Alloc(1, mut)
	c, _ := h.Alloc(1, mut)

	// a -> b -> c chain; only a is rooted.
	WriteWord(a, 0, b)
	WriteWord(b, 0, c)

	mut.AddRoot(&a)
	h.Collect(mut)

	for _, addr := range []uintptr{a, b, c} {
		blk, idx := h.findCell(addr)
		if blk == nil || !blk.isLiveCellStart(idx) {
			t.Fatalf("object at %x did not survive collection", addr)
		}
	}
}

// TestInteriorPointerTolerance checks that a pointer into the middle of a
// multi-word cell still resolves to that cell's start (spec.md §4.2, §9).
func TestInteriorPointerTolerance(t *testing.T) {
	h := NewHeap()
	root := NewRootCapability("root")
	mut := root.NewCanGCCapability("mutator")

	addr, _ := h.Alloc(4, mut)
	interior := addr + uintptr(2*WordSize)

	b, idx := h.findCell(interior)
	if b == nil {
		t.Fatal("interior pointer did not resolve to any block")
	}
	base, idx2 := h.findCell(addr)
	if base != b || idx != idx2 {
		t.Fatal("interior pointer resolved to a different cell than the object's start")
	}
}

// TestZealousGCForcesCollectionBeforeAlloc exercises the "GC-zealous" flag
// (spec.md §4.2 alloc step 1).
func TestZealousGCForcesCollectionBeforeAlloc(t *testing.T) {
	h := NewHeap(WithZealousGC(true))
	root := NewRootCapability("root")
	mut := root.NewCanGCCapability("mutator")

	var kept uintptr
	kept, _ = h.Alloc(1, mut)
	mut.AddRoot(&kept)

	collectionsBefore := h.GetCollections()
	if _, err := h.Alloc(1, mut); err != nil {
		t.Fatal(err)
	}
	if h.GetCollections() <= collectionsBefore {
		t.Fatal("zealous mode should have forced a collection before the second alloc")
	}
}

// pools.go
//
// Fixed-size node pools and size-bucketed data pools.  Series nodes come
// out of segment-backed free lists; dynamic buffers are routed by a lookup
// table from requested byte size to a bucket, with a system-heap fallback
// for large requests.  Every allocation pays down a "ballast" counter;
// crossing zero raises the RECYCLE signal, honored later at a safe point.
//
// Series start life on the "manuals" list unless managed allocation is
// requested: every series either becomes managed or is freed before the
// scope that allocated it unwinds.

package reb

const (
	nodesPerSegment = 256

	// Data buckets in bytes; requests above the last bucket go to the
	// system heap (optionally rounded up to a power of two).
	maxPooledBytes = 2048
)

var poolBucketSizes = []int{16, 32, 64, 128, 256, 512, 1024, 2048}

// poolForSize maps a byte size to a bucket index, or -1 for the system
// pool.  Built once; mirrors the wide lookup-table approach of the
// allocator it models.
var poolForSize = func() [maxPooledBytes + 1]int8 {
	var t [maxPooledBytes + 1]int8
	b := 0
	for sz := 0; sz <= maxPooledBytes; sz++ {
		for poolBucketSizes[b] < sz {
			b++
		}
		t[sz] = int8(b)
	}
	return t
}()

type nodePool struct {
	segments [][]Series
	free     *Series
	liveCount int
}

type dataPool struct {
	freeBytes [][][]byte // per bucket index, a stack of reusable slabs
	freeCells [][][]Cell
}

// allocSeriesNode returns a series-sized node with the header set and the
// rest of the node in a defined-but-empty state.
func (rt *Runtime) allocSeriesNode(flags uint64) *Series {
	p := &rt.nodes
	if p.free == nil {
		seg := make([]Series, nodesPerSegment)
		p.segments = append(p.segments, seg)
		for i := range seg {
			seg[i].header = nodeFlagFree
			seg[i].nextFree = p.free
			p.free = &seg[i]
		}
	}
	s := p.free
	p.free = s.nextFree
	p.liveCount++

	*s = Series{header: nodeFlagNode | flags}
	rt.payBallast(nodeBytes)

	if flags&nodeFlagManaged == 0 {
		rt.manuals = append(rt.manuals, s)
	}
	return s
}

const nodeBytes = 64 // accounting size of one pool node

// allocPairing returns a pairing: two cells in one series-node-sized
// allocation.  Pairings are GC-visible through the cells that point at
// them; they are managed immediately unless flags say otherwise.
func (rt *Runtime) allocPairing(flags uint64) *Series {
	p := rt.allocSeriesNode(flags | seriesFlagIsPairing | nodeFlagManaged)
	p.leader[0].Erase()
	p.leader[1].Erase()
	return p
}

// seriesDataAlloc attaches a dynamic buffer with at least the requested
// element capacity, recording rest as the true capacity granted.
func (rt *Runtime) seriesDataAlloc(s *Series, capacity int) {
	rt.seriesDataAllocRaw(s, capacity)
	s.used = 0
	s.bias = 0
}

func (rt *Runtime) seriesDataAllocRaw(s *Series, capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if s.isArray() {
		slab := rt.takeCellSlab(capacity)
		s.cells = slab
		s.rest = len(slab)
		rt.payBallast(len(slab) * cellBytes)
	} else {
		byteCap := capacity * s.wide()
		slab := rt.takeByteSlab(byteCap, s.getFlag(seriesFlagPowerOf2))
		s.data = slab
		s.rest = len(slab) / s.wide()
		rt.payBallast(len(slab))
	}
	s.bias = 0
	s.used = 0
	s.setLenByte(lenByteDynamic)
}

const cellBytes = 32 // accounting size of one cell

func (rt *Runtime) takeByteSlab(size int, powerOf2 bool) []byte {
	if size > maxPooledBytes {
		if powerOf2 {
			n := 1
			for n < size {
				n <<= 1
			}
			size = n
		}
		return make([]byte, size)
	}
	b := int(poolForSize[size])
	if free := rt.dataPools.freeBytes[b]; len(free) > 0 {
		slab := free[len(free)-1]
		rt.dataPools.freeBytes[b] = free[:len(free)-1]
		for i := range slab {
			slab[i] = 0
		}
		return slab
	}
	return make([]byte, poolBucketSizes[b])
}

func (rt *Runtime) takeCellSlab(count int) []Cell {
	size := count * cellBytes
	if size > maxPooledBytes {
		return make([]Cell, count)
	}
	b := int(poolForSize[size])
	granted := poolBucketSizes[b] / cellBytes
	if free := rt.dataPools.freeCells[b]; len(free) > 0 {
		slab := free[len(free)-1]
		rt.dataPools.freeCells[b] = free[:len(free)-1]
		for i := range slab {
			slab[i] = Cell{}
		}
		return slab
	}
	return make([]Cell, granted)
}

// releaseSeriesData returns a dynamic buffer to its bucket.
func (rt *Runtime) releaseSeriesData(s *Series) {
	if s.cells != nil {
		size := len(s.cells) * cellBytes
		if size <= maxPooledBytes {
			b := int(poolForSize[size])
			rt.dataPools.freeCells[b] = append(rt.dataPools.freeCells[b], s.cells)
		}
		s.cells = nil
	}
	if s.data != nil {
		size := len(s.data)
		if size <= maxPooledBytes && size > 0 && cap(s.data) == size {
			b := int(poolForSize[size])
			rt.dataPools.freeBytes[b] = append(rt.dataPools.freeBytes[b], s.data)
		}
		s.data = nil
	}
	s.rest = 0
	s.used = 0
	s.bias = 0
}

// freeSeriesNode returns the node itself to the pool free list.
func (rt *Runtime) freeSeriesNode(s *Series) {
	rt.releaseSeriesData(s)
	*s = Series{header: nodeFlagFree}
	s.nextFree = rt.nodes.free
	rt.nodes.free = s
	rt.nodes.liveCount--
}

// ---------------------------------------------------------------------------
// Manual lifetime
// ---------------------------------------------------------------------------

// manageSeries hands a manual series to the GC: it is removed from the
// manuals list and flagged managed.
func (rt *Runtime) manageSeries(s *Series) *Series {
	if s.isManaged() {
		return s
	}
	rt.removeFromManuals(s)
	s.setFlag(nodeFlagManaged)
	return s
}

// freeUnmanagedSeries is only legal on series still on the manuals list.
func (rt *Runtime) freeUnmanagedSeries(s *Series) {
	if s.isManaged() {
		panicDiag("freeUnmanagedSeries on managed series")
	}
	rt.removeFromManuals(s)
	rt.freeSeriesNode(s)
}

func (rt *Runtime) removeFromManuals(s *Series) {
	m := rt.manuals
	// Nearly always the most recent allocation; scan backward.
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] == s {
			copy(m[i:], m[i+1:])
			rt.manuals = m[:len(m)-1]
			return
		}
	}
	panicDiag("series not on manuals list")
}

// dropManualsTo frees every manual series allocated after a checkpoint;
// used by the trap handler when a fail unwinds.
func (rt *Runtime) dropManualsTo(mark int) {
	for len(rt.manuals) > mark {
		s := rt.manuals[len(rt.manuals)-1]
		rt.manuals = rt.manuals[:len(rt.manuals)-1]
		rt.freeSeriesNode(s)
	}
}

// ---------------------------------------------------------------------------
// Ballast
// ---------------------------------------------------------------------------

func (rt *Runtime) payBallast(bytes int) {
	rt.totalManagedBytes += bytes
	rt.ballast -= bytes
	if rt.ballast < 0 {
		rt.setSignal(sigRecycle)
	}
}

package host

import xlw "github.com/davidclayton/xlw"

// Allocation tracks a single host memory allocation
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList tracks the live allocations of one scope, keyed by pointer.
type AllocationList struct {
	live  map[uint32]Allocation
	bytes uint64
}

func NewAllocationList() *AllocationList {
	return &AllocationList{live: make(map[uint32]Allocation, 8)}
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	if ptr == 0 {
		return
	}
	al.live[ptr] = Allocation{Ptr: ptr, Size: size, Align: align}
	al.bytes += uint64(size)
}

// Take removes ptr from the list without freeing it.
func (al *AllocationList) Take(ptr uint32) (Allocation, bool) {
	a, ok := al.live[ptr]
	if ok {
		delete(al.live, ptr)
		al.bytes -= uint64(a.Size)
	}
	return a, ok
}

func (al *AllocationList) Has(ptr uint32) bool {
	_, ok := al.live[ptr]
	return ok
}

// Free releases every allocation through allocator and empties the list.
func (al *AllocationList) Free(allocator xlw.Allocator) {
	if allocator != nil {
		for _, a := range al.live {
			allocator.Free(a.Ptr, a.Size, a.Align)
		}
	}
	al.Reset()
}

func (al *AllocationList) Reset() {
	clear(al.live)
	al.bytes = 0
}

func (al *AllocationList) Count() int {
	return len(al.live)
}

func (al *AllocationList) Bytes() uint64 {
	return al.bytes
}

package simhost

import (
	"fmt"
	"sort"
	"sync"
)

// heapBase keeps pointer 0 and the first bytes unused so a null pointer is
// never a valid allocation.
const heapBase = 64

type span struct {
	off  uint32
	size uint32
}

// allocator is a first-fit free list over a growable linear memory.
type allocator struct {
	mem  *Memory
	free []span // sorted by offset, coalesced
	used map[uint32]span
	mu   sync.Mutex
}

func newAllocator(mem *Memory) *allocator {
	a := &allocator{mem: mem, used: make(map[uint32]span)}
	if size := mem.Size(); size > heapBase {
		a.free = []span{{off: heapBase, size: size - heapBase}}
	}
	return a
}

func alignUp(v, align uint32) uint32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func (a *allocator) alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if align < 8 {
		align = 8
	}
	size = alignUp(size, 8)

	a.mu.Lock()
	defer a.mu.Unlock()

	for {
		if ptr, ok := a.fit(size, align); ok {
			return ptr, nil
		}
		if !a.grow(size + align) {
			return 0, fmt.Errorf("out of host memory: %d bytes requested, %d in use", size, a.inUse())
		}
	}
}

func (a *allocator) fit(size, align uint32) (uint32, bool) {
	for i, s := range a.free {
		start := alignUp(s.off, align)
		end := s.off + s.size
		if start+size > end || start+size < start {
			continue
		}
		var rest []span
		if start > s.off {
			rest = append(rest, span{off: s.off, size: start - s.off})
		}
		if start+size < end {
			rest = append(rest, span{off: start + size, size: end - start - size})
		}
		a.free = append(a.free[:i], append(rest, a.free[i+1:]...)...)
		a.used[start] = span{off: start, size: size}
		return start, true
	}
	return 0, false
}

func (a *allocator) grow(need uint32) bool {
	pages := (need + pageSize - 1) / pageSize
	prev, ok := a.mem.grow(pages)
	if !ok {
		return false
	}
	a.insert(span{off: prev * pageSize, size: pages * pageSize})
	return true
}

func (a *allocator) release(ptr uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.used[ptr]
	if !ok {
		return false
	}
	delete(a.used, ptr)
	a.insert(s)
	return true
}

// insert adds s to the free list and merges it with adjacent spans.
func (a *allocator) insert(s span) {
	i := sort.Search(len(a.free), func(i int) bool { return a.free[i].off >= s.off })
	a.free = append(a.free, span{})
	copy(a.free[i+1:], a.free[i:])
	a.free[i] = s

	if i+1 < len(a.free) && a.free[i].off+a.free[i].size == a.free[i+1].off {
		a.free[i].size += a.free[i+1].size
		a.free = append(a.free[:i+1], a.free[i+2:]...)
	}
	if i > 0 && a.free[i-1].off+a.free[i-1].size == a.free[i].off {
		a.free[i-1].size += a.free[i].size
		a.free = append(a.free[:i], a.free[i+1:]...)
	}
}

func (a *allocator) inUse() uint64 {
	var n uint64
	for _, s := range a.used {
		n += uint64(s.size)
	}
	return n
}

func (a *allocator) live() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

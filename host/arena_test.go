package host

import "testing"

type countingAllocator struct {
	freed map[uint32]uint32
}

func (c *countingAllocator) Alloc(size, align uint32) (uint32, error) { return 0, nil }
func (c *countingAllocator) Free(ptr, size, align uint32)             { c.freed[ptr] = size }

func TestAllocationList(t *testing.T) {
	al := NewAllocationList()
	al.Add(16, 32, 8)
	al.Add(64, 8, 8)
	al.Add(0, 100, 8) // null is never tracked

	if al.Count() != 2 || al.Bytes() != 40 {
		t.Fatalf("Count = %d, Bytes = %d", al.Count(), al.Bytes())
	}
	if !al.Has(16) || al.Has(0) {
		t.Error("Has wrong")
	}

	a, ok := al.Take(16)
	if !ok || a.Size != 32 {
		t.Errorf("Take = %+v, %v", a, ok)
	}
	if _, ok := al.Take(16); ok {
		t.Error("second Take succeeded")
	}

	c := &countingAllocator{freed: map[uint32]uint32{}}
	al.Free(c)
	if len(c.freed) != 1 || c.freed[64] != 8 {
		t.Errorf("freed = %v", c.freed)
	}
	if al.Count() != 0 || al.Bytes() != 0 {
		t.Error("list not reset after Free")
	}
}

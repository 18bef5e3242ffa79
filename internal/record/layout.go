// Package record implements the two physical variant record layouts.
//
// Legacy record, 16 bytes, align 8:
//
//	0  value union (8)   num f64 | int i16 | bool u16 | err u16 | str ptr u32
//	                     multi: ptr u32, rows u16 @4, columns u16 @6
//	                     sref:  count u16, XLREF @2 {rwFirst u16, rwLast u16, colFirst u8, colLast u8}
//	                     mref:  list ptr u32, idSheet u32 @4
//	8  xltype u16
//
// Modern record, 32 bytes, align 8:
//
//	0  value union (24)  num f64 | int i32 | bool u32 | err u32 | str ptr u32
//	                     multi: ptr u32, rows u32 @4, columns u32 @8
//	                     sref:  count u16, XLREF12 @4 {rwFirst, rwLast, colFirst, colLast i32}
//	                     mref:  list ptr u32, idSheet u64 @8
//	24 xltype u32
//
// Reference lists start with a u16 count; legacy entries follow at +2
// (6 bytes each), modern entries at +4 (16 bytes each). Strings are length
// prefixed: a byte count then Windows-1252 bytes (legacy) or a u16 count then
// UTF-16LE units (modern). Neither is zero-terminated.
package record

import (
	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// Align is the alignment of records and payload buffers.
const Align = 8

// Array is the multi-cell payload descriptor of a record.
type Array struct {
	Ptr  uint32
	Rows uint32
	Cols uint32
}

// Count returns rows x columns.
func (a Array) Count() uint32 { return a.Rows * a.Cols }

// Layout reads and writes one physical record format. Exactly two
// implementations exist: Legacy and Modern.
type Layout interface {
	ABI() xlcall.ABI
	Size() uint32

	Type(m xlw.Memory, p uint32) (xlcall.Type, error)
	SetType(m xlw.Memory, p uint32, t xlcall.Type) error

	Num(m xlw.Memory, p uint32) (float64, error)
	SetNum(m xlw.Memory, p uint32, v float64) error
	Int(m xlw.Memory, p uint32) (int32, error)
	SetInt(m xlw.Memory, p uint32, v int16) error
	Bool(m xlw.Memory, p uint32) (bool, error)
	SetBool(m xlw.Memory, p uint32, v bool) error
	Err(m xlw.Memory, p uint32) (xlcall.ErrorCode, error)
	SetErr(m xlw.Memory, p uint32, code xlcall.ErrorCode) error
	Str(m xlw.Memory, p uint32) (uint32, error)
	SetStr(m xlw.Memory, p uint32, ptr uint32) error

	Array(m xlw.Memory, p uint32) (Array, error)
	// SetArray fails with an abi_limit error when a dimension does not fit.
	SetArray(m xlw.Memory, p uint32, a Array) error
	MaxArrayRows() uint32
	MaxArrayCols() uint32

	SRef(m xlw.Memory, p uint32) (xlref.Rect, error)
	SetSRef(m xlw.Memory, p uint32, r xlref.Rect) error
	MRef(m xlw.Memory, p uint32) (list uint32, sheet uint64, err error)
	SetMRef(m xlw.Memory, p uint32, list uint32, sheet uint64) error
	RefListSize(n int) uint32
	RefList(m xlw.Memory, list uint32) ([]xlref.Rect, error)
	WriteRefList(m xlw.Memory, list uint32, areas []xlref.Rect) error
	// CheckRect fails with an abi_limit error for areas outside the sheet.
	CheckRect(r xlref.Rect) error

	MaxString() int
	EncodeString(s string) ([]byte, error)
	EncodeUnits(u []uint16) ([]byte, error)
	// StringPayload reads the full length-prefixed payload at ptr.
	StringPayload(m xlw.Memory, ptr uint32) ([]byte, error)
	DecodeString(payload []byte) (string, error)
	DecodeUnits(payload []byte) ([]uint16, error)

	sealed()
}

var (
	Legacy Layout = legacy{}
	Modern Layout = modern{}
)

// For returns the layout of an ABI version; unknown versions map to Legacy.
func For(abi xlcall.ABI) Layout {
	if abi == xlcall.ABIModern {
		return Modern
	}
	return Legacy
}

// Element returns the address of element i of an array payload.
func Element(l Layout, a Array, i uint32) uint32 {
	return a.Ptr + i*l.Size()
}

// Clear zeroes a record.
func Clear(l Layout, m xlw.Memory, p uint32) error {
	return m.Write(p, make([]byte, l.Size()))
}

// Payloads lists the buffers a record points at: the string payload, the
// element string payloads and array buffer of a multi, or the reference
// list. Records without a payload yield nothing.
func Payloads(l Layout, m xlw.Memory, p uint32) ([]uint32, error) {
	t, err := l.Type(m, p)
	if err != nil {
		return nil, err
	}
	switch t.Base() {
	case xlcall.TypeStr:
		s, err := l.Str(m, p)
		if err != nil || s == 0 {
			return nil, err
		}
		return []uint32{s}, nil

	case xlcall.TypeMulti:
		a, err := l.Array(m, p)
		if err != nil || a.Ptr == 0 {
			return nil, err
		}
		var out []uint32
		for i := uint32(0); i < a.Count(); i++ {
			ep := Element(l, a, i)
			et, err := l.Type(m, ep)
			if err != nil {
				return nil, err
			}
			if et.Base() != xlcall.TypeStr {
				continue
			}
			s, err := l.Str(m, ep)
			if err != nil {
				return nil, err
			}
			if s != 0 {
				out = append(out, s)
			}
		}
		return append(out, a.Ptr), nil

	case xlcall.TypeRef:
		list, _, err := l.MRef(m, p)
		if err != nil || list == 0 {
			return nil, err
		}
		return []uint32{list}, nil
	}
	return nil, nil
}

// common holds the accessors both layouts share.
type common struct{}

func (common) Num(m xlw.Memory, p uint32) (float64, error) {
	bits, err := m.ReadU64(p)
	if err != nil {
		return 0, err
	}
	return float64frombits(bits), nil
}

func (common) SetNum(m xlw.Memory, p uint32, v float64) error {
	return m.WriteU64(p, float64bits(v))
}

func (common) Str(m xlw.Memory, p uint32) (uint32, error) {
	return m.ReadU32(p)
}

func (common) SetStr(m xlw.Memory, p uint32, ptr uint32) error {
	return m.WriteU32(p, ptr)
}

func (common) sealed() {}

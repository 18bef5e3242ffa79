package simhost

import (
	"math"

	"go.uber.org/zap"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// scalarOrder is the preference when a coercion target names several types.
var scalarOrder = []xlcall.Type{xlcall.TypeNum, xlcall.TypeStr, xlcall.TypeBool, xlcall.TypeErr, xlcall.TypeInt}

// Coerce converts the record at src into target and writes the result into
// the record at dst. A target naming several types accepts the first one
// the value converts to. Payloads allocated here are flagged XLFree and
// released by FreeAux.
func (h *Host) Coerce(src uint32, target xlcall.Type, dst uint32) xlcall.Ret {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, err := h.layout.Type(h.mem, src)
	if err != nil {
		return xlcall.RetInvXloper
	}
	base := t.Base()
	target = target.Base()
	if target == 0 {
		return xlcall.RetInvXloper
	}

	var ret xlcall.Ret
	switch {
	case base&target != 0:
		ret = h.copyRecord(src, base, dst)
	case target&xlcall.TypeMulti != 0:
		ret = h.toMulti(src, base, dst)
	default:
		ret = xlcall.RetInvXloper
		v, r := h.scalar(src, base)
		if !r.OK() {
			ret = r
			break
		}
		for _, want := range scalarOrder {
			if target&want == 0 {
				continue
			}
			if ret = h.writeScalar(dst, v, want); ret.OK() {
				break
			}
		}
	}
	if !ret.OK() {
		for _, p := range h.aux[dst] {
			h.alloc.release(p)
		}
		delete(h.aux, dst)
	}
	h.log.Debug("coerce",
		zap.Uint32("src", src),
		zap.Stringer("from", base),
		zap.Stringer("to", target),
		zap.Stringer("ret", ret))
	return ret
}

// scalar reads src as a single cell value. References resolve to their
// top-left cell and arrays to their first element.
func (h *Host) scalar(src uint32, base xlcall.Type) (cellmatrix.CellValue, xlcall.Ret) {
	l, m := h.layout, h.mem
	switch base {
	case xlcall.TypeNum:
		v, err := l.Num(m, src)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Number(v), xlcall.RetSuccess
	case xlcall.TypeInt:
		v, err := l.Int(m, src)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Number(float64(v)), xlcall.RetSuccess
	case xlcall.TypeBool:
		v, err := l.Bool(m, src)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Bool(v), xlcall.RetSuccess
	case xlcall.TypeErr:
		v, err := l.Err(m, src)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Error(v), xlcall.RetSuccess
	case xlcall.TypeStr:
		s, err := h.readString(src)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.String(s), xlcall.RetSuccess
	case xlcall.TypeNil, xlcall.TypeMissing:
		return cellmatrix.Empty(), xlcall.RetSuccess
	case xlcall.TypeSRef, xlcall.TypeRef:
		sheet, areas, ok := h.readRef(src, base)
		if !ok {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		s, ok := h.sheetLocked(sheet)
		if !ok {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return s.Get(areas[0].RowFirst, areas[0].ColFirst), xlcall.RetSuccess
	case xlcall.TypeMulti:
		a, err := l.Array(m, src)
		if err != nil || a.Count() == 0 {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		first := record.Element(l, a, 0)
		et, err := l.Type(m, first)
		if err != nil || et.Base() == xlcall.TypeMulti {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return h.scalar(first, et.Base())
	}
	return cellmatrix.Empty(), xlcall.RetInvXloper
}

// convert applies the host's scalar conversion rules.
func (h *Host) convert(v cellmatrix.CellValue, want xlcall.Type) (cellmatrix.CellValue, bool) {
	switch want {
	case xlcall.TypeNum, xlcall.TypeInt:
		switch v.Kind() {
		case cellmatrix.KindNumber:
			return v, true
		case cellmatrix.KindBool:
			if v.BoolValue() {
				return cellmatrix.Number(1), true
			}
			return cellmatrix.Number(0), true
		case cellmatrix.KindString:
			n, ok := record.ParseNumber(v.StringValue(), h.sep)
			return cellmatrix.Number(n), ok
		case cellmatrix.KindEmpty:
			return cellmatrix.Number(0), true
		}
	case xlcall.TypeStr:
		switch v.Kind() {
		case cellmatrix.KindNumber:
			return cellmatrix.String(record.FormatNumber(v.NumericValue())), true
		case cellmatrix.KindBool, cellmatrix.KindString, cellmatrix.KindEmpty:
			return cellmatrix.String(v.String()), true
		}
	case xlcall.TypeBool:
		switch v.Kind() {
		case cellmatrix.KindNumber:
			return cellmatrix.Bool(v.NumericValue() != 0), true
		case cellmatrix.KindBool:
			return v, true
		case cellmatrix.KindString:
			b, ok := record.ParseBool(v.StringValue())
			return cellmatrix.Bool(b), ok
		case cellmatrix.KindEmpty:
			return cellmatrix.Bool(false), true
		}
	case xlcall.TypeErr:
		if v.IsError() {
			return v, true
		}
	}
	return cellmatrix.Empty(), false
}

func (h *Host) writeScalar(dst uint32, v cellmatrix.CellValue, want xlcall.Type) xlcall.Ret {
	c, ok := h.convert(v, want)
	if !ok {
		return xlcall.RetInvXloper
	}
	l, m := h.layout, h.mem
	if err := record.Clear(l, m, dst); err != nil {
		return xlcall.RetFailed
	}
	var err error
	switch want {
	case xlcall.TypeNum:
		err = l.SetNum(m, dst, c.NumericValue())
	case xlcall.TypeInt:
		n := math.Trunc(c.NumericValue())
		if n < math.MinInt16 || n > math.MaxInt16 {
			return xlcall.RetInvXloper
		}
		err = l.SetInt(m, dst, int16(n))
	case xlcall.TypeBool:
		err = l.SetBool(m, dst, c.BoolValue())
	case xlcall.TypeErr:
		err = l.SetErr(m, dst, c.ErrorValue())
	case xlcall.TypeStr:
		return h.writeString(dst, dst, c.StringValue(), true)
	}
	if err != nil {
		return xlcall.RetFailed
	}
	if err := l.SetType(m, dst, want); err != nil {
		return xlcall.RetFailed
	}
	return xlcall.RetSuccess
}

// writeString stores s as a host-owned payload of owner and points the
// record at rec to it.
func (h *Host) writeString(rec, owner uint32, s string, flag bool) xlcall.Ret {
	l, m := h.layout, h.mem
	payload, err := l.EncodeString(s)
	if err != nil {
		return xlcall.RetInvXloper
	}
	ptr, ok := h.hostAlloc(owner, uint32(len(payload)))
	if !ok {
		return xlcall.RetFailed
	}
	if err := m.Write(ptr, payload); err != nil {
		return xlcall.RetFailed
	}
	if err := l.SetStr(m, rec, ptr); err != nil {
		return xlcall.RetFailed
	}
	t := xlcall.TypeStr
	if flag {
		t |= xlcall.BitXLFree
	}
	if err := l.SetType(m, rec, t); err != nil {
		return xlcall.RetFailed
	}
	return xlcall.RetSuccess
}

func (h *Host) hostAlloc(owner, size uint32) (uint32, bool) {
	ptr, err := h.alloc.alloc(size, record.Align)
	if err != nil {
		h.log.Debug("coerce payload denied", zap.Uint32("size", size), zap.Error(err))
		return 0, false
	}
	h.aux[owner] = append(h.aux[owner], ptr)
	return ptr, true
}

func (h *Host) readString(rec uint32) (string, error) {
	ptr, err := h.layout.Str(h.mem, rec)
	if err != nil {
		return "", err
	}
	if ptr == 0 {
		return "", nil
	}
	payload, err := h.layout.StringPayload(h.mem, ptr)
	if err != nil {
		return "", err
	}
	return h.layout.DecodeString(payload)
}

func (h *Host) readRef(rec uint32, base xlcall.Type) (uint64, []xlref.Rect, bool) {
	l, m := h.layout, h.mem
	if base == xlcall.TypeSRef {
		r, err := l.SRef(m, rec)
		if err != nil {
			return 0, nil, false
		}
		return xlref.CurrentSheet, []xlref.Rect{r}, true
	}
	list, sheet, err := l.MRef(m, rec)
	if err != nil || list == 0 {
		return 0, nil, false
	}
	areas, err := l.RefList(m, list)
	if err != nil || len(areas) == 0 {
		return 0, nil, false
	}
	return sheet, areas, true
}

// toMulti builds an array from a reference's cells or wraps a scalar as 1x1.
func (h *Host) toMulti(src uint32, base xlcall.Type, dst uint32) xlcall.Ret {
	var cells *cellmatrix.CellMatrix
	switch base {
	case xlcall.TypeSRef, xlcall.TypeRef:
		sheet, areas, ok := h.readRef(src, base)
		if !ok || len(areas) != 1 {
			return xlcall.RetInvXloper
		}
		s, ok := h.sheetLocked(sheet)
		if !ok {
			return xlcall.RetInvXloper
		}
		m, err := s.Area(areas[0])
		if err != nil {
			return xlcall.RetInvXloper
		}
		cells = m
	default:
		v, ret := h.scalar(src, base)
		if !ret.OK() {
			return ret
		}
		cells, _ = cellmatrix.FromRows([][]cellmatrix.CellValue{{v}})
	}
	return h.writeMatrix(dst, cells)
}

func (h *Host) writeMatrix(dst uint32, cells *cellmatrix.CellMatrix) xlcall.Ret {
	l, m := h.layout, h.mem
	rows, cols := uint32(cells.Rows()), uint32(cells.Columns())
	if rows > l.MaxArrayRows() || cols > l.MaxArrayCols() {
		return xlcall.RetInvXloper
	}
	buf, ok := h.hostAlloc(dst, rows*cols*l.Size())
	if !ok {
		return xlcall.RetFailed
	}
	if err := m.Write(buf, make([]byte, rows*cols*l.Size())); err != nil {
		return xlcall.RetFailed
	}
	for i, v := range cells.Values() {
		if ret := h.writeCell(record.Element(l, record.Array{Ptr: buf}, uint32(i)), dst, v); !ret.OK() {
			return ret
		}
	}
	if err := record.Clear(l, m, dst); err != nil {
		return xlcall.RetFailed
	}
	if err := l.SetArray(m, dst, record.Array{Ptr: buf, Rows: rows, Cols: cols}); err != nil {
		return xlcall.RetInvXloper
	}
	if err := l.SetType(m, dst, xlcall.TypeMulti|xlcall.BitXLFree); err != nil {
		return xlcall.RetFailed
	}
	return xlcall.RetSuccess
}

func (h *Host) writeCell(at, owner uint32, v cellmatrix.CellValue) xlcall.Ret {
	l, m := h.layout, h.mem
	var err error
	switch v.Kind() {
	case cellmatrix.KindNumber:
		if err = l.SetNum(m, at, v.NumericValue()); err == nil {
			err = l.SetType(m, at, xlcall.TypeNum)
		}
	case cellmatrix.KindString:
		return h.writeString(at, owner, v.StringValue(), false)
	case cellmatrix.KindBool:
		if err = l.SetBool(m, at, v.BoolValue()); err == nil {
			err = l.SetType(m, at, xlcall.TypeBool)
		}
	case cellmatrix.KindError:
		if err = l.SetErr(m, at, v.ErrorValue()); err == nil {
			err = l.SetType(m, at, xlcall.TypeErr)
		}
	default:
		err = l.SetType(m, at, xlcall.TypeNil)
	}
	if err != nil {
		return xlcall.RetFailed
	}
	return xlcall.RetSuccess
}

// copyRecord deep-copies src into dst, duplicating any payload.
func (h *Host) copyRecord(src uint32, base xlcall.Type, dst uint32) xlcall.Ret {
	l, m := h.layout, h.mem
	switch base {
	case xlcall.TypeStr:
		s, err := h.readString(src)
		if err != nil {
			return xlcall.RetInvXloper
		}
		if err := record.Clear(l, m, dst); err != nil {
			return xlcall.RetFailed
		}
		return h.writeString(dst, dst, s, true)

	case xlcall.TypeMulti:
		a, err := l.Array(m, src)
		if err != nil || a.Count() == 0 {
			return xlcall.RetInvXloper
		}
		cells, err := cellmatrix.New(int(a.Rows), int(a.Cols))
		if err != nil {
			return xlcall.RetInvXloper
		}
		for i := uint32(0); i < a.Count(); i++ {
			ep := record.Element(l, a, i)
			et, err := l.Type(m, ep)
			if err != nil {
				return xlcall.RetInvXloper
			}
			v, ret := h.scalar(ep, et.Base())
			if !ret.OK() {
				return ret
			}
			_ = cells.SetCell(int(i/a.Cols), int(i%a.Cols), v)
		}
		return h.writeMatrix(dst, cells)

	case xlcall.TypeRef:
		sheet, areas, ok := h.readRef(src, base)
		if !ok {
			return xlcall.RetInvXloper
		}
		list, ok := h.hostAlloc(dst, l.RefListSize(len(areas)))
		if !ok {
			return xlcall.RetFailed
		}
		if err := l.WriteRefList(m, list, areas); err != nil {
			return xlcall.RetInvXloper
		}
		if err := record.Clear(l, m, dst); err != nil {
			return xlcall.RetFailed
		}
		if err := l.SetMRef(m, dst, list, sheet); err != nil {
			return xlcall.RetInvXloper
		}
		if err := l.SetType(m, dst, xlcall.TypeRef|xlcall.BitXLFree); err != nil {
			return xlcall.RetFailed
		}
		return xlcall.RetSuccess
	}

	raw, err := m.Read(src, l.Size())
	if err != nil {
		return xlcall.RetInvXloper
	}
	if err := m.Write(dst, append([]byte(nil), raw...)); err != nil {
		return xlcall.RetFailed
	}
	if err := l.SetType(m, dst, base); err != nil {
		return xlcall.RetFailed
	}
	return xlcall.RetSuccess
}

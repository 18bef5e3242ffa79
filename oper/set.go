package oper

import (
	"math"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

func memErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.Error); ok {
		return err
	}
	return errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, what)
}

// prepare releases the record's own payload and zeroes it.
func (b base) prepare(s *host.Session, p uint32) error {
	if err := s.ReleaseAuxiliaryMemory(p); err != nil {
		return err
	}
	return memErr(record.Clear(b.l, s.Memory(), p), "clear record")
}

func (b base) setTag(s *host.Session, p uint32, t xlcall.Type) error {
	return memErr(b.l.SetType(s.Memory(), p, t), "write type")
}

func (b base) SetDouble(s *host.Session, p uint32, v float64) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	if err := b.l.SetNum(s.Memory(), p, v); err != nil {
		return memErr(err, "write number")
	}
	return b.setTag(s, p, xlcall.TypeNum)
}

func (b base) SetShort(s *host.Session, p uint32, v int16) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	if err := b.l.SetInt(s.Memory(), p, v); err != nil {
		return memErr(err, "write int")
	}
	return b.setTag(s, p, xlcall.TypeInt)
}

func (b base) SetBool(s *host.Session, p uint32, v bool) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	if err := b.l.SetBool(s.Memory(), p, v); err != nil {
		return memErr(err, "write bool")
	}
	return b.setTag(s, p, xlcall.TypeBool)
}

func (b base) SetError(s *host.Session, p uint32, code xlcall.ErrorCode) error {
	if !code.Valid() {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(uint16(code)).
			Detail("unknown error code %d", uint16(code)).
			Build()
	}
	if err := b.prepare(s, p); err != nil {
		return err
	}
	if err := b.l.SetErr(s.Memory(), p, code); err != nil {
		return memErr(err, "write error code")
	}
	return b.setTag(s, p, xlcall.TypeErr)
}

func (b base) SetMissing(s *host.Session, p uint32) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	return b.setTag(s, p, xlcall.TypeMissing)
}

func (b base) SetNil(s *host.Session, p uint32) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	return b.setTag(s, p, xlcall.TypeNil)
}

func (b base) SetString(s *host.Session, p uint32, v string) error {
	payload, err := b.l.EncodeString(v)
	if err != nil {
		return err
	}
	return b.setStringPayload(s, p, payload)
}

// SetWString narrows the units to the code page on the legacy layout.
func (b base) SetWString(s *host.Session, p uint32, v []uint16) error {
	return b.SetString(s, p, record.UnitsToString(v))
}

func (b base) setStringPayload(s *host.Session, p uint32, payload []byte) error {
	if err := b.prepare(s, p); err != nil {
		return err
	}
	sp, err := b.newPayload(s, payload)
	if err != nil {
		return err
	}
	if err := b.l.SetStr(s.Memory(), p, sp); err != nil {
		s.Free(sp)
		return memErr(err, "write string pointer")
	}
	return b.setTag(s, p, xlcall.TypeStr|xlcall.BitDLLFree)
}

// newPayload copies bytes into a fresh arena buffer.
func (b base) newPayload(s *host.Session, payload []byte) (uint32, error) {
	sp, err := s.Allocate(uint32(len(payload)))
	if err != nil {
		return 0, err
	}
	if err := s.Memory().Write(sp, payload); err != nil {
		s.Free(sp)
		return 0, memErr(err, "write payload")
	}
	return sp, nil
}

// checkDims validates array dimensions against the layout before anything
// is allocated.
func (b base) checkDims(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Detail("array dimensions %dx%d must both be at least 1", rows, cols).
			Build()
	}
	abi := b.l.ABI().String()
	if uint64(rows) > uint64(b.l.MaxArrayRows()) {
		return errors.ABILimit(errors.PhaseConstruct, "rows", clampU32(rows), b.l.MaxArrayRows(), abi)
	}
	if uint64(cols) > uint64(b.l.MaxArrayCols()) {
		return errors.ABILimit(errors.PhaseConstruct, "columns", clampU32(cols), b.l.MaxArrayCols(), abi)
	}
	if uint64(rows)*uint64(cols)*uint64(b.l.Size()) > math.MaxUint32 {
		return errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Detail("%dx%d array does not fit in host memory", rows, cols).
			Build()
	}
	return nil
}

func clampU32(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// setArray releases the record and makes it an owned multi with an empty
// element buffer. Dimensions must already be checked.
func (b base) setArray(s *host.Session, p uint32, rows, cols int) (record.Array, error) {
	if err := b.prepare(s, p); err != nil {
		return record.Array{}, err
	}
	a := record.Array{Rows: uint32(rows), Cols: uint32(cols)}
	buf, err := s.Allocate(a.Count() * b.l.Size())
	if err != nil {
		return record.Array{}, err
	}
	a.Ptr = buf
	if err := b.l.SetArray(s.Memory(), p, a); err != nil {
		s.Free(buf)
		return record.Array{}, err
	}
	return a, b.setTag(s, p, xlcall.TypeMulti|xlcall.BitDLLFree)
}

// writeCell stores one element of an array. Elements carry no ownership
// bits; the enclosing multi owns their payloads.
func (b base) writeCell(s *host.Session, at uint32, v cellmatrix.CellValue) error {
	m := s.Memory()
	l := b.l
	switch v.Kind() {
	case cellmatrix.KindNumber:
		if err := l.SetNum(m, at, v.NumericValue()); err != nil {
			return memErr(err, "write element")
		}
		return memErr(l.SetType(m, at, xlcall.TypeNum), "write element")
	case cellmatrix.KindBool:
		if err := l.SetBool(m, at, v.BoolValue()); err != nil {
			return memErr(err, "write element")
		}
		return memErr(l.SetType(m, at, xlcall.TypeBool), "write element")
	case cellmatrix.KindError:
		if err := l.SetErr(m, at, v.ErrorValue()); err != nil {
			return memErr(err, "write element")
		}
		return memErr(l.SetType(m, at, xlcall.TypeErr), "write element")
	case cellmatrix.KindString:
		payload, err := l.EncodeString(v.StringValue())
		if err != nil {
			return err
		}
		sp, err := b.newPayload(s, payload)
		if err != nil {
			return err
		}
		if err := l.SetStr(m, at, sp); err != nil {
			s.Free(sp)
			return memErr(err, "write element")
		}
		return memErr(l.SetType(m, at, xlcall.TypeStr), "write element")
	}
	return memErr(l.SetType(m, at, xlcall.TypeNil), "write element")
}

// fillArray writes cells in row-major order into a fresh multi. A failure
// releases everything written so far.
func (b base) fillArray(s *host.Session, p uint32, rows, cols int, cell func(i int) cellmatrix.CellValue) error {
	if err := b.checkDims(rows, cols); err != nil {
		return err
	}
	a, err := b.setArray(s, p, rows, cols)
	if err != nil {
		return err
	}
	for i := uint32(0); i < a.Count(); i++ {
		if err := b.writeCell(s, record.Element(b.l, a, i), cell(int(i))); err != nil {
			_ = s.ReleaseAuxiliaryMemory(p)
			return err
		}
	}
	return nil
}

func (b base) SetCellMatrix(s *host.Session, p uint32, m *cellmatrix.CellMatrix) error {
	if m == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "nil cell matrix")
	}
	values := m.Values()
	return b.fillArray(s, p, m.Rows(), m.Columns(), func(i int) cellmatrix.CellValue {
		return values[i]
	})
}

func (b base) SetMatrix(s *host.Session, p uint32, m *cellmatrix.Matrix) error {
	if m == nil {
		return errors.InvalidInput(errors.PhaseConstruct, "nil matrix")
	}
	data := m.Data()
	return b.fillArray(s, p, m.Rows(), m.Columns(), func(i int) cellmatrix.CellValue {
		return cellmatrix.Number(data[i])
	})
}

// SetArray stores v as a column vector.
func (b base) SetArray(s *host.Session, p uint32, v []float64) error {
	return b.fillArray(s, p, len(v), 1, func(i int) cellmatrix.CellValue {
		return cellmatrix.Number(v[i])
	})
}

func (b base) SetRef(s *host.Session, p uint32, r xlref.Ref) error {
	areas := r.Areas()
	if len(areas) == 0 {
		return errors.InvalidInput(errors.PhaseConstruct, "reference needs at least one area")
	}
	for _, a := range areas {
		if err := b.l.CheckRect(a); err != nil {
			return err
		}
	}
	if err := b.prepare(s, p); err != nil {
		return err
	}
	m := s.Memory()
	if r.IsLocal() {
		if err := b.l.SetSRef(m, p, areas[0]); err != nil {
			return memErr(err, "write sheet reference")
		}
		return b.setTag(s, p, xlcall.TypeSRef)
	}

	list, err := s.Allocate(b.l.RefListSize(len(areas)))
	if err != nil {
		return err
	}
	if err := b.l.WriteRefList(m, list, areas); err != nil {
		s.Free(list)
		return memErr(err, "write reference list")
	}
	if err := b.l.SetMRef(m, p, list, r.Sheet()); err != nil {
		s.Free(list)
		_ = b.setTag(s, p, xlcall.TypeNil)
		return memErr(err, "write reference")
	}
	return b.setTag(s, p, xlcall.TypeRef|xlcall.BitDLLFree)
}

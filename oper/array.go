package oper

import (
	"iter"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
)

// Element is any Go type an array element can be built from.
type Element interface {
	float64 | int16 | int | bool | string | cellmatrix.CellValue | xlcall.ErrorCode
}

func toCell[T Element](v T) cellmatrix.CellValue {
	switch x := any(v).(type) {
	case float64:
		return cellmatrix.Number(x)
	case int16:
		return cellmatrix.Number(float64(x))
	case int:
		return cellmatrix.Number(float64(x))
	case bool:
		return cellmatrix.Bool(x)
	case string:
		return cellmatrix.String(x)
	case cellmatrix.CellValue:
		return x
	case xlcall.ErrorCode:
		return cellmatrix.Error(x)
	}
	return cellmatrix.Empty()
}

// arrayLimits returns the dimension ceiling of the active layout.
func arrayLimits(abi xlcall.ABI) (rows, cols uint64) {
	switch abi {
	case xlcall.ABILegacy:
		return xlcall.LegacyMaxArrayRows, xlcall.LegacyMaxArrayCols
	default:
		return xlcall.ModernMaxArrayRows, xlcall.ModernMaxArrayCols
	}
}

// SetArrayOf fills the record with a rows x cols array read row by row
// from seq. Dimensions beyond the layout's limits fail before anything is
// allocated. Values past rows*cols are ignored; a shorter sequence fails
// and leaves the record Nil.
func SetArrayOf[T Element](o *Oper, rows, cols int, seq iter.Seq[T]) error {
	if err := o.writable(); err != nil {
		return err
	}
	abi := o.impl.ABI()
	maxRows, maxCols := arrayLimits(abi)
	if rows > 0 && uint64(rows) > maxRows {
		return errors.ABILimit(errors.PhaseConstruct, "rows", clampU32(rows), uint32(maxRows), abi.String())
	}
	if cols > 0 && uint64(cols) > maxCols {
		return errors.ABILimit(errors.PhaseConstruct, "columns", clampU32(cols), uint32(maxCols), abi.String())
	}

	b := baseOf(o.impl)
	if err := b.checkDims(rows, cols); err != nil {
		return err
	}
	a, err := b.setArray(o.s, o.ptr, rows, cols)
	if err != nil {
		return err
	}

	n := a.Count()
	var i uint32
	for v := range seq {
		if i == n {
			break
		}
		if err := b.writeCell(o.s, record.Element(b.l, a, i), toCell(v)); err != nil {
			_ = o.s.ReleaseAuxiliaryMemory(o.ptr)
			return err
		}
		i++
	}
	if i < n {
		_ = o.s.ReleaseAuxiliaryMemory(o.ptr)
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(i).
			Detail("sequence yielded %d of %d elements", i, n).
			Build()
	}
	return nil
}

// NewArrayOf allocates an owned array filled from seq.
func NewArrayOf[T Element](s *host.Session, rows, cols int, seq iter.Seq[T]) (*Oper, error) {
	return construct(s, func(o *Oper) error { return SetArrayOf(o, rows, cols, seq) })
}

func baseOf(impl Impl) base {
	switch v := impl.(type) {
	case excel4:
		return v.base
	case excel12:
		return v.base
	}
	panic("oper: unknown implementation")
}

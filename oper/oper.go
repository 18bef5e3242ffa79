// Package oper wraps host variant records.
//
// An Oper holds one record pointer plus an ownership tag. Handles adopted
// from the host are borrowed and never freed here; handles built from Go
// values are owned and release their record and payloads on Release, or
// hand them to the host with Return.
//
// Conversions come in two tiers. ConvertTo* methods return a host result
// code and never fail otherwise; As* methods turn a nonzero code into an
// *errors.Error naming the argument.
package oper

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

type state uint8

const (
	stateUnbound state = iota
	stateBorrowed
	stateOwned
	stateReturned
	stateReleased
)

var stateNames = [...]string{"unbound", "borrowed", "owned", "returned", "released"}

func (st state) String() string { return stateNames[st] }

// Oper is a handle to one variant record in host memory. The zero value is
// unbound. An Oper is not safe for concurrent use.
type Oper struct {
	s     *host.Session
	impl  Impl
	ptr   uint32
	state state
	gen   uint64
}

// Adopt wraps a record the host owns. Nothing is allocated and Release
// only detaches. A null pointer gives an unbound handle.
func Adopt(s *host.Session, ptr uint32) *Oper {
	o := &Oper{s: s}
	if s != nil {
		o.impl = ImplFor(s)
	}
	if ptr != 0 && s != nil {
		o.ptr = ptr
		o.state = stateBorrowed
	}
	return o
}

func newOwned(s *host.Session) (*Oper, error) {
	if s == nil {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "nil session")
	}
	impl := ImplFor(s)
	p, err := s.Allocate(impl.Layout().Size())
	if err != nil {
		return nil, err
	}
	if err := impl.SetNil(s, p); err != nil {
		s.Free(p)
		return nil, err
	}
	return &Oper{s: s, impl: impl, ptr: p, state: stateOwned, gen: s.Generation()}, nil
}

func construct(s *host.Session, set func(o *Oper) error) (*Oper, error) {
	o, err := newOwned(s)
	if err != nil {
		return nil, err
	}
	if err := set(o); err != nil {
		_ = o.Release()
		return nil, err
	}
	return o, nil
}

// NewDouble allocates an owned number.
func NewDouble(s *host.Session, v float64) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetDouble(v) })
}

// NewShort allocates an owned integer record.
func NewShort(s *host.Session, v int16) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetShort(v) })
}

// NewInt stores v as a number.
func NewInt(s *host.Session, v int) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetDouble(float64(v)) })
}

// NewBool allocates an owned boolean.
func NewBool(s *host.Session, v bool) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetBool(v) })
}

// NewString allocates a string payload. Text longer than the layout allows
// fails with a string_too_long error.
func NewString(s *host.Session, v string) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetString(v) })
}

// NewWString allocates a string from UTF-16 code units.
func NewWString(s *host.Session, v []uint16) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetWString(v) })
}

// NewCellMatrix allocates a mixed array with one element per cell.
func NewCellMatrix(s *host.Session, m *cellmatrix.CellMatrix) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetCellMatrix(m) })
}

// NewMatrix allocates a numeric array in row-major order.
func NewMatrix(s *host.Session, m *cellmatrix.Matrix) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetMatrix(m) })
}

// NewArray stores v as a column vector.
func NewArray(s *host.Session, v []float64) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetArray(v) })
}

// NewRef stores a single local area as a sheet reference and anything else
// as an external reference with its own area list.
func NewRef(s *host.Session, r xlref.Ref) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetRef(r) })
}

// NewMissing allocates an omitted-argument record.
func NewMissing(s *host.Session) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetMissing() })
}

// NewNil returns the bare owned record, typed nil, with no payload.
func NewNil(s *host.Session) (*Oper, error) {
	return newOwned(s)
}

// NewErrorValue allocates an owned error record.
func NewErrorValue(s *host.Session, code xlcall.ErrorCode) (*Oper, error) {
	return construct(s, func(o *Oper) error { return o.SetError(code) })
}

// Error returns a borrowed handle to the session's persistent record for
// code. It never fails; if the constant could not be allocated the handle
// is unbound.
func Error(s *host.Session, code xlcall.ErrorCode) *Oper {
	if s == nil {
		return &Oper{}
	}
	ptr, err := s.ErrorRecord(code)
	if err != nil {
		s.Logger().Warn("error constant unavailable", zap.Stringer("code", code), zap.Error(err))
		return Adopt(s, 0)
	}
	return Adopt(s, ptr)
}

// writable reports why the record may not be overwritten, if it may not.
func (o *Oper) writable() error {
	switch o.current() {
	case stateOwned:
		return nil
	case stateBorrowed:
		if o.s.IsErrorConstant(o.ptr) {
			return errors.Unsupported(errors.PhaseConstruct, "error constants are read-only")
		}
		return nil
	case stateReleased:
		return errors.Released(errors.PhaseConstruct, "")
	case stateReturned:
		return errors.New(errors.PhaseConstruct, errors.KindReleased).
			Detail("oper was returned to the host").
			Build()
	}
	return errors.NotBound(errors.PhaseConstruct, "")
}

func (o *Oper) SetDouble(v float64) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetDouble(o.s, o.ptr, v)
}

func (o *Oper) SetShort(v int16) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetShort(o.s, o.ptr, v)
}

func (o *Oper) SetBool(v bool) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetBool(o.s, o.ptr, v)
}

func (o *Oper) SetString(v string) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetString(o.s, o.ptr, v)
}

func (o *Oper) SetWString(v []uint16) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetWString(o.s, o.ptr, v)
}

func (o *Oper) SetCellMatrix(m *cellmatrix.CellMatrix) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetCellMatrix(o.s, o.ptr, m)
}

func (o *Oper) SetMatrix(m *cellmatrix.Matrix) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetMatrix(o.s, o.ptr, m)
}

func (o *Oper) SetArray(v []float64) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetArray(o.s, o.ptr, v)
}

func (o *Oper) SetRef(r xlref.Ref) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetRef(o.s, o.ptr, r)
}

func (o *Oper) SetError(code xlcall.ErrorCode) error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetError(o.s, o.ptr, code)
}

func (o *Oper) SetMissing() error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetMissing(o.s, o.ptr)
}

func (o *Oper) SetNil() error {
	if err := o.writable(); err != nil {
		return err
	}
	return o.impl.SetNil(o.s, o.ptr)
}

// Release frees an owned record and its payloads, or detaches a borrowed
// one. Releasing again, or releasing a returned handle, does nothing.
func (o *Oper) Release() error {
	var err error
	switch o.current() {
	case stateOwned:
		err = o.impl.ReleaseAux(o.s, o.ptr)
		o.s.Free(o.ptr)
	case stateBorrowed:
	default:
		return nil
	}
	o.ptr = 0
	o.state = stateReleased
	return err
}

// Return hands the record to the host as a function result. An owned
// record is marked add-in-freed and kept alive until the host calls back
// through the session's AutoFree; a borrowed one is passed through as is.
func (o *Oper) Return() (uint32, error) {
	switch o.current() {
	case stateOwned:
		t := o.impl.Type(o.s, o.ptr)
		if err := o.impl.Layout().SetType(o.s.Memory(), o.ptr, t|xlcall.BitDLLFree); err != nil {
			return 0, memErr(err, "mark returned record")
		}
		if err := o.s.Retain(o.ptr); err != nil {
			return 0, err
		}
		o.state = stateReturned
		return o.ptr, nil
	case stateBorrowed, stateReturned:
		return o.ptr, nil
	case stateReleased:
		return 0, errors.Released(errors.PhaseCall, "")
	}
	return 0, errors.NotBound(errors.PhaseCall, "")
}

// Assign releases this record's payload and deep-copies src into it. An
// unbound handle first allocates its own record.
func (o *Oper) Assign(src *Oper) error {
	if o == src {
		return nil
	}
	if src == nil || src.state == stateUnbound {
		return errors.NotBound(errors.PhaseConstruct, "source")
	}
	if !src.Bound() {
		return errors.Released(errors.PhaseConstruct, "source")
	}
	if o.state == stateUnbound {
		if o.s == nil {
			o.s = src.s
		}
		n, err := newOwned(o.s)
		if err != nil {
			return err
		}
		*o = *n
	} else if err := o.writable(); err != nil {
		return err
	}
	if o.s != src.s {
		return errors.InvalidInput(errors.PhaseConstruct, "cannot assign across sessions")
	}
	return o.impl.Copy(o.s, o.ptr, src.ptr)
}

// Clone returns an owned deep copy.
func (o *Oper) Clone() (*Oper, error) {
	if !o.Bound() {
		return nil, o.unusable(errors.PhaseConstruct, "")
	}
	c, err := newOwned(o.s)
	if err != nil {
		return nil, err
	}
	if err := c.Assign(o); err != nil {
		_ = c.Release()
		return nil, err
	}
	return c, nil
}

func (o *Oper) unusable(phase errors.Phase, id string) error {
	if st := o.current(); st == stateReleased || st == stateReturned {
		return errors.Released(phase, id)
	}
	return errors.NotBound(phase, id)
}

// Coerce asks the host to reinterpret the record as target. The result is
// owned and its payload belongs to the host.
func (o *Oper) Coerce(target xlcall.Type) (*Oper, xlcall.Ret) {
	if !o.Bound() {
		return nil, xlcall.RetInvXloper
	}
	p, ret := o.s.Coerce(o.ptr, target)
	if !ret.OK() {
		return nil, ret
	}
	return &Oper{s: o.s, impl: o.impl, ptr: p, state: stateOwned, gen: o.s.Generation()}, xlcall.RetSuccess
}

func (o *Oper) ConvertToDouble() (float64, xlcall.Ret) {
	if !o.Bound() {
		return 0, xlcall.RetInvXloper
	}
	return o.impl.ConvertToDouble(o.s, o.ptr)
}

func (o *Oper) ConvertToDoubleVector(policy Policy) ([]float64, xlcall.Ret) {
	if !o.Bound() {
		return nil, xlcall.RetInvXloper
	}
	return o.impl.ConvertToDoubleVector(o.s, o.ptr, policy)
}

func (o *Oper) ConvertToShort() (int16, xlcall.Ret) {
	if !o.Bound() {
		return 0, xlcall.RetInvXloper
	}
	return o.impl.ConvertToShort(o.s, o.ptr)
}

func (o *Oper) ConvertToInt() (int, xlcall.Ret) {
	if !o.Bound() {
		return 0, xlcall.RetInvXloper
	}
	return o.impl.ConvertToInt(o.s, o.ptr)
}

func (o *Oper) ConvertToBool() (bool, xlcall.Ret) {
	if !o.Bound() {
		return false, xlcall.RetInvXloper
	}
	return o.impl.ConvertToBool(o.s, o.ptr)
}

func (o *Oper) ConvertToString() (string, xlcall.Ret) {
	if !o.Bound() {
		return "", xlcall.RetInvXloper
	}
	return o.impl.ConvertToString(o.s, o.ptr)
}

func (o *Oper) ConvertToWString() ([]uint16, xlcall.Ret) {
	if !o.Bound() {
		return nil, xlcall.RetInvXloper
	}
	return o.impl.ConvertToWString(o.s, o.ptr)
}

func (o *Oper) ConvertToCellMatrix() (*cellmatrix.CellMatrix, xlcall.Ret) {
	if !o.Bound() {
		return nil, xlcall.RetInvXloper
	}
	return o.impl.ConvertToCellMatrix(o.s, o.ptr)
}

func (o *Oper) ConvertToMatrix() (*cellmatrix.Matrix, xlcall.Ret) {
	if !o.Bound() {
		return nil, xlcall.RetInvXloper
	}
	return o.impl.ConvertToMatrix(o.s, o.ptr)
}

func (o *Oper) ConvertToRef() (xlref.Ref, xlcall.Ret) {
	if !o.Bound() {
		return xlref.Ref{}, xlcall.RetInvXloper
	}
	return o.impl.ConvertToRef(o.s, o.ptr)
}

func (o *Oper) ConvertToErr() (xlcall.ErrorCode, xlcall.Ret) {
	if !o.Bound() {
		return 0, xlcall.RetInvXloper
	}
	return o.impl.ConvertToErr(o.s, o.ptr)
}

// current returns the handle's state. An owned record whose call scope has
// since closed was freed with the arena and reads as released.
func (o *Oper) current() state {
	if o.state == stateOwned && o.gen != o.s.Generation() {
		o.ptr = 0
		o.state = stateReleased
	}
	return o.state
}

// Session returns the session the handle allocates from.
func (o *Oper) Session() *host.Session { return o.s }

// Ptr returns the record pointer, or 0 when nothing is bound.
func (o *Oper) Ptr() uint32 {
	o.current()
	return o.ptr
}

// Bound reports whether the handle holds a record it may read.
func (o *Oper) Bound() bool {
	st := o.current()
	return st == stateBorrowed || st == stateOwned
}

// Owned reports whether Release frees the record.
func (o *Oper) Owned() bool { return o.current() == stateOwned }

// XLType returns the record's type tag including ownership bits, or 0 when
// unbound.
func (o *Oper) XLType() xlcall.Type {
	if !o.Bound() {
		return 0
	}
	return o.impl.Type(o.s, o.ptr)
}

func (o *Oper) is(t xlcall.Type) bool { return o.XLType().Base() == t }

func (o *Oper) IsNumber() bool  { return o.is(xlcall.TypeNum) }
func (o *Oper) IsString() bool  { return o.is(xlcall.TypeStr) }
func (o *Oper) IsBool() bool    { return o.is(xlcall.TypeBool) }
func (o *Oper) IsRef() bool     { return o.is(xlcall.TypeRef) }
func (o *Oper) IsSRef() bool    { return o.is(xlcall.TypeSRef) }
func (o *Oper) IsError() bool   { return o.is(xlcall.TypeErr) }
func (o *Oper) IsMulti() bool   { return o.is(xlcall.TypeMulti) }
func (o *Oper) IsMissing() bool { return o.is(xlcall.TypeMissing) }
func (o *Oper) IsNil() bool     { return o.is(xlcall.TypeNil) }
func (o *Oper) IsInt() bool     { return o.is(xlcall.TypeInt) }

// Dims returns the array shape, the first area's shape for references, 1x1
// for scalars and 0x0 when unbound.
func (o *Oper) Dims() (rows, cols int) {
	switch o.XLType().Base() {
	case 0:
		return 0, 0
	case xlcall.TypeMulti:
		a, err := o.impl.Layout().Array(o.s.Memory(), o.ptr)
		if err != nil {
			return 0, 0
		}
		return int(a.Rows), int(a.Cols)
	case xlcall.TypeRef, xlcall.TypeSRef:
		r, ret := o.ConvertToRef()
		if !ret.OK() {
			return 0, 0
		}
		a, _ := r.Area(0)
		return int(a.Rows()), int(a.Columns())
	}
	return 1, 1
}

// String renders the handle for debugging.
func (o *Oper) String() string {
	if !o.Bound() {
		return "oper(" + o.state.String() + ")"
	}
	switch t := o.XLType(); t.Base() {
	case xlcall.TypeNum:
		v, _ := o.ConvertToDouble()
		return fmt.Sprintf("num(%g)", v)
	case xlcall.TypeInt:
		v, _ := o.ConvertToInt()
		return fmt.Sprintf("int(%d)", v)
	case xlcall.TypeBool:
		v, _ := o.ConvertToString()
		return "bool(" + v + ")"
	case xlcall.TypeStr:
		v, _ := o.ConvertToString()
		return fmt.Sprintf("str(%q)", v)
	case xlcall.TypeErr:
		code, _ := o.ConvertToErr()
		return "err(" + code.String() + ")"
	case xlcall.TypeMulti:
		r, c := o.Dims()
		return fmt.Sprintf("multi[%dx%d]", r, c)
	case xlcall.TypeRef, xlcall.TypeSRef:
		r, _ := o.ConvertToRef()
		return t.Base().String() + "(" + r.String() + ")"
	default:
		return t.Base().String()
	}
}

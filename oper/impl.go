package oper

import (
	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// Impl is every record operation for one ABI version. Exactly two
// implementations exist, selected once per session from the host version.
type Impl interface {
	ABI() xlcall.ABI
	Layout() record.Layout

	Type(s *host.Session, p uint32) xlcall.Type

	SetDouble(s *host.Session, p uint32, v float64) error
	SetShort(s *host.Session, p uint32, v int16) error
	SetBool(s *host.Session, p uint32, v bool) error
	SetError(s *host.Session, p uint32, code xlcall.ErrorCode) error
	SetMissing(s *host.Session, p uint32) error
	SetNil(s *host.Session, p uint32) error
	SetString(s *host.Session, p uint32, v string) error
	SetWString(s *host.Session, p uint32, v []uint16) error
	SetCellMatrix(s *host.Session, p uint32, m *cellmatrix.CellMatrix) error
	SetMatrix(s *host.Session, p uint32, m *cellmatrix.Matrix) error
	SetArray(s *host.Session, p uint32, v []float64) error
	SetRef(s *host.Session, p uint32, r xlref.Ref) error

	ConvertToDouble(s *host.Session, p uint32) (float64, xlcall.Ret)
	ConvertToDoubleVector(s *host.Session, p uint32, policy Policy) ([]float64, xlcall.Ret)
	ConvertToShort(s *host.Session, p uint32) (int16, xlcall.Ret)
	ConvertToInt(s *host.Session, p uint32) (int, xlcall.Ret)
	ConvertToBool(s *host.Session, p uint32) (bool, xlcall.Ret)
	ConvertToString(s *host.Session, p uint32) (string, xlcall.Ret)
	ConvertToWString(s *host.Session, p uint32) ([]uint16, xlcall.Ret)
	ConvertToCellMatrix(s *host.Session, p uint32) (*cellmatrix.CellMatrix, xlcall.Ret)
	ConvertToMatrix(s *host.Session, p uint32) (*cellmatrix.Matrix, xlcall.Ret)
	ConvertToRef(s *host.Session, p uint32) (xlref.Ref, xlcall.Ret)
	ConvertToErr(s *host.Session, p uint32) (xlcall.ErrorCode, xlcall.Ret)

	ReleaseAux(s *host.Session, p uint32) error
	Copy(s *host.Session, dst, src uint32) error

	sealed()
}

// excel4 handles the legacy record layout: 16-bit dimensions and
// code-page strings.
type excel4 struct{ base }

// excel12 handles the modern record layout: 32-bit dimensions and UTF-16
// strings.
type excel12 struct{ base }

var (
	legacyImpl Impl = excel4{base{l: record.Legacy}}
	modernImpl Impl = excel12{base{l: record.Modern}}
)

// ImplFor returns the implementation matching the session's host version.
func ImplFor(s *host.Session) Impl {
	if s.Version() == xlcall.ABIModern {
		return modernImpl
	}
	return legacyImpl
}

func (excel4) ABI() xlcall.ABI  { return xlcall.ABILegacy }
func (excel12) ABI() xlcall.ABI { return xlcall.ABIModern }

// SetWString stores the units as given, unpaired surrogates included.
func (e excel12) SetWString(s *host.Session, p uint32, v []uint16) error {
	payload, err := e.l.EncodeUnits(v)
	if err != nil {
		return err
	}
	return e.setStringPayload(s, p, payload)
}

func (e excel12) ConvertToWString(s *host.Session, p uint32) ([]uint16, xlcall.Ret) {
	if e.Type(s, p).Base() == xlcall.TypeStr {
		payload, ret := e.stringPayload(s, p)
		if !ret.OK() {
			return nil, ret
		}
		units, err := e.l.DecodeUnits(payload)
		if err != nil {
			return nil, xlcall.RetInvXloper
		}
		return units, xlcall.RetSuccess
	}
	str, ret := e.ConvertToString(s, p)
	if !ret.OK() {
		return nil, ret
	}
	return record.StringToUnits(str), xlcall.RetSuccess
}

// base carries the operations both layouts share; the layout absorbs the
// field widths.
type base struct {
	l record.Layout
}

func (b base) Layout() record.Layout { return b.l }
func (base) sealed()                 {}

func (b base) Type(s *host.Session, p uint32) xlcall.Type {
	if p == 0 {
		return 0
	}
	t, err := b.l.Type(s.Memory(), p)
	if err != nil {
		return 0
	}
	return t
}

func (b base) ReleaseAux(s *host.Session, p uint32) error {
	return s.ReleaseAuxiliaryMemory(p)
}

package oper

import (
	"math"
	"strconv"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// coerce asks the host for a reinterpretation of p; drop releases it.
func (b base) coerce(s *host.Session, p uint32, target xlcall.Type) (uint32, xlcall.Ret) {
	return s.Coerce(p, target)
}

func (b base) drop(s *host.Session, rec uint32) {
	_ = s.ReleaseAuxiliaryMemory(rec)
	s.Free(rec)
}

func (b base) stringPayload(s *host.Session, p uint32) ([]byte, xlcall.Ret) {
	sp, err := b.l.Str(s.Memory(), p)
	if err != nil || sp == 0 {
		return nil, xlcall.RetInvXloper
	}
	payload, err := b.l.StringPayload(s.Memory(), sp)
	if err != nil {
		return nil, xlcall.RetInvXloper
	}
	return payload, xlcall.RetSuccess
}

func (b base) readString(s *host.Session, p uint32) (string, xlcall.Ret) {
	payload, ret := b.stringPayload(s, p)
	if !ret.OK() {
		return "", ret
	}
	str, err := b.l.DecodeString(payload)
	if err != nil {
		return "", xlcall.RetInvXloper
	}
	return str, xlcall.RetSuccess
}

// localDouble reads the tags that hold a number inline.
func (b base) localDouble(s *host.Session, p uint32) (float64, xlcall.Ret) {
	m := s.Memory()
	switch b.Type(s, p).Base() {
	case xlcall.TypeNum:
		v, err := b.l.Num(m, p)
		if err != nil {
			return 0, xlcall.RetInvXloper
		}
		return v, xlcall.RetSuccess
	case xlcall.TypeInt:
		v, err := b.l.Int(m, p)
		if err != nil {
			return 0, xlcall.RetInvXloper
		}
		return float64(v), xlcall.RetSuccess
	case xlcall.TypeBool:
		v, err := b.l.Bool(m, p)
		if err != nil {
			return 0, xlcall.RetInvXloper
		}
		if v {
			return 1, xlcall.RetSuccess
		}
		return 0, xlcall.RetSuccess
	}
	return 0, xlcall.RetInvXloper
}

func (b base) ConvertToDouble(s *host.Session, p uint32) (float64, xlcall.Ret) {
	switch b.Type(s, p).Base() {
	case xlcall.TypeNum, xlcall.TypeInt, xlcall.TypeBool:
		return b.localDouble(s, p)
	case xlcall.TypeStr, xlcall.TypeNil, xlcall.TypeMissing, xlcall.TypeErr:
		c, ret := b.coerce(s, p, xlcall.TypeNum)
		if !ret.OK() {
			return 0, ret
		}
		defer b.drop(s, c)
		return b.localDouble(s, c)
	}
	return 0, xlcall.RetInvXloper
}

func (b base) ConvertToDoubleVector(s *host.Session, p uint32, policy Policy) ([]float64, xlcall.Ret) {
	switch b.Type(s, p).Base() {
	case xlcall.TypeMulti:
		a, err := b.l.Array(s.Memory(), p)
		if err != nil || a.Count() == 0 {
			return nil, xlcall.RetInvXloper
		}
		if policy == UniDimensional && a.Rows != 1 && a.Cols != 1 {
			return nil, xlcall.RetInvXloper
		}
		out := make([]float64, 0, a.Count())
		for _, i := range policy.order(int(a.Rows), int(a.Cols)) {
			v, ret := b.ConvertToDouble(s, record.Element(b.l, a, uint32(i)))
			if !ret.OK() {
				return nil, ret
			}
			out = append(out, v)
		}
		return out, xlcall.RetSuccess

	case xlcall.TypeRef, xlcall.TypeSRef:
		c, ret := b.coerce(s, p, xlcall.TypeMulti)
		if !ret.OK() {
			return nil, ret
		}
		defer b.drop(s, c)
		if b.Type(s, c).Base() != xlcall.TypeMulti {
			return nil, xlcall.RetInvXloper
		}
		return b.ConvertToDoubleVector(s, c, policy)
	}

	v, ret := b.ConvertToDouble(s, p)
	if !ret.OK() {
		return nil, ret
	}
	return []float64{v}, xlcall.RetSuccess
}

func (b base) ConvertToShort(s *host.Session, p uint32) (int16, xlcall.Ret) {
	v, ret := b.ConvertToDouble(s, p)
	if !ret.OK() {
		return 0, ret
	}
	if v != math.Trunc(v) || v < math.MinInt16 || v > math.MaxInt16 {
		return 0, xlcall.RetInvXloper
	}
	return int16(v), xlcall.RetSuccess
}

func (b base) ConvertToInt(s *host.Session, p uint32) (int, xlcall.Ret) {
	v, ret := b.ConvertToDouble(s, p)
	if !ret.OK() {
		return 0, ret
	}
	if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, xlcall.RetInvXloper
	}
	return int(v), xlcall.RetSuccess
}

func (b base) ConvertToBool(s *host.Session, p uint32) (bool, xlcall.Ret) {
	switch b.Type(s, p).Base() {
	case xlcall.TypeBool:
		v, err := b.l.Bool(s.Memory(), p)
		if err != nil {
			return false, xlcall.RetInvXloper
		}
		return v, xlcall.RetSuccess
	case xlcall.TypeNum, xlcall.TypeInt:
		v, ret := b.localDouble(s, p)
		return v != 0, ret
	case xlcall.TypeStr, xlcall.TypeNil, xlcall.TypeMissing, xlcall.TypeErr:
		c, ret := b.coerce(s, p, xlcall.TypeBool)
		if !ret.OK() {
			return false, ret
		}
		defer b.drop(s, c)
		if b.Type(s, c).Base() != xlcall.TypeBool {
			return false, xlcall.RetInvXloper
		}
		v, err := b.l.Bool(s.Memory(), c)
		if err != nil {
			return false, xlcall.RetInvXloper
		}
		return v, xlcall.RetSuccess
	}
	return false, xlcall.RetInvXloper
}

func (b base) ConvertToString(s *host.Session, p uint32) (string, xlcall.Ret) {
	switch b.Type(s, p).Base() {
	case xlcall.TypeStr:
		return b.readString(s, p)
	case xlcall.TypeNum:
		v, ret := b.localDouble(s, p)
		if !ret.OK() {
			return "", ret
		}
		return record.FormatNumber(v), xlcall.RetSuccess
	case xlcall.TypeInt:
		v, err := b.l.Int(s.Memory(), p)
		if err != nil {
			return "", xlcall.RetInvXloper
		}
		return strconv.Itoa(int(v)), xlcall.RetSuccess
	case xlcall.TypeBool:
		v, err := b.l.Bool(s.Memory(), p)
		if err != nil {
			return "", xlcall.RetInvXloper
		}
		if v {
			return "TRUE", xlcall.RetSuccess
		}
		return "FALSE", xlcall.RetSuccess
	}
	return "", xlcall.RetInvXloper
}

// ConvertToWString widens the code-page text on the legacy layout.
func (b base) ConvertToWString(s *host.Session, p uint32) ([]uint16, xlcall.Ret) {
	str, ret := b.ConvertToString(s, p)
	if !ret.OK() {
		return nil, ret
	}
	return record.StringToUnits(str), xlcall.RetSuccess
}

// cellAt reads a scalar record as a cell value.
func (b base) cellAt(s *host.Session, p uint32) (cellmatrix.CellValue, xlcall.Ret) {
	m := s.Memory()
	switch b.Type(s, p).Base() {
	case xlcall.TypeNum, xlcall.TypeInt:
		v, ret := b.localDouble(s, p)
		return cellmatrix.Number(v), ret
	case xlcall.TypeBool:
		v, err := b.l.Bool(m, p)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Bool(v), xlcall.RetSuccess
	case xlcall.TypeStr:
		str, ret := b.readString(s, p)
		return cellmatrix.String(str), ret
	case xlcall.TypeErr:
		code, err := b.l.Err(m, p)
		if err != nil {
			return cellmatrix.Empty(), xlcall.RetInvXloper
		}
		return cellmatrix.Error(code), xlcall.RetSuccess
	case xlcall.TypeNil, xlcall.TypeMissing:
		return cellmatrix.Empty(), xlcall.RetSuccess
	}
	return cellmatrix.Empty(), xlcall.RetInvXloper
}

func (b base) ConvertToCellMatrix(s *host.Session, p uint32) (*cellmatrix.CellMatrix, xlcall.Ret) {
	switch b.Type(s, p).Base() {
	case xlcall.TypeMulti:
		a, err := b.l.Array(s.Memory(), p)
		if err != nil {
			return nil, xlcall.RetInvXloper
		}
		cm, err := cellmatrix.New(int(a.Rows), int(a.Cols))
		if err != nil {
			return nil, xlcall.RetInvXloper
		}
		for i := uint32(0); i < a.Count(); i++ {
			v, ret := b.cellAt(s, record.Element(b.l, a, i))
			if !ret.OK() {
				return nil, ret
			}
			_ = cm.SetCell(int(i/a.Cols), int(i%a.Cols), v)
		}
		return cm, xlcall.RetSuccess

	case xlcall.TypeRef, xlcall.TypeSRef:
		c, ret := b.coerce(s, p, xlcall.TypeMulti)
		if !ret.OK() {
			return nil, ret
		}
		defer b.drop(s, c)
		if b.Type(s, c).Base() != xlcall.TypeMulti {
			return nil, xlcall.RetInvXloper
		}
		return b.ConvertToCellMatrix(s, c)
	}

	v, ret := b.cellAt(s, p)
	if !ret.OK() {
		return nil, ret
	}
	cm, _ := cellmatrix.New(1, 1)
	_ = cm.SetCell(0, 0, v)
	return cm, xlcall.RetSuccess
}

func (b base) ConvertToMatrix(s *host.Session, p uint32) (*cellmatrix.Matrix, xlcall.Ret) {
	cm, ret := b.ConvertToCellMatrix(s, p)
	if !ret.OK() {
		return nil, ret
	}
	m, err := cellmatrix.NewMatrix(cm.Rows(), cm.Columns())
	if err != nil {
		return nil, xlcall.RetInvXloper
	}
	for i := 0; i < cm.Rows(); i++ {
		for j := 0; j < cm.Columns(); j++ {
			v := cm.At(i, j)
			if !v.IsNumeric() {
				return nil, xlcall.RetInvXloper
			}
			_ = m.Set(i, j, v.NumericValue())
		}
	}
	return m, xlcall.RetSuccess
}

func (b base) ConvertToRef(s *host.Session, p uint32) (xlref.Ref, xlcall.Ret) {
	m := s.Memory()
	switch b.Type(s, p).Base() {
	case xlcall.TypeSRef:
		rect, err := b.l.SRef(m, p)
		if err != nil {
			return xlref.Ref{}, xlcall.RetInvXloper
		}
		r, err := xlref.New(xlref.CurrentSheet, rect)
		if err != nil {
			return xlref.Ref{}, xlcall.RetInvXloper
		}
		return r, xlcall.RetSuccess
	case xlcall.TypeRef:
		list, sheet, err := b.l.MRef(m, p)
		if err != nil || list == 0 {
			return xlref.Ref{}, xlcall.RetInvXloper
		}
		areas, err := b.l.RefList(m, list)
		if err != nil {
			return xlref.Ref{}, xlcall.RetInvXloper
		}
		r, err := xlref.New(sheet, areas...)
		if err != nil {
			return xlref.Ref{}, xlcall.RetInvXloper
		}
		return r, xlcall.RetSuccess
	}
	return xlref.Ref{}, xlcall.RetInvXloper
}

func (b base) ConvertToErr(s *host.Session, p uint32) (xlcall.ErrorCode, xlcall.Ret) {
	if b.Type(s, p).Base() != xlcall.TypeErr {
		return 0, xlcall.RetInvXloper
	}
	code, err := b.l.Err(s.Memory(), p)
	if err != nil {
		return 0, xlcall.RetInvXloper
	}
	return code, xlcall.RetSuccess
}

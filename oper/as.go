package oper

import (
	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// kindFor maps a host result code to an error kind.
func kindFor(ret xlcall.Ret) errors.Kind {
	switch ret {
	case xlcall.RetUncalced:
		return errors.KindUncalculated
	case xlcall.RetAbort:
		return errors.KindAbort
	case xlcall.RetStackOvfl:
		return errors.KindStackOverflow
	case xlcall.RetInvXloper:
		return errors.KindCoerce
	}
	return errors.KindHostFailure
}

// fail builds the error for a failed conversion. id names the argument in
// the message and may be empty.
func (o *Oper) fail(op, goType, id string, ret xlcall.Ret, kind errors.Kind) error {
	return errors.New(errors.PhaseConvert, kind).
		Identifier(id).
		XLType(o.XLType().String()).
		GoType(goType).
		Value(ret).
		Detail("%s: %s", op, ret).
		Build()
}

func (o *Oper) readable(id string) error {
	if o.Bound() {
		return nil
	}
	return o.unusable(errors.PhaseConvert, id)
}

func (o *Oper) AsDouble(id string) (float64, error) {
	if err := o.readable(id); err != nil {
		return 0, err
	}
	v, ret := o.ConvertToDouble()
	if !ret.OK() {
		return 0, o.fail("AsDouble", "float64", id, ret, kindFor(ret))
	}
	return v, nil
}

// AsDoubleVector flattens the value per policy. A two-dimensional array
// read with UniDimensional fails with a shape error.
func (o *Oper) AsDoubleVector(policy Policy, id string) ([]float64, error) {
	if err := o.readable(id); err != nil {
		return nil, err
	}
	v, ret := o.ConvertToDoubleVector(policy)
	if !ret.OK() {
		kind := kindFor(ret)
		if ret == xlcall.RetInvXloper && policy == UniDimensional {
			if rows, cols := o.Dims(); rows > 1 && cols > 1 {
				kind = errors.KindShape
			}
		}
		return nil, o.fail("AsDoubleVector("+policy.String()+")", "[]float64", id, ret, kind)
	}
	return v, nil
}

// AsArray reads a single row or column.
func (o *Oper) AsArray(id string) ([]float64, error) {
	return o.AsDoubleVector(UniDimensional, id)
}

func (o *Oper) AsShort(id string) (int16, error) {
	if err := o.readable(id); err != nil {
		return 0, err
	}
	v, ret := o.ConvertToShort()
	if !ret.OK() {
		return 0, o.fail("AsShort", "int16", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsInt(id string) (int, error) {
	if err := o.readable(id); err != nil {
		return 0, err
	}
	v, ret := o.ConvertToInt()
	if !ret.OK() {
		return 0, o.fail("AsInt", "int", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsBool(id string) (bool, error) {
	if err := o.readable(id); err != nil {
		return false, err
	}
	v, ret := o.ConvertToBool()
	if !ret.OK() {
		return false, o.fail("AsBool", "bool", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsString(id string) (string, error) {
	if err := o.readable(id); err != nil {
		return "", err
	}
	v, ret := o.ConvertToString()
	if !ret.OK() {
		return "", o.fail("AsString", "string", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsWString(id string) ([]uint16, error) {
	if err := o.readable(id); err != nil {
		return nil, err
	}
	v, ret := o.ConvertToWString()
	if !ret.OK() {
		return nil, o.fail("AsWString", "[]uint16", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsCellMatrix(id string) (*cellmatrix.CellMatrix, error) {
	if err := o.readable(id); err != nil {
		return nil, err
	}
	v, ret := o.ConvertToCellMatrix()
	if !ret.OK() {
		return nil, o.fail("AsCellMatrix", "CellMatrix", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsMatrix(id string) (*cellmatrix.Matrix, error) {
	if err := o.readable(id); err != nil {
		return nil, err
	}
	v, ret := o.ConvertToMatrix()
	if !ret.OK() {
		return nil, o.fail("AsMatrix", "Matrix", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsRef(id string) (xlref.Ref, error) {
	if err := o.readable(id); err != nil {
		return xlref.Ref{}, err
	}
	v, ret := o.ConvertToRef()
	if !ret.OK() {
		return xlref.Ref{}, o.fail("AsRef", "xlref.Ref", id, ret, kindFor(ret))
	}
	return v, nil
}

func (o *Oper) AsErr(id string) (xlcall.ErrorCode, error) {
	if err := o.readable(id); err != nil {
		return 0, err
	}
	v, ret := o.ConvertToErr()
	if !ret.OK() {
		return 0, o.fail("AsErr", "xlcall.ErrorCode", id, ret, kindFor(ret))
	}
	return v, nil
}

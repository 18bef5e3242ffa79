package main

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/davidclayton/xlw/addin"
	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/metadata"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/xlcall"
)

//go:embed functions.yaml
var manifestYAML []byte

var handlers = map[string]addin.Handler{
	"XLW.ADD":       fnAdd,
	"XLW.CONCAT":    fnConcat,
	"XLW.NOT":       fnNot,
	"XLW.SUM":       fnSum,
	"XLW.SEQUENCE":  fnSequence,
	"XLW.TRANSPOSE": fnTranspose,
	"XLW.MMULT":     fnMMult,
	"XLW.ADDRESS":   fnAddress,
	"XLW.TYPE":      fnType,
	"XLW.ISERROR":   fnIsError,
	"XLW.ERROR":     fnError,
	"XLW.WLEN":      fnWLen,
	"XLW.ECHO":      fnEcho,
}

// registerDemo loads the embedded manifest and binds each entry to its
// handler.
func registerDemo(r *addin.Registry) error {
	descs, err := metadata.LoadManifest(bytes.NewReader(manifestYAML))
	if err != nil {
		return err
	}
	for _, d := range descs {
		h, ok := handlers[d.Name()]
		if !ok {
			return errors.NotFound(errors.PhaseRegister, "handler", d.Name())
		}
		if err := r.Register(d, h); err != nil {
			return err
		}
	}
	return nil
}

func fnAdd(args *addin.Args) (*oper.Oper, error) {
	x, err := args.Double(0)
	if err != nil {
		return nil, err
	}
	y, err := args.Double(1)
	if err != nil {
		return nil, err
	}
	return oper.NewDouble(args.Session(), x+y)
}

func fnConcat(args *addin.Args) (*oper.Oper, error) {
	a, err := args.String(0)
	if err != nil {
		return nil, err
	}
	b, err := args.String(1)
	if err != nil {
		return nil, err
	}
	return oper.NewString(args.Session(), a+b)
}

func fnNot(args *addin.Args) (*oper.Oper, error) {
	v, err := args.Bool(0)
	if err != nil {
		return nil, err
	}
	return oper.NewBool(args.Session(), !v)
}

func fnSum(args *addin.Args) (*oper.Oper, error) {
	values, err := args.Vector(0, oper.RowMajor)
	if err != nil {
		return nil, err
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return oper.NewDouble(args.Session(), sum)
}

func fnSequence(args *addin.Args) (*oper.Oper, error) {
	n, err := args.Int(0)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, errors.InvalidInput(errors.PhaseCall, fmt.Sprintf("sequence length %d", n))
	}
	seq := func(yield func(float64) bool) {
		for i := 1; i <= n; i++ {
			if !yield(float64(i)) {
				return
			}
		}
	}
	return oper.NewArrayOf[float64](args.Session(), n, 1, seq)
}

func fnTranspose(args *addin.Args) (*oper.Oper, error) {
	m, err := args.CellMatrix(0)
	if err != nil {
		return nil, err
	}
	t, err := cellmatrix.New(m.Columns(), m.Rows())
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.Rows(); i++ {
		for j := 0; j < m.Columns(); j++ {
			if err := t.SetCell(j, i, m.At(i, j)); err != nil {
				return nil, err
			}
		}
	}
	return oper.NewCellMatrix(args.Session(), t)
}

func fnMMult(args *addin.Args) (*oper.Oper, error) {
	a, err := args.Matrix(0)
	if err != nil {
		return nil, err
	}
	b, err := args.Matrix(1)
	if err != nil {
		return nil, err
	}
	if a.Columns() != b.Rows() {
		return nil, errors.New(errors.PhaseCall, errors.KindShape).
			Detail("cannot multiply %dx%d by %dx%d", a.Rows(), a.Columns(), b.Rows(), b.Columns()).
			Build()
	}
	out, err := cellmatrix.NewMatrix(a.Rows(), b.Columns())
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < b.Columns(); j++ {
			var v float64
			for k := 0; k < a.Columns(); k++ {
				v += a.At(i, k) * b.At(k, j)
			}
			_ = out.Set(i, j, v)
		}
	}
	return oper.NewMatrix(args.Session(), out)
}

func fnAddress(args *addin.Args) (*oper.Oper, error) {
	r, err := args.Ref(0)
	if err != nil {
		return nil, err
	}
	return oper.NewString(args.Session(), r.String())
}

func fnType(args *addin.Args) (*oper.Oper, error) {
	v, err := args.Oper(0)
	if err != nil {
		return nil, err
	}
	return oper.NewString(args.Session(), v.XLType().Base().String())
}

func fnIsError(args *addin.Args) (*oper.Oper, error) {
	v, err := args.Oper(0)
	if err != nil {
		return nil, err
	}
	return oper.NewBool(args.Session(), v.IsError())
}

func fnError(args *addin.Args) (*oper.Oper, error) {
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	code, ok := xlcall.ParseErrorCode(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseCall, "error code", name)
	}
	return oper.NewErrorValue(args.Session(), code)
}

func fnWLen(args *addin.Args) (*oper.Oper, error) {
	units, err := args.WString(0)
	if err != nil {
		return nil, err
	}
	return oper.NewInt(args.Session(), len(units))
}

func fnEcho(args *addin.Args) (*oper.Oper, error) {
	v, err := args.Oper(0)
	if err != nil {
		return nil, err
	}
	return v.Clone()
}


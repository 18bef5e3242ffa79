package addin

import (
	"strconv"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/metadata"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// Args gives a handler its arguments as borrowed opers. Conversion errors
// name the argument as declared in the function description.
type Args struct {
	s     *host.Session
	desc  metadata.FunctionDescription
	opers []*oper.Oper
}

func newArgs(s *host.Session, desc metadata.FunctionDescription, ptrs []uint32) *Args {
	opers := make([]*oper.Oper, len(ptrs))
	for i, p := range ptrs {
		opers[i] = oper.Adopt(s, p)
	}
	return &Args{s: s, desc: desc, opers: opers}
}

// NewArgs wraps argument records for calling a handler directly.
func NewArgs(s *host.Session, desc metadata.FunctionDescription, ptrs ...uint32) *Args {
	return newArgs(s, desc, ptrs)
}

func (a *Args) Session() *host.Session                    { return a.s }
func (a *Args) Description() metadata.FunctionDescription { return a.desc }
func (a *Args) Len() int                                  { return len(a.opers) }

// Name returns the declared name of argument i, or a positional name.
func (a *Args) Name(i int) string {
	if arg, err := a.desc.Argument(i); err == nil && arg.Name() != "" {
		return arg.Name()
	}
	return "arg" + strconv.Itoa(i+1)
}

// Oper returns argument i unconverted.
func (a *Args) Oper(i int) (*oper.Oper, error) {
	if i < 0 || i >= len(a.opers) {
		return nil, errors.OutOfBounds(errors.PhaseCall, []string{a.desc.Name(), "args"}, i, len(a.opers))
	}
	return a.opers[i], nil
}

func (a *Args) Double(i int) (float64, error) {
	o, err := a.Oper(i)
	if err != nil {
		return 0, err
	}
	return o.AsDouble(a.Name(i))
}

func (a *Args) Short(i int) (int16, error) {
	o, err := a.Oper(i)
	if err != nil {
		return 0, err
	}
	return o.AsShort(a.Name(i))
}

func (a *Args) Int(i int) (int, error) {
	o, err := a.Oper(i)
	if err != nil {
		return 0, err
	}
	return o.AsInt(a.Name(i))
}

func (a *Args) Bool(i int) (bool, error) {
	o, err := a.Oper(i)
	if err != nil {
		return false, err
	}
	return o.AsBool(a.Name(i))
}

func (a *Args) String(i int) (string, error) {
	o, err := a.Oper(i)
	if err != nil {
		return "", err
	}
	return o.AsString(a.Name(i))
}

func (a *Args) WString(i int) ([]uint16, error) {
	o, err := a.Oper(i)
	if err != nil {
		return nil, err
	}
	return o.AsWString(a.Name(i))
}

// Vector flattens argument i per policy.
func (a *Args) Vector(i int, policy oper.Policy) ([]float64, error) {
	o, err := a.Oper(i)
	if err != nil {
		return nil, err
	}
	return o.AsDoubleVector(policy, a.Name(i))
}

func (a *Args) Array(i int) ([]float64, error) {
	return a.Vector(i, oper.UniDimensional)
}

func (a *Args) Matrix(i int) (*cellmatrix.Matrix, error) {
	o, err := a.Oper(i)
	if err != nil {
		return nil, err
	}
	return o.AsMatrix(a.Name(i))
}

func (a *Args) CellMatrix(i int) (*cellmatrix.CellMatrix, error) {
	o, err := a.Oper(i)
	if err != nil {
		return nil, err
	}
	return o.AsCellMatrix(a.Name(i))
}

func (a *Args) Ref(i int) (xlref.Ref, error) {
	o, err := a.Oper(i)
	if err != nil {
		return xlref.Ref{}, err
	}
	return o.AsRef(a.Name(i))
}

func (a *Args) Err(i int) (xlcall.ErrorCode, error) {
	o, err := a.Oper(i)
	if err != nil {
		return 0, err
	}
	return o.AsErr(a.Name(i))
}

// Convert reads argument i with the conversion its declared type names.
// Untyped arguments come back as *oper.Oper.
func (a *Args) Convert(i int) (any, error) {
	arg, err := a.desc.Argument(i)
	if err != nil {
		return nil, err
	}
	switch m := arg.Type().ConversionMethod(); m {
	case metadata.ConvDouble:
		return a.Double(i)
	case metadata.ConvShort:
		return a.Short(i)
	case metadata.ConvInt:
		return a.Int(i)
	case metadata.ConvBool:
		return a.Bool(i)
	case metadata.ConvString:
		return a.String(i)
	case metadata.ConvWString:
		return a.WString(i)
	case metadata.ConvArray:
		return a.Array(i)
	case metadata.ConvMatrix:
		return a.Matrix(i)
	case metadata.ConvCellMatrix:
		return a.CellMatrix(i)
	case metadata.ConvRef:
		return a.Ref(i)
	case metadata.ConvErr:
		return a.Err(i)
	case metadata.ConvNone:
		return a.Oper(i)
	default:
		return nil, errors.Unsupported(errors.PhaseCall, "conversion method "+m)
	}
}

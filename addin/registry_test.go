package addin

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/metadata"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/simhost"
	"github.com/davidclayton/xlw/xlcall"
)

func newTestRegistry(t *testing.T, abi xlcall.ABI) (*Registry, *simhost.Host) {
	t.Helper()
	h, err := simhost.New(context.Background(), &simhost.Config{ABI: abi})
	if err != nil {
		t.Fatal(err)
	}
	s := host.NewSession(h, nil)
	t.Cleanup(func() {
		s.Close()
		_ = h.Close(context.Background())
	})
	return NewRegistry(s, &Config{Category: "Test"}), h
}

func describe(t *testing.T, name, ret string, argTypes ...string) metadata.FunctionDescription {
	t.Helper()
	rt, err := metadata.Lookup(ret)
	if err != nil {
		t.Fatal(err)
	}
	args := make([]metadata.FunctionArgument, len(argTypes))
	for i, id := range argTypes {
		at, err := metadata.Lookup(id)
		if err != nil {
			t.Fatal(err)
		}
		args[i] = metadata.NewFunctionArgument(at, string(rune('a'+i)), "")
	}
	return metadata.NewFunctionDescription(name, name+" help", ret, rt.ExcelKey(), args)
}

func add(args *Args) (*oper.Oper, error) {
	a, err := args.Double(0)
	if err != nil {
		return nil, err
	}
	b, err := args.Double(1)
	if err != nil {
		return nil, err
	}
	return oper.NewDouble(args.Session(), a+b)
}

// hostArgs builds argument records the way the host would, outside any
// call scope.
func hostArgs(t *testing.T, s *host.Session, values ...any) []uint32 {
	t.Helper()
	ptrs := make([]uint32, len(values))
	for i, v := range values {
		var o *oper.Oper
		var err error
		switch x := v.(type) {
		case float64:
			o, err = oper.NewDouble(s, x)
		case string:
			o, err = oper.NewString(s, x)
		}
		if err != nil {
			t.Fatal(err)
		}
		if _, err := o.Return(); err != nil {
			t.Fatal(err)
		}
		ptrs[i] = o.Ptr()
	}
	return ptrs
}

func TestRegister(t *testing.T) {
	r, _ := newTestRegistry(t, xlcall.ABILegacy)
	if err := r.Register(describe(t, "ADD", "double", "double", "double"), add); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		desc metadata.FunctionDescription
		h    Handler
	}{
		{"duplicate", describe(t, "ADD", "double"), add},
		{"empty name", describe(t, "", "double"), add},
		{"nil handler", describe(t, "NOPE", "double"), nil},
	}
	for _, tt := range tests {
		err := r.Register(tt.desc, tt.h)
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindRegistration}) {
			t.Errorf("%s: %v", tt.name, err)
		}
	}

	many := make([]string, 31)
	for i := range many {
		many[i] = "double"
	}
	if err := r.Register(describe(t, "WIDE", "double", many...), add); err == nil {
		t.Error("31 arguments accepted on legacy")
	}

	if fns := r.Functions(); len(fns) != 1 || fns[0].Name() != "ADD" {
		t.Errorf("Functions = %v", fns)
	}
}

func TestRegisterWith(t *testing.T) {
	r, h := newTestRegistry(t, xlcall.ABIModern)
	_ = r.Register(describe(t, "ADD", "double", "double", "double"), add)
	_ = r.Register(describe(t, "CONCAT", "string", "string", "ref"), add)
	if err := r.RegisterWith(h); err != nil {
		t.Fatal(err)
	}
	regs := h.Registrations()
	if len(regs) != 2 {
		t.Fatalf("registrations = %d", len(regs))
	}
	if regs[0].TypeText != "BBB" || regs[1].TypeText != "C%C%U" {
		t.Errorf("type texts = %q, %q", regs[0].TypeText, regs[1].TypeText)
	}
	if regs[0].Category != "Test" || len(regs[0].ArgumentNames) != 2 || regs[0].ArgumentNames[1] != "b" {
		t.Errorf("registration = %+v", regs[0])
	}
}

func TestInvoke(t *testing.T) {
	for _, abi := range []xlcall.ABI{xlcall.ABILegacy, xlcall.ABIModern} {
		t.Run(abi.String(), func(t *testing.T) {
			r, h := newTestRegistry(t, abi)
			s := r.Session()
			_ = r.Register(describe(t, "ADD", "double", "double", "double"), add)
			args := hostArgs(t, s, 1.5, "2")
			base := h.LiveBlocks()

			res := r.Invoke("ADD", args...)
			o := oper.Adopt(s, res)
			if v, err := o.AsDouble("result"); err != nil || v != 3.5 {
				t.Errorf("ADD = %v, %v", v, err)
			}
			if s.Stats().Live != 0 {
				t.Errorf("arena not empty after Invoke: %+v", s.Stats())
			}
			r.AutoFree(res)
			if h.LiveBlocks() != base {
				t.Errorf("LiveBlocks = %d, want %d", h.LiveBlocks(), base)
			}
		})
	}
}

func TestInvokeFailures(t *testing.T) {
	r, _ := newTestRegistry(t, xlcall.ABIModern)
	s := r.Session()
	_ = r.Register(describe(t, "ADD", "double", "double", "double"), add)
	_ = r.Register(describe(t, "PANIC", "double"), func(*Args) (*oper.Oper, error) {
		panic("boom")
	})
	_ = r.Register(describe(t, "NIL", "double"), func(*Args) (*oper.Oper, error) {
		return nil, nil
	})

	tests := []struct {
		name string
		fn   string
		args []uint32
		want xlcall.ErrorCode
	}{
		{"bad argument", "ADD", hostArgs(t, s, "abc", 1.0), xlcall.ErrValue},
		{"missing argument", "ADD", hostArgs(t, s, 1.0), xlcall.ErrValue},
		{"panic", "PANIC", nil, xlcall.ErrValue},
		{"nil result", "NIL", nil, xlcall.ErrValue},
		{"unknown", "NOPE", nil, xlcall.ErrName},
	}
	for _, tt := range tests {
		res := r.Invoke(tt.fn, tt.args...)
		code, err := oper.Adopt(s, res).AsErr("result")
		if err != nil || code != tt.want {
			t.Errorf("%s: got %v, %v", tt.name, code, err)
		}
		if !s.IsErrorConstant(res) {
			t.Errorf("%s: result is not the shared constant", tt.name)
		}
	}
}

func TestArgsConvert(t *testing.T) {
	r, _ := newTestRegistry(t, xlcall.ABIModern)
	s := r.Session()
	desc := describe(t, "F", "oper", "double", "string", "oper")
	args := NewArgs(s, desc, hostArgs(t, s, 2.0, "x", 3.0)...)

	if v, err := args.Convert(0); err != nil || v.(float64) != 2 {
		t.Errorf("Convert(0) = %v, %v", v, err)
	}
	if v, err := args.Convert(1); err != nil || v.(string) != "x" {
		t.Errorf("Convert(1) = %v, %v", v, err)
	}
	if v, err := args.Convert(2); err != nil || !v.(*oper.Oper).IsNumber() {
		t.Errorf("Convert(2) = %v, %v", v, err)
	}
	if _, err := args.Convert(3); err == nil {
		t.Error("Convert past the description succeeded")
	}
	if _, err := args.Double(9); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseCall, Kind: errors.KindOutOfBounds}) {
		t.Errorf("Double(9): %v", err)
	}

	_, err := args.Double(1)
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Identifier != "b" {
		t.Errorf("error does not name the argument: %v", err)
	}
}

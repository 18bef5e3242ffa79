package oper_test

import (
	"context"
	stderrors "errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/simhost"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

var abis = []xlcall.ABI{xlcall.ABILegacy, xlcall.ABIModern}

func newSession(t *testing.T, abi xlcall.ABI) (*host.Session, *simhost.Host) {
	t.Helper()
	h, err := simhost.New(context.Background(), &simhost.Config{ABI: abi})
	if err != nil {
		t.Fatalf("simhost.New: %v", err)
	}
	s := host.NewSession(h, nil)
	s.BeginCall()
	t.Cleanup(func() {
		s.Close()
		_ = h.Close(context.Background())
	})
	return s, h
}

func isKind(err error, phase errors.Phase, kind errors.Kind) bool {
	return stderrors.Is(err, &errors.Error{Phase: phase, Kind: kind})
}

func TestDoubleRoundTrip(t *testing.T) {
	values := []float64{0, math.Copysign(0, -1), 1, -2.5, 1e308, 5e-324, math.MaxFloat64, 1.0 / 3}
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, _ := newSession(t, abi)
			for _, v := range values {
				o, err := oper.NewDouble(s, v)
				if err != nil {
					t.Fatal(err)
				}
				got, err := o.AsDouble("v")
				if err != nil {
					t.Fatal(err)
				}
				if math.Float64bits(got) != math.Float64bits(v) {
					t.Errorf("round trip %v = %v", v, got)
				}
				if !o.IsNumber() || !o.Owned() {
					t.Errorf("NewDouble(%v) = %s", v, o)
				}
			}
		})
	}
}

func TestRelease(t *testing.T) {
	s, h := newSession(t, xlcall.ABIModern)
	base := h.LiveBlocks()

	o, err := oper.NewString(s, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if h.LiveBlocks() != base+2 {
		t.Fatalf("LiveBlocks = %d, want %d", h.LiveBlocks(), base+2)
	}
	if err := o.Release(); err != nil {
		t.Fatal(err)
	}
	if err := o.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if h.LiveBlocks() != base {
		t.Errorf("LiveBlocks after Release = %d, want %d", h.LiveBlocks(), base)
	}
	if o.Bound() || o.Ptr() != 0 {
		t.Error("released oper still bound")
	}
	if _, err := o.AsString("x"); !isKind(err, errors.PhaseConvert, errors.KindReleased) {
		t.Errorf("AsString after Release: %v", err)
	}
	if _, ret := o.ConvertToString(); ret != xlcall.RetInvXloper {
		t.Errorf("raw conversion after Release = %v", ret)
	}

	// Borrowed handles only detach.
	owner, _ := oper.NewDouble(s, 4)
	b := oper.Adopt(s, owner.Ptr())
	_ = b.Release()
	if v, err := owner.AsDouble("owner"); err != nil || v != 4 {
		t.Errorf("owner after borrowed release = %v, %v", v, err)
	}
}

func TestUnbound(t *testing.T) {
	var zero oper.Oper
	if zero.Bound() || zero.XLType() != 0 {
		t.Error("zero Oper should be unbound")
	}
	if _, err := zero.AsDouble("a"); !isKind(err, errors.PhaseConvert, errors.KindNotBound) {
		t.Errorf("AsDouble on zero Oper: %v", err)
	}
	if err := zero.SetDouble(1); !isKind(err, errors.PhaseConstruct, errors.KindNotBound) {
		t.Errorf("SetDouble on zero Oper: %v", err)
	}
	if err := zero.Release(); err != nil {
		t.Error(err)
	}

	s, _ := newSession(t, xlcall.ABIModern)
	if o := oper.Adopt(s, 0); o.Bound() {
		t.Error("Adopt(0) should be unbound")
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		abi  xlcall.ABI
		in   string
		want string
	}{
		{xlcall.ABILegacy, "plain", "plain"},
		{xlcall.ABILegacy, "€100 ü", "€100 ü"},
		{xlcall.ABILegacy, "漢字", "??"},
		{xlcall.ABILegacy, "", ""},
		{xlcall.ABIModern, "漢字 😀", "漢字 😀"},
		{xlcall.ABIModern, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.abi.String()+"/"+tt.in, func(t *testing.T) {
			s, _ := newSession(t, tt.abi)
			o, err := oper.NewString(s, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if o.XLType() != xlcall.TypeStr|xlcall.BitDLLFree {
				t.Errorf("type = %v", o.XLType())
			}
			got, err := o.AsString("s")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("AsString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringLimits(t *testing.T) {
	tests := []struct {
		abi xlcall.ABI
		max int
	}{
		{xlcall.ABILegacy, xlcall.LegacyMaxString},
		{xlcall.ABIModern, xlcall.ModernMaxString},
	}
	for _, tt := range tests {
		t.Run(tt.abi.String(), func(t *testing.T) {
			s, _ := newSession(t, tt.abi)
			o, err := oper.NewString(s, strings.Repeat("a", tt.max))
			if err != nil {
				t.Fatalf("max length rejected: %v", err)
			}
			got, _ := o.AsString("s")
			if len(got) != tt.max {
				t.Errorf("length = %d", len(got))
			}
			_, err = oper.NewString(s, strings.Repeat("a", tt.max+1))
			if !isKind(err, errors.PhaseConstruct, errors.KindStringTooLong) {
				t.Errorf("over-long string: %v", err)
			}
		})
	}
}

func TestWStringKeepsSurrogates(t *testing.T) {
	s, _ := newSession(t, xlcall.ABIModern)
	units := []uint16{'a', 0xD800, 'b'}
	o, err := oper.NewWString(s, units)
	if err != nil {
		t.Fatal(err)
	}
	got, err := o.AsWString("w")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, units) {
		t.Errorf("AsWString = %x, want %x", got, units)
	}
}

func TestScalarConversions(t *testing.T) {
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, _ := newSession(t, abi)

			str, _ := oper.NewString(s, "2.5")
			if v, err := str.AsDouble("x"); err != nil || v != 2.5 {
				t.Errorf("str->double = %v, %v", v, err)
			}

			nilv, _ := oper.NewNil(s)
			if v, err := nilv.AsDouble("x"); err != nil || v != 0 {
				t.Errorf("nil->double = %v, %v", v, err)
			}

			b, _ := oper.NewBool(s, true)
			if v, _ := b.AsDouble("x"); v != 1 {
				t.Errorf("bool->double = %v", v)
			}
			if v, _ := b.AsString("x"); v != "TRUE" {
				t.Errorf("bool->string = %q", v)
			}

			n, _ := oper.NewDouble(s, 1234.5)
			if v, _ := n.AsString("x"); v != "1234.5" {
				t.Errorf("num->string = %q", v)
			}
			if v, _ := n.AsBool("x"); !v {
				t.Error("num->bool = false")
			}

			sh, _ := oper.NewShort(s, -7)
			if !sh.IsInt() {
				t.Errorf("NewShort type = %v", sh.XLType())
			}
			if v, err := sh.AsShort("x"); err != nil || v != -7 {
				t.Errorf("short round trip = %v, %v", v, err)
			}

			e, _ := oper.NewErrorValue(s, xlcall.ErrDiv0)
			if code, err := e.AsErr("x"); err != nil || code != xlcall.ErrDiv0 {
				t.Errorf("AsErr = %v, %v", code, err)
			}
			if _, err := e.AsDouble("rate"); !isKind(err, errors.PhaseConvert, errors.KindCoerce) {
				t.Errorf("err->double: %v", err)
			} else if !strings.Contains(err.Error(), "rate") {
				t.Errorf("error does not name the argument: %v", err)
			}

			bad, _ := oper.NewString(s, "abc")
			if _, err := bad.AsBool("x"); err == nil {
				t.Error("abc->bool succeeded")
			}
		})
	}
}

func TestIntegralConversions(t *testing.T) {
	s, _ := newSession(t, xlcall.ABIModern)
	tests := []struct {
		in      float64
		shortOK bool
		intOK   bool
	}{
		{3, true, true},
		{-32768, true, true},
		{3.5, false, false},
		{40000, false, true},
		{3e9, false, false},
		{math.NaN(), false, false},
	}
	for _, tt := range tests {
		o, _ := oper.NewDouble(s, tt.in)
		if _, ret := o.ConvertToShort(); ret.OK() != tt.shortOK {
			t.Errorf("ConvertToShort(%v) = %v", tt.in, ret)
		}
		if _, ret := o.ConvertToInt(); ret.OK() != tt.intOK {
			t.Errorf("ConvertToInt(%v) = %v", tt.in, ret)
		}
	}
}

func sampleMatrix(t *testing.T) *cellmatrix.CellMatrix {
	t.Helper()
	m, err := cellmatrix.FromRows([][]cellmatrix.CellValue{
		{cellmatrix.Number(1.5), cellmatrix.String("two"), cellmatrix.Bool(true)},
		{cellmatrix.Error(xlcall.ErrNA), cellmatrix.Empty(), cellmatrix.String("")},
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCellMatrixRoundTrip(t *testing.T) {
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, _ := newSession(t, abi)
			in := sampleMatrix(t)
			o, err := oper.NewCellMatrix(s, in)
			if err != nil {
				t.Fatal(err)
			}
			if r, c := o.Dims(); r != 2 || c != 3 {
				t.Errorf("Dims = %dx%d", r, c)
			}
			out, err := o.AsCellMatrix("m")
			if err != nil {
				t.Fatal(err)
			}
			if !out.Equal(in) {
				t.Errorf("round trip differs")
			}
			if _, err := o.AsMatrix("m"); err == nil {
				t.Error("AsMatrix accepted non-numeric cells")
			}
		})
	}
}

func TestScalarPromotesToCellMatrix(t *testing.T) {
	s, _ := newSession(t, xlcall.ABIModern)
	o, _ := oper.NewString(s, "x")
	m, err := o.AsCellMatrix("x")
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows() != 1 || m.Columns() != 1 || !m.At(0, 0).Equal(cellmatrix.String("x")) {
		t.Errorf("promoted matrix = %v", m.Values())
	}
}

func TestDoubleVectorPolicies(t *testing.T) {
	tests := []struct {
		policy oper.Policy
		want   []float64
	}{
		{oper.RowMajor, []float64{1, 2, 3, 4, 5, 6}},
		{oper.ColumnMajor, []float64{1, 4, 2, 5, 3, 6}},
	}

	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, _ := newSession(t, abi)
			m, _ := cellmatrix.MatrixFromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
			o, err := oper.NewMatrix(s, m)
			if err != nil {
				t.Fatal(err)
			}
			for _, tt := range tests {
				got, err := o.AsDoubleVector(tt.policy, "m")
				if err != nil {
					t.Fatalf("%v: %v", tt.policy, err)
				}
				if !slices.Equal(got, tt.want) {
					t.Errorf("%v = %v, want %v", tt.policy, got, tt.want)
				}
			}

			sq, _ := cellmatrix.MatrixFromRows([][]float64{{1, 2}, {3, 4}})
			o2, _ := oper.NewMatrix(s, sq)
			if _, err := o2.AsArray("sq"); !isKind(err, errors.PhaseConvert, errors.KindShape) {
				t.Errorf("2x2 unidimensional: %v", err)
			}

			row, _ := cellmatrix.MatrixFromRows([][]float64{{1, 2, 3, 4}})
			o3, _ := oper.NewMatrix(s, row)
			if got, err := o3.AsArray("row"); err != nil || !slices.Equal(got, []float64{1, 2, 3, 4}) {
				t.Errorf("1x4 = %v, %v", got, err)
			}

			col, _ := oper.NewArray(s, []float64{7, 8})
			if r, c := col.Dims(); r != 2 || c != 1 {
				t.Errorf("NewArray dims = %dx%d", r, c)
			}
			if _, err := oper.NewArray(s, nil); !isKind(err, errors.PhaseConstruct, errors.KindInvalidInput) {
				t.Errorf("empty array: %v", err)
			}

			scalar, _ := oper.NewDouble(s, 9)
			if got, _ := scalar.AsArray("x"); !slices.Equal(got, []float64{9}) {
				t.Errorf("scalar vector = %v", got)
			}
		})
	}
}

func TestAssignDoesNotAlias(t *testing.T) {
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, _ := newSession(t, abi)
			a, _ := oper.NewString(s, "original")
			b, _ := oper.NewDouble(s, 1)
			if err := b.Assign(a); err != nil {
				t.Fatal(err)
			}
			if err := a.SetString("changed"); err != nil {
				t.Fatal(err)
			}
			if got, _ := b.AsString("b"); got != "original" {
				t.Errorf("copy changed with source: %q", got)
			}
			_ = a.Release()
			if got, _ := b.AsString("b"); got != "original" {
				t.Errorf("copy lost after source release: %q", got)
			}

			m, _ := oper.NewCellMatrix(s, sampleMatrix(t))
			var c oper.Oper
			if err := c.Assign(m); err != nil {
				t.Fatal(err)
			}
			if !c.Owned() {
				t.Error("unbound destination should become owned")
			}
			_ = m.Release()
			got, err := c.AsCellMatrix("c")
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(sampleMatrix(t)) {
				t.Error("matrix copy differs after source release")
			}

			clone, err := c.Clone()
			if err != nil {
				t.Fatal(err)
			}
			if clone.Ptr() == c.Ptr() {
				t.Error("Clone shares the record")
			}
		})
	}
}

func TestReferences(t *testing.T) {
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, h := newSession(t, abi)

			local, _ := xlref.Single(0, 1, 0, 1)
			o, err := oper.NewRef(s, local)
			if err != nil {
				t.Fatal(err)
			}
			if !o.IsSRef() {
				t.Errorf("local ref type = %v", o.XLType())
			}
			if got, _ := o.AsRef("r"); !got.Equal(local) {
				t.Errorf("AsRef = %v", got)
			}

			multi, _ := xlref.New(3, xlref.Cell(0, 0), xlref.Cell(4, 2))
			o2, err := oper.NewRef(s, multi)
			if err != nil {
				t.Fatal(err)
			}
			if o2.XLType() != xlcall.TypeRef|xlcall.BitDLLFree {
				t.Errorf("multi-area type = %v", o2.XLType())
			}
			if got, _ := o2.AsRef("r"); !got.Equal(multi) {
				t.Errorf("AsRef = %v, want %v", got, multi)
			}

			_ = h.SetCell(0, 0, 0, cellmatrix.Number(1))
			_ = h.SetCell(0, 0, 1, cellmatrix.Number(2))
			_ = h.SetCell(0, 1, 0, cellmatrix.Number(3))
			_ = h.SetCell(0, 1, 1, cellmatrix.Number(4))
			if got, err := o.AsDoubleVector(oper.RowMajor, "r"); err != nil || !slices.Equal(got, []float64{1, 2, 3, 4}) {
				t.Errorf("ref vector = %v, %v", got, err)
			}
			if _, err := o.AsDouble("r"); err == nil {
				t.Error("multi-cell ref converted to double")
			}
		})
	}

	s, _ := newSession(t, xlcall.ABILegacy)
	wide, _ := xlref.Single(0, 0, 0, 300)
	if _, err := oper.NewRef(s, wide); !isKind(err, errors.PhaseConstruct, errors.KindABILimit) {
		t.Errorf("legacy column 300: %v", err)
	}
}

func TestArrayOf(t *testing.T) {
	s, _ := newSession(t, xlcall.ABILegacy)

	o, err := oper.NewArrayOf(s, 2, 2, slices.Values([]string{"a", "b", "c", "d"}))
	if err != nil {
		t.Fatal(err)
	}
	m, _ := o.AsCellMatrix("o")
	if m.At(1, 0).StringValue() != "c" {
		t.Errorf("At(1,0) = %v", m.At(1, 0))
	}

	_, err = oper.NewArrayOf(s, 70000, 1, slices.Values([]float64{1}))
	if !isKind(err, errors.PhaseConstruct, errors.KindABILimit) {
		t.Errorf("70000 rows on legacy: %v", err)
	}

	_, err = oper.NewArrayOf(s, 2, 3, slices.Values([]int{1, 2}))
	if !isKind(err, errors.PhaseConstruct, errors.KindInvalidInput) {
		t.Errorf("short sequence: %v", err)
	}

	long, err := oper.NewArrayOf(s, 1, 2, slices.Values([]bool{true, false, true}))
	if err != nil {
		t.Fatalf("extra elements: %v", err)
	}
	if r, c := long.Dims(); r != 1 || c != 2 {
		t.Errorf("Dims = %dx%d", r, c)
	}

	codes, err := oper.NewArrayOf(s, 1, 1, slices.Values([]xlcall.ErrorCode{xlcall.ErrRef}))
	if err != nil {
		t.Fatal(err)
	}
	cm, _ := codes.AsCellMatrix("codes")
	if cm.At(0, 0).ErrorValue() != xlcall.ErrRef {
		t.Errorf("error element = %v", cm.At(0, 0))
	}
}

func TestReturn(t *testing.T) {
	h, err := simhost.New(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close(context.Background())
	s := host.NewSession(h, nil)
	base := h.LiveBlocks()

	s.BeginCall()
	o, _ := oper.NewString(s, "result")
	ptr, err := o.Return()
	if err != nil {
		t.Fatal(err)
	}
	_ = o.Release()
	s.EndCall()

	o2 := oper.Adopt(s, ptr)
	if got, _ := o2.AsString("r"); got != "result" {
		t.Errorf("returned value after EndCall = %q", got)
	}
	if o2.XLType()&xlcall.BitDLLFree == 0 {
		t.Error("returned record not marked add-in freed")
	}

	s.AutoFree(ptr)
	if h.LiveBlocks() != base {
		t.Errorf("LiveBlocks = %d, want %d", h.LiveBlocks(), base)
	}
}

func TestEndCallEmptiesArena(t *testing.T) {
	s, _ := newSession(t, xlcall.ABIModern)
	_, _ = oper.NewString(s, "a")
	_, _ = oper.NewCellMatrix(s, sampleMatrix(t))
	_, _ = oper.NewArray(s, []float64{1, 2, 3})
	if s.Stats().Live == 0 {
		t.Fatal("nothing allocated")
	}
	s.EndCall()
	if st := s.Stats(); st.Live != 0 || st.Bytes != 0 {
		t.Errorf("arena after EndCall = %+v", st)
	}
}

func TestHandlesExpireWithCallScope(t *testing.T) {
	for _, abi := range abis {
		t.Run(abi.String(), func(t *testing.T) {
			s, h := newSession(t, abi)
			stale, err := oper.NewDouble(s, 1)
			if err != nil {
				t.Fatal(err)
			}
			old := stale.Ptr()
			s.EndCall()

			s.BeginCall()
			live, err := oper.NewString(s, "hello")
			if err != nil {
				t.Fatal(err)
			}
			base := h.LiveBlocks()

			if stale.Bound() || stale.Owned() || stale.Ptr() != 0 {
				t.Errorf("handle from a closed scope still bound (was %#x, live %#x)", old, live.Ptr())
			}
			if err := stale.Release(); err != nil {
				t.Errorf("Release: %v", err)
			}
			if h.LiveBlocks() != base {
				t.Errorf("LiveBlocks = %d, want %d", h.LiveBlocks(), base)
			}
			if _, ret := stale.ConvertToDouble(); ret != xlcall.RetInvXloper {
				t.Errorf("ConvertToDouble = %v", ret)
			}
			if _, err := stale.AsDouble("x"); !isKind(err, errors.PhaseConvert, errors.KindReleased) {
				t.Errorf("AsDouble: %v", err)
			}
			if err := stale.SetDouble(2); !isKind(err, errors.PhaseConstruct, errors.KindReleased) {
				t.Errorf("SetDouble: %v", err)
			}
			if _, err := stale.Return(); !isKind(err, errors.PhaseCall, errors.KindReleased) {
				t.Errorf("Return: %v", err)
			}

			if v, ret := live.ConvertToString(); ret != xlcall.RetSuccess || v != "hello" {
				t.Errorf("live = %q, %v", v, ret)
			}
		})
	}
}

func TestErrorConstants(t *testing.T) {
	s, _ := newSession(t, xlcall.ABIModern)
	e := oper.Error(s, xlcall.ErrNA)
	if !e.Bound() || e.Owned() {
		t.Fatal("error constant should be borrowed")
	}
	if e.Ptr() != oper.Error(s, xlcall.ErrNA).Ptr() {
		t.Error("error constant not shared")
	}
	if err := e.SetDouble(1); err == nil {
		t.Error("error constant was overwritten")
	}
	if code, _ := e.AsErr("e"); code != xlcall.ErrNA {
		t.Errorf("code = %v", code)
	}
	if e.String() != "err(#N/A)" {
		t.Errorf("String = %q", e.String())
	}
}

func TestSettersReleasePrevious(t *testing.T) {
	s, h := newSession(t, xlcall.ABIModern)
	o, _ := oper.NewNil(s)
	before := h.LiveBlocks()

	_ = o.SetString("one")
	_ = o.SetCellMatrix(sampleMatrix(t))
	_ = o.SetDouble(3)
	if h.LiveBlocks() != before {
		t.Errorf("setters leaked %d blocks", h.LiveBlocks()-before)
	}
	if !o.IsNumber() {
		t.Errorf("type = %v", o.XLType())
	}
	_ = o.SetMissing()
	if !o.IsMissing() || o.String() != "missing" {
		t.Errorf("String = %q", o.String())
	}
}
